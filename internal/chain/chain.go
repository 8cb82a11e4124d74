package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"swapRouter/internal/dex"
	"swapRouter/internal/model"
	"swapRouter/internal/storage"
)

// DefaultMaxDepth bounds how deep a message cascade may go.
const DefaultMaxDepth = 64

// Handler is anything that can receive messages.
type Handler interface {
	Handle(ctx context.Context, from model.Address, body model.Body) ([]model.Message, error)
}

// Snapshotter lets the host undo a handler's changes when a submission
// fails.
type Snapshotter interface {
	Snapshot() interface{}
	Rollback(snapshot interface{})
}

// Delivery is one message the host routed.
type Delivery struct {
	From     model.Address
	To       model.Address
	Kind     string
	Depth    int
	External bool
}

// Receipt describes one submission.
type Receipt struct {
	Block      uint64
	TxHash     common.Hash
	Deliveries []Delivery
	Logs       []model.LogRecord
	Reverted   bool
	Err        error
}

// Chain delivers messages depth-first between registered handlers.
type Chain struct {
	chainID  uint64
	sink     storage.LogSink
	encoder  *dex.Encoder
	logger   *zap.Logger
	maxDepth int
	now      func() time.Time

	mu       sync.Mutex
	handlers map[model.Address]Handler
	block    uint64
}

type Option func(*Chain)

func WithMaxDepth(depth int) Option {
	return func(c *Chain) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a host. sink may be nil, in which case events are only kept on
// receipts.
func New(chainID uint64, sink storage.LogSink, logger *zap.Logger, opts ...Option) (*Chain, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	encoder, err := dex.NewEncoder()
	if err != nil {
		return nil, fmt.Errorf("build event encoder: %w", err)
	}
	c := &Chain{
		chainID:  chainID,
		sink:     sink,
		encoder:  encoder,
		logger:   logger,
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
		handlers: make(map[model.Address]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Chain) ChainID() uint64 { return c.chainID }

// Register installs h at addr, replacing any previous handler.
func (c *Chain) Register(addr model.Address, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[addr] = h
}

func (c *Chain) Handler(addr model.Address) (Handler, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handlers[addr]
	return h, ok
}

type frame struct {
	msg   model.Message
	depth int
}

type snapshot struct {
	target Snapshotter
	state  interface{}
}

// Submit delivers msg and everything it causes. Either every delivery
// succeeds or every registered handler is rolled back and the receipt is
// marked reverted.
func (c *Chain) Submit(ctx context.Context, msg model.Message) (Receipt, error) {
	return c.SubmitGroup(ctx, msg)
}

// SubmitGroup delivers msgs in order as one atomic unit: the cascade of each
// message completes before the next one starts, and a failure anywhere
// reverts all of them.
func (c *Chain) SubmitGroup(ctx context.Context, msgs ...model.Message) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(msgs) == 0 {
		return Receipt{}, fmt.Errorf("submit: empty operation group")
	}
	for _, m := range msgs {
		if m.Body == nil {
			return Receipt{}, fmt.Errorf("submit: empty message body")
		}
	}
	msg := msgs[0]

	c.block++
	receipt := Receipt{Block: c.block, TxHash: c.txHash(msg)}
	ts := uint64(c.now().Unix())
	snaps := c.snapshotAll()

	fail := func(err error) (Receipt, error) {
		for i := len(snaps) - 1; i >= 0; i-- {
			snaps[i].target.Rollback(snaps[i].state)
		}
		receipt.Logs = nil
		receipt.Reverted = true
		receipt.Err = err
		c.logger.Warn("submission reverted",
			zap.Uint64("block", receipt.Block),
			zap.String("tx", receipt.TxHash.Hex()),
			zap.String("kind", msg.Body.Kind()),
			zap.Int("group", len(msgs)),
			zap.Error(err),
		)
		return receipt, err
	}

	stack := make([]frame, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		stack = append(stack, frame{msg: msgs[i]})
	}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		m := top.msg

		if m.Body == nil {
			return fail(fmt.Errorf("message from %s to %s has no body", m.From.Hex(), m.To.Hex()))
		}
		if top.depth > c.maxDepth {
			return fail(fmt.Errorf("max delivery depth %d exceeded", c.maxDepth))
		}

		if event, ok := m.Body.(model.Event); ok {
			record, err := c.encoder.Encode(event, dex.LogMeta{
				ChainID:     c.chainID,
				BlockNumber: receipt.Block,
				TxHash:      receipt.TxHash,
				LogIndex:    uint64(len(receipt.Logs)),
				Depth:       top.depth,
				Emitter:     m.From,
				Timestamp:   ts,
			})
			if err != nil {
				return fail(fmt.Errorf("encode %s: %w", event.EventName(), err))
			}
			receipt.Logs = append(receipt.Logs, record)
			continue
		}

		h, ok := c.handlers[m.To]
		receipt.Deliveries = append(receipt.Deliveries, Delivery{
			From:     m.From,
			To:       m.To,
			Kind:     m.Body.Kind(),
			Depth:    top.depth,
			External: !ok,
		})
		if !ok {
			c.logger.Debug("external delivery", zap.String("to", m.To.Hex()), zap.String("kind", m.Body.Kind()))
			continue
		}

		out, err := h.Handle(ctx, m.From, m.Body)
		if err != nil {
			return fail(fmt.Errorf("deliver %s to %s: %w", m.Body.Kind(), m.To.Hex(), err))
		}
		// Reverse push so the first emitted message runs next.
		for i := len(out) - 1; i >= 0; i-- {
			next := out[i]
			next.From = m.To
			stack = append(stack, frame{msg: next, depth: top.depth + 1})
		}
	}

	if c.sink != nil && len(receipt.Logs) > 0 {
		if err := c.sink.PutLogBatch(receipt.Logs); err != nil {
			return fail(fmt.Errorf("write journal: %w", err))
		}
	}

	c.logger.Info("submission applied",
		zap.Uint64("block", receipt.Block),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.String("kind", msg.Body.Kind()),
		zap.Int("group", len(msgs)),
		zap.Int("deliveries", len(receipt.Deliveries)),
		zap.Int("logs", len(receipt.Logs)),
	)
	return receipt, nil
}

// snapshotAll captures every snapshottable handler in address order.
func (c *Chain) snapshotAll() []snapshot {
	addrs := make([]model.Address, 0, len(c.handlers))
	for addr := range c.handlers {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})

	snaps := make([]snapshot, 0, len(addrs))
	for _, addr := range addrs {
		if s, ok := c.handlers[addr].(Snapshotter); ok {
			snaps = append(snaps, snapshot{target: s, state: s.Snapshot()})
		}
	}
	return snaps
}

func (c *Chain) txHash(msg model.Message) common.Hash {
	var n [16]byte
	binary.BigEndian.PutUint64(n[:8], c.chainID)
	binary.BigEndian.PutUint64(n[8:], c.block)
	return crypto.Keccak256Hash(n[:], msg.From.Bytes(), msg.To.Bytes(), []byte(msg.Body.Kind()))
}
