package chain

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/model"
)

type ping struct{ Tag string }

func (p ping) Kind() string { return "test.ping:" + p.Tag }

// recorder logs every delivery into a shared trace and replies with a
// scripted list of messages.
type recorder struct {
	name    string
	trace   *[]string
	froms   []model.Address
	replies map[string][]model.Message
	failOn  string
	counter int
}

func (r *recorder) Handle(_ context.Context, from model.Address, body model.Body) ([]model.Message, error) {
	p := body.(ping)
	*r.trace = append(*r.trace, r.name+":"+p.Tag)
	r.froms = append(r.froms, from)
	r.counter++
	if p.Tag == r.failOn {
		return nil, dexerr.New(dexerr.KindInvalidState, "scripted failure")
	}
	return r.replies[p.Tag], nil
}

func (r *recorder) Snapshot() interface{} { return r.counter }

func (r *recorder) Rollback(s interface{}) { r.counter = s.(int) }

type captureSink struct {
	batches [][]model.LogRecord
}

func (s *captureSink) PutLogBatch(logs []model.LogRecord) error {
	s.batches = append(s.batches, logs)
	return nil
}

var (
	user  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	addrA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addrB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	addrC = common.HexToAddress("0x000000000000000000000000000000000000000c")
	ext   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

func newTestChain(t *testing.T, sink *captureSink, opts ...Option) *Chain {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	var c *Chain
	var err error
	if sink == nil {
		c, err = New(1337, nil, nil, opts...)
	} else {
		c, err = New(1337, sink, nil, opts...)
	}
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	return c
}

func TestSubmitDepthFirst(t *testing.T) {
	var trace []string
	a := &recorder{name: "a", trace: &trace, replies: map[string][]model.Message{
		"start": {
			{To: addrB, Body: ping{Tag: "b1"}},
			{To: addrC, Body: ping{Tag: "c1"}},
		},
	}}
	b := &recorder{name: "b", trace: &trace, replies: map[string][]model.Message{
		"b1": {
			{To: addrC, Body: ping{Tag: "c0"}},
			{To: ext, Body: ping{Tag: "out"}},
		},
	}}
	c := &recorder{name: "c", trace: &trace}

	ch := newTestChain(t, nil)
	ch.Register(addrA, a)
	ch.Register(addrB, b)
	ch.Register(addrC, c)

	receipt, err := ch.Submit(context.Background(), model.Message{From: user, To: addrA, Body: ping{Tag: "start"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := []string{"a:start", "b:b1", "c:c0", "c:c1"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("delivery order: got %v want %v", trace, want)
	}
	if len(receipt.Deliveries) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(receipt.Deliveries))
	}
	extDelivery := receipt.Deliveries[3]
	if !extDelivery.External || extDelivery.To != ext || extDelivery.From != addrB || extDelivery.Depth != 2 {
		t.Fatalf("unexpected external delivery: %+v", extDelivery)
	}
	if a.froms[0] != user || b.froms[0] != addrA || c.froms[0] != addrB || c.froms[1] != addrA {
		t.Fatalf("sender stamping mismatch: a=%v b=%v c=%v", a.froms, b.froms, c.froms)
	}
	if receipt.Block != 1 || receipt.Reverted {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestSubmitStampsForgedSender(t *testing.T) {
	var trace []string
	a := &recorder{name: "a", trace: &trace, replies: map[string][]model.Message{
		"start": {{From: user, To: addrB, Body: ping{Tag: "forged"}}},
	}}
	b := &recorder{name: "b", trace: &trace}

	ch := newTestChain(t, nil)
	ch.Register(addrA, a)
	ch.Register(addrB, b)

	if _, err := ch.Submit(context.Background(), model.Message{From: user, To: addrA, Body: ping{Tag: "start"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if b.froms[0] != addrA {
		t.Fatalf("forged sender survived: %s", b.froms[0].Hex())
	}
}

func TestSubmitRollsBackEveryHandler(t *testing.T) {
	var trace []string
	a := &recorder{name: "a", trace: &trace, replies: map[string][]model.Message{
		"start": {
			{To: addrB, Body: ping{Tag: "ok"}},
			{To: addrC, Body: ping{Tag: "boom"}},
		},
	}}
	b := &recorder{name: "b", trace: &trace}
	c := &recorder{name: "c", trace: &trace, failOn: "boom"}

	sink := &captureSink{}
	ch := newTestChain(t, sink)
	ch.Register(addrA, a)
	ch.Register(addrB, b)
	ch.Register(addrC, c)

	receipt, err := ch.Submit(context.Background(), model.Message{From: user, To: addrA, Body: ping{Tag: "start"}})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !dexerr.Is(err, dexerr.KindInvalidState) {
		t.Fatalf("error kind lost: %v", err)
	}
	if !receipt.Reverted || !errors.Is(receipt.Err, err) {
		t.Fatalf("receipt not reverted: %+v", receipt)
	}
	if a.counter != 0 || b.counter != 0 || c.counter != 0 {
		t.Fatalf("rollback incomplete: a=%d b=%d c=%d", a.counter, b.counter, c.counter)
	}
	if len(sink.batches) != 0 {
		t.Fatalf("reverted submission reached the journal")
	}
}

func TestSubmitDepthLimit(t *testing.T) {
	var trace []string
	loop := &recorder{name: "loop", trace: &trace, replies: map[string][]model.Message{
		"again": {{To: addrA, Body: ping{Tag: "again"}}},
	}}
	ch := newTestChain(t, nil, WithMaxDepth(4))
	ch.Register(addrA, loop)

	receipt, err := ch.Submit(context.Background(), model.Message{From: user, To: addrA, Body: ping{Tag: "again"}})
	if err == nil || !receipt.Reverted {
		t.Fatalf("expected depth failure")
	}
	if loop.counter != 0 {
		t.Fatalf("loop state not rolled back: %d", loop.counter)
	}
}

func TestSubmitJournalsEvents(t *testing.T) {
	var trace []string
	a := &recorder{name: "a", trace: &trace, replies: map[string][]model.Message{
		"start": {
			{Body: model.SwapEvent{Pool: addrA, Recipient: user, AmountIn: big.NewInt(10), AmountOut: big.NewInt(9), Fee: big.NewInt(1)}},
			{To: addrB, Body: ping{Tag: "next"}},
		},
	}}
	b := &recorder{name: "b", trace: &trace}

	sink := &captureSink{}
	ch := newTestChain(t, sink)
	ch.Register(addrA, a)
	ch.Register(addrB, b)

	receipt, err := ch.Submit(context.Background(), model.Message{From: user, To: addrA, Body: ping{Tag: "start"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(receipt.Logs) != 1 || len(sink.batches) != 1 || len(sink.batches[0]) != 1 {
		t.Fatalf("expected one journaled log, receipt=%d batches=%d", len(receipt.Logs), len(sink.batches))
	}
	record := receipt.Logs[0]
	if record.Address != addrA.Hex() || record.ChainID != 1337 || record.Timestamp != 1700000000 || record.Depth != 1 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.TxHash != receipt.TxHash.Hex() {
		t.Fatalf("tx hash mismatch")
	}
	for _, d := range receipt.Deliveries {
		if d.Kind == (model.SwapEvent{}).Kind() {
			t.Fatalf("event was delivered as a message")
		}
	}
}

func TestSubmitGroupIsAtomic(t *testing.T) {
	var trace []string
	a := &recorder{name: "a", trace: &trace, replies: map[string][]model.Message{
		"first": {{To: addrB, Body: ping{Tag: "nested"}}},
	}}
	b := &recorder{name: "b", trace: &trace, failOn: "second"}

	ch := newTestChain(t, nil)
	ch.Register(addrA, a)
	ch.Register(addrB, b)

	receipt, err := ch.SubmitGroup(context.Background(),
		model.Message{From: user, To: addrA, Body: ping{Tag: "first"}},
		model.Message{From: user, To: addrB, Body: ping{Tag: "second"}},
	)
	if err == nil || !receipt.Reverted {
		t.Fatalf("expected reverted group")
	}
	want := []string{"a:first", "b:nested", "b:second"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("group order: got %v want %v", trace, want)
	}
	if a.counter != 0 || b.counter != 0 {
		t.Fatalf("group not rolled back: a=%d b=%d", a.counter, b.counter)
	}

	if _, err := ch.SubmitGroup(context.Background()); err == nil {
		t.Fatalf("expected empty group error")
	}
}
