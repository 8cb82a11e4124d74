package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"swapRouter/internal/model"
)

// LogMeta positions an encoded event in the journal.
type LogMeta struct {
	ChainID     uint64
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint64
	Depth       int
	Emitter     common.Address
	Timestamp   uint64
}

// Encoder turns emitted events into EVM-style log records.
type Encoder struct {
	poolABI abi.ABI
}

func NewEncoder() (*Encoder, error) {
	poolABI, err := PoolEventsABI()
	if err != nil {
		return nil, err
	}
	return &Encoder{poolABI: poolABI}, nil
}

// Encode packs event into a LogRecord.
func (e *Encoder) Encode(event model.Event, meta LogMeta) (model.LogRecord, error) {
	var (
		topics []common.Hash
		values []interface{}
	)
	switch ev := event.(type) {
	case model.SwapEvent:
		topics = []common.Hash{addressTopic(ev.Pool), addressTopic(ev.Recipient)}
		values = []interface{}{orZero(ev.AmountIn), orZero(ev.AmountOut), orZero(ev.Fee)}
	case model.LiquidityEvent:
		topics = []common.Hash{addressTopic(ev.Pool), addressTopic(ev.Recipient)}
		values = []interface{}{orZero(ev.Amount1), orZero(ev.Amount2), orZero(ev.Liquidity)}
	case model.ForwardFeeEvent:
		topics = []common.Hash{addressTopic(ev.Pool), addressTopic(ev.Distributor)}
		values = []interface{}{orZero(ev.Epoch), orZero(ev.Fee1), orZero(ev.Fee2)}
	case model.RouteSettledEvent:
		topics = []common.Hash{ev.RouteID, addressTopic(ev.Recipient)}
		values = []interface{}{new(big.Int).SetUint64(ev.Hops)}
	default:
		return model.LogRecord{}, fmt.Errorf("unsupported event %T", event)
	}

	abiEvent, ok := e.poolABI.Events[event.EventName()]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unknown event name: %s", event.EventName())
	}
	data, err := abiEvent.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", abiEvent.Name, err)
	}

	topicStrings := make([]string, 0, len(topics)+1)
	topicStrings = append(topicStrings, abiEvent.ID.Hex())
	for _, topic := range topics {
		topicStrings = append(topicStrings, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     meta.ChainID,
		BlockNumber: meta.BlockNumber,
		TxHash:      meta.TxHash.Hex(),
		LogIndex:    meta.LogIndex,
		Depth:       meta.Depth,
		Address:     meta.Emitter.Hex(),
		Topics:      topicStrings,
		Data:        hexutil.Encode(data),
		Timestamp:   meta.Timestamp,
	}, nil
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
