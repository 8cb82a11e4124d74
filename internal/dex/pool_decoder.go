package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"swapRouter/internal/model"
)

// PoolEventDecoder decodes journal records written by Encoder.
type PoolEventDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewPoolEventDecoder builds a decoder for every event in PoolEventsABI.
func NewPoolEventDecoder() (*PoolEventDecoder, error) {
	poolABI, err := PoolEventsABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	return &PoolEventDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *PoolEventDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *PoolEventDecoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid emitter address: %s", log.Address)
	}

	var (
		decoded interface{}
		err     error
	)
	switch name {
	case model.EventSwap:
		decoded, err = d.decodeSwap(log)
	case model.EventAddLiquidity, model.EventRemoveLiquidity:
		decoded, err = d.decodeLiquidity(name, log)
	case model.EventForwardFee:
		decoded, err = d.decodeForwardFee(log)
	case model.EventRouteSettled:
		decoded, err = d.decodeRouteSettled(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return model.NewTypedEvent(log, name, decoded), nil
}

type addressPair struct {
	Pool        common.Address
	Recipient   common.Address
	Distributor common.Address
}

func (d *PoolEventDecoder) decodeSwap(log model.LogRecord) (model.SwapEventData, error) {
	event := d.poolABI.Events[model.EventSwap]
	var indexed addressPair
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.SwapEventData{}, err
	}
	amounts, err := unpackAmounts(event, log.Data, 3)
	if err != nil {
		return model.SwapEventData{}, err
	}
	return model.SwapEventData{
		Pool:      indexed.Pool.Hex(),
		Recipient: indexed.Recipient.Hex(),
		AmountIn:  amounts[0].String(),
		AmountOut: amounts[1].String(),
		Fee:       amounts[2].String(),
	}, nil
}

func (d *PoolEventDecoder) decodeLiquidity(name string, log model.LogRecord) (model.LiquidityEventData, error) {
	event := d.poolABI.Events[name]
	var indexed addressPair
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.LiquidityEventData{}, err
	}
	amounts, err := unpackAmounts(event, log.Data, 3)
	if err != nil {
		return model.LiquidityEventData{}, err
	}
	return model.LiquidityEventData{
		Pool:      indexed.Pool.Hex(),
		Recipient: indexed.Recipient.Hex(),
		Amount1:   amounts[0].String(),
		Amount2:   amounts[1].String(),
		Liquidity: amounts[2].String(),
	}, nil
}

func (d *PoolEventDecoder) decodeForwardFee(log model.LogRecord) (model.ForwardFeeEventData, error) {
	event := d.poolABI.Events[model.EventForwardFee]
	var indexed addressPair
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.ForwardFeeEventData{}, err
	}
	amounts, err := unpackAmounts(event, log.Data, 3)
	if err != nil {
		return model.ForwardFeeEventData{}, err
	}
	return model.ForwardFeeEventData{
		Pool:        indexed.Pool.Hex(),
		Distributor: indexed.Distributor.Hex(),
		Epoch:       amounts[0].String(),
		Fee1:        amounts[1].String(),
		Fee2:        amounts[2].String(),
	}, nil
}

func (d *PoolEventDecoder) decodeRouteSettled(log model.LogRecord) (model.RouteSettledEventData, error) {
	event := d.poolABI.Events[model.EventRouteSettled]
	var indexed struct {
		RouteId   [32]byte
		Recipient common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.RouteSettledEventData{}, err
	}
	amounts, err := unpackAmounts(event, log.Data, 1)
	if err != nil {
		return model.RouteSettledEventData{}, err
	}
	if !amounts[0].IsUint64() {
		return model.RouteSettledEventData{}, fmt.Errorf("hop count overflow: %s", amounts[0])
	}
	return model.RouteSettledEventData{
		RouteID:   common.Hash(indexed.RouteId).Hex(),
		Recipient: indexed.Recipient.Hex(),
		Hops:      amounts[0].Uint64(),
	}, nil
}

func parseIndexed(event abi.Event, topics []string, out interface{}) error {
	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return err
	}
	if err := abi.ParseTopics(out, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func unpackAmounts(event abi.Event, dataHex string, want int) ([]*big.Int, error) {
	values, err := unpackNonIndexed(event, dataHex)
	if err != nil {
		return nil, err
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		n, err := asBigInt(v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
