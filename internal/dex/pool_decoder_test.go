package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"swapRouter/internal/model"
)

func testMeta(emitter common.Address) LogMeta {
	return LogMeta{
		ChainID:     1337,
		BlockNumber: 7,
		TxHash:      common.HexToHash("0xdef"),
		LogIndex:    2,
		Depth:       3,
		Emitter:     emitter,
		Timestamp:   1700000000,
	}
}

func newCodec(t *testing.T) (*Encoder, *PoolEventDecoder) {
	t.Helper()
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	dec, err := NewPoolEventDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return enc, dec
}

func TestPoolEventDecoderSwap(t *testing.T) {
	enc, dec := newCodec(t)

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	record, err := enc.Encode(model.SwapEvent{
		Pool:      pool,
		Recipient: recipient,
		AmountIn:  big.NewInt(1000),
		AmountOut: big.NewInt(999),
		Fee:       big.NewInt(1),
	}, testMeta(pool))
	if err != nil {
		t.Fatalf("encode swap: %v", err)
	}
	if len(record.Topics) != 3 {
		t.Fatalf("topics: %d", len(record.Topics))
	}
	if !dec.CanDecode(record.Topic0()) {
		t.Fatalf("decoder rejects its own topic0")
	}

	event, err := dec.Decode(record)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	swap, ok := event.Decoded.(model.SwapEventData)
	if !ok {
		t.Fatalf("decoded type mismatch")
	}
	if swap.AmountIn != "1000" || swap.AmountOut != "999" || swap.Fee != "1" {
		t.Fatalf("amounts mismatch: %+v", swap)
	}
	if swap.Pool != pool.Hex() || swap.Recipient != recipient.Hex() {
		t.Fatalf("address mismatch: %+v", swap)
	}
	if event.EventName != model.EventSwap || event.BlockNumber != 7 || event.LogIndex != 2 {
		t.Fatalf("envelope mismatch: %+v", event)
	}
	if event.Raw == nil || event.Raw.Data != record.Data {
		t.Fatalf("raw ref missing")
	}
}

func TestPoolEventDecoderLiquidityFeeAndRoute(t *testing.T) {
	enc, dec := newCodec(t)

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	distributor := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	removeLog, err := enc.Encode(model.LiquidityEvent{
		Removed:   true,
		Pool:      pool,
		Recipient: owner,
		Amount1:   big.NewInt(300),
		Amount2:   big.NewInt(400),
		Liquidity: big.NewInt(7000),
	}, testMeta(pool))
	if err != nil {
		t.Fatalf("encode remove: %v", err)
	}
	removeEvent, err := dec.Decode(removeLog)
	if err != nil {
		t.Fatalf("decode remove: %v", err)
	}
	if removeEvent.EventName != model.EventRemoveLiquidity {
		t.Fatalf("event name: %s", removeEvent.EventName)
	}
	liq, ok := removeEvent.Decoded.(model.LiquidityEventData)
	if !ok {
		t.Fatalf("liquidity type mismatch")
	}
	if liq.Amount1 != "300" || liq.Amount2 != "400" || liq.Liquidity != "7000" {
		t.Fatalf("liquidity mismatch: %+v", liq)
	}

	feeLog, err := enc.Encode(model.ForwardFeeEvent{
		Pool:        pool,
		Distributor: distributor,
		Epoch:       big.NewInt(4),
		Fee1:        big.NewInt(900),
	}, testMeta(pool))
	if err != nil {
		t.Fatalf("encode forward fee: %v", err)
	}
	feeEvent, err := dec.Decode(feeLog)
	if err != nil {
		t.Fatalf("decode forward fee: %v", err)
	}
	fee, ok := feeEvent.Decoded.(model.ForwardFeeEventData)
	if !ok {
		t.Fatalf("forward fee type mismatch")
	}
	if fee.Epoch != "4" || fee.Fee1 != "900" || fee.Fee2 != "0" {
		t.Fatalf("forward fee mismatch: %+v", fee)
	}
	if fee.Distributor != distributor.Hex() {
		t.Fatalf("distributor mismatch")
	}

	routeID := common.HexToHash("0x01020304")
	routeLog, err := enc.Encode(model.RouteSettledEvent{
		RouteID:   routeID,
		Recipient: owner,
		Hops:      3,
	}, testMeta(distributor))
	if err != nil {
		t.Fatalf("encode route: %v", err)
	}
	routeEvent, err := dec.Decode(routeLog)
	if err != nil {
		t.Fatalf("decode route: %v", err)
	}
	route, ok := routeEvent.Decoded.(model.RouteSettledEventData)
	if !ok {
		t.Fatalf("route type mismatch")
	}
	if route.RouteID != routeID.Hex() || route.Hops != 3 || route.Recipient != owner.Hex() {
		t.Fatalf("route mismatch: %+v", route)
	}
}

func TestPoolEventDecoderRejectsMalformed(t *testing.T) {
	enc, dec := newCodec(t)

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	record, err := enc.Encode(model.SwapEvent{Pool: pool, Recipient: pool}, testMeta(pool))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if dec.CanDecode("") || dec.CanDecode("0x1234") {
		t.Fatalf("unexpected CanDecode")
	}

	missing := record
	missing.Topics = record.Topics[:2]
	if _, err := dec.Decode(missing); err == nil {
		t.Fatalf("expected topic count error")
	}

	badData := record
	badData.Data = hexutil.Encode([]byte{1, 2, 3})
	if _, err := dec.Decode(badData); err == nil {
		t.Fatalf("expected unpack error")
	}

	empty := record
	empty.Topics = nil
	if _, err := dec.Decode(empty); err == nil {
		t.Fatalf("expected missing topics error")
	}
}
