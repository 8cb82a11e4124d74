package pool

import (
	"context"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
)

var (
	poolAddr    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	adminAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	userAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	govAddr     = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	distributor = common.HexToAddress("0x00000000000000000000000000000000000000a4")

	tokenA  = model.TokenRef{Ledger: common.HexToAddress("0x00000000000000000000000000000000000000c1")}
	tokenB  = model.TokenRef{Ledger: common.HexToAddress("0x00000000000000000000000000000000000000c2"), TokenID: 5, Variant: model.VariantQuery}
	lpToken = model.TokenRef{Ledger: common.HexToAddress("0x00000000000000000000000000000000000000c3")}
)

func testConfig() Config {
	return Config{Token1: tokenA, Token2: tokenB, LPToken: lpToken, Admin: adminAddr}
}

func newVolatile(t *testing.T, r1, r2 int64) *Pool {
	t.Helper()
	p, err := NewVolatile(poolAddr, testConfig(), nil)
	if err != nil {
		t.Fatalf("new volatile: %v", err)
	}
	if r1 > 0 {
		if _, err := p.AddLiquidity(userAddr, big.NewInt(r1), big.NewInt(r2), userAddr); err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
	}
	return p
}

func newStable(t *testing.T, cfg Config, r1, r2 *big.Int) *Pool {
	t.Helper()
	p, err := NewStable(poolAddr, cfg, nil)
	if err != nil {
		t.Fatalf("new stable: %v", err)
	}
	if r1 != nil {
		if _, err := p.AddLiquidity(userAddr, r1, r2, userAddr); err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
	}
	return p
}

func wantToken2(amountIn, minOut int64) Swap {
	return Swap{
		AmountIn:  big.NewInt(amountIn),
		MinOut:    big.NewInt(minOut),
		Recipient: userAddr,
		Ledger:    tokenB.Ledger,
		TokenID:   tokenB.TokenID,
	}
}

func mintAmount(t *testing.T, msgs []model.Message) *big.Int {
	t.Helper()
	for _, m := range msgs {
		if mint, ok := m.Body.(ledger.Mint); ok {
			return mint.Amount
		}
	}
	t.Fatalf("no mint in %+v", msgs)
	return nil
}

func TestVolatileBootstrap(t *testing.T) {
	p := newVolatile(t, 0, 0)
	msgs, err := p.AddLiquidity(userAddr, big.NewInt(1_000_000), big.NewInt(4_000_000), userAddr)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if got := mintAmount(t, msgs); got.Int64() != 1_999_000 {
		t.Fatalf("minted %s, want sqrt(x*y)-1000", got)
	}
	st := p.State()
	if st.TotalSupply.Int64() != 2_000_000 || st.Reserve1.Int64() != 1_000_000 || st.Reserve2.Int64() != 4_000_000 {
		t.Fatalf("unexpected state %+v", st)
	}

	wantTransfers := []model.Message{
		ledger.For(tokenA).Transfer(userAddr, poolAddr, big.NewInt(1_000_000)),
		ledger.For(tokenB).Transfer(userAddr, poolAddr, big.NewInt(4_000_000)),
	}
	if !reflect.DeepEqual(msgs[:2], wantTransfers) {
		t.Fatalf("transfers = %+v", msgs[:2])
	}
}

func TestBootstrapTooSmall(t *testing.T) {
	p := newVolatile(t, 0, 0)
	_, err := p.AddLiquidity(userAddr, big.NewInt(1000), big.NewInt(1000), userAddr)
	if !dexerr.Is(err, dexerr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if p.State().TotalSupply.Sign() != 0 {
		t.Fatalf("failed bootstrap mutated supply")
	}

	s := newStable(t, testConfig(), nil, nil)
	// 2*sqrt(500*500) = 1000 is not above the floor.
	if _, err := s.AddLiquidity(userAddr, big.NewInt(500), big.NewInt(500), userAddr); !dexerr.Is(err, dexerr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStableBootstrap(t *testing.T) {
	p := newStable(t, testConfig(), nil, nil)
	msgs, err := p.AddLiquidity(userAddr, big.NewInt(1_000_000), big.NewInt(1_000_000), userAddr)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if got := mintAmount(t, msgs); got.Int64() != 1_999_000 {
		t.Fatalf("minted %s, want 2*sqrt(x*y)-1000", got)
	}

	q := newStable(t, testConfig(), nil, nil)
	if _, err := q.AddLiquidity(userAddr, big.NewInt(1_000_000), big.NewInt(2_000_000), userAddr); !dexerr.Is(err, dexerr.KindInvalidInput) {
		t.Fatalf("unequal value deposit must fail, got %v", err)
	}

	cfg := testConfig()
	cfg.Precision1 = big.NewInt(1_000_000_000_000)
	r := newStable(t, cfg, nil, nil)
	max2, _ := new(big.Int).SetString("1000000000000000000", 10)
	msgs, err = r.AddLiquidity(userAddr, big.NewInt(1_000_000), max2, userAddr)
	if err != nil {
		t.Fatalf("scaled bootstrap: %v", err)
	}
	if got := mintAmount(t, msgs); got.Int64() != 2_000_000_000_000-1000 {
		t.Fatalf("minted %s", got)
	}
}

func TestVolatileSwap(t *testing.T) {
	p := newVolatile(t, 1_000_000, 1_000_000)
	before := p.GetReserves()

	msgs, err := p.Swap(adminAddr, wantToken2(1000, 999))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	after := p.GetReserves()
	if after.Reserve1.Int64() != 1_001_000 || after.Reserve2.Int64() != 999_001 {
		t.Fatalf("reserves = %s/%s", after.Reserve1, after.Reserve2)
	}

	k0 := new(big.Int).Mul(before.Reserve1, before.Reserve2)
	k1 := new(big.Int).Mul(after.Reserve1, after.Reserve2)
	if k1.Cmp(k0) < 0 {
		t.Fatalf("product decreased")
	}

	want := []model.Message{
		ledger.For(tokenA).Transfer(adminAddr, poolAddr, big.NewInt(1000)),
		ledger.For(tokenB).Transfer(poolAddr, userAddr, big.NewInt(999)),
	}
	if !reflect.DeepEqual(msgs[:2], want) {
		t.Fatalf("transfers = %+v", msgs[:2])
	}
	ev, ok := msgs[2].Body.(model.SwapEvent)
	if !ok || ev.AmountOut.Int64() != 999 || ev.Fee.Int64() != 1 {
		t.Fatalf("event = %+v", msgs[2].Body)
	}
}

func TestVolatileSwapRejections(t *testing.T) {
	p := newVolatile(t, 1_000_000, 1_000_000)
	before := p.State()

	cases := []struct {
		name string
		req  Swap
		kind dexerr.Kind
	}{
		{"slippage", wantToken2(1000, 1000), dexerr.KindSlippageExceeded},
		{"cap", wantToken2(100_001, 0), dexerr.KindInvalidInput},
		{"dust", wantToken2(999, 0), dexerr.KindInvalidInput},
		{"zero", wantToken2(0, 0), dexerr.KindInvalidInput},
		{"pair", Swap{AmountIn: big.NewInt(1000), MinOut: big.NewInt(0), Ledger: lpToken.Ledger}, dexerr.KindInvalidInput},
	}
	for _, tc := range cases {
		if _, err := p.Swap(userAddr, tc.req); !dexerr.Is(err, tc.kind) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
	if !reflect.DeepEqual(before, p.State()) {
		t.Fatalf("rejected swaps mutated state")
	}
}

func TestPauseRequiresAdmin(t *testing.T) {
	p := newVolatile(t, 1_000_000, 1_000_000)
	if err := p.SetPaused(userAddr); !dexerr.Is(err, dexerr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := p.SetPaused(adminAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := p.Swap(userAddr, wantToken2(1000, 0)); !dexerr.Is(err, dexerr.KindInvalidState) {
		t.Fatalf("expected paused rejection, got %v", err)
	}
	if err := p.SetPaused(adminAddr); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := p.Swap(userAddr, wantToken2(1000, 0)); err != nil {
		t.Fatalf("swap after unpause: %v", err)
	}
}

func TestFeeForwarding(t *testing.T) {
	p := newVolatile(t, 1_000_000, 1_000_000)
	if _, err := p.ForwardFee(govAddr, distributor, big.NewInt(1)); !dexerr.Is(err, dexerr.KindInvalidState) {
		t.Fatalf("expected invalid state before governance, got %v", err)
	}
	if err := p.EnableGovernance(adminAddr, govAddr); err != nil {
		t.Fatalf("enable governance: %v", err)
	}
	if _, err := p.Swap(userAddr, wantToken2(1000, 0)); err != nil {
		t.Fatalf("swap: %v", err)
	}
	st := p.State()
	if st.FeeAccum1.Int64() != 1 || st.Reserve1.Int64() != 1_000_999 {
		t.Fatalf("fee not accumulated: %+v", st)
	}

	if _, err := p.ForwardFee(adminAddr, distributor, big.NewInt(1)); !dexerr.Is(err, dexerr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	msgs, err := p.ForwardFee(govAddr, distributor, big.NewInt(7))
	if err != nil {
		t.Fatalf("forward fee: %v", err)
	}
	if !reflect.DeepEqual(msgs[0], ledger.For(tokenA).Transfer(poolAddr, distributor, big.NewInt(1))) {
		t.Fatalf("fee transfer = %+v", msgs[0])
	}
	report, ok := msgs[1].Body.(AddFees)
	if !ok || msgs[1].To != distributor || report.Epoch.Int64() != 7 || report.Fees[0].Amount.Int64() != 1 {
		t.Fatalf("fee report = %+v", msgs[1])
	}
	if got := p.GetReserves(); got.FeeAccum1.Sign() != 0 || got.FeeAccum2.Sign() != 0 {
		t.Fatalf("accumulators not reset")
	}
}

func TestSetFeeBounds(t *testing.T) {
	v := newVolatile(t, 0, 0)
	if err := v.SetFee(adminAddr, big.NewInt(50)); !dexerr.Is(err, dexerr.KindInvalidInput) {
		t.Fatalf("volatile divisor 50 must fail, got %v", err)
	}
	if err := v.SetFee(adminAddr, big.NewInt(51)); err != nil {
		t.Fatalf("volatile divisor 51: %v", err)
	}

	s := newStable(t, testConfig(), nil, nil)
	if err := s.SetFee(adminAddr, big.NewInt(99)); !dexerr.Is(err, dexerr.KindInvalidInput) {
		t.Fatalf("stable divisor 99 must fail, got %v", err)
	}
	if err := s.SetFee(adminAddr, big.NewInt(100)); err != nil {
		t.Fatalf("stable divisor 100: %v", err)
	}
	if err := s.SetFee(userAddr, big.NewInt(100)); !dexerr.Is(err, dexerr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRemoveLiquidityInvertsAdd(t *testing.T) {
	p := newVolatile(t, 1_000_000, 4_000_000)
	before := p.GetReserves()

	msgs, err := p.AddLiquidity(adminAddr, big.NewInt(1000), big.NewInt(5000), adminAddr)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	minted := mintAmount(t, msgs)
	if minted.Int64() != 2000 {
		t.Fatalf("minted %s", minted)
	}

	if _, err := p.RemoveLiquidity(adminAddr, minted, big.NewInt(1001), nil, adminAddr); !dexerr.Is(err, dexerr.KindSlippageExceeded) {
		t.Fatalf("expected slippage, got %v", err)
	}
	msgs, err = p.RemoveLiquidity(adminAddr, minted, big.NewInt(1000), big.NewInt(4000), adminAddr)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	after := p.GetReserves()
	if after.Reserve1.Cmp(before.Reserve1) != 0 || after.Reserve2.Cmp(before.Reserve2) != 0 || after.TotalSupply.Cmp(before.TotalSupply) != 0 {
		t.Fatalf("reserves not restored: %+v vs %+v", after, before)
	}
	burn, ok := msgs[0].Body.(ledger.Burn)
	if !ok || burn.From != adminAddr || burn.Amount.Int64() != 2000 || msgs[0].To != lpToken.Ledger {
		t.Fatalf("burn = %+v", msgs[0])
	}

	if _, err := p.RemoveLiquidity(adminAddr, big.NewInt(3_000_000), nil, nil, adminAddr); !dexerr.Is(err, dexerr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	empty := newVolatile(t, 0, 0)
	if _, err := empty.RemoveLiquidity(adminAddr, big.NewInt(1), nil, nil, adminAddr); !dexerr.Is(err, dexerr.KindInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestStableSwapFlatterThanVolatile(t *testing.T) {
	r := big.NewInt(1_000_000_000)
	s := newStable(t, testConfig(), r, r)
	v := newVolatile(t, r.Int64(), r.Int64())

	req := wantToken2(1_000_000, 0)
	sm, err := s.Swap(userAddr, req)
	if err != nil {
		t.Fatalf("stable swap: %v", err)
	}
	vm, err := v.Swap(userAddr, req)
	if err != nil {
		t.Fatalf("volatile swap: %v", err)
	}
	stableOut := sm[2].Body.(model.SwapEvent).AmountOut
	volatileOut := vm[2].Body.(model.SwapEvent).AmountOut
	if stableOut.Cmp(volatileOut) <= 0 {
		t.Fatalf("stable out %s should beat volatile out %s", stableOut, volatileOut)
	}
	if stableOut.Cmp(big.NewInt(990_000)) < 0 || stableOut.Cmp(big.NewInt(1_000_000)) >= 0 {
		t.Fatalf("stable out %s far from peg", stableOut)
	}

	st := s.State()
	wantOut := new(big.Int).Sub(r, stableOut)
	if st.Reserve1.Int64() != 1_001_000_000 || st.Reserve2.Cmp(wantOut) != 0 {
		t.Fatalf("stable reserves = %s/%s", st.Reserve1, st.Reserve2)
	}
}

func TestStablePrecisionScaling(t *testing.T) {
	cfg := testConfig()
	cfg.Precision1 = big.NewInt(1_000_000_000_000)
	r2, _ := new(big.Int).SetString("1000000000000000000000", 10)
	p := newStable(t, cfg, big.NewInt(1_000_000_000), r2)

	msgs, err := p.Swap(userAddr, wantToken2(1_000_000, 0))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	out := msgs[2].Body.(model.SwapEvent).AmountOut
	lo, _ := new(big.Int).SetString("990000000000000000", 10)
	hi, _ := new(big.Int).SetString("1000000000000000000", 10)
	if out.Cmp(lo) < 0 || out.Cmp(hi) >= 0 {
		t.Fatalf("scaled output %s out of range", out)
	}
}

func TestStableForwardingAccumulatesOutputFee(t *testing.T) {
	r := big.NewInt(1_000_000_000)
	p := newStable(t, testConfig(), r, r)
	if err := p.EnableGovernance(adminAddr, govAddr); err != nil {
		t.Fatalf("enable governance: %v", err)
	}
	msgs, err := p.Swap(userAddr, wantToken2(1_000_000, 0))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	ev := msgs[2].Body.(model.SwapEvent)
	st := p.State()
	if st.FeeAccum2.Cmp(ev.Fee) != 0 || st.FeeAccum2.Sign() == 0 || st.FeeAccum1.Sign() != 0 {
		t.Fatalf("fee accumulators = %s/%s, event fee %s", st.FeeAccum1, st.FeeAccum2, ev.Fee)
	}
	paid := new(big.Int).Add(ev.AmountOut, st.FeeAccum2)
	if new(big.Int).Sub(r, st.Reserve2).Cmp(paid) < 0 {
		t.Fatalf("reserve2 did not cover payout and fee")
	}
}

func TestHandleDispatch(t *testing.T) {
	p := newVolatile(t, 1_000_000, 1_000_000)
	out, err := p.Handle(context.Background(), userAddr, GetReserves{Callback: userAddr})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	report, ok := out[0].Body.(ReservesReport)
	if !ok || out[0].To != userAddr || report.Reserves.Reserve1.Int64() != 1_000_000 {
		t.Fatalf("report = %+v", out)
	}
	if _, err := p.Handle(context.Background(), userAddr, ledger.Approve{}); !dexerr.Is(err, dexerr.KindInvalidInput) {
		t.Fatalf("expected unknown body rejection, got %v", err)
	}
}

func TestQuoteSwapMatchesPool(t *testing.T) {
	reserve := big.NewInt(1_000_000_000)
	amount := big.NewInt(1_000_000)

	volatile, err := QuoteSwap(QuoteRequest{Engine: model.EngineVolatile, ReserveIn: reserve, ReserveOut: reserve, AmountIn: amount})
	if err != nil {
		t.Fatalf("volatile quote: %v", err)
	}
	stable, err := QuoteSwap(QuoteRequest{Engine: model.EngineStable, ReserveIn: reserve, ReserveOut: reserve, AmountIn: amount})
	if err != nil {
		t.Fatalf("stable quote: %v", err)
	}
	if volatile.AmountOut.Sign() <= 0 || stable.AmountOut.Cmp(volatile.AmountOut) <= 0 {
		t.Fatalf("stable should beat volatile on balanced reserves: stable=%s volatile=%s", stable.AmountOut, volatile.AmountOut)
	}
	if volatile.NewReserveIn.Cmp(new(big.Int).Add(reserve, amount)) != 0 {
		t.Fatalf("unexpected new input reserve %s", volatile.NewReserveIn)
	}
	if reserve.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("quote mutated caller reserves")
	}

	if _, err := QuoteSwap(QuoteRequest{Engine: "curve", ReserveIn: reserve, ReserveOut: reserve, AmountIn: amount}); err == nil {
		t.Fatalf("expected unknown engine error")
	}
	if _, err := QuoteSwap(QuoteRequest{ReserveIn: reserve, ReserveOut: reserve, AmountIn: big.NewInt(200_000_000)}); err == nil {
		t.Fatalf("expected volatile swap cap to apply")
	}
}
