package pool

import (
	"fmt"
	"math/big"

	"swapRouter/internal/invariant"
	"swapRouter/internal/model"
)

// QuoteRequest prices one swap against explicit reserves. Nil settings take
// the engine defaults used by NewVolatile and NewStable.
type QuoteRequest struct {
	Engine          string
	ReserveIn       *big.Int
	ReserveOut      *big.Int
	AmountIn        *big.Int
	FeeDivisor      *big.Int
	MaxSwapLimitPct *big.Int
	PrecisionIn     *big.Int
	PrecisionOut    *big.Int
}

type QuoteResult struct {
	AmountOut     *big.Int
	Fee           *big.Int
	NewReserveIn  *big.Int
	NewReserveOut *big.Int
}

// QuoteSwap runs the engine's swap rule on a scratch state. No pool or
// ledger is touched.
func QuoteSwap(req QuoteRequest) (QuoteResult, error) {
	if req.ReserveIn == nil || req.ReserveOut == nil || req.AmountIn == nil {
		return QuoteResult{}, fmt.Errorf("reserves and amount are required")
	}

	var eng engine
	fee, limit := req.FeeDivisor, req.MaxSwapLimitPct
	precIn, precOut := orDefault(req.PrecisionIn, 1), orDefault(req.PrecisionOut, 1)
	switch req.Engine {
	case model.EngineVolatile, "":
		eng = volatileEngine{}
		if fee == nil {
			fee = big.NewInt(DefaultVolatileFeeDivisor)
		}
		if limit == nil {
			limit = big.NewInt(DefaultMaxSwapLimitPct)
		}
		precIn, precOut = big.NewInt(1), big.NewInt(1)
	case model.EngineStable:
		eng = stableEngine{rounds: invariant.DefaultNewtonRounds}
		if fee == nil {
			fee = big.NewInt(DefaultStableFeeDivisor)
		}
	default:
		return QuoteResult{}, fmt.Errorf("unknown engine %q", req.Engine)
	}
	if err := eng.checkFee(fee); err != nil {
		return QuoteResult{}, err
	}

	st := State{
		Token1:          model.TokenRef{TokenID: 1},
		Token2:          model.TokenRef{TokenID: 2},
		Reserve1:        new(big.Int).Set(req.ReserveIn),
		Reserve2:        new(big.Int).Set(req.ReserveOut),
		FeeDivisor:      new(big.Int).Set(fee),
		MaxSwapLimitPct: orDefault(limit, 0),
		FeeAccum1:       new(big.Int),
		FeeAccum2:       new(big.Int),
		Precision1:      precIn,
		Precision2:      precOut,
	}
	in, out, err := st.sides(model.Address{}, 2)
	if err != nil {
		return QuoteResult{}, err
	}
	res, err := eng.swap(&st, in, out, Swap{AmountIn: req.AmountIn, MinOut: new(big.Int), TokenID: 2})
	if err != nil {
		return QuoteResult{}, err
	}
	return QuoteResult{
		AmountOut:     res.amountOut,
		Fee:           res.fee,
		NewReserveIn:  st.Reserve1,
		NewReserveOut: st.Reserve2,
	}, nil
}
