package pool

import (
	"math/big"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/invariant"
	"swapRouter/internal/model"
)

// NewStable builds a flat-curve pool. A nil FeeDivisor defaults to 2000;
// a nil or zero cap leaves swaps uncapped.
func NewStable(address model.Address, cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.FeeDivisor == nil {
		cfg.FeeDivisor = big.NewInt(DefaultStableFeeDivisor)
	}
	return newPool(address, stableEngine{rounds: invariant.DefaultNewtonRounds}, cfg, logger)
}

type stableEngine struct {
	rounds int
}

func (stableEngine) name() string { return model.EngineStable }

func (e stableEngine) swap(st *State, in, out side, req Swap) (swapResult, error) {
	if st.MaxSwapLimitPct.Sign() > 0 && invariant.SwapLimitExceeded(req.AmountIn, in.reserve, st.MaxSwapLimitPct) {
		return swapResult{}, dexerr.New(dexerr.KindInvalidInput, "swap limit exceeded")
	}

	x := new(big.Int).Mul(in.reserve, in.precision)
	y := new(big.Int).Mul(out.reserve, out.precision)
	dx := new(big.Int).Mul(req.AmountIn, in.precision)
	dyRaw, err := invariant.NewtonSolveDy(x, y, dx, e.rounds)
	if err != nil {
		return swapResult{}, err
	}

	fee := new(big.Int).Quo(dyRaw, st.FeeDivisor)
	bought := new(big.Int).Sub(dyRaw, fee)
	bought.Quo(bought, out.precision)

	if bought.Cmp(req.MinOut) < 0 {
		return swapResult{}, dexerr.New(dexerr.KindSlippageExceeded, "min cash error")
	}
	if bought.Cmp(out.reserve) >= 0 {
		return swapResult{}, dexerr.New(dexerr.KindLiquidityExhausted, "bought exceeds pool")
	}
	if bought.Sign() == 0 {
		return swapResult{}, dexerr.New(dexerr.KindInvalidInput, "zero output")
	}

	feeOut := new(big.Int).Quo(fee, out.precision)
	if st.FeeForwarding {
		gross := new(big.Int).Quo(dyRaw, out.precision)
		if gross.Cmp(out.reserve) > 0 {
			return swapResult{}, dexerr.New(dexerr.KindArithmeticGuard, "negative reserve")
		}
		out.reserve.Sub(out.reserve, gross)
		out.accum.Add(out.accum, feeOut)
	} else {
		out.reserve.Sub(out.reserve, bought)
	}
	in.reserve.Add(in.reserve, req.AmountIn)

	return swapResult{amountOut: bought, fee: feeOut}, nil
}

// bootstrap mints at twice the square root of the deposit product.
func (stableEngine) bootstrap(st *State, max1, max2 *big.Int) (*big.Int, error) {
	v1 := new(big.Int).Mul(max1, st.Precision1)
	v2 := new(big.Int).Mul(max2, st.Precision2)
	if v1.Cmp(v2) != 0 {
		return nil, dexerr.New(dexerr.KindInvalidInput, "invalid lp ratio")
	}
	s, err := invariant.IntegerSqrt(new(big.Int).Mul(max1, max2))
	if err != nil {
		return nil, err
	}
	s.Lsh(s, 1)
	if s.Cmp(big.NewInt(InitialLiquidity)) <= 0 {
		return nil, dexerr.New(dexerr.KindInvalidInput, "initial liquidity too small")
	}
	return s.Sub(s, big.NewInt(InitialLiquidity)), nil
}

func (stableEngine) checkFee(divisor *big.Int) error {
	if divisor == nil || divisor.Cmp(big.NewInt(100)) < 0 {
		return dexerr.New(dexerr.KindInvalidInput, "fee divisor must be at least 100")
	}
	return nil
}
