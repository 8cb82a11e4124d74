package pool

import (
	"math/big"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/invariant"
	"swapRouter/internal/model"
)

// NewVolatile builds a constant-product pool. A nil FeeDivisor defaults to
// 1000 and a nil cap to 10 percent.
func NewVolatile(address model.Address, cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.FeeDivisor == nil {
		cfg.FeeDivisor = big.NewInt(DefaultVolatileFeeDivisor)
	}
	if cfg.MaxSwapLimitPct == nil {
		cfg.MaxSwapLimitPct = big.NewInt(DefaultMaxSwapLimitPct)
	}
	cfg.Precision1, cfg.Precision2 = nil, nil
	return newPool(address, volatileEngine{}, cfg, logger)
}

type volatileEngine struct{}

func (volatileEngine) name() string { return model.EngineVolatile }

func (volatileEngine) swap(st *State, in, out side, req Swap) (swapResult, error) {
	if invariant.SwapLimitExceeded(req.AmountIn, in.reserve, st.MaxSwapLimitPct) {
		return swapResult{}, dexerr.New(dexerr.KindInvalidInput, "swap limit exceeded")
	}

	quote, err := invariant.ConstantProductOut(in.reserve, out.reserve, req.AmountIn, st.FeeDivisor)
	if err != nil {
		return swapResult{}, err
	}
	if quote.AmountOut.Cmp(req.MinOut) < 0 {
		return swapResult{}, dexerr.New(dexerr.KindSlippageExceeded, "higher slippage")
	}
	if quote.Fee.Sign() == 0 {
		return swapResult{}, dexerr.New(dexerr.KindInvalidInput, "zero system fee")
	}
	if quote.AmountOut.Sign() == 0 {
		return swapResult{}, dexerr.New(dexerr.KindInvalidInput, "zero output")
	}

	out.reserve.Set(quote.NewReserveOut)
	if st.FeeForwarding {
		in.reserve.Add(in.reserve, new(big.Int).Sub(req.AmountIn, quote.Fee))
		in.accum.Add(in.accum, quote.Fee)
	} else {
		in.reserve.Add(in.reserve, req.AmountIn)
	}
	return swapResult{amountOut: quote.AmountOut, fee: quote.Fee}, nil
}

func (volatileEngine) bootstrap(_ *State, max1, max2 *big.Int) (*big.Int, error) {
	s, err := invariant.IntegerSqrt(new(big.Int).Mul(max1, max2))
	if err != nil {
		return nil, err
	}
	if s.Cmp(big.NewInt(InitialLiquidity)) <= 0 {
		return nil, dexerr.New(dexerr.KindInvalidInput, "initial liquidity too small")
	}
	return s.Sub(s, big.NewInt(InitialLiquidity)), nil
}

func (volatileEngine) checkFee(divisor *big.Int) error {
	if divisor == nil || divisor.Cmp(big.NewInt(50)) <= 0 {
		return dexerr.New(dexerr.KindInvalidInput, "fee divisor must exceed 50")
	}
	return nil
}
