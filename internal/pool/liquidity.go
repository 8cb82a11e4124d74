package pool

import (
	"math/big"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/invariant"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
)

// AddLiquidity pulls a ratio-preserving deposit from caller and mints LP
// tokens to recipient. The first deposit sets the ratio and locks
// InitialLiquidity units into TotalSupply.
func (p *Pool) AddLiquidity(caller model.Address, max1, max2 *big.Int, recipient model.Address) ([]model.Message, error) {
	return p.mutate(func(st *State) ([]model.Message, error) {
		if max1 == nil || max2 == nil || max1.Sign() <= 0 || max2.Sign() <= 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "zero deposit")
		}

		var amount1, amount2, liquidity *big.Int
		if st.TotalSupply.Sign() == 0 {
			minted, err := p.engine.bootstrap(st, max1, max2)
			if err != nil {
				return nil, err
			}
			amount1, amount2, liquidity = copyInt(max1), copyInt(max2), minted
			st.TotalSupply.Add(st.TotalSupply, big.NewInt(InitialLiquidity))
		} else {
			var err error
			amount1, amount2, err = ratioAmounts(st, max1, max2)
			if err != nil {
				return nil, err
			}
			l1 := new(big.Int).Mul(amount1, st.TotalSupply)
			l1.Quo(l1, st.Reserve1)
			l2 := new(big.Int).Mul(amount2, st.TotalSupply)
			l2.Quo(l2, st.Reserve2)
			liquidity = new(big.Int).Set(invariant.Min(l1, l2))
		}

		if liquidity.Sign() <= 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "zero liquidity")
		}
		if amount1.Cmp(max1) > 0 || amount2.Cmp(max2) > 0 {
			return nil, dexerr.New(dexerr.KindArithmeticGuard, "deposit exceeds maximum")
		}

		st.Reserve1.Add(st.Reserve1, amount1)
		st.Reserve2.Add(st.Reserve2, amount2)
		st.TotalSupply.Add(st.TotalSupply, liquidity)

		p.logger.Info("add liquidity",
			zap.Stringer("recipient", recipient),
			zap.String("amount1", amount1.String()),
			zap.String("amount2", amount2.String()),
			zap.String("liquidity", liquidity.String()),
		)
		return []model.Message{
			ledger.For(st.Token1).Transfer(caller, p.address, amount1),
			ledger.For(st.Token2).Transfer(caller, p.address, amount2),
			{To: st.LPToken.Ledger, Body: ledger.Mint{To: recipient, TokenID: st.LPToken.TokenID, Amount: copyInt(liquidity)}},
			{Body: model.LiquidityEvent{Pool: p.address, Recipient: recipient, Amount1: amount1, Amount2: amount2, Liquidity: liquidity}},
		}, nil
	})
}

// ratioAmounts picks the largest deposit within (max1, max2) that keeps
// the reserve ratio. When both sides fit, the token2-led amounts win.
func ratioAmounts(st *State, max1, max2 *big.Int) (*big.Int, *big.Int, error) {
	if st.Reserve1.Sign() == 0 || st.Reserve2.Sign() == 0 {
		return nil, nil, dexerr.New(dexerr.KindArithmeticGuard, "empty reserve")
	}
	amount1, amount2 := new(big.Int), new(big.Int)

	want2 := new(big.Int).Mul(max1, st.Reserve2)
	want2.Quo(want2, st.Reserve1)
	if want2.Cmp(max2) <= 0 {
		amount1.Set(max1)
		amount2.Set(want2)
	}

	want1 := new(big.Int).Mul(max2, st.Reserve1)
	want1.Quo(want1, st.Reserve2)
	if want1.Cmp(max1) <= 0 {
		amount1.Set(want1)
		amount2.Set(max2)
	}

	if amount1.Sign() == 0 || amount2.Sign() == 0 {
		return nil, nil, dexerr.New(dexerr.KindInvalidInput, "invalid lp ratio")
	}
	return amount1, amount2, nil
}

// RemoveLiquidity burns lp of caller's LP tokens and pays the pro-rata
// reserves to recipient.
func (p *Pool) RemoveLiquidity(caller model.Address, lp, min1, min2 *big.Int, recipient model.Address) ([]model.Message, error) {
	return p.mutate(func(st *State) ([]model.Message, error) {
		if st.TotalSupply.Sign() == 0 {
			return nil, dexerr.New(dexerr.KindInvalidState, "not initialized")
		}
		if lp == nil || lp.Sign() <= 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "zero liquidity")
		}
		if lp.Cmp(st.TotalSupply) > 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "insufficient balance")
		}

		amount1 := new(big.Int).Mul(lp, st.Reserve1)
		amount1.Quo(amount1, st.TotalSupply)
		amount2 := new(big.Int).Mul(lp, st.Reserve2)
		amount2.Quo(amount2, st.TotalSupply)
		if (min1 != nil && amount1.Cmp(min1) < 0) || (min2 != nil && amount2.Cmp(min2) < 0) {
			return nil, dexerr.New(dexerr.KindSlippageExceeded, "below minimum withdrawal")
		}

		st.Reserve1.Sub(st.Reserve1, amount1)
		st.Reserve2.Sub(st.Reserve2, amount2)
		st.TotalSupply.Sub(st.TotalSupply, lp)

		p.logger.Info("remove liquidity",
			zap.Stringer("caller", caller),
			zap.String("amount1", amount1.String()),
			zap.String("amount2", amount2.String()),
			zap.String("liquidity", lp.String()),
		)
		out := []model.Message{
			{To: st.LPToken.Ledger, Body: ledger.Burn{From: caller, TokenID: st.LPToken.TokenID, Amount: copyInt(lp)}},
		}
		if amount1.Sign() > 0 {
			out = append(out, ledger.For(st.Token1).Transfer(p.address, recipient, amount1))
		}
		if amount2.Sign() > 0 {
			out = append(out, ledger.For(st.Token2).Transfer(p.address, recipient, amount2))
		}
		out = append(out, model.Message{Body: model.LiquidityEvent{
			Removed:   true,
			Pool:      p.address,
			Recipient: recipient,
			Amount1:   amount1,
			Amount2:   amount2,
			Liquidity: copyInt(lp),
		}})
		return out, nil
	})
}

// ForwardFee sends the accumulated fees to distributor and reports them.
func (p *Pool) ForwardFee(caller, distributor model.Address, epoch *big.Int) ([]model.Message, error) {
	return p.mutate(func(st *State) ([]model.Message, error) {
		if !st.FeeForwarding {
			return nil, dexerr.New(dexerr.KindInvalidState, "fee forwarding disabled")
		}
		if st.Governance == nil || caller != *st.Governance {
			return nil, dexerr.New(dexerr.KindUnauthorized, "not voter")
		}
		if epoch == nil {
			epoch = new(big.Int)
		}

		fee1, fee2 := copyInt(st.FeeAccum1), copyInt(st.FeeAccum2)
		var out []model.Message
		if fee1.Sign() > 0 {
			out = append(out, ledger.For(st.Token1).Transfer(p.address, distributor, fee1))
		}
		if fee2.Sign() > 0 {
			out = append(out, ledger.For(st.Token2).Transfer(p.address, distributor, fee2))
		}
		out = append(out,
			model.Message{To: distributor, Body: AddFees{
				Epoch: copyInt(epoch),
				Fees:  []FeeAmount{{Token: st.Token1, Amount: fee1}, {Token: st.Token2, Amount: fee2}},
			}},
			model.Message{Body: model.ForwardFeeEvent{Pool: p.address, Distributor: distributor, Epoch: copyInt(epoch), Fee1: fee1, Fee2: fee2}},
		)

		st.FeeAccum1.SetInt64(0)
		st.FeeAccum2.SetInt64(0)
		p.logger.Info("forward fee", zap.Stringer("distributor", distributor), zap.String("epoch", epoch.String()))
		return out, nil
	})
}
