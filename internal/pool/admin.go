package pool

import (
	"math/big"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/model"
)

func (p *Pool) admin(caller model.Address, op func(st *State) error) error {
	_, err := p.mutate(func(st *State) ([]model.Message, error) {
		if caller != st.Admin {
			return nil, dexerr.New(dexerr.KindUnauthorized, "not admin")
		}
		return nil, op(st)
	})
	return err
}

// EnableGovernance turns on fee forwarding. There is no way back.
func (p *Pool) EnableGovernance(caller, governance model.Address) error {
	return p.admin(caller, func(st *State) error {
		g := governance
		st.FeeForwarding = true
		st.Governance = &g
		p.logger.Info("governance enabled", zap.Stringer("governance", governance))
		return nil
	})
}

func (p *Pool) SetFee(caller model.Address, divisor *big.Int) error {
	return p.admin(caller, func(st *State) error {
		if err := p.engine.checkFee(divisor); err != nil {
			return err
		}
		st.FeeDivisor = new(big.Int).Set(divisor)
		p.logger.Info("fee updated", zap.String("divisor", divisor.String()))
		return nil
	})
}

func (p *Pool) SetMaxSwapLimit(caller model.Address, pct *big.Int) error {
	return p.admin(caller, func(st *State) error {
		if pct == nil || pct.Sign() < 0 {
			return dexerr.New(dexerr.KindInvalidInput, "invalid swap limit")
		}
		st.MaxSwapLimitPct = new(big.Int).Set(pct)
		return nil
	})
}

// SetPaused toggles the pause flag.
func (p *Pool) SetPaused(caller model.Address) error {
	return p.admin(caller, func(st *State) error {
		st.Paused = !st.Paused
		p.logger.Info("pause toggled", zap.Bool("paused", st.Paused))
		return nil
	})
}

func (p *Pool) SetAdmin(caller, admin model.Address) error {
	return p.admin(caller, func(st *State) error {
		st.Admin = admin
		return nil
	})
}
