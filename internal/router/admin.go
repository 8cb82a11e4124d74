package router

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
	"swapRouter/internal/pool"
)

func requireAdmin(st *model.RouterState, caller model.Address) error {
	if !st.Admins[caller] {
		return dexerr.NotAdmin()
	}
	return nil
}

// SetPaused toggles the pause flag.
func (r *Router) SetPaused(ctx context.Context, caller model.Address) error {
	_, err := r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		if err := requireAdmin(st, caller); err != nil {
			return nil, err
		}
		st.Paused = !st.Paused
		r.logger.Info("pause toggled", zap.Stringer("admin", caller), zap.Bool("paused", st.Paused))
		return nil, nil
	})
	return err
}

func (r *Router) AddAdmin(ctx context.Context, caller, admin model.Address) error {
	_, err := r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		if err := requireAdmin(st, caller); err != nil {
			return nil, err
		}
		st.Admins[admin] = true
		r.logger.Info("admin added", zap.Stringer("admin", caller), zap.Stringer("added", admin))
		return nil, nil
	})
	return err
}

func (r *Router) RemoveAdmin(ctx context.Context, caller, admin model.Address) error {
	_, err := r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		if err := requireAdmin(st, caller); err != nil {
			return nil, err
		}
		if !st.Admins[admin] {
			return nil, dexerr.Newf(dexerr.KindInvalidInput, "%s is not an admin", admin.Hex())
		}
		delete(st.Admins, admin)
		r.logger.Info("admin removed", zap.Stringer("admin", caller), zap.Stringer("removed", admin))
		return nil, nil
	})
	return err
}

// RegisterExchange records the pair, authorises the exchange to pull both
// tokens from the router and optionally seeds it with liquidity.
func (r *Router) RegisterExchange(ctx context.Context, caller model.Address, req RegisterExchange) ([]model.Message, error) {
	return r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		if err := requireAdmin(st, caller); err != nil {
			return nil, err
		}
		// The registry is frozen while a route is in flight.
		if st.Locked {
			return nil, dexerr.BadState()
		}
		if _, ok := st.Exchanges[req.Exchange]; ok {
			return nil, dexerr.Newf(dexerr.KindInvalidInput, "exchange %s already registered", req.Exchange.Hex())
		}
		st.Exchanges[req.Exchange] = req.Pair

		out := []model.Message{
			ledger.For(req.Pair.Token1).Grant(r.address, req.Exchange),
			ledger.For(req.Pair.Token2).Grant(r.address, req.Exchange),
		}
		if positive(req.Amount1) && positive(req.Amount2) {
			out = append(out, model.Message{To: req.Exchange, Body: pool.AddLiquidity{
				Max1:      new(big.Int).Set(req.Amount1),
				Max2:      new(big.Int).Set(req.Amount2),
				Recipient: req.Depositor,
			}})
		}
		r.logger.Info("exchange registered",
			zap.Stringer("admin", caller),
			zap.Stringer("exchange", req.Exchange),
			zap.Stringer("token1", req.Pair.Token1),
			zap.Stringer("token2", req.Pair.Token2),
		)
		return out, nil
	})
}

// DeregisterExchange revokes the exchange's permissions and forgets it.
func (r *Router) DeregisterExchange(ctx context.Context, caller, exchange model.Address) ([]model.Message, error) {
	return r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		if err := requireAdmin(st, caller); err != nil {
			return nil, err
		}
		if st.Locked {
			return nil, dexerr.BadState()
		}
		pair, ok := st.Exchanges[exchange]
		if !ok {
			return nil, dexerr.InvalidExchange()
		}
		delete(st.Exchanges, exchange)
		r.logger.Info("exchange deregistered", zap.Stringer("admin", caller), zap.Stringer("exchange", exchange))
		return []model.Message{
			ledger.For(pair.Token1).Revoke(r.address, exchange),
			ledger.For(pair.Token2).Revoke(r.address, exchange),
		}, nil
	})
}

// SetApproval sets the router's allowance for an exchange on one of the
// tokens it trades.
func (r *Router) SetApproval(ctx context.Context, caller model.Address, req SetApproval) ([]model.Message, error) {
	return r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		if err := requireAdmin(st, caller); err != nil {
			return nil, err
		}
		if req.Amount == nil || req.Amount.Sign() < 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "invalid approval amount")
		}
		token, err := r.approvableToken(st, req)
		if err != nil {
			return nil, err
		}
		r.logger.Info("approval set",
			zap.Stringer("admin", caller),
			zap.Stringer("exchange", req.Exchange),
			zap.Stringer("token", token),
			zap.String("amount", req.Amount.String()),
		)
		return []model.Message{ledger.For(token).Allow(r.address, req.Exchange, req.Amount)}, nil
	})
}

func (r *Router) approvableToken(st *model.RouterState, req SetApproval) (model.TokenRef, error) {
	if r.native != nil && req.Exchange == r.native.Exchange {
		switch {
		case r.native.NativeToken.Is(req.Ledger, req.TokenID):
			return r.native.NativeToken, nil
		case r.native.BaseToken.Is(req.Ledger, req.TokenID):
			return r.native.BaseToken, nil
		}
	}
	pair, ok := st.Exchanges[req.Exchange]
	if !ok {
		return model.TokenRef{}, dexerr.InvalidExchange()
	}
	token, ok := pair.Lookup(req.Ledger, req.TokenID)
	if !ok {
		return model.TokenRef{}, dexerr.Newf(dexerr.KindInvalidInput, "token %s#%d not traded by %s", req.Ledger.Hex(), req.TokenID, req.Exchange.Hex())
	}
	return token, nil
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
