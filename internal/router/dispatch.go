package router

import (
	"math/big"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
	"swapRouter/internal/pool"
)

// dispatch sends the swap for the current hop. On the last hop the output
// goes to the pending recipient and the router returns to idle; otherwise
// the output comes back to the router, which asks the hop's ledger for its
// new balance.
func (r *Router) dispatch(st *model.RouterState, amount *big.Int) ([]model.Message, error) {
	hop, ok := st.CurrentHop()
	if !ok {
		return nil, dexerr.BadState()
	}
	token, err := r.requiredToken(st, hop)
	if err != nil {
		return nil, err
	}
	terminal := st.CurrentIndex == len(st.Route)-1
	if r.isNativeBase(hop) && !terminal {
		return nil, dexerr.New(dexerr.KindInvalidInput, "base token hop must end the route")
	}

	swap := pool.Swap{
		AmountIn: amount,
		MinOut:   minimum(hop),
		Ledger:   hop.Ledger,
		TokenID:  hop.TokenID,
	}

	if terminal {
		swap.Recipient = *st.PendingRecipient
		routeID := st.Route.ID()
		hops := uint64(len(st.Route))
		recipient := *st.PendingRecipient
		st.Reset()

		r.logger.Info("route finalized",
			zap.String("route_id", routeID.Hex()),
			zap.Stringer("exchange", hop.Exchange),
			zap.Stringer("recipient", recipient),
			zap.String("amount_in", amount.String()),
		)
		return []model.Message{
			{To: hop.Exchange, Body: swap},
			{Body: model.RouteSettledEvent{RouteID: routeID, Recipient: recipient, Hops: hops}},
		}, nil
	}

	swap.Recipient = r.address
	r.logger.Info("hop dispatched",
		zap.Int("index", st.CurrentIndex),
		zap.Stringer("exchange", hop.Exchange),
		zap.Stringer("token", token),
		zap.String("amount_in", amount.String()),
	)
	return []model.Message{
		{To: hop.Exchange, Body: swap},
		ledger.For(token).RequestBalance(r.address, r.address),
	}, nil
}

// requiredToken resolves the token a hop asks for, which decides the
// ledger protocol used to report the router's balance.
func (r *Router) requiredToken(st *model.RouterState, hop model.Hop) (model.TokenRef, error) {
	if r.native != nil && hop.Exchange == r.native.Exchange {
		switch {
		case r.native.NativeToken.Is(hop.Ledger, hop.TokenID):
			return r.native.NativeToken, nil
		case r.native.BaseToken.Is(hop.Ledger, hop.TokenID):
			return r.native.BaseToken, nil
		default:
			return model.TokenRef{}, dexerr.New(dexerr.KindInvalidInput, "token not traded by the native pool")
		}
	}
	pair, ok := st.Exchanges[hop.Exchange]
	if !ok {
		return model.TokenRef{}, dexerr.InvalidExchange()
	}
	token, ok := pair.Lookup(hop.Ledger, hop.TokenID)
	if !ok {
		return model.TokenRef{}, dexerr.Newf(dexerr.KindInvalidInput, "token %s#%d not traded by %s", hop.Ledger.Hex(), hop.TokenID, hop.Exchange.Hex())
	}
	return token, nil
}

func (r *Router) isNativeBase(hop model.Hop) bool {
	return r.native != nil &&
		hop.Exchange == r.native.Exchange &&
		r.native.BaseToken.Is(hop.Ledger, hop.TokenID)
}

func minimum(hop model.Hop) *big.Int {
	if hop.MinimumOutput == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(hop.MinimumOutput)
}
