package router

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
	"swapRouter/internal/storage"
)

// NativePool is the built-in pool the router reaches without the registry.
// Swaps into NativeToken go straight to it; swaps into BaseToken must end
// the route.
type NativePool struct {
	Exchange    model.Address
	NativeToken model.TokenRef
	BaseToken   model.TokenRef
}

type Config struct {
	Address model.Address
	Admins  []model.Address
	Native  *NativePool
}

// Router executes multi-hop swaps one hop at a time, suspending between
// hops until the hop's ledger reports the router's balance.
type Router struct {
	address model.Address
	native  *NativePool
	store   storage.StateStore
	logger  *zap.Logger

	mu    sync.Mutex
	state model.RouterState
}

// New builds an idle router. store may be nil.
func New(cfg Config, store storage.StateStore, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	var native *NativePool
	if cfg.Native != nil {
		n := *cfg.Native
		native = &n
	}
	return &Router{
		address: cfg.Address,
		native:  native,
		store:   store,
		logger:  logger.With(zap.String("router", cfg.Address.Hex())),
		state:   model.NewRouterState(cfg.Admins...),
	}
}

func (r *Router) Address() model.Address { return r.address }

// State returns a deep copy of the current state.
func (r *Router) State() model.RouterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Restore replaces the in-memory state with the persisted checkpoint, if
// there is one.
func (r *Router) Restore(ctx context.Context) (bool, error) {
	if r.store == nil {
		return false, nil
	}
	st, ok, err := r.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load router state: %w", err)
	}
	if !ok {
		return false, nil
	}
	r.mu.Lock()
	r.state = st.Clone()
	r.mu.Unlock()
	r.logger.Info("router state restored",
		zap.Bool("locked", st.Locked),
		zap.Int("current_index", st.CurrentIndex),
		zap.Int("exchanges", len(st.Exchanges)),
	)
	return true, nil
}

func (r *Router) Snapshot() interface{} {
	return r.State()
}

// Rollback reinstates snapshot and writes it back to the store so the
// checkpoint matches memory again.
func (r *Router) Rollback(snapshot interface{}) {
	st, ok := snapshot.(model.RouterState)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = st.Clone()
	if r.store == nil {
		return
	}
	if err := r.store.Save(context.Background(), r.state); err != nil {
		r.logger.Warn("re-persist router state after rollback", zap.Error(err))
	}
}

// mutate applies op to a copy of the state, persists the copy and only
// then commits it.
func (r *Router) mutate(ctx context.Context, op func(st *model.RouterState) ([]model.Message, error)) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	working := r.state.Clone()
	out, err := op(&working)
	if err != nil {
		r.logger.Warn("operation rejected", zap.Error(err))
		return nil, err
	}
	if r.store != nil {
		if err := r.store.Save(ctx, working); err != nil {
			return nil, fmt.Errorf("persist router state: %w", err)
		}
	}
	r.state = working
	return out, nil
}

// Handle is the router's message entry point.
func (r *Router) Handle(ctx context.Context, from model.Address, body model.Body) ([]model.Message, error) {
	switch b := body.(type) {
	case Initiate:
		return r.Initiate(ctx, from, b.Route, b.Amount, b.Recipient)
	case ledger.BalanceCallback:
		return r.ContinuationPush(ctx, from, b.Amount)
	case ledger.BalanceOfCallback:
		return r.ContinuationQuery(ctx, from, b.Responses)
	case SetPaused:
		return nil, r.SetPaused(ctx, from)
	case AddAdmin:
		return nil, r.AddAdmin(ctx, from, b.Admin)
	case RemoveAdmin:
		return nil, r.RemoveAdmin(ctx, from, b.Admin)
	case RegisterExchange:
		return r.RegisterExchange(ctx, from, b)
	case DeregisterExchange:
		return r.DeregisterExchange(ctx, from, b.Exchange)
	case SetApproval:
		return r.SetApproval(ctx, from, b)
	default:
		return nil, dexerr.Newf(dexerr.KindInvalidInput, "router cannot handle %s", body.Kind())
	}
}

// Initiate locks the router on route and dispatches the first hop.
func (r *Router) Initiate(ctx context.Context, caller model.Address, route model.Route, amount *big.Int, recipient model.Address) ([]model.Message, error) {
	return r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		if st.Paused {
			return nil, dexerr.Paused()
		}
		if st.Locked {
			return nil, dexerr.BadState()
		}
		if len(route) == 0 {
			return nil, dexerr.SmallRoute()
		}
		if amount == nil || amount.Sign() <= 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "zero swap amount")
		}

		st.Locked = true
		st.Route = normalizeRoute(route)
		st.CurrentIndex = 0
		to := recipient
		st.PendingRecipient = &to

		r.logger.Info("route initiated",
			zap.String("route_id", st.Route.ID().Hex()),
			zap.Stringer("caller", caller),
			zap.Stringer("recipient", recipient),
			zap.Int("hops", len(st.Route)),
			zap.String("amount", amount.String()),
		)
		return r.dispatch(st, new(big.Int).Set(amount))
	})
}

// ContinuationPush resumes a route from a push ledger's balance callback.
func (r *Router) ContinuationPush(ctx context.Context, caller model.Address, amount *big.Int) ([]model.Message, error) {
	return r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		hop, err := r.expectCallback(st, caller, model.VariantPush)
		if err != nil {
			return nil, err
		}
		return r.resume(st, hop, amount)
	})
}

// ContinuationQuery resumes a route from a query ledger's balance report.
// The report must answer exactly one request for the router's own balance
// of the current hop's token.
func (r *Router) ContinuationQuery(ctx context.Context, caller model.Address, responses []ledger.BalanceResponse) ([]model.Message, error) {
	return r.mutate(ctx, func(st *model.RouterState) ([]model.Message, error) {
		hop, err := r.expectCallback(st, caller, model.VariantQuery)
		if err != nil {
			return nil, err
		}
		if len(responses) != 1 {
			return nil, dexerr.Newf(dexerr.KindInvalidInput, "invalid length: %d responses", len(responses))
		}
		resp := responses[0]
		if resp.Request.Owner != r.address {
			return nil, dexerr.New(dexerr.KindInvalidInput, "balance report for another owner")
		}
		if resp.Request.TokenID != hop.TokenID {
			return nil, dexerr.New(dexerr.KindInvalidInput, "balance report for another token")
		}
		return r.resume(st, hop, resp.Balance)
	})
}

// expectCallback runs the guards shared by both continuation entry points.
func (r *Router) expectCallback(st *model.RouterState, caller model.Address, variant model.Variant) (model.Hop, error) {
	if st.Paused {
		return model.Hop{}, dexerr.Paused()
	}
	hop, ok := st.CurrentHop()
	if !ok {
		return model.Hop{}, dexerr.BadState()
	}
	if caller != hop.Ledger {
		return model.Hop{}, dexerr.Newf(dexerr.KindUnauthorized, "callback from %s, expected ledger %s", caller.Hex(), hop.Ledger.Hex())
	}
	token, err := r.requiredToken(st, hop)
	if err != nil {
		return model.Hop{}, err
	}
	if token.Variant != variant {
		return model.Hop{}, dexerr.Newf(dexerr.KindInvalidInput, "%s callback for a %s ledger", variant, token.Variant)
	}
	return hop, nil
}

func (r *Router) resume(st *model.RouterState, hop model.Hop, amount *big.Int) ([]model.Message, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, dexerr.ZeroBalance()
	}
	if amount.Cmp(minimum(hop)) < 0 {
		return nil, dexerr.Slippage()
	}
	st.CurrentIndex++
	r.logger.Info("continuation accepted",
		zap.String("route_id", st.Route.ID().Hex()),
		zap.Int("next_index", st.CurrentIndex),
		zap.String("amount", amount.String()),
	)
	return r.dispatch(st, new(big.Int).Set(amount))
}

func normalizeRoute(route model.Route) model.Route {
	out := route.Clone()
	for i := range out {
		if out[i].MinimumOutput == nil {
			out[i].MinimumOutput = new(big.Int)
		}
	}
	return out
}
