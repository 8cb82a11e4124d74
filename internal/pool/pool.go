package pool

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
)

const (
	// InitialLiquidity is locked into TotalSupply by the bootstrap deposit.
	InitialLiquidity = 1000

	DefaultVolatileFeeDivisor = 1000
	DefaultStableFeeDivisor   = 2000
	DefaultMaxSwapLimitPct    = 10
)

// Config seeds a pool.
type Config struct {
	Token1  model.TokenRef
	Token2  model.TokenRef
	LPToken model.TokenRef
	Admin   model.Address

	FeeDivisor      *big.Int
	MaxSwapLimitPct *big.Int
	// Precision multipliers normalise decimals for the stable curve.
	Precision1 *big.Int
	Precision2 *big.Int
}

// State is one pool's reserves and settings.
type State struct {
	Token1  model.TokenRef `json:"token1"`
	Token2  model.TokenRef `json:"token2"`
	LPToken model.TokenRef `json:"lp_token"`

	Reserve1    *big.Int `json:"reserve1"`
	Reserve2    *big.Int `json:"reserve2"`
	TotalSupply *big.Int `json:"total_supply"`

	FeeDivisor      *big.Int `json:"fee_divisor"`
	MaxSwapLimitPct *big.Int `json:"max_swap_limit_pct"`
	FeeAccum1       *big.Int `json:"fee_accum1"`
	FeeAccum2       *big.Int `json:"fee_accum2"`

	FeeForwarding bool           `json:"fee_forwarding"`
	Governance    *model.Address `json:"governance,omitempty"`
	Paused        bool           `json:"paused"`
	Admin         model.Address  `json:"admin"`

	Precision1 *big.Int `json:"precision1"`
	Precision2 *big.Int `json:"precision2"`
}

func (s State) clone() State {
	out := s
	for _, p := range []**big.Int{
		&out.Reserve1, &out.Reserve2, &out.TotalSupply, &out.FeeDivisor, &out.MaxSwapLimitPct,
		&out.FeeAccum1, &out.FeeAccum2, &out.Precision1, &out.Precision2,
	} {
		*p = copyInt(*p)
	}
	if s.Governance != nil {
		g := *s.Governance
		out.Governance = &g
	}
	return out
}

// side is one half of the pair as seen by a swap.
type side struct {
	token     model.TokenRef
	reserve   *big.Int
	accum     *big.Int
	precision *big.Int
}

// sides returns (input, output) for a swap that wants the given token.
func (s *State) sides(ledgerAddr model.Address, tokenID uint64) (in, out side, err error) {
	one := side{token: s.Token1, reserve: s.Reserve1, accum: s.FeeAccum1, precision: s.Precision1}
	two := side{token: s.Token2, reserve: s.Reserve2, accum: s.FeeAccum2, precision: s.Precision2}
	switch {
	case s.Token1.Is(ledgerAddr, tokenID):
		return two, one, nil
	case s.Token2.Is(ledgerAddr, tokenID):
		return one, two, nil
	default:
		return side{}, side{}, dexerr.New(dexerr.KindInvalidInput, "invalid pair")
	}
}

// Reserves is the read-only view returned by GetReserves.
type Reserves struct {
	Reserve1    *big.Int
	Reserve2    *big.Int
	FeeAccum1   *big.Int
	FeeAccum2   *big.Int
	TotalSupply *big.Int
}

// swapResult is what an engine decided for one swap. It has already been
// applied to the working state.
type swapResult struct {
	amountOut *big.Int
	fee       *big.Int
}

type engine interface {
	name() string
	swap(st *State, in, out side, req Swap) (swapResult, error)
	bootstrap(st *State, max1, max2 *big.Int) (*big.Int, error)
	checkFee(divisor *big.Int) error
}

// Pool owns one pair's reserves and speaks the pool message set.
type Pool struct {
	address model.Address
	engine  engine
	logger  *zap.Logger

	mu    sync.RWMutex
	state State
}

func newPool(address model.Address, eng engine, cfg Config, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Token1.Ledger == cfg.Token2.Ledger && cfg.Token1.TokenID == cfg.Token2.TokenID {
		return nil, fmt.Errorf("pool tokens must differ")
	}
	if err := eng.checkFee(cfg.FeeDivisor); err != nil {
		return nil, fmt.Errorf("fee divisor: %w", err)
	}
	st := State{
		Token1:          cfg.Token1,
		Token2:          cfg.Token2,
		LPToken:         cfg.LPToken,
		Reserve1:        new(big.Int),
		Reserve2:        new(big.Int),
		TotalSupply:     new(big.Int),
		FeeDivisor:      copyInt(cfg.FeeDivisor),
		MaxSwapLimitPct: orDefault(cfg.MaxSwapLimitPct, 0),
		FeeAccum1:       new(big.Int),
		FeeAccum2:       new(big.Int),
		Admin:           cfg.Admin,
		Precision1:      orDefault(cfg.Precision1, 1),
		Precision2:      orDefault(cfg.Precision2, 1),
	}
	if st.Precision1.Sign() <= 0 || st.Precision2.Sign() <= 0 {
		return nil, fmt.Errorf("precisions must be positive")
	}
	return &Pool{
		address: address,
		engine:  eng,
		logger:  logger.With(zap.String("pool", address.Hex()), zap.String("engine", eng.name())),
		state:   st,
	}, nil
}

func (p *Pool) Address() model.Address { return p.address }
func (p *Pool) Engine() string         { return p.engine.name() }

// State returns a copy of the pool state.
func (p *Pool) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.clone()
}

func (p *Pool) GetReserves() Reserves {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Reserves{
		Reserve1:    copyInt(p.state.Reserve1),
		Reserve2:    copyInt(p.state.Reserve2),
		FeeAccum1:   copyInt(p.state.FeeAccum1),
		FeeAccum2:   copyInt(p.state.FeeAccum2),
		TotalSupply: copyInt(p.state.TotalSupply),
	}
}

// PoolSnapshot renders the state for persistence.
func (p *Pool) PoolSnapshot(now time.Time) model.PoolSnapshot {
	st := p.State()
	return model.PoolSnapshot{
		Address:     p.address,
		Engine:      p.engine.name(),
		Token1:      st.Token1,
		Token2:      st.Token2,
		LPToken:     st.LPToken,
		Reserve1:    st.Reserve1,
		Reserve2:    st.Reserve2,
		TotalSupply: st.TotalSupply,
		FeeDivisor:  st.FeeDivisor,
		FeeAccum1:   st.FeeAccum1,
		FeeAccum2:   st.FeeAccum2,
		Forwarding:  st.FeeForwarding,
		Paused:      st.Paused,
		UpdatedAt:   now.UTC(),
	}
}

func (p *Pool) Snapshot() interface{} {
	return p.State()
}

func (p *Pool) Rollback(snapshot interface{}) {
	st, ok := snapshot.(State)
	if !ok {
		return
	}
	p.mu.Lock()
	p.state = st.clone()
	p.mu.Unlock()
}

// mutate runs op on a copy of the state and commits it only on success.
func (p *Pool) mutate(op func(st *State) ([]model.Message, error)) ([]model.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	working := p.state.clone()
	out, err := op(&working)
	if err != nil {
		return nil, err
	}
	p.state = working
	return out, nil
}

// Swap prices req with the pool's engine and pulls the input from caller.
func (p *Pool) Swap(caller model.Address, req Swap) ([]model.Message, error) {
	return p.mutate(func(st *State) ([]model.Message, error) {
		if st.Paused {
			return nil, dexerr.New(dexerr.KindInvalidState, "paused")
		}
		if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "zero swap")
		}
		if req.MinOut == nil || req.MinOut.Sign() < 0 {
			return nil, dexerr.New(dexerr.KindInvalidInput, "invalid minimum output")
		}
		in, out, err := st.sides(req.Ledger, req.TokenID)
		if err != nil {
			return nil, err
		}

		res, err := p.engine.swap(st, in, out, req)
		if err != nil {
			return nil, err
		}

		p.logger.Info("swap",
			zap.Stringer("caller", caller),
			zap.Stringer("recipient", req.Recipient),
			zap.String("amount_in", req.AmountIn.String()),
			zap.String("amount_out", res.amountOut.String()),
			zap.String("fee", res.fee.String()),
		)
		return []model.Message{
			ledger.For(in.token).Transfer(caller, p.address, req.AmountIn),
			ledger.For(out.token).Transfer(p.address, req.Recipient, res.amountOut),
			{Body: model.SwapEvent{
				Pool:      p.address,
				Recipient: req.Recipient,
				AmountIn:  copyInt(req.AmountIn),
				AmountOut: res.amountOut,
				Fee:       res.fee,
			}},
		}, nil
	})
}

// Handle is the pool's message entry point.
func (p *Pool) Handle(ctx context.Context, from model.Address, body model.Body) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch b := body.(type) {
	case Swap:
		return p.Swap(from, b)
	case AddLiquidity:
		return p.AddLiquidity(from, b.Max1, b.Max2, b.Recipient)
	case RemoveLiquidity:
		return p.RemoveLiquidity(from, b.LP, b.Min1, b.Min2, b.Recipient)
	case ForwardFee:
		return p.ForwardFee(from, b.Distributor, b.Epoch)
	case EnableGovernance:
		return nil, p.EnableGovernance(from, b.Governance)
	case SetFee:
		return nil, p.SetFee(from, b.Divisor)
	case SetMaxSwapLimit:
		return nil, p.SetMaxSwapLimit(from, b.Pct)
	case SetPaused:
		return nil, p.SetPaused(from)
	case SetAdmin:
		return nil, p.SetAdmin(from, b.Admin)
	case GetReserves:
		return []model.Message{{To: b.Callback, Body: ReservesReport{Reserves: p.GetReserves()}}}, nil
	default:
		return nil, dexerr.Newf(dexerr.KindInvalidInput, "pool cannot handle %s", body.Kind())
	}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func orDefault(v *big.Int, def int64) *big.Int {
	if v == nil {
		return big.NewInt(def)
	}
	return new(big.Int).Set(v)
}
