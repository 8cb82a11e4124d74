package scenario

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"swapRouter/internal/chain"
	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
	"swapRouter/internal/pool"
	"swapRouter/internal/router"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Action     string `json:"action"`
	Block      uint64 `json:"block,omitempty"`
	TxHash     string `json:"tx_hash,omitempty"`
	Deliveries int    `json:"deliveries"`
	Logs       int    `json:"logs"`
	Reverted   bool   `json:"reverted"`
	Error      string `json:"error,omitempty"`
}

// BalanceEntry is one holder's balance of one token.
type BalanceEntry struct {
	Ledger  string   `json:"ledger"`
	Owner   string   `json:"owner"`
	TokenID uint64   `json:"token_id"`
	Amount  *big.Int `json:"amount"`
}

// Report summarises a run.
type Report struct {
	Scenario string               `json:"scenario"`
	Steps    []StepResult         `json:"steps"`
	Logs     []model.LogRecord    `json:"-"`
	Balances []BalanceEntry       `json:"balances"`
	Pools    []model.PoolSnapshot `json:"pools"`
	Router   model.RouterState    `json:"router"`
}

// Runner executes a scenario's steps in order.
type Runner struct {
	scenario *Scenario
	world    *World
	resume   bool
	logger   *zap.Logger
}

func NewRunner(sc *Scenario, opts Options, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := Build(sc, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("build scenario: %w", err)
	}
	return &Runner{scenario: sc, world: w, resume: opts.Resume && opts.Store != nil, logger: logger}, nil
}

func (r *Runner) World() *World { return r.world }

// Run executes every step. A step that fails without declaring the failure
// in expect_error stops the run; the report still describes the state
// reached.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{Scenario: r.scenario.Name}
	var runErr error

	if r.resume {
		restored, err := r.world.Router.Restore(ctx)
		if err != nil {
			return report, err
		}
		r.logger.Info("scenario resumed", zap.Bool("checkpoint_found", restored))
	}

	for i, st := range r.scenario.Steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		name := st.Name(i)
		receipt, err := r.runStep(ctx, st)

		res := StepResult{Index: i, Name: name, Action: st.Action}
		if receipt != nil {
			res.Block = receipt.Block
			res.TxHash = receipt.TxHash.Hex()
			res.Deliveries = len(receipt.Deliveries)
			res.Logs = len(receipt.Logs)
			res.Reverted = receipt.Reverted
			report.Logs = append(report.Logs, receipt.Logs...)
		}
		if err != nil {
			res.Error = err.Error()
		}
		report.Steps = append(report.Steps, res)

		if err := checkExpectation(st, err); err != nil {
			runErr = fmt.Errorf("step %s: %w", name, err)
			r.logger.Error("scenario step failed", zap.String("step", name), zap.Error(err))
			break
		}
		r.logger.Debug("scenario step done", zap.String("step", name), zap.Bool("reverted", res.Reverted))
	}

	report.Balances = r.world.Balances()
	report.Pools = r.world.PoolSnapshots(time.Now())
	report.Router = r.world.Router.State()
	return report, runErr
}

func checkExpectation(st Step, err error) error {
	if st.ExpectError == "" {
		return err
	}
	if err == nil {
		return fmt.Errorf("expected %s failure, step succeeded", st.ExpectError)
	}
	if got := dexerr.KindOf(err).String(); got != st.ExpectError {
		return fmt.Errorf("expected %s failure, got %s: %w", st.ExpectError, got, err)
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, st Step) (*chain.Receipt, error) {
	if st.Action == ActionExpectBalance {
		return nil, r.expectBalance(st)
	}
	from, err := r.world.Book.Resolve(st.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	msgs, err := r.messages(st, from)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].From = from
	}
	receipt, err := r.world.Chain.SubmitGroup(ctx, msgs...)
	return &receipt, err
}

func (r *Runner) messages(st Step, from model.Address) ([]model.Message, error) {
	w := r.world
	routerAddr := w.Router.Address()

	switch st.Action {
	case ActionTransfer:
		token, err := r.stepToken(st)
		if err != nil {
			return nil, err
		}
		to, err := w.Book.Resolve(st.To)
		if err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
		amount, err := requireAmount("amount", st.Amount)
		if err != nil {
			return nil, err
		}
		return []model.Message{ledger.For(token).Transfer(from, to, amount)}, nil

	case ActionApprove, ActionOperator:
		token, err := r.stepToken(st)
		if err != nil {
			return nil, err
		}
		spender, err := w.Book.Resolve(st.Spender)
		if err != nil {
			return nil, fmt.Errorf("spender: %w", err)
		}
		adapter := ledger.For(token)
		if st.Action == ActionOperator {
			if st.Remove {
				return []model.Message{adapter.Revoke(from, spender)}, nil
			}
			return []model.Message{adapter.Grant(from, spender)}, nil
		}
		amount, err := requireAmount("amount", st.Amount)
		if err != nil {
			return nil, err
		}
		return []model.Message{adapter.Allow(from, spender, amount)}, nil

	case ActionAddLiquidity:
		exchange, err := w.poolAddress(st.Pool)
		if err != nil {
			return nil, err
		}
		max1, err := requireAmount("amount1", st.Amount1)
		if err != nil {
			return nil, err
		}
		max2, err := requireAmount("amount2", st.Amount2)
		if err != nil {
			return nil, err
		}
		recipient, err := r.recipient(st, from)
		if err != nil {
			return nil, err
		}
		return []model.Message{{To: exchange, Body: pool.AddLiquidity{Max1: max1, Max2: max2, Recipient: recipient}}}, nil

	case ActionRemoveLiquidity:
		exchange, err := w.poolAddress(st.Pool)
		if err != nil {
			return nil, err
		}
		lp, err := requireAmount("lp", st.LP)
		if err != nil {
			return nil, err
		}
		min1, err := parseAmount(st.Min1, new(big.Int))
		if err != nil {
			return nil, err
		}
		min2, err := parseAmount(st.Min2, new(big.Int))
		if err != nil {
			return nil, err
		}
		recipient, err := r.recipient(st, from)
		if err != nil {
			return nil, err
		}
		return []model.Message{{To: exchange, Body: pool.RemoveLiquidity{LP: lp, Min1: min1, Min2: min2, Recipient: recipient}}}, nil

	case ActionRegister:
		p, ok := w.Pools[st.Pool]
		if !ok {
			return nil, fmt.Errorf("unknown pool %q", st.Pool)
		}
		ps := p.State()
		amount1, err := parseAmount(st.Amount1, nil)
		if err != nil {
			return nil, err
		}
		amount2, err := parseAmount(st.Amount2, nil)
		if err != nil {
			return nil, err
		}
		depositor, err := r.recipient(st, from)
		if err != nil {
			return nil, err
		}
		return []model.Message{{To: routerAddr, Body: router.RegisterExchange{
			Exchange:  p.Address(),
			Pair:      model.PairInfo{Token1: ps.Token1, Token2: ps.Token2},
			Amount1:   amount1,
			Amount2:   amount2,
			Depositor: depositor,
		}}}, nil

	case ActionDeregister:
		exchange, err := w.poolAddress(st.Pool)
		if err != nil {
			return nil, err
		}
		return []model.Message{{To: routerAddr, Body: router.DeregisterExchange{Exchange: exchange}}}, nil

	case ActionSetApproval:
		exchange, err := w.poolAddress(st.Pool)
		if err != nil {
			return nil, err
		}
		token, err := r.stepToken(st)
		if err != nil {
			return nil, err
		}
		amount, err := requireAmount("amount", st.Amount)
		if err != nil {
			return nil, err
		}
		return []model.Message{{To: routerAddr, Body: router.SetApproval{
			Exchange: exchange,
			Ledger:   token.Ledger,
			TokenID:  token.TokenID,
			Amount:   amount,
		}}}, nil

	case ActionPause:
		if st.Pool != "" {
			exchange, err := w.poolAddress(st.Pool)
			if err != nil {
				return nil, err
			}
			return []model.Message{{To: exchange, Body: pool.SetPaused{}}}, nil
		}
		return []model.Message{{To: routerAddr, Body: router.SetPaused{}}}, nil

	case ActionAddAdmin, ActionRemoveAdmin:
		admin, err := w.Book.Resolve(st.Admin)
		if err != nil {
			return nil, fmt.Errorf("admin: %w", err)
		}
		if st.Action == ActionAddAdmin {
			return []model.Message{{To: routerAddr, Body: router.AddAdmin{Admin: admin}}}, nil
		}
		return []model.Message{{To: routerAddr, Body: router.RemoveAdmin{Admin: admin}}}, nil

	case ActionSwap:
		return r.swapMessages(st, from)

	case ActionEnableGovernance, ActionForwardFee, ActionSetFee, ActionSetMaxSwapLimit, ActionSetPoolAdmin, ActionGetReserves:
		return r.governanceMessages(st, from)

	default:
		return nil, fmt.Errorf("unknown action %q", st.Action)
	}
}

// governanceMessages addresses a pool's admin and fee operations.
func (r *Runner) governanceMessages(st Step, from model.Address) ([]model.Message, error) {
	exchange, err := r.world.poolAddress(st.Pool)
	if err != nil {
		return nil, err
	}
	book := r.world.Book

	var body model.Body
	switch st.Action {
	case ActionEnableGovernance:
		governance, err := book.Resolve(st.Governance)
		if err != nil {
			return nil, fmt.Errorf("governance: %w", err)
		}
		body = pool.EnableGovernance{Governance: governance}
	case ActionForwardFee:
		distributor, err := book.Resolve(st.Distributor)
		if err != nil {
			return nil, fmt.Errorf("distributor: %w", err)
		}
		epoch, err := parseAmount(st.Epoch, new(big.Int))
		if err != nil {
			return nil, err
		}
		body = pool.ForwardFee{Distributor: distributor, Epoch: epoch}
	case ActionSetFee:
		divisor, err := requireAmount("divisor", st.Divisor)
		if err != nil {
			return nil, err
		}
		body = pool.SetFee{Divisor: divisor}
	case ActionSetMaxSwapLimit:
		pct, err := requireAmount("pct", st.Pct)
		if err != nil {
			return nil, err
		}
		body = pool.SetMaxSwapLimit{Pct: pct}
	case ActionSetPoolAdmin:
		admin, err := book.Resolve(st.Admin)
		if err != nil {
			return nil, fmt.Errorf("admin: %w", err)
		}
		body = pool.SetAdmin{Admin: admin}
	case ActionGetReserves:
		callback := from
		if st.Callback != "" {
			if callback, err = book.Resolve(st.Callback); err != nil {
				return nil, fmt.Errorf("callback: %w", err)
			}
		}
		body = pool.GetReserves{Callback: callback}
	}
	return []model.Message{{To: exchange, Body: body}}, nil
}

// swapMessages funds the router with the route's input token and starts the
// route, both in one operation group.
func (r *Runner) swapMessages(st Step, from model.Address) ([]model.Message, error) {
	w := r.world
	amount, err := requireAmount("amount", st.Amount)
	if err != nil {
		return nil, err
	}
	recipient, err := r.recipient(st, from)
	if err != nil {
		return nil, err
	}
	route := make(model.Route, 0, len(st.Route))
	for i, h := range st.Route {
		exchange, err := w.poolAddress(h.Pool)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		ledgerAddr, err := w.Book.Resolve(h.Ledger)
		if err != nil {
			return nil, fmt.Errorf("hop %d ledger: %w", i, err)
		}
		min, err := parseAmount(h.Min, nil)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		route = append(route, model.Hop{Exchange: exchange, Ledger: ledgerAddr, TokenID: h.TokenID, MinimumOutput: min})
	}

	initiate := model.Message{To: w.Router.Address(), Body: router.Initiate{Route: route, Amount: amount, Recipient: recipient}}
	if st.Prefunded || len(route) == 0 {
		return []model.Message{initiate}, nil
	}
	input, err := r.inputToken(route[0])
	if err != nil {
		return nil, err
	}
	return []model.Message{
		ledger.For(input).Transfer(from, w.Router.Address(), amount),
		initiate,
	}, nil
}

// inputToken is the side of the first hop's pool that is sold.
func (r *Runner) inputToken(hop model.Hop) (model.TokenRef, error) {
	p, ok := r.world.poolAt(hop.Exchange)
	if !ok {
		return model.TokenRef{}, fmt.Errorf("first hop exchange %s is not a scenario pool; mark the step prefunded", hop.Exchange.Hex())
	}
	st := p.State()
	switch {
	case st.Token1.Is(hop.Ledger, hop.TokenID):
		return st.Token2, nil
	case st.Token2.Is(hop.Ledger, hop.TokenID):
		return st.Token1, nil
	default:
		return model.TokenRef{}, fmt.Errorf("first hop token %s#%d is not traded by %s", hop.Ledger.Hex(), hop.TokenID, r.world.Book.Label(hop.Exchange))
	}
}

func (r *Runner) expectBalance(st Step) error {
	token, err := r.stepToken(st)
	if err != nil {
		return err
	}
	owner, err := r.world.Book.Resolve(st.Owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	want, err := requireAmount("want", st.Want)
	if err != nil {
		return err
	}
	l, _ := r.world.ledgerAt(token.Ledger)
	got := l.Balance(owner, token.TokenID)
	if got.Cmp(want) != 0 {
		return fmt.Errorf("balance of %s on %s#%d: got %s want %s", st.Owner, r.world.Book.Label(token.Ledger), token.TokenID, got, want)
	}
	return nil
}

func (r *Runner) stepToken(st Step) (model.TokenRef, error) {
	if st.Token == nil {
		return model.TokenRef{}, fmt.Errorf("token is required for %s", st.Action)
	}
	return r.world.token(*st.Token)
}

func (r *Runner) recipient(st Step, from model.Address) (model.Address, error) {
	if st.Recipient == "" {
		return from, nil
	}
	addr, err := r.world.Book.Resolve(st.Recipient)
	if err != nil {
		return model.Address{}, fmt.Errorf("recipient: %w", err)
	}
	return addr, nil
}
