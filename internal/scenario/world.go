package scenario

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"swapRouter/internal/chain"
	"swapRouter/internal/ledger"
	"swapRouter/internal/model"
	"swapRouter/internal/pool"
	"swapRouter/internal/router"
	"swapRouter/internal/storage"
)

// DefaultBlockInterval spaces simulated block timestamps.
const DefaultBlockInterval = 12 * time.Second

// Options configures the host a scenario runs on.
type Options struct {
	ChainID   uint64
	MaxDepth  int
	StartTime uint64
	// Sink receives the event journal; Store the router checkpoint. Both
	// may be nil.
	Sink  storage.LogSink
	Store storage.StateStore
	// Resume restores the router from Store before the first step, so
	// admins, registry, pause flag and any stranded route carry over.
	Resume bool
}

// World is the wired set of participants built from a scenario.
type World struct {
	Book    *AddressBook
	Chain   *chain.Chain
	Router  *router.Router
	Ledgers map[string]*ledger.Memory
	Pools   map[string]*pool.Pool

	ledgerNames []string
	poolNames   []string
	tokenIDs    map[string]map[uint64]bool
}

// Build creates the ledgers, pools and router a scenario declares and
// registers them on a fresh chain.
func Build(sc *Scenario, opts Options, logger *zap.Logger) (*World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	chainID := opts.ChainID
	if chainID == 0 {
		chainID = 1337
	}
	start := opts.StartTime
	if start == 0 {
		start = uint64(time.Now().Unix())
	}
	var tick uint64
	clock := func() time.Time {
		tick++
		return time.Unix(int64(start), 0).Add(time.Duration(tick-1) * DefaultBlockInterval)
	}

	c, err := chain.New(chainID, opts.Sink, logger, chain.WithMaxDepth(opts.MaxDepth), chain.WithClock(clock))
	if err != nil {
		return nil, err
	}
	w := &World{
		Book:     NewAddressBook(),
		Chain:    c,
		Ledgers:  make(map[string]*ledger.Memory),
		Pools:    make(map[string]*pool.Pool),
		tokenIDs: make(map[string]map[uint64]bool),
	}

	for _, spec := range sc.Ledgers {
		if err := w.addLedger(spec, logger); err != nil {
			return nil, fmt.Errorf("ledger %s: %w", spec.Name, err)
		}
	}

	admins := make([]model.Address, 0, len(sc.Router.Admins))
	for _, name := range sc.Router.Admins {
		addr, err := w.Book.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("router admin: %w", err)
		}
		admins = append(admins, addr)
	}

	for _, spec := range sc.Pools {
		if err := w.addPool(spec, admins, logger); err != nil {
			return nil, fmt.Errorf("pool %s: %w", spec.Name, err)
		}
	}

	routerAddr, err := w.Book.Resolve(sc.Router.Name)
	if err != nil {
		return nil, err
	}
	cfg := router.Config{Address: routerAddr, Admins: admins}
	if n := sc.Router.Native; n != nil {
		native, err := w.nativePool(*n)
		if err != nil {
			return nil, fmt.Errorf("native pool: %w", err)
		}
		cfg.Native = &native
	}
	w.Router = router.New(cfg, opts.Store, logger)
	c.Register(routerAddr, w.Router)
	return w, nil
}

func (w *World) addLedger(spec LedgerSpec, logger *zap.Logger) error {
	variant, err := model.ParseVariant(spec.Variant)
	if err != nil {
		return err
	}
	addr, err := w.Book.Resolve(spec.Name)
	if err != nil {
		return err
	}
	l := ledger.NewMemory(addr, variant, logger)
	for _, b := range spec.Balances {
		if variant == model.VariantPush && b.TokenID != 0 {
			return fmt.Errorf("push ledgers only carry token id 0")
		}
		owner, err := w.Book.Resolve(b.Owner)
		if err != nil {
			return err
		}
		amount, err := requireAmount("balance amount", b.Amount)
		if err != nil {
			return err
		}
		if err := l.Credit(owner, b.TokenID, amount); err != nil {
			return fmt.Errorf("credit %s: %w", b.Owner, err)
		}
		w.trackToken(spec.Name, b.TokenID)
	}
	w.Ledgers[spec.Name] = l
	w.ledgerNames = append(w.ledgerNames, spec.Name)
	w.Chain.Register(addr, l)
	return nil
}

func (w *World) addPool(spec PoolSpec, admins []model.Address, logger *zap.Logger) error {
	addr, err := w.Book.Resolve(spec.Name)
	if err != nil {
		return err
	}
	cfg := pool.Config{}
	if cfg.Token1, err = w.token(spec.Token1); err != nil {
		return fmt.Errorf("token1: %w", err)
	}
	if cfg.Token2, err = w.token(spec.Token2); err != nil {
		return fmt.Errorf("token2: %w", err)
	}
	if cfg.LPToken, err = w.token(spec.LP); err != nil {
		return fmt.Errorf("lp token: %w", err)
	}
	switch {
	case spec.Admin != "":
		if cfg.Admin, err = w.Book.Resolve(spec.Admin); err != nil {
			return err
		}
	case len(admins) > 0:
		cfg.Admin = admins[0]
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"fee_divisor", spec.FeeDivisor, &cfg.FeeDivisor},
		{"max_swap_limit_pct", spec.MaxSwapLimitPct, &cfg.MaxSwapLimitPct},
		{"precision1", spec.Precision1, &cfg.Precision1},
		{"precision2", spec.Precision2, &cfg.Precision2},
	} {
		v, err := parseAmount(f.raw, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	var p *pool.Pool
	switch strings.ToLower(spec.Engine) {
	case model.EngineVolatile, "":
		p, err = pool.NewVolatile(addr, cfg, logger)
	case model.EngineStable:
		p, err = pool.NewStable(addr, cfg, logger)
	default:
		return fmt.Errorf("unknown engine %q", spec.Engine)
	}
	if err != nil {
		return err
	}

	lp, ok := w.ledgerAt(cfg.LPToken.Ledger)
	if !ok {
		return fmt.Errorf("lp ledger %s is not part of the scenario", spec.LP.Ledger)
	}
	lp.AllowMinter(addr)

	w.Pools[spec.Name] = p
	w.poolNames = append(w.poolNames, spec.Name)
	w.Chain.Register(addr, p)
	return nil
}

func (w *World) nativePool(spec NativeSpec) (router.NativePool, error) {
	exchange, err := w.poolAddress(spec.Pool)
	if err != nil {
		return router.NativePool{}, err
	}
	native, err := w.token(spec.Native)
	if err != nil {
		return router.NativePool{}, fmt.Errorf("native token: %w", err)
	}
	base, err := w.token(spec.Base)
	if err != nil {
		return router.NativePool{}, fmt.Errorf("base token: %w", err)
	}
	return router.NativePool{Exchange: exchange, NativeToken: native, BaseToken: base}, nil
}

// token resolves spec against the scenario's ledgers so the reference
// carries the ledger's protocol variant.
func (w *World) token(spec TokenSpec) (model.TokenRef, error) {
	addr, err := w.Book.Resolve(spec.Ledger)
	if err != nil {
		return model.TokenRef{}, err
	}
	l, ok := w.ledgerAt(addr)
	if !ok {
		return model.TokenRef{}, fmt.Errorf("unknown ledger %q", spec.Ledger)
	}
	if l.Variant() == model.VariantPush && spec.TokenID != 0 {
		return model.TokenRef{}, fmt.Errorf("push ledger %s has no token id %d", spec.Ledger, spec.TokenID)
	}
	w.trackToken(w.Book.Label(addr), spec.TokenID)
	return l.Token(spec.TokenID), nil
}

func (w *World) ledgerAt(addr model.Address) (*ledger.Memory, bool) {
	l, ok := w.Ledgers[w.Book.Label(addr)]
	if ok && l.Address() == addr {
		return l, true
	}
	return nil, false
}

// poolAddress accepts a pool name or an address of any registered handler.
func (w *World) poolAddress(name string) (model.Address, error) {
	if p, ok := w.Pools[name]; ok {
		return p.Address(), nil
	}
	addr, err := w.Book.Resolve(name)
	if err != nil {
		return model.Address{}, err
	}
	if _, ok := w.Chain.Handler(addr); !ok {
		return model.Address{}, fmt.Errorf("unknown pool %q", name)
	}
	return addr, nil
}

func (w *World) poolAt(addr model.Address) (*pool.Pool, bool) {
	p, ok := w.Pools[w.Book.Label(addr)]
	if ok && p.Address() == addr {
		return p, true
	}
	return nil, false
}

func (w *World) trackToken(ledgerName string, tokenID uint64) {
	ids, ok := w.tokenIDs[ledgerName]
	if !ok {
		ids = make(map[uint64]bool)
		w.tokenIDs[ledgerName] = ids
	}
	ids[tokenID] = true
}

// Balances lists every non-zero balance of every token the scenario
// mentions, ordered by ledger, token id and owner label.
func (w *World) Balances() []BalanceEntry {
	var out []BalanceEntry
	for _, name := range w.ledgerNames {
		l := w.Ledgers[name]
		ids := make([]uint64, 0, len(w.tokenIDs[name]))
		for id := range w.tokenIDs[name] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			holders := l.Holders(id)
			entries := make([]BalanceEntry, 0, len(holders))
			for owner, amount := range holders {
				entries = append(entries, BalanceEntry{
					Ledger:  name,
					Owner:   w.Book.Label(owner),
					TokenID: id,
					Amount:  amount,
				})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Owner < entries[j].Owner })
			out = append(out, entries...)
		}
	}
	return out
}

// PoolSnapshots renders every pool in declaration order.
func (w *World) PoolSnapshots(now time.Time) []model.PoolSnapshot {
	out := make([]model.PoolSnapshot, 0, len(w.poolNames))
	for _, name := range w.poolNames {
		out = append(out, w.Pools[name].PoolSnapshot(now))
	}
	return out
}
