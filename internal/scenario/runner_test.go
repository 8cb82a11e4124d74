package scenario

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"swapRouter/internal/aggregate"
	"swapRouter/internal/dex"
	"swapRouter/internal/model"
	"swapRouter/internal/storage"
)

func TestRunCycleScenario(t *testing.T) {
	ctx := context.Background()
	sc, err := Load(filepath.Join("testdata", "cycle.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	dir := t.TempDir()
	sink := storage.NewJsonlStorage(filepath.Join(dir, "events.jsonl"))
	store := storage.NewFileStateStore(filepath.Join(dir, "router.json"), "")

	runner, err := NewRunner(sc, Options{ChainID: 7, StartTime: 1700000000, Sink: sink, Store: store}, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	report, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Steps) != len(sc.Steps) {
		t.Fatalf("expected %d step results, got %d", len(sc.Steps), len(report.Steps))
	}
	byName := make(map[string]StepResult)
	for _, res := range report.Steps {
		byName[res.Name] = res
	}
	if cycle := byName["cycle"]; cycle.Reverted || cycle.Logs != 4 {
		t.Fatalf("unexpected cycle result: %+v", cycle)
	}
	for _, name := range []string{"greedy", "deregistered", "intruder-pause", "paused"} {
		if res := byName[name]; !res.Reverted || res.Error == "" || res.Logs != 0 {
			t.Fatalf("%s should have reverted: %+v", name, res)
		}
	}

	alice := runner.World().Ledgers["usd"].Balance(NameAddress("alice"), 0)
	if alice.Cmp(big.NewInt(9_000_000)) <= 0 || alice.Cmp(big.NewInt(10_000_000)) >= 0 {
		t.Fatalf("alice should have paid fees on one cycle only, has %s", alice)
	}

	if !report.Router.Paused || report.Router.Locked || len(report.Router.Exchanges) != 2 {
		t.Fatalf("unexpected router state: %+v", report.Router)
	}
	persisted, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load checkpoint: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(persisted, report.Router) {
		t.Fatalf("checkpoint does not match final router state")
	}

	if len(report.Pools) != 3 {
		t.Fatalf("expected 3 pool snapshots, got %d", len(report.Pools))
	}
	for _, p := range report.Pools {
		if p.TotalSupply.Sign() <= 0 {
			t.Fatalf("pool %s not seeded", p.Address.Hex())
		}
	}

	f, err := os.Open(sink.Path())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	decoder, err := dex.NewPoolEventDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	counts := make(map[string]int)
	var total int
	err = storage.ReadJsonl(f, func(rec model.LogRecord) error {
		total++
		ev, err := decoder.Decode(rec)
		if err != nil {
			return err
		}
		counts[ev.EventName]++
		return nil
	})
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if total != len(report.Logs) {
		t.Fatalf("journal has %d records, report has %d", total, len(report.Logs))
	}
	want := map[string]int{"AddLiquidity": 3, "Swap": 3, "RouteSettled": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("event counts: got %v want %v", counts, want)
	}
}

func TestRunGovernanceScenario(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "governance.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sink := storage.NewJsonlStorage(filepath.Join(t.TempDir(), "events.jsonl"))
	runner, err := NewRunner(sc, Options{StartTime: 1700000000, Sink: sink}, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	byName := make(map[string]StepResult)
	for _, res := range report.Steps {
		byName[res.Name] = res
	}
	if res := byName["forward"]; res.Reverted || res.Logs != 1 {
		t.Fatalf("unexpected forward result: %+v", res)
	}
	for _, name := range []string{"intruder-fee", "fee-too-high", "intruder-forward", "stale-admin-pause", "pool-paused"} {
		if res := byName[name]; !res.Reverted {
			t.Fatalf("%s should have reverted: %+v", name, res)
		}
	}

	st := runner.World().Pools["usd-eur"].State()
	if !st.FeeForwarding || st.Governance == nil || *st.Governance != NameAddress("voter") {
		t.Fatalf("governance not enabled: %+v", st)
	}
	if st.FeeDivisor.Int64() != 500 || st.MaxSwapLimitPct.Int64() != 5 {
		t.Fatalf("fee settings not applied: divisor=%s pct=%s", st.FeeDivisor, st.MaxSwapLimitPct)
	}
	if st.FeeAccum1.Sign() != 0 || st.FeeAccum2.Sign() != 0 {
		t.Fatalf("fees left after forwarding: %s %s", st.FeeAccum1, st.FeeAccum2)
	}
	if st.Admin != NameAddress("ops") || !st.Paused {
		t.Fatalf("admin handover not applied: admin=%s paused=%v", st.Admin.Hex(), st.Paused)
	}
	if report.Router.Locked {
		t.Fatalf("router left locked by the paused pool")
	}

	f, err := os.Open(sink.Path())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()
	decoder, err := dex.NewPoolEventDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	agg, err := aggregate.NewAggregator(time.Hour, nil)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	err = storage.ReadJsonl(f, func(rec model.LogRecord) error {
		ev, err := decoder.Decode(rec)
		if err != nil {
			return err
		}
		return agg.Add(ev)
	})
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}

	poolAddr := runner.World().Pools["usd-eur"].Address().Hex()
	forwarded := new(big.Int)
	for _, m := range agg.Flush() {
		if !strings.EqualFold(m.Address, poolAddr) {
			continue
		}
		v, ok := new(big.Int).SetString(m.ForwardedFee1, 10)
		if !ok {
			t.Fatalf("bad forwarded fee %q", m.ForwardedFee1)
		}
		forwarded.Add(forwarded, v)
	}
	if forwarded.Int64() != 2_000 {
		t.Fatalf("forwarded fee in journal: got %s want 2000", forwarded)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := storage.NewFileStateStore(filepath.Join(t.TempDir(), "router.json"), "")

	sc, err := Load(filepath.Join("testdata", "cycle.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	first, err := NewRunner(sc, Options{Store: store}, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if _, err := first.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	follow, err := Parse([]byte(`
name: second-session
router:
  admins: [admin]
steps:
  - action: add_admin
    from: admin
    admin: ops
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	idle, err := NewRunner(follow, Options{}, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	report, err := idle.Run(ctx)
	if err != nil {
		t.Fatalf("run without resume: %v", err)
	}
	if report.Router.Paused || len(report.Router.Exchanges) != 0 {
		t.Fatalf("run without resume should start idle: %+v", report.Router)
	}

	resumed, err := NewRunner(follow, Options{Store: store, Resume: true}, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	report, err = resumed.Run(ctx)
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	st := report.Router
	if !st.Paused || len(st.Exchanges) != 2 || !st.Admins[NameAddress("admin")] || !st.Admins[NameAddress("ops")] {
		t.Fatalf("checkpoint not carried over: %+v", st)
	}
	persisted, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load checkpoint: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(persisted, st) {
		t.Fatalf("checkpoint does not match resumed state")
	}
}

func TestRunStopsOnUnexpectedFailure(t *testing.T) {
	doc := []byte(`
name: broken
ledgers:
  - name: usd
    balances:
      - owner: alice
        amount: "5"
router:
  admins: [admin]
steps:
  - action: transfer
    from: alice
    to: bob
    token: {ledger: usd}
    amount: "10"
  - action: pause
    from: admin
`)
	sc, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	runner, err := NewRunner(sc, Options{}, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	report, err := runner.Run(context.Background())
	if err == nil {
		t.Fatalf("expected overdraft to stop the run")
	}
	if len(report.Steps) != 1 || report.Router.Paused {
		t.Fatalf("run continued past the failure: %+v", report.Steps)
	}
	if got := runner.World().Ledgers["usd"].Balance(NameAddress("alice"), 0); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("failed transfer changed balance: %s", got)
	}
}

func TestParseRejectsBadScenarios(t *testing.T) {
	cases := map[string]string{
		"duplicate": "ledgers:\n  - name: a\n  - name: a\n",
		"action":    "steps:\n  - action: teleport\n",
		"governed":  "steps:\n  - action: set_fees\n",
		"unnamed":   "pools:\n  - engine: volatile\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestAddressBook(t *testing.T) {
	book := NewAddressBook()
	a, err := book.Resolve("alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a != NameAddress("alice") || book.Label(a) != "alice" {
		t.Fatalf("name mapping broken: %s %s", a.Hex(), book.Label(a))
	}
	hex := "0x00000000000000000000000000000000000000aa"
	h, err := book.Resolve(hex)
	if err != nil || h != common.HexToAddress(hex) || book.Label(h) != hex {
		t.Fatalf("hex resolve: %s %v", h.Hex(), err)
	}
	if _, err := book.Resolve("0xnothex"); err == nil {
		t.Fatalf("expected invalid hex error")
	}
}
