package scenario

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step actions.
const (
	ActionTransfer        = "transfer"
	ActionApprove         = "approve"
	ActionOperator        = "operator"
	ActionAddLiquidity    = "add_liquidity"
	ActionRemoveLiquidity = "remove_liquidity"
	ActionRegister        = "register"
	ActionDeregister      = "deregister"
	ActionSetApproval     = "set_approval"
	ActionPause           = "pause"
	ActionAddAdmin        = "add_admin"
	ActionRemoveAdmin     = "remove_admin"
	ActionSwap            = "swap"
	ActionExpectBalance   = "expect_balance"

	// Pool governance.
	ActionEnableGovernance = "enable_governance"
	ActionForwardFee       = "forward_fee"
	ActionSetFee           = "set_fee"
	ActionSetMaxSwapLimit  = "set_max_swap_limit"
	ActionSetPoolAdmin     = "set_admin"
	ActionGetReserves      = "get_reserves"
)

// Scenario is a declarative description of a market and the operations to
// run against it.
type Scenario struct {
	Name    string       `yaml:"name"`
	Ledgers []LedgerSpec `yaml:"ledgers"`
	Pools   []PoolSpec   `yaml:"pools"`
	Router  RouterSpec   `yaml:"router"`
	Steps   []Step       `yaml:"steps"`
}

type LedgerSpec struct {
	Name     string        `yaml:"name"`
	Variant  string        `yaml:"variant"`
	Balances []BalanceSpec `yaml:"balances"`
}

type BalanceSpec struct {
	Owner   string `yaml:"owner"`
	TokenID uint64 `yaml:"token_id"`
	Amount  string `yaml:"amount"`
}

// TokenSpec names a token by ledger name (or hex address) and id.
type TokenSpec struct {
	Ledger  string `yaml:"ledger"`
	TokenID uint64 `yaml:"token_id"`
}

type PoolSpec struct {
	Name            string    `yaml:"name"`
	Engine          string    `yaml:"engine"`
	Token1          TokenSpec `yaml:"token1"`
	Token2          TokenSpec `yaml:"token2"`
	LP              TokenSpec `yaml:"lp"`
	Admin           string    `yaml:"admin"`
	FeeDivisor      string    `yaml:"fee_divisor"`
	MaxSwapLimitPct string    `yaml:"max_swap_limit_pct"`
	Precision1      string    `yaml:"precision1"`
	Precision2      string    `yaml:"precision2"`
}

type RouterSpec struct {
	Name   string      `yaml:"name"`
	Admins []string    `yaml:"admins"`
	Native *NativeSpec `yaml:"native"`
}

// NativeSpec declares the router's built-in pool.
type NativeSpec struct {
	Pool   string    `yaml:"pool"`
	Native TokenSpec `yaml:"native"`
	Base   TokenSpec `yaml:"base"`
}

// HopSpec is one hop of a swap step.
type HopSpec struct {
	Pool    string `yaml:"pool"`
	Ledger  string `yaml:"ledger"`
	TokenID uint64 `yaml:"token_id"`
	Min     string `yaml:"min"`
}

// Step is one operation. Which fields matter depends on Action.
type Step struct {
	Action      string     `yaml:"action"`
	Label       string     `yaml:"label"`
	From        string     `yaml:"from"`
	To          string     `yaml:"to"`
	Token       *TokenSpec `yaml:"token"`
	Amount      string     `yaml:"amount"`
	Spender     string     `yaml:"spender"`
	Remove      bool       `yaml:"remove"`
	Pool        string     `yaml:"pool"`
	Amount1     string     `yaml:"amount1"`
	Amount2     string     `yaml:"amount2"`
	LP          string     `yaml:"lp"`
	Min1        string     `yaml:"min1"`
	Min2        string     `yaml:"min2"`
	Recipient   string     `yaml:"recipient"`
	Admin       string     `yaml:"admin"`
	Route       []HopSpec  `yaml:"route"`
	Prefunded   bool       `yaml:"prefunded"`
	Owner       string     `yaml:"owner"`
	Want        string     `yaml:"want"`
	Governance  string     `yaml:"governance"`
	Distributor string     `yaml:"distributor"`
	Epoch       string     `yaml:"epoch"`
	Divisor     string     `yaml:"divisor"`
	Pct         string     `yaml:"pct"`
	Callback    string     `yaml:"callback"`
	ExpectError string     `yaml:"expect_error"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Router.Name == "" {
		sc.Router.Name = "router"
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	seen := make(map[string]bool)
	claim := func(kind, name string) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if seen[name] {
			return fmt.Errorf("duplicate name %q", name)
		}
		seen[name] = true
		return nil
	}
	for _, l := range sc.Ledgers {
		if err := claim("ledger", l.Name); err != nil {
			return err
		}
	}
	for _, p := range sc.Pools {
		if err := claim("pool", p.Name); err != nil {
			return err
		}
	}
	if err := claim("router", sc.Router.Name); err != nil {
		return err
	}
	for i, st := range sc.Steps {
		switch st.Action {
		case ActionTransfer, ActionApprove, ActionOperator, ActionAddLiquidity, ActionRemoveLiquidity,
			ActionRegister, ActionDeregister, ActionSetApproval, ActionPause, ActionAddAdmin,
			ActionRemoveAdmin, ActionSwap, ActionExpectBalance, ActionEnableGovernance, ActionForwardFee,
			ActionSetFee, ActionSetMaxSwapLimit, ActionSetPoolAdmin, ActionGetReserves:
		default:
			return fmt.Errorf("step %d: unknown action %q", i, st.Action)
		}
	}
	return nil
}

// Name returns a label for log lines and reports.
func (s Step) Name(index int) string {
	if s.Label != "" {
		return s.Label
	}
	return fmt.Sprintf("%d:%s", index, s.Action)
}

// parseAmount reads a decimal integer. Underscores are allowed as digit
// separators; an empty string yields def.
func parseAmount(raw string, def *big.Int) (*big.Int, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if raw == "" {
		if def == nil {
			return nil, nil
		}
		return new(big.Int).Set(def), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", raw)
	}
	return v, nil
}

func requireAmount(field, raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	return parseAmount(raw, nil)
}
