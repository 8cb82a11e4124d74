package pool

import (
	"math/big"

	"swapRouter/internal/model"
)

// Swap sells AmountIn of the pair's other token for the token identified by
// Ledger and TokenID. The input is pulled from the sender.
type Swap struct {
	AmountIn  *big.Int
	MinOut    *big.Int
	Recipient model.Address
	Ledger    model.Address
	TokenID   uint64
}

func (Swap) Kind() string { return "pool.swap" }

// AddLiquidity deposits at most Max1/Max2 and mints LP tokens to Recipient.
type AddLiquidity struct {
	Max1      *big.Int
	Max2      *big.Int
	Recipient model.Address
}

func (AddLiquidity) Kind() string { return "pool.add_liquidity" }

// RemoveLiquidity burns LP tokens of the sender.
type RemoveLiquidity struct {
	LP        *big.Int
	Min1      *big.Int
	Min2      *big.Int
	Recipient model.Address
}

func (RemoveLiquidity) Kind() string { return "pool.remove_liquidity" }

// ForwardFee ships accumulated fees to Distributor for Epoch.
type ForwardFee struct {
	Distributor model.Address
	Epoch       *big.Int
}

func (ForwardFee) Kind() string { return "pool.forward_fee" }

// FeeAmount is one token's share of a fee report.
type FeeAmount struct {
	Token  model.TokenRef
	Amount *big.Int
}

// AddFees is sent to the fee distributor after fees are forwarded.
type AddFees struct {
	Epoch *big.Int
	Fees  []FeeAmount
}

func (AddFees) Kind() string { return "pool.add_fees" }

// EnableGovernance switches the pool to fee forwarding for good.
type EnableGovernance struct {
	Governance model.Address
}

func (EnableGovernance) Kind() string { return "pool.enable_governance" }

type SetFee struct {
	Divisor *big.Int
}

func (SetFee) Kind() string { return "pool.set_fee" }

type SetMaxSwapLimit struct {
	Pct *big.Int
}

func (SetMaxSwapLimit) Kind() string { return "pool.set_max_swap_limit" }

// SetPaused toggles the pause flag.
type SetPaused struct{}

func (SetPaused) Kind() string { return "pool.set_paused" }

type SetAdmin struct {
	Admin model.Address
}

func (SetAdmin) Kind() string { return "pool.set_admin" }

// GetReserves asks the pool to report its reserves to Callback.
type GetReserves struct {
	Callback model.Address
}

func (GetReserves) Kind() string { return "pool.get_reserves" }

// ReservesReport answers GetReserves.
type ReservesReport struct {
	Reserves Reserves
}

func (ReservesReport) Kind() string { return "pool.reserves_report" }
