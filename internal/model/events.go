package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event names as they appear in the journal.
const (
	EventSwap            = "Swap"
	EventAddLiquidity    = "AddLiquidity"
	EventRemoveLiquidity = "RemoveLiquidity"
	EventForwardFee      = "ForwardFee"
	EventRouteSettled    = "RouteSettled"
)

// SwapEvent is emitted by a pool after a successful swap.
type SwapEvent struct {
	Pool      Address
	Recipient Address
	AmountIn  *big.Int
	AmountOut *big.Int
	Fee       *big.Int
}

func (SwapEvent) Kind() string      { return "event.swap" }
func (SwapEvent) EventName() string { return EventSwap }

// LiquidityEvent is emitted for deposits and withdrawals.
type LiquidityEvent struct {
	Removed   bool
	Pool      Address
	Recipient Address
	Amount1   *big.Int
	Amount2   *big.Int
	Liquidity *big.Int
}

func (e LiquidityEvent) Kind() string { return "event.liquidity" }

func (e LiquidityEvent) EventName() string {
	if e.Removed {
		return EventRemoveLiquidity
	}
	return EventAddLiquidity
}

// ForwardFeeEvent is emitted when accumulated fees leave a pool.
type ForwardFeeEvent struct {
	Pool        Address
	Distributor Address
	Epoch       *big.Int
	Fee1        *big.Int
	Fee2        *big.Int
}

func (ForwardFeeEvent) Kind() string      { return "event.forward_fee" }
func (ForwardFeeEvent) EventName() string { return EventForwardFee }

// RouteSettledEvent is emitted by the router when the terminal hop is sent.
type RouteSettledEvent struct {
	RouteID   common.Hash
	Recipient Address
	Hops      uint64
}

func (RouteSettledEvent) Kind() string      { return "event.route_settled" }
func (RouteSettledEvent) EventName() string { return EventRouteSettled }

// SwapEventData is the decoded Swap payload.
type SwapEventData struct {
	Pool      string `json:"pool"`
	Recipient string `json:"recipient"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Fee       string `json:"fee"`
}

// LiquidityEventData is the decoded AddLiquidity/RemoveLiquidity payload.
type LiquidityEventData struct {
	Pool      string `json:"pool"`
	Recipient string `json:"recipient"`
	Amount1   string `json:"amount1"`
	Amount2   string `json:"amount2"`
	Liquidity string `json:"liquidity"`
}

// ForwardFeeEventData is the decoded ForwardFee payload.
type ForwardFeeEventData struct {
	Pool        string `json:"pool"`
	Distributor string `json:"distributor"`
	Epoch       string `json:"epoch"`
	Fee1        string `json:"fee1"`
	Fee2        string `json:"fee2"`
}

// RouteSettledEventData is the decoded RouteSettled payload.
type RouteSettledEventData struct {
	RouteID   string `json:"route_id"`
	Recipient string `json:"recipient"`
	Hops      uint64 `json:"hops"`
}
