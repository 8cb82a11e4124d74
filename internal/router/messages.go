package router

import (
	"math/big"

	"swapRouter/internal/model"
)

// Initiate starts a route. The router must already hold Amount of the
// first hop's input token.
type Initiate struct {
	Route     model.Route
	Amount    *big.Int
	Recipient model.Address
}

func (Initiate) Kind() string { return "router.initiate" }

// SetPaused toggles the pause flag.
type SetPaused struct{}

func (SetPaused) Kind() string { return "router.set_paused" }

type AddAdmin struct {
	Admin model.Address
}

func (AddAdmin) Kind() string { return "router.add_admin" }

type RemoveAdmin struct {
	Admin model.Address
}

func (RemoveAdmin) Kind() string { return "router.remove_admin" }

// RegisterExchange adds a pool to the registry. When both amounts are
// positive the router also deposits them as initial liquidity on behalf of
// Depositor.
type RegisterExchange struct {
	Exchange  model.Address
	Pair      model.PairInfo
	Amount1   *big.Int
	Amount2   *big.Int
	Depositor model.Address
}

func (RegisterExchange) Kind() string { return "router.register_exchange" }

type DeregisterExchange struct {
	Exchange model.Address
}

func (DeregisterExchange) Kind() string { return "router.deregister_exchange" }

// SetApproval sets the router's allowance for Exchange on one token.
type SetApproval struct {
	Exchange model.Address
	Ledger   model.Address
	TokenID  uint64
	Amount   *big.Int
}

func (SetApproval) Kind() string { return "router.set_approval" }
