package ledger

import (
	"math/big"

	"swapRouter/internal/model"
)

// Transfer moves Amount of a push ledger's token. The sender must be From
// or hold an allowance from it.
type Transfer struct {
	From   model.Address
	To     model.Address
	Amount *big.Int
}

func (Transfer) Kind() string { return "ledger.transfer" }

// Approve sets the sender's allowance for Spender.
type Approve struct {
	Spender model.Address
	Amount  *big.Int
}

func (Approve) Kind() string { return "ledger.approve" }

// GetBalance asks a push ledger to send Owner's balance to Callback.
type GetBalance struct {
	Owner    model.Address
	Callback model.Address
}

func (GetBalance) Kind() string { return "ledger.get_balance" }

// BalanceCallback answers GetBalance.
type BalanceCallback struct {
	Amount *big.Int
}

func (BalanceCallback) Kind() string { return "ledger.balance_callback" }

// TransferTx is one leg of a TransferBatch.
type TransferTx struct {
	To      model.Address
	TokenID uint64
	Amount  *big.Int
}

// TransferBatch moves tokens of a query ledger out of From. The sender must
// be From or one of its operators for every token id involved.
type TransferBatch struct {
	From model.Address
	Txs  []TransferTx
}

func (TransferBatch) Kind() string { return "ledger.transfer_batch" }

// OperatorUpdate adds or removes Operator for Owner's TokenID.
type OperatorUpdate struct {
	Add      bool
	Owner    model.Address
	Operator model.Address
	TokenID  uint64
}

// UpdateOperators applies operator changes; each Owner must be the sender.
type UpdateOperators struct {
	Updates []OperatorUpdate
}

func (UpdateOperators) Kind() string { return "ledger.update_operators" }

// BalanceRequest names an owner and token on a query ledger.
type BalanceRequest struct {
	Owner   model.Address
	TokenID uint64
}

// BalanceOf asks a query ledger to report balances to Callback.
type BalanceOf struct {
	Requests []BalanceRequest
	Callback model.Address
}

func (BalanceOf) Kind() string { return "ledger.balance_of" }

// BalanceResponse echoes the request with the balance found.
type BalanceResponse struct {
	Request BalanceRequest
	Balance *big.Int
}

// BalanceOfCallback answers BalanceOf.
type BalanceOfCallback struct {
	Responses []BalanceResponse
}

func (BalanceOfCallback) Kind() string { return "ledger.balance_of_callback" }

// Mint creates tokens. Only a configured minter may send it.
type Mint struct {
	To      model.Address
	TokenID uint64
	Amount  *big.Int
}

func (Mint) Kind() string { return "ledger.mint" }

// Burn destroys tokens held by From. Only a configured minter may send it.
type Burn struct {
	From    model.Address
	TokenID uint64
	Amount  *big.Int
}

func (Burn) Kind() string { return "ledger.burn" }
