package ledger

import (
	"math/big"

	"swapRouter/internal/model"
)

// UnlimitedAllowance is granted to registered exchanges on push ledgers.
var UnlimitedAllowance = new(big.Int).Exp(big.NewInt(10), big.NewInt(32), nil)

// Adapter builds the messages needed to drive one token regardless of the
// protocol its ledger speaks. Every message is addressed to the ledger and
// is sent by whoever emits it.
type Adapter interface {
	Variant() model.Variant
	Token() model.TokenRef
	Transfer(from, to model.Address, amount *big.Int) model.Message
	// Grant authorises spender to move owner's tokens.
	Grant(owner, spender model.Address) model.Message
	Revoke(owner, spender model.Address) model.Message
	// Allow sets an explicit allowance; on query ledgers any positive amount
	// adds an operator and zero removes it.
	Allow(owner, spender model.Address, amount *big.Int) model.Message
	RequestBalance(owner, callback model.Address) model.Message
}

// For returns the adapter matching the token's variant.
func For(token model.TokenRef) Adapter {
	if token.Variant == model.VariantQuery {
		return QueryLedger{token: token}
	}
	return PushLedger{token: token}
}

// PushLedger speaks transfer/approve/getBalance.
type PushLedger struct {
	token model.TokenRef
}

func (l PushLedger) Variant() model.Variant { return model.VariantPush }
func (l PushLedger) Token() model.TokenRef  { return l.token }

func (l PushLedger) Transfer(from, to model.Address, amount *big.Int) model.Message {
	return l.message(Transfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
}

func (l PushLedger) Grant(owner, spender model.Address) model.Message {
	return l.Allow(owner, spender, UnlimitedAllowance)
}

func (l PushLedger) Revoke(owner, spender model.Address) model.Message {
	return l.Allow(owner, spender, new(big.Int))
}

// Allow ignores owner: push ledgers approve on behalf of the sender.
func (l PushLedger) Allow(_, spender model.Address, amount *big.Int) model.Message {
	return l.message(Approve{Spender: spender, Amount: new(big.Int).Set(amount)})
}

func (l PushLedger) RequestBalance(owner, callback model.Address) model.Message {
	return l.message(GetBalance{Owner: owner, Callback: callback})
}

func (l PushLedger) message(body model.Body) model.Message {
	return model.Message{To: l.token.Ledger, Body: body}
}

// QueryLedger speaks transfer batches, operators and balance_of.
type QueryLedger struct {
	token model.TokenRef
}

func (l QueryLedger) Variant() model.Variant { return model.VariantQuery }
func (l QueryLedger) Token() model.TokenRef  { return l.token }

func (l QueryLedger) Transfer(from, to model.Address, amount *big.Int) model.Message {
	return l.message(TransferBatch{
		From: from,
		Txs:  []TransferTx{{To: to, TokenID: l.token.TokenID, Amount: new(big.Int).Set(amount)}},
	})
}

func (l QueryLedger) Grant(owner, spender model.Address) model.Message {
	return l.operator(true, owner, spender)
}

func (l QueryLedger) Revoke(owner, spender model.Address) model.Message {
	return l.operator(false, owner, spender)
}

func (l QueryLedger) Allow(owner, spender model.Address, amount *big.Int) model.Message {
	return l.operator(amount != nil && amount.Sign() > 0, owner, spender)
}

func (l QueryLedger) RequestBalance(owner, callback model.Address) model.Message {
	return l.message(BalanceOf{
		Requests: []BalanceRequest{{Owner: owner, TokenID: l.token.TokenID}},
		Callback: callback,
	})
}

func (l QueryLedger) operator(add bool, owner, spender model.Address) model.Message {
	return l.message(UpdateOperators{Updates: []OperatorUpdate{{
		Add:      add,
		Owner:    owner,
		Operator: spender,
		TokenID:  l.token.TokenID,
	}}})
}

func (l QueryLedger) message(body model.Body) model.Message {
	return model.Message{To: l.token.Ledger, Body: body}
}
