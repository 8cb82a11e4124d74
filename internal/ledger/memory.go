package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	dexerr "swapRouter/internal/errors"
	"swapRouter/internal/model"
)

type balanceKey struct {
	tokenID uint64
	owner   model.Address
}

type allowanceKey struct {
	owner   model.Address
	spender model.Address
}

type operatorKey struct {
	owner    model.Address
	operator model.Address
	tokenID  uint64
}

// Memory is an in-process token ledger speaking either protocol variant.
// Push ledgers carry a single token with id 0.
type Memory struct {
	address model.Address
	variant model.Variant
	logger  *zap.Logger

	mu         sync.RWMutex
	balances   map[balanceKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	operators  map[operatorKey]bool
	minters    map[model.Address]bool
}

func NewMemory(address model.Address, variant model.Variant, logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		address:    address,
		variant:    variant,
		logger:     logger.With(zap.String("ledger", address.Hex()), zap.Stringer("variant", variant)),
		balances:   make(map[balanceKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		operators:  make(map[operatorKey]bool),
		minters:    make(map[model.Address]bool),
	}
}

func (m *Memory) Address() model.Address { return m.address }
func (m *Memory) Variant() model.Variant { return m.variant }

// Token returns a reference to tokenID on this ledger.
func (m *Memory) Token(tokenID uint64) model.TokenRef {
	return model.TokenRef{Ledger: m.address, TokenID: tokenID, Variant: m.variant}
}

// AllowMinter lets minter send Mint and Burn.
func (m *Memory) AllowMinter(minter model.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minters[minter] = true
}

// Credit adds genesis balance outside the message flow.
func (m *Memory) Credit(owner model.Address, tokenID uint64, amount *big.Int) error {
	v, err := toUint(amount)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := balanceKey{tokenID: tokenID, owner: owner}
	sum, overflow := new(uint256.Int).AddOverflow(m.balanceLocked(key), v)
	if overflow {
		return dexerr.New(dexerr.KindArithmeticGuard, "balance overflow")
	}
	m.balances[key] = sum
	return nil
}

func (m *Memory) Balance(owner model.Address, tokenID uint64) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceLocked(balanceKey{tokenID: tokenID, owner: owner}).ToBig()
}

func (m *Memory) Allowance(owner, spender model.Address) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.allowances[allowanceKey{owner: owner, spender: spender}]; ok {
		return v.ToBig()
	}
	return new(big.Int)
}

func (m *Memory) IsOperator(owner, operator model.Address, tokenID uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.operators[operatorKey{owner: owner, operator: operator, tokenID: tokenID}]
}

// Holders lists every owner with a non-zero balance of tokenID.
func (m *Memory) Holders(tokenID uint64) map[model.Address]*big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.Address]*big.Int)
	for k, v := range m.balances {
		if k.tokenID == tokenID && !v.IsZero() {
			out[k.owner] = v.ToBig()
		}
	}
	return out
}

type memorySnapshot struct {
	balances   map[balanceKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	operators  map[operatorKey]bool
}

// Snapshot captures balances, allowances and operators. Stored values are
// never mutated in place, so copying the maps is enough.
func (m *Memory) Snapshot() interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := memorySnapshot{
		balances:   make(map[balanceKey]*uint256.Int, len(m.balances)),
		allowances: make(map[allowanceKey]*uint256.Int, len(m.allowances)),
		operators:  make(map[operatorKey]bool, len(m.operators)),
	}
	for k, v := range m.balances {
		snap.balances[k] = v
	}
	for k, v := range m.allowances {
		snap.allowances[k] = v
	}
	for k, v := range m.operators {
		snap.operators[k] = v
	}
	return snap
}

func (m *Memory) Rollback(snapshot interface{}) {
	snap, ok := snapshot.(memorySnapshot)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances = snap.balances
	m.allowances = snap.allowances
	m.operators = snap.operators
}

// Handle executes one ledger message sent by from.
func (m *Memory) Handle(ctx context.Context, from model.Address, body model.Body) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch b := body.(type) {
	case Transfer:
		return nil, m.transfer(from, b)
	case Approve:
		return nil, m.approve(from, b)
	case GetBalance:
		if err := m.requireVariant(model.VariantPush, b); err != nil {
			return nil, err
		}
		amount := m.balanceLocked(balanceKey{owner: b.Owner}).ToBig()
		return []model.Message{{To: b.Callback, Body: BalanceCallback{Amount: amount}}}, nil
	case TransferBatch:
		return nil, m.transferBatch(from, b)
	case UpdateOperators:
		return nil, m.updateOperators(from, b)
	case BalanceOf:
		if err := m.requireVariant(model.VariantQuery, b); err != nil {
			return nil, err
		}
		responses := make([]BalanceResponse, 0, len(b.Requests))
		for _, req := range b.Requests {
			bal := m.balanceLocked(balanceKey{tokenID: req.TokenID, owner: req.Owner}).ToBig()
			responses = append(responses, BalanceResponse{Request: req, Balance: bal})
		}
		return []model.Message{{To: b.Callback, Body: BalanceOfCallback{Responses: responses}}}, nil
	case Mint:
		return nil, m.mint(from, b)
	case Burn:
		return nil, m.burn(from, b)
	default:
		return nil, dexerr.Newf(dexerr.KindInvalidInput, "ledger cannot handle %s", body.Kind())
	}
}

func (m *Memory) transfer(sender model.Address, b Transfer) error {
	if err := m.requireVariant(model.VariantPush, b); err != nil {
		return err
	}
	amount, err := toUint(b.Amount)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return dexerr.New(dexerr.KindInvalidInput, "zero transfer")
	}
	if b.From == b.To {
		return dexerr.New(dexerr.KindInvalidInput, "self transfer")
	}

	var allowance *uint256.Int
	akey := allowanceKey{owner: b.From, spender: sender}
	if sender != b.From {
		current, ok := m.allowances[akey]
		if !ok || current.Lt(amount) {
			return dexerr.New(dexerr.KindUnauthorized, "not allowed")
		}
		allowance = new(uint256.Int).Sub(current, amount)
	}

	fromKey := balanceKey{owner: b.From}
	toKey := balanceKey{owner: b.To}
	fromBal := m.balanceLocked(fromKey)
	if fromBal.Lt(amount) {
		return dexerr.New(dexerr.KindInvalidInput, "insufficient balance")
	}
	toBal, overflow := new(uint256.Int).AddOverflow(m.balanceLocked(toKey), amount)
	if overflow {
		return dexerr.New(dexerr.KindArithmeticGuard, "balance overflow")
	}

	m.balances[fromKey] = new(uint256.Int).Sub(fromBal, amount)
	m.balances[toKey] = toBal
	if allowance != nil {
		m.allowances[akey] = allowance
	}
	m.logger.Debug("transfer", zap.Stringer("from", b.From), zap.Stringer("to", b.To), zap.String("amount", amount.Dec()))
	return nil
}

func (m *Memory) approve(sender model.Address, b Approve) error {
	if err := m.requireVariant(model.VariantPush, b); err != nil {
		return err
	}
	amount, err := toUint(b.Amount)
	if err != nil {
		return err
	}
	key := allowanceKey{owner: sender, spender: b.Spender}
	current, ok := m.allowances[key]
	if ok && !current.IsZero() && !amount.IsZero() {
		return dexerr.New(dexerr.KindInvalidState, "unsafe allowance change")
	}
	m.allowances[key] = amount
	return nil
}

func (m *Memory) transferBatch(sender model.Address, b TransferBatch) error {
	if err := m.requireVariant(model.VariantQuery, b); err != nil {
		return err
	}

	pending := make(map[balanceKey]*uint256.Int)
	current := func(k balanceKey) *uint256.Int {
		if v, ok := pending[k]; ok {
			return v
		}
		return m.balanceLocked(k)
	}

	for _, tx := range b.Txs {
		if sender != b.From && !m.operators[operatorKey{owner: b.From, operator: sender, tokenID: tx.TokenID}] {
			return dexerr.New(dexerr.KindUnauthorized, "not operator")
		}
		amount, err := toUint(tx.Amount)
		if err != nil {
			return err
		}
		fromKey := balanceKey{tokenID: tx.TokenID, owner: b.From}
		toKey := balanceKey{tokenID: tx.TokenID, owner: tx.To}

		fromBal := current(fromKey)
		if fromBal.Lt(amount) {
			return dexerr.New(dexerr.KindInvalidInput, "insufficient balance")
		}
		pending[fromKey] = new(uint256.Int).Sub(fromBal, amount)

		toBal, overflow := new(uint256.Int).AddOverflow(current(toKey), amount)
		if overflow {
			return dexerr.New(dexerr.KindArithmeticGuard, "balance overflow")
		}
		pending[toKey] = toBal
	}

	for k, v := range pending {
		m.balances[k] = v
	}
	return nil
}

func (m *Memory) updateOperators(sender model.Address, b UpdateOperators) error {
	if err := m.requireVariant(model.VariantQuery, b); err != nil {
		return err
	}
	for _, u := range b.Updates {
		if u.Owner != sender {
			return dexerr.New(dexerr.KindUnauthorized, "not owner")
		}
	}
	for _, u := range b.Updates {
		key := operatorKey{owner: u.Owner, operator: u.Operator, tokenID: u.TokenID}
		if u.Add {
			m.operators[key] = true
		} else {
			delete(m.operators, key)
		}
	}
	return nil
}

func (m *Memory) mint(sender model.Address, b Mint) error {
	if !m.minters[sender] {
		return dexerr.New(dexerr.KindUnauthorized, "not minter")
	}
	amount, err := toUint(b.Amount)
	if err != nil {
		return err
	}
	key := balanceKey{tokenID: b.TokenID, owner: b.To}
	sum, overflow := new(uint256.Int).AddOverflow(m.balanceLocked(key), amount)
	if overflow {
		return dexerr.New(dexerr.KindArithmeticGuard, "balance overflow")
	}
	m.balances[key] = sum
	return nil
}

func (m *Memory) burn(sender model.Address, b Burn) error {
	if !m.minters[sender] {
		return dexerr.New(dexerr.KindUnauthorized, "not minter")
	}
	amount, err := toUint(b.Amount)
	if err != nil {
		return err
	}
	key := balanceKey{tokenID: b.TokenID, owner: b.From}
	bal := m.balanceLocked(key)
	if bal.Lt(amount) {
		return dexerr.New(dexerr.KindInvalidInput, "insufficient balance")
	}
	m.balances[key] = new(uint256.Int).Sub(bal, amount)
	return nil
}

func (m *Memory) requireVariant(want model.Variant, body model.Body) error {
	if m.variant != want {
		return dexerr.Newf(dexerr.KindInvalidInput, "%s ledger cannot handle %s", m.variant, body.Kind())
	}
	return nil
}

func (m *Memory) balanceLocked(key balanceKey) *uint256.Int {
	if v, ok := m.balances[key]; ok {
		return v
	}
	return new(uint256.Int)
}

func toUint(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, dexerr.New(dexerr.KindArithmeticGuard, "negative amount")
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, dexerr.New(dexerr.KindArithmeticGuard, fmt.Sprintf("amount %s exceeds 256 bits", amount))
	}
	return v, nil
}
