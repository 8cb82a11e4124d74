package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies any participant: routers, pools, ledgers and users.
type Address = common.Address

// ParseAddress accepts a 0x-prefixed 20 byte hex address.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Variant selects the ledger protocol a token speaks.
type Variant uint8

const (
	// VariantPush ledgers answer balance requests with a bare amount.
	VariantPush Variant = iota
	// VariantQuery ledgers echo the request alongside the balance and
	// authorise third parties through operators.
	VariantQuery
)

func (v Variant) String() string {
	switch v {
	case VariantPush:
		return "push"
	case VariantQuery:
		return "query"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "push", "":
		return VariantPush, nil
	case "query":
		return VariantQuery, nil
	default:
		return 0, fmt.Errorf("unknown ledger variant %q", s)
	}
}

func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// TokenRef points at one token on one ledger.
type TokenRef struct {
	Ledger  Address `json:"ledger"`
	TokenID uint64  `json:"token_id"`
	Variant Variant `json:"variant"`
}

// Is reports whether t is the token id on ledger.
func (t TokenRef) Is(ledger Address, tokenID uint64) bool {
	return t.Ledger == ledger && t.TokenID == tokenID
}

func (t TokenRef) String() string {
	return fmt.Sprintf("%s#%d(%s)", t.Ledger.Hex(), t.TokenID, t.Variant)
}
