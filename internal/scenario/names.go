package scenario

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"swapRouter/internal/model"
)

// NameAddress derives the deterministic address of a scenario participant.
func NameAddress(name string) model.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("dexsim:" + name))[12:])
}

// AddressBook maps participant names to addresses and back.
type AddressBook struct {
	byName map[string]model.Address
	byAddr map[model.Address]string
}

func NewAddressBook() *AddressBook {
	return &AddressBook{
		byName: make(map[string]model.Address),
		byAddr: make(map[model.Address]string),
	}
}

// Resolve returns the address for name. 0x-prefixed hex is taken verbatim.
func (b *AddressBook) Resolve(name string) (model.Address, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Address{}, fmt.Errorf("empty participant name")
	}
	if addr, ok := b.byName[name]; ok {
		return addr, nil
	}
	var addr model.Address
	if strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") {
		parsed, err := model.ParseAddress(name)
		if err != nil {
			return model.Address{}, err
		}
		addr = parsed
	} else {
		addr = NameAddress(name)
	}
	if _, taken := b.byAddr[addr]; taken {
		return addr, nil
	}
	b.byName[name] = addr
	b.byAddr[addr] = name
	return addr, nil
}

// Label returns the name addr was resolved from, or its hex form.
func (b *AddressBook) Label(addr model.Address) string {
	if name, ok := b.byAddr[addr]; ok {
		return name
	}
	return addr.Hex()
}
