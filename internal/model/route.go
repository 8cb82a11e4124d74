package model

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"
)

// Hop is one step of a route: the exchange to swap on, the token wanted
// out of it and the least amount of that token acceptable.
type Hop struct {
	Exchange      Address  `json:"exchange"`
	Ledger        Address  `json:"ledger"`
	TokenID       uint64   `json:"token_id"`
	MinimumOutput *big.Int `json:"minimum_output"`
}

// Route is an ordered list of hops.
type Route []Hop

// ID fingerprints the route for logs and settlement events.
func (r Route) ID() common.Hash {
	h := blake3.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(r)))
	h.Write(n[:])
	for _, hop := range r {
		h.Write(hop.Exchange.Bytes())
		h.Write(hop.Ledger.Bytes())
		binary.BigEndian.PutUint64(n[:], hop.TokenID)
		h.Write(n[:])

		var min []byte
		if hop.MinimumOutput != nil {
			min = hop.MinimumOutput.Bytes()
		}
		binary.BigEndian.PutUint64(n[:], uint64(len(min)))
		h.Write(n[:])
		h.Write(min)
	}

	var id common.Hash
	h.Digest().Read(id[:])
	return id
}

// Clone returns a copy that shares no amounts with r.
func (r Route) Clone() Route {
	if r == nil {
		return nil
	}
	out := make(Route, len(r))
	for i, hop := range r {
		out[i] = hop
		if hop.MinimumOutput != nil {
			out[i].MinimumOutput = new(big.Int).Set(hop.MinimumOutput)
		}
	}
	return out
}
