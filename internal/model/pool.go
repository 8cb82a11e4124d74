package model

import (
	"math/big"
	"time"
)

// Pool engines.
const (
	EngineVolatile = "volatile"
	EngineStable   = "stable"
)

// PoolSnapshot is the persisted view of one pool's reserves.
type PoolSnapshot struct {
	Address     Address   `json:"address"`
	Engine      string    `json:"engine"`
	Token1      TokenRef  `json:"token1"`
	Token2      TokenRef  `json:"token2"`
	LPToken     TokenRef  `json:"lp_token"`
	Reserve1    *big.Int  `json:"reserve1"`
	Reserve2    *big.Int  `json:"reserve2"`
	TotalSupply *big.Int  `json:"total_supply"`
	FeeDivisor  *big.Int  `json:"fee_divisor"`
	FeeAccum1   *big.Int  `json:"fee_accum1"`
	FeeAccum2   *big.Int  `json:"fee_accum2"`
	Forwarding  bool      `json:"forwarding"`
	Paused      bool      `json:"paused"`
	UpdatedAt   time.Time `json:"updated_at"`
}
