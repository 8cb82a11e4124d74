package dex

import (
	"swapRouter/internal/model"
)

// Decoder defines a journal record decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord) (*model.TypedEvent, error)
}

var _ Decoder = (*PoolEventDecoder)(nil)
