package aggregate

import (
	"fmt"
	"math/big"

	"swapRouter/internal/model"
)

// Accumulator holds aggregate values for one emitter's window.
type Accumulator struct {
	ChainID          uint64
	Address          string
	WindowStart      uint64
	WindowEnd        uint64
	SwapCount        uint64
	VolumeIn         *big.Int
	VolumeOut        *big.Int
	SwapFees         *big.Int
	LiquidityAdds    uint64
	LiquidityRemoves uint64
	ForwardedFee1    *big.Int
	ForwardedFee2    *big.Int
	RoutesSettled    uint64
	FirstBlock       uint64
	LastBlock        uint64
	LastTS           uint64
}

func NewAccumulator(event *model.TypedEvent, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:       event.ChainID,
		Address:       event.Address,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		VolumeIn:      big.NewInt(0),
		VolumeOut:     big.NewInt(0),
		SwapFees:      big.NewInt(0),
		ForwardedFee1: big.NewInt(0),
		ForwardedFee2: big.NewInt(0),
		FirstBlock:    event.BlockNumber,
		LastBlock:     event.BlockNumber,
		LastTS:        event.Timestamp,
	}
}

func (a *Accumulator) AddEvent(event *model.TypedEvent) error {
	if event.Timestamp >= a.LastTS {
		a.LastTS = event.Timestamp
		a.LastBlock = event.BlockNumber
	}
	if a.FirstBlock == 0 || event.BlockNumber < a.FirstBlock {
		a.FirstBlock = event.BlockNumber
	}

	switch data := event.Decoded.(type) {
	case model.SwapEventData:
		return a.applySwap(data)
	case model.LiquidityEventData:
		if event.EventName == model.EventRemoveLiquidity {
			a.LiquidityRemoves++
		} else {
			a.LiquidityAdds++
		}
		return nil
	case model.ForwardFeeEventData:
		fee1, err := parseBigInt(data.Fee1)
		if err != nil {
			return err
		}
		fee2, err := parseBigInt(data.Fee2)
		if err != nil {
			return err
		}
		a.ForwardedFee1.Add(a.ForwardedFee1, fee1)
		a.ForwardedFee2.Add(a.ForwardedFee2, fee2)
		return nil
	case model.RouteSettledEventData:
		a.RoutesSettled++
		return nil
	default:
		return fmt.Errorf("unsupported decoded payload %T", event.Decoded)
	}
}

func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(swap.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(swap.Fee)
	if err != nil {
		return err
	}

	a.VolumeIn.Add(a.VolumeIn, amountIn)
	a.VolumeOut.Add(a.VolumeOut, amountOut)
	a.SwapFees.Add(a.SwapFees, fee)
	a.SwapCount++
	return nil
}

// Metrics renders the window for output.
func (a *Accumulator) Metrics() WindowMetrics {
	return WindowMetrics{
		ChainID:          a.ChainID,
		Address:          a.Address,
		WindowStart:      a.WindowStart,
		WindowEnd:        a.WindowEnd,
		SwapCount:        a.SwapCount,
		VolumeIn:         a.VolumeIn.String(),
		VolumeOut:        a.VolumeOut.String(),
		SwapFees:         a.SwapFees.String(),
		LiquidityAdds:    a.LiquidityAdds,
		LiquidityRemoves: a.LiquidityRemoves,
		ForwardedFee1:    a.ForwardedFee1.String(),
		ForwardedFee2:    a.ForwardedFee2.String(),
		RoutesSettled:    a.RoutesSettled,
		FirstBlock:       a.FirstBlock,
		LastBlock:        a.LastBlock,
	}
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
