package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"swapRouter/internal/model"
)

// WindowMetrics is one emitter's activity over one window.
type WindowMetrics struct {
	ChainID          uint64 `json:"chain_id"`
	Address          string `json:"address"`
	WindowStart      uint64 `json:"window_start"`
	WindowEnd        uint64 `json:"window_end"`
	SwapCount        uint64 `json:"swap_count"`
	VolumeIn         string `json:"volume_in"`
	VolumeOut        string `json:"volume_out"`
	SwapFees         string `json:"swap_fees"`
	LiquidityAdds    uint64 `json:"liquidity_adds"`
	LiquidityRemoves uint64 `json:"liquidity_removes"`
	ForwardedFee1    string `json:"forwarded_fee1"`
	ForwardedFee2    string `json:"forwarded_fee2"`
	RoutesSettled    uint64 `json:"routes_settled"`
	FirstBlock       uint64 `json:"first_block"`
	LastBlock        uint64 `json:"last_block"`
}

// Aggregator folds decoded events into fixed time windows per emitter.
// Events are expected in journal order.
type Aggregator struct {
	windowSeconds uint64
	logger        *zap.Logger
	accumulators  map[string]*Accumulator
	done          []WindowMetrics
}

func NewAggregator(window time.Duration, logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	seconds := uint64(window / time.Second)
	if seconds == 0 {
		return nil, fmt.Errorf("window must be at least one second")
	}
	return &Aggregator{
		windowSeconds: seconds,
		logger:        logger,
		accumulators:  make(map[string]*Accumulator),
	}, nil
}

// Add folds event into its emitter's current window, closing the previous
// window when event starts a new one.
func (a *Aggregator) Add(event *model.TypedEvent) error {
	if event == nil || event.Address == "" {
		return fmt.Errorf("event without emitter address")
	}
	start := windowStart(event.Timestamp, a.windowSeconds)
	key := strings.ToLower(event.Address)

	acc := a.accumulators[key]
	if acc != nil && acc.WindowStart != start {
		a.done = append(a.done, acc.Metrics())
		acc = nil
	}
	if acc == nil {
		acc = NewAccumulator(event, start, start+a.windowSeconds)
		a.accumulators[key] = acc
	}
	if err := acc.AddEvent(event); err != nil {
		a.logger.Warn("aggregate event", zap.Error(err), zap.String("address", event.Address), zap.String("event", event.EventName))
		return err
	}
	return nil
}

// Flush closes every open window and returns all windows ordered by start
// time and address.
func (a *Aggregator) Flush() []WindowMetrics {
	for _, acc := range a.accumulators {
		a.done = append(a.done, acc.Metrics())
	}
	a.accumulators = make(map[string]*Accumulator)

	out := a.done
	a.done = nil
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowStart != out[j].WindowStart {
			return out[i].WindowStart < out[j].WindowStart
		}
		return strings.ToLower(out[i].Address) < strings.ToLower(out[j].Address)
	})
	return out
}

func windowStart(ts, window uint64) uint64 {
	return ts - ts%window
}
