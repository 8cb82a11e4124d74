package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// EventsConfig holds configuration for the events command.
type EventsConfig struct {
	In       string
	Out      string
	Errors   string
	Only     []string
	Window   time.Duration
	Metrics  string
	LogLevel string
}

// LoadEvents merges config file, environment variables, and flags into EventsConfig.
func LoadEvents(cfgFile string, flags *pflag.FlagSet) (EventsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":      "./data/events.jsonl",
		"out":     "./data/typed_events.jsonl",
		"errors":  "./data/decode_errors.jsonl",
		"metrics": "./data/pool_metrics.jsonl",
	})
	if err != nil {
		return EventsConfig{}, err
	}

	cfg := EventsConfig{
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		Only:     getStringSlice(v, "only"),
		Window:   v.GetDuration("window"),
		Metrics:  v.GetString("metrics"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.In == "" {
		return EventsConfig{}, fmt.Errorf("in is required")
	}
	if cfg.Window < 0 {
		return EventsConfig{}, fmt.Errorf("window must not be negative")
	}
	return cfg, nil
}
