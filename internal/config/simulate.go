package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Scenario  string
	Journal   string
	ChainID   uint64
	StartTime uint64
	MaxDepth  int
	Persist   bool
	Resume    bool
	Store     StoreConfig
	LogLevel  string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, storeDefaults(map[string]interface{}{
		"journal":  "./data/events.jsonl",
		"chain-id": uint64(1337),
		"persist":  true,
	}))
	if err != nil {
		return SimulateConfig{}, err
	}

	start, err := ParseTimestamp(v.GetString("start-time"))
	if err != nil {
		return SimulateConfig{}, fmt.Errorf("parse start-time: %w", err)
	}

	cfg := SimulateConfig{
		Scenario:  v.GetString("scenario"),
		Journal:   v.GetString("journal"),
		ChainID:   v.GetUint64("chain-id"),
		StartTime: start,
		MaxDepth:  v.GetInt("max-depth"),
		Persist:   v.GetBool("persist"),
		Resume:    v.GetBool("resume"),
		Store:     readStore(v),
		LogLevel:  v.GetString("log-level"),
	}
	if cfg.Scenario == "" {
		return SimulateConfig{}, fmt.Errorf("scenario is required")
	}
	if cfg.Resume && !cfg.Persist {
		return SimulateConfig{}, fmt.Errorf("resume requires persist")
	}
	if cfg.Persist {
		if err := cfg.Store.Validate(); err != nil {
			return SimulateConfig{}, err
		}
	}
	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
