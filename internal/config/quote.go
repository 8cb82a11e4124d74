package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	Engine       string
	ReserveIn    string
	ReserveOut   string
	AmountIn     string
	FeeDivisor   string
	PrecisionIn  string
	PrecisionOut string
	LogLevel     string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"engine":        "volatile",
		"precision-in":  "1",
		"precision-out": "1",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		Engine:       strings.ToLower(strings.TrimSpace(v.GetString("engine"))),
		ReserveIn:    v.GetString("reserve-in"),
		ReserveOut:   v.GetString("reserve-out"),
		AmountIn:     v.GetString("amount-in"),
		FeeDivisor:   v.GetString("fee-divisor"),
		PrecisionIn:  v.GetString("precision-in"),
		PrecisionOut: v.GetString("precision-out"),
		LogLevel:     v.GetString("log-level"),
	}
	switch cfg.Engine {
	case "volatile", "stable":
	default:
		return QuoteConfig{}, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
	if cfg.ReserveIn == "" || cfg.ReserveOut == "" || cfg.AmountIn == "" {
		return QuoteConfig{}, fmt.Errorf("reserve-in, reserve-out and amount-in are required")
	}
	return cfg, nil
}
