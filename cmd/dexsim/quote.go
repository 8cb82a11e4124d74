package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapRouter/internal/config"
	"swapRouter/internal/pool"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	req := pool.QuoteRequest{Engine: cfg.Engine}
	for _, f := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"reserve-in", cfg.ReserveIn, &req.ReserveIn},
		{"reserve-out", cfg.ReserveOut, &req.ReserveOut},
		{"amount-in", cfg.AmountIn, &req.AmountIn},
		{"fee-divisor", cfg.FeeDivisor, &req.FeeDivisor},
		{"precision-in", cfg.PrecisionIn, &req.PrecisionIn},
		{"precision-out", cfg.PrecisionOut, &req.PrecisionOut},
	} {
		v, err := parseInt(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	quote, err := pool.QuoteSwap(req)
	if err != nil {
		return err
	}
	logger.Debug("quote",
		zap.String("engine", cfg.Engine),
		zap.String("amount_in", req.AmountIn.String()),
		zap.String("amount_out", quote.AmountOut.String()),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "engine:          %s\n", cfg.Engine)
	fmt.Fprintf(out, "amount in:       %s\n", req.AmountIn)
	fmt.Fprintf(out, "amount out:      %s\n", quote.AmountOut)
	fmt.Fprintf(out, "fee:             %s\n", quote.Fee)
	fmt.Fprintf(out, "new reserve in:  %s\n", quote.NewReserveIn)
	fmt.Fprintf(out, "new reserve out: %s\n", quote.NewReserveOut)
	return nil
}

// parseInt reads a non-negative decimal integer; empty means unset.
func parseInt(raw string) (*big.Int, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if raw == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return v, nil
}
