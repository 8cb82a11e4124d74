package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapRouter/internal/config"
	"swapRouter/internal/scenario"
	"swapRouter/internal/storage"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := scenario.Options{
		ChainID:   cfg.ChainID,
		MaxDepth:  cfg.MaxDepth,
		StartTime: cfg.StartTime,
		Resume:    cfg.Resume,
	}
	if cfg.Journal != "" {
		opts.Sink = storage.NewJsonlStorage(cfg.Journal)
	}

	var st stores
	if cfg.Persist {
		st, err = openStores(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.close()
		opts.Store = st.state
	}

	runner, err := scenario.NewRunner(sc, opts, logger)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.String("name", sc.Name),
		zap.Int("steps", len(sc.Steps)),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("journal", cfg.Journal),
		zap.Bool("persist", cfg.Persist),
		zap.Bool("resume", cfg.Resume),
		zap.String("state_backend", cfg.Store.Backend),
	)

	started := time.Now()
	report, runErr := runner.Run(ctx)

	if st.pools != nil && len(report.Pools) > 0 {
		if err := st.pools.UpsertPools(ctx, report.Pools); err != nil {
			logger.Error("persist pool snapshots", zap.Error(err))
			if runErr == nil {
				runErr = err
			}
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	reverted := 0
	for _, s := range report.Steps {
		if s.Reverted {
			reverted++
		}
	}
	logger.Info("simulate complete",
		zap.Int("steps_run", len(report.Steps)),
		zap.Int("reverted", reverted),
		zap.Int("logs", len(report.Logs)),
		zap.Duration("elapsed", time.Since(started)),
		zap.Error(runErr),
	)
	return runErr
}
