package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapRouter/internal/aggregate"
	"swapRouter/internal/config"
	"swapRouter/internal/dex"
	"swapRouter/internal/model"
	"swapRouter/internal/storage"
)

func runEvents(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadEvents(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	decoder, err := dex.NewPoolEventDecoder()
	if err != nil {
		return err
	}
	only := make(map[string]bool, len(cfg.Only))
	for _, name := range cfg.Only {
		only[name] = true
	}

	var agg *aggregate.Aggregator
	if cfg.Window > 0 {
		agg, err = aggregate.NewAggregator(cfg.Window, logger)
		if err != nil {
			return err
		}
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewJsonlWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJsonlWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("events start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Strings("only", cfg.Only),
		zap.Duration("window", cfg.Window),
	)

	var total, decoded, skipped, failed int
	err = storage.ReadJsonl(inputFile, func(record model.LogRecord) error {
		total++
		if len(record.Topics) == 0 {
			failed++
			writeDecodeError(errWriter, model.NewDecodeError(record, "decode", fmt.Errorf("missing topic0")))
			return nil
		}
		if !decoder.CanDecode(record.Topics[0]) {
			skipped++
			return nil
		}

		event, err := decoder.Decode(record)
		if err != nil {
			failed++
			writeDecodeError(errWriter, model.NewDecodeError(record, "decode", err))
			return nil
		}
		if len(only) > 0 && !only[event.EventName] {
			skipped++
			return nil
		}
		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++
		if agg != nil {
			if err := agg.Add(event); err != nil {
				failed++
				writeDecodeError(errWriter, model.NewDecodeError(record, "aggregate", err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	windows := 0
	if agg != nil {
		metricsWriter, err := storage.NewJsonlWriter(cfg.Metrics, false)
		if err != nil {
			return err
		}
		for _, m := range agg.Flush() {
			if err := metricsWriter.Write(m); err != nil {
				metricsWriter.Close()
				return err
			}
			windows++
		}
		if err := metricsWriter.Close(); err != nil {
			return fmt.Errorf("close metrics: %w", err)
		}
	}

	logger.Info("events complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("windows", windows),
	)

	return nil
}

func writeDecodeError(writer *storage.JsonlWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
