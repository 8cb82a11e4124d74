package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapRouter/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "dexsim",
		Short:        "Multi-hop swap router simulator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return config.LoadDotEnv(envFile)
		},
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "optional dotenv file loaded before reading DEXSIM_* variables")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a YAML scenario against in-process ledgers, pools and the router",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario YAML path")
	simulateCmd.Flags().String("journal", "./data/events.jsonl", "event journal JSONL path (appended)")
	simulateCmd.Flags().Uint64("chain-id", 1337, "chain id stamped on journal records")
	simulateCmd.Flags().String("start-time", "", "timestamp of the first block (unix seconds or RFC3339)")
	simulateCmd.Flags().Int("max-depth", 0, "maximum message cascade depth, 0 means default")
	simulateCmd.Flags().Bool("persist", true, "persist the router checkpoint and pool snapshots")
	simulateCmd.Flags().Bool("resume", false, "restore the router from its checkpoint before the first step")
	addStoreFlags(simulateCmd)
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a single swap against explicit reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("engine", "volatile", "pool engine (volatile, stable)")
	quoteCmd.Flags().String("reserve-in", "", "reserve of the token sold")
	quoteCmd.Flags().String("reserve-out", "", "reserve of the token bought")
	quoteCmd.Flags().String("amount-in", "", "amount sold")
	quoteCmd.Flags().String("fee-divisor", "", "fee divisor, empty means engine default")
	quoteCmd.Flags().String("precision-in", "1", "stable engine precision multiplier of the token sold")
	quoteCmd.Flags().String("precision-out", "1", "stable engine precision multiplier of the token bought")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted router checkpoint",
		RunE:  runStatus,
	}

	addStoreFlags(statusCmd)
	statusCmd.Flags().Bool("json", false, "print the checkpoint as JSON")
	statusCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(statusCmd)

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Decode an event journal into typed events",
		RunE:  runEvents,
	}

	eventsCmd.Flags().String("in", "./data/events.jsonl", "input journal JSONL")
	eventsCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	eventsCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	eventsCmd.Flags().StringSlice("only", nil, "event names to keep (comma-separated)")
	eventsCmd.Flags().Duration("window", 0, "aggregate kept events into windows of this size (e.g. 1m, 5m), 0 disables")
	eventsCmd.Flags().String("metrics", "./data/pool_metrics.jsonl", "window metrics JSONL")
	eventsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(eventsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("state-backend", config.BackendFile, "router checkpoint backend (file, sqlite, postgres)")
	cmd.Flags().String("state-file", "./data/router_state.json", "checkpoint path for the file backend")
	cmd.Flags().String("sqlite-path", "./data/dexsim.db", "database path for the sqlite backend")
	cmd.Flags().String("lock-path", "", "lock file path, empty means <state path>.lock")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres backend")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
