package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapRouter/internal/config"
	"swapRouter/internal/model"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStatus(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.close()

	state, ok, err := st.state.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("no router checkpoint", zap.String("state_backend", cfg.Store.Backend))
		color.Yellow("No router checkpoint found (%s backend).", cfg.Store.Backend)
		return nil
	}

	var pools []model.PoolSnapshot
	if lister, ok := st.pools.(poolLister); ok {
		pools, err = lister.Pools(ctx)
		if err != nil {
			return err
		}
	}

	if cfg.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Router model.RouterState    `json:"router"`
			Pools  []model.PoolSnapshot `json:"pools,omitempty"`
		}{state, pools})
	}

	displayStatus(cmd.OutOrStdout(), state, pools)
	return nil
}

func displayStatus(out io.Writer, st model.RouterState, pools []model.PoolSnapshot) {
	fmt.Fprintln(out, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(out, color.GreenString("                        ROUTER STATUS"))
	fmt.Fprintln(out, strings.Repeat("=", 70))

	fmt.Fprintf(out, "\n  State:           %s\n", coloredState(st))
	if st.Locked {
		if hop, ok := st.CurrentHop(); ok {
			fmt.Fprintf(out, "  Route:           %s\n", color.HiBlackString(st.Route.ID().Hex()))
			fmt.Fprintf(out, "  Hop:             %d of %d via %s\n", st.CurrentIndex+1, len(st.Route), color.CyanString(hop.Exchange.Hex()))
		}
		if st.PendingRecipient != nil {
			fmt.Fprintf(out, "  Recipient:       %s\n", color.CyanString(st.PendingRecipient.Hex()))
		}
	}

	admins := make([]string, 0, len(st.Admins))
	for a := range st.Admins {
		admins = append(admins, a.Hex())
	}
	sort.Strings(admins)
	for _, a := range admins {
		fmt.Fprintf(out, "  Admin:           %s\n", a)
	}

	exchanges := make([]model.Address, 0, len(st.Exchanges))
	for addr := range st.Exchanges {
		exchanges = append(exchanges, addr)
	}
	sort.Slice(exchanges, func(i, j int) bool { return exchanges[i].Cmp(exchanges[j]) < 0 })
	for _, addr := range exchanges {
		pair := st.Exchanges[addr]
		fmt.Fprintf(out, "  Exchange:        %s\n", color.CyanString(addr.Hex()))
		fmt.Fprintf(out, "                   %s / %s\n", pair.Token1, pair.Token2)
	}

	for _, p := range pools {
		status := color.GreenString("active")
		if p.Paused {
			status = color.YellowString("paused")
		}
		fmt.Fprintf(out, "  Pool:            %s %s (%s)\n", color.CyanString(p.Address.Hex()), p.Engine, status)
		fmt.Fprintf(out, "                   reserves %s / %s, supply %s\n", p.Reserve1, p.Reserve2, p.TotalSupply)
	}

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 70)+"\n")
}

func coloredState(st model.RouterState) string {
	switch {
	case st.Locked && st.Paused:
		return color.RedString("LOCKED, PAUSED")
	case st.Locked:
		return color.YellowString("LOCKED")
	case st.Paused:
		return color.MagentaString("PAUSED")
	default:
		return color.GreenString("IDLE")
	}
}
