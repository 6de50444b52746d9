package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ocean-grid-etl/internal/config"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
	"github.com/couchcryptid/ocean-grid-etl/internal/store/badgerstore"
)

// app carries state shared by every subcommand. Settings come from the
// environment (see config.Load) and may be overridden by flags.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var storePath string

	root := &cobra.Command{
		Use:           "oceangrid",
		Short:         "Build and query the equal-side ocean grid",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("store") {
				cfg.StorePath = storePath
			}
			a.cfg = cfg
			a.logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel, "text")
			// The CLI serves no /metrics, so nothing is registered.
			a.metrics = observability.NewMetricsForTesting()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&storePath, "store", "", "Badger store directory (default $STORE_PATH)")

	root.AddCommand(
		newBuildCmd(a),
		newBoxCmd(a),
		newPentadCmd(a),
		newNeighborsCmd(a),
		newObservationsCmd(a),
		newValidateCmd(a),
	)
	return root
}

// openStore opens the configured store. An in-memory store is useless to
// every command but build, so it is rejected unless allowed.
func (a *app) openStore(allowMemory bool) (*badgerstore.Store, error) {
	if a.cfg.StorePath == "" && !allowMemory {
		return nil, fmt.Errorf("no store configured: pass --store or set STORE_PATH")
	}
	return badgerstore.Open(a.cfg.StorePath, a.logger)
}

// withIndex opens the store, loads the grid, and runs fn.
func (a *app) withIndex(ctx context.Context, fn func(*badgerstore.Store, *lookup.Index) error) error {
	st, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	idx, err := lookup.Load(ctx, st)
	if err != nil {
		return err
	}
	return fn(st, idx)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
