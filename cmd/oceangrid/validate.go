package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/store/badgerstore"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		samples int
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the stored grid and the pentad calendar for consistency",
		Long: `Validate resolves every box center back to its box, checks that boxes in
each band are ordered and disjoint, samples random points across the grid
span, and walks every day of the year through the pentad calendar. It
exits non-zero when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := pentad.Build().Check(); err != nil {
				return fmt.Errorf("pentad calendar: %w", err)
			}
			return a.withIndex(cmd.Context(), func(_ *badgerstore.Store, idx *lookup.Index) error {
				r := idx.Validate(samples, seed)
				if err := printJSON(cmd, r); err != nil {
					return err
				}
				if !r.OK() {
					return fmt.Errorf("grid %s failed validation with %d problems", idx.Manifest().BuildID, r.ProblemCount)
				}
				a.logger.Info("grid valid", "build_id", idx.Manifest().BuildID, "boxes", r.Boxes, "samples", r.Samples)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 10000, "random points to resolve")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "sampling seed")
	return cmd
}
