package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/ocean-grid-etl/internal/bootstrap"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		landPath                             string
		lonStart, latStart, lonSpan, latSpan float64
		sideM                                float64
		concurrency                          int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the grid into the store, replacing any previous grid",
		Long: `Build generates latitude bands from the grid's southern edge, splits each
band into boxes of equal side length, drops boxes with two or more corners
on land, and commits band by band. The manifest is written last, so an
interrupted build leaves the store without a usable grid.

Unset flags fall back to the GRID_* and LAND_SHAPEFILE environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.cfg.Grid
			flags := cmd.Flags()
			if flags.Changed("lon-start") {
				p.LonStart = lonStart
			}
			if flags.Changed("lat-start") {
				p.LatStart = latStart
			}
			if flags.Changed("lon-span") {
				p.LonSpan = lonSpan
			}
			if flags.Changed("lat-span") {
				p.LatSpan = latSpan
			}
			if flags.Changed("side-m") {
				p.SideM = sideM
			}
			if flags.Changed("concurrency") {
				p.Concurrency = concurrency
			}
			if !flags.Changed("land") {
				landPath = a.cfg.LandShapefile
			}

			st, err := a.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			m, err := bootstrap.BuildGrid(cmd.Context(), p, landPath, st, a.logger, a.metrics)
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}

	f := cmd.Flags()
	f.StringVar(&landPath, "land", "", "land polygon shapefile; empty builds an all-ocean grid")
	f.Float64Var(&lonStart, "lon-start", 0, "western edge in degrees")
	f.Float64Var(&latStart, "lat-start", 0, "southern edge in degrees")
	f.Float64Var(&lonSpan, "lon-span", 0, "longitude extent in degrees")
	f.Float64Var(&latSpan, "lat-span", 0, "latitude extent in degrees")
	f.Float64Var(&sideM, "side-m", 0, "box side length in meters")
	f.IntVar(&concurrency, "concurrency", 0, "bands computed in parallel")
	return cmd
}
