package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/store"
	"github.com/couchcryptid/ocean-grid-etl/internal/store/badgerstore"
)

func newBoxCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "box LON LAT",
		Short: "Print the box owning a coordinate",
		Long: `Box resolves a longitude and latitude to the grid box that owns it.
Longitudes on the 0..360 convention are accepted. Use -- before a negative
longitude so it is not read as a flag.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lon, err := parseCoord(args[0], "longitude")
			if err != nil {
				return err
			}
			lat, err := parseCoord(args[1], "latitude")
			if err != nil {
				return err
			}
			if lon >= 180 && lon < 360 {
				lon = geo.NormalizeLongitude(lon)
			}
			return a.withIndex(cmd.Context(), func(_ *badgerstore.Store, idx *lookup.Index) error {
				id, err := idx.BoxFor(lon, lat)
				if err != nil {
					return err
				}
				box, _ := idx.Box(id)
				return printJSON(cmd, box)
			})
		},
	}
}

func newPentadCmd(_ *app) *cobra.Command {
	var month, day int
	cmd := &cobra.Command{
		Use:   "pentad [DATE]",
		Short: "Print the pentad of a date (YYYY-MM-DD) or of --month and --day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal := pentad.Build()
			var when time.Time
			switch {
			case len(args) == 1:
				t, err := time.Parse(time.DateOnly, args[0])
				if err != nil {
					return fmt.Errorf("date %q: %w", args[0], domain.ErrInvalidInput)
				}
				when = t
			case month >= 1 && month <= 12:
				if _, err := cal.PentadForDay(time.Month(month), day); err != nil {
					return err
				}
				when = time.Date(pentad.ReferenceYear, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			default:
				return fmt.Errorf("pass a date or --month 1..12 and --day: %w", domain.ErrInvalidInput)
			}

			b, err := cal.Resolve(when)
			if err != nil {
				return err
			}
			start, end, err := cal.PentadDates(b.Pentad)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"pentad":     b.Pentad,
				"half_month": b.HalfMonth,
				"month":      b.Month,
				"start":      start.Format("01-02"),
				"end":        end.Format("01-02"),
			})
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "month, 1..12")
	cmd.Flags().IntVar(&day, "day", 0, "day of month")
	return cmd
}

func newNeighborsCmd(a *app) *cobra.Command {
	var radiusKm float64
	cmd := &cobra.Command{
		Use:   "neighbors BOX",
		Short: "List boxes whose centers lie within a radius of a box's center",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(_ *badgerstore.Store, idx *lookup.Index) error {
				boxes, err := idx.BoxesWithinName(args[0], radiusKm)
				if err != nil {
					return err
				}
				return printJSON(cmd, boxes)
			})
		},
	}
	cmd.Flags().Float64Var(&radiusKm, "radius-km", 0, "search radius in kilometers")
	return cmd
}

func newObservationsCmd(a *app) *cobra.Command {
	var (
		radiusKm float64
		years    string
		pentads  []int
	)
	cmd := &cobra.Command{
		Use:   "observations BOX",
		Short: "Print stored observations around a box for a span of years",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yr, err := domain.ParseYearRange(years)
			if err != nil {
				return err
			}
			return a.withIndex(cmd.Context(), func(st *badgerstore.Store, idx *lookup.Index) error {
				boxes, err := idx.BoxesWithinName(args[0], radiusKm)
				if err != nil {
					return err
				}
				obs, err := st.Query(cmd.Context(), store.Query{Boxes: boxes, Years: yr, Pentads: pentads})
				if err != nil {
					return err
				}
				return printJSON(cmd, obs)
			})
		},
	}
	cmd.Flags().Float64Var(&radiusKm, "radius-km", 0, "include boxes within this radius")
	cmd.Flags().StringVar(&years, "years", "", "year or inclusive range, e.g. 1990-2000")
	cmd.Flags().IntSliceVar(&pentads, "pentads", nil, "restrict to these pentads")
	_ = cmd.MarkFlagRequired("years")
	return cmd
}

func parseCoord(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, domain.ErrInvalidInput)
	}
	return v, nil
}
