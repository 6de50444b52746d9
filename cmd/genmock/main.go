// Command genmock generates synthetic raw observation fixtures and, when
// asked, the tagged form the pipeline produces for them. Tagging runs the
// real grid builder, lookup index, and pentad calendar so the fixture
// matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -n 500 -seed 7 \
//	  -raw-out data/mock/observations_synthetic.json \
//	  -tagged-out data/mock/observations_synthetic_tagged.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/land"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/pipeline"
	"github.com/couchcryptid/ocean-grid-etl/internal/store/memory"
)

var sources = []string{"icoads", "argo", "tao", "drifter"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	n := flag.Int("n", 200, "number of observations")
	seed := flag.Uint64("seed", 1, "random seed")
	rawOut := flag.String("raw-out", "", "output path for the raw JSON fixture")
	taggedOut := flag.String("tagged-out", "", "output path for the tagged JSON fixture (optional)")
	sideM := flag.Float64("side-m", 250_000, "grid box side used for tagging")
	flag.Parse()

	if *rawOut == "" || *n <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out and a positive -n")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	records := generate(rng, *n)
	if err := writeJSON(*rawOut, records); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s (%d records)", *rawOut, len(records))

	if *taggedOut == "" {
		return nil
	}

	// Fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.May, 1, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	tagged, skipped, err := tag(records, *sideM)
	if err != nil {
		return err
	}
	if err := writeJSON(*taggedOut, tagged); err != nil {
		return fmt.Errorf("writing tagged fixture: %w", err)
	}
	log.Printf("wrote tagged fixture: %s", *taggedOut)

	printStats(tagged, skipped)
	return nil
}

// generate draws points over the whole globe, so some fall outside the
// default 60S..60N grid, with dates spread over 1981..2020. About one in
// five longitudes is written on the 0..360 convention.
func generate(rng *rand.Rand, n int) []domain.RawObservationRecord {
	recs := make([]domain.RawObservationRecord, 0, n)
	for range n {
		lat := round(rng.Float64()*150-75, 2)
		lon := round(rng.Float64()*360-180, 2)
		if lon < 0 && rng.IntN(5) == 0 {
			lon += 360
		}
		day := time.Date(1981+rng.IntN(40), time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.IntN(366))
		sst := round(28-0.35*math.Abs(lat)+rng.NormFloat64(), 1)

		recs = append(recs, domain.RawObservationRecord{
			Lon:    &lon,
			Lat:    &lat,
			Date:   day.Format(time.DateOnly),
			SST:    &sst,
			Source: sources[rng.IntN(len(sources))],
		})
	}
	return recs
}

func tag(records []domain.RawObservationRecord, sideM float64) ([]domain.TaggedObservation, map[string]int, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	mask, err := land.NewMask(nil)
	if err != nil {
		return nil, nil, err
	}
	s := memory.New()
	defer s.Close()

	params := grid.DefaultParams()
	params.SideM = sideM
	if _, err := grid.NewBuilder(params, mask, s, logger, metrics).Build(ctx); err != nil {
		return nil, nil, fmt.Errorf("build grid: %w", err)
	}
	idx, err := lookup.Load(ctx, s)
	if err != nil {
		return nil, nil, err
	}

	tagger := pipeline.NewTagger(idx, pentad.Build(), logger, metrics)
	tagged := make([]domain.TaggedObservation, 0, len(records))
	skipped := map[string]int{}
	for i := range records {
		value, err := json.Marshal(records[i])
		if err != nil {
			return nil, nil, fmt.Errorf("marshal record %d: %w", i, err)
		}
		out, err := tagger.Transform(ctx, domain.RawEvent{Value: value})
		if err != nil {
			if errors.Is(err, domain.ErrOutOfBounds) || errors.Is(err, domain.ErrNotFound) {
				skipped[observability.LookupOutcome(err)]++
				continue
			}
			return nil, nil, fmt.Errorf("tag record %d: %w", i, err)
		}
		tagged = append(tagged, out)
	}
	return tagged, skipped, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type pentadCount struct {
	pentad int
	count  int
}

func printStats(tagged []domain.TaggedObservation, skipped map[string]int) {
	boxes := map[domain.BoxID]int{}
	pentads := map[int]int{}
	for i := range tagged {
		boxes[tagged[i].Box]++
		pentads[tagged[i].Pentad]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Tagged: %d\n", len(tagged))
	fmt.Printf("Skipped: out_of_bounds=%d, not_found=%d\n", skipped["out_of_bounds"], skipped["not_found"])
	fmt.Printf("Distinct boxes: %d\n", len(boxes))

	pc := make([]pentadCount, 0, len(pentads))
	for p, c := range pentads {
		pc = append(pc, pentadCount{p, c})
	}
	sort.Slice(pc, func(i, j int) bool { return pc[i].count > pc[j].count })
	fmt.Printf("Busiest pentads:")
	for _, p := range pc[:min(5, len(pc))] {
		fmt.Printf(" %d=%d", p.pentad, p.count)
	}
	fmt.Println()
}
