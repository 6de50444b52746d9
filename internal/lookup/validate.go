package lookup

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

// maxReportedProblems caps the problem list of a Report.
const maxReportedProblems = 20

// Report summarizes a grid consistency check.
type Report struct {
	Boxes        int      `json:"boxes"`
	Samples      int      `json:"samples"`
	SampledOcean int      `json:"sampled_ocean"`
	SampledLand  int      `json:"sampled_land"`
	ProblemCount int      `json:"problem_count"`
	Problems     []string `json:"problems,omitempty"`
}

// OK reports whether the check found nothing wrong.
func (r Report) OK() bool { return r.ProblemCount == 0 }

func (r *Report) problemf(format string, args ...any) {
	r.ProblemCount++
	if len(r.Problems) < maxReportedProblems {
		r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
	}
}

// Validate checks that bands are contiguous, that every box center resolves
// back to its own box, that each band's boxes are ordered and disjoint, and
// that random points inside the span resolve either to a box holding them
// or to a land gap. It also resolves a point exactly on every band seam.
func (x *Index) Validate(samples int, seed uint64) Report {
	r := Report{Samples: samples}

	for i, b := range x.bands {
		if b.Index != i {
			r.problemf("band %d stored at position %d", b.Index, i)
		}
		if !(b.Top() > b.Boundary) {
			r.problemf("band %d has top %v <= boundary %v", b.Index, b.Top(), b.Boundary)
		}
		if i > 0 && x.bands[i-1].Top() != b.Boundary {
			r.problemf("band %d starts at %v but band %d ends at %v", b.Index, b.Boundary, i-1, x.bands[i-1].Top())
		}
	}

	for bi, row := range x.boxes {
		for j, b := range row {
			r.Boxes++
			if b.ID != (domain.BoxID{Lat: bi, Lon: j}) {
				r.problemf("box %s stored at %d_%d", b.ID, bi, j)
			}
			if b.West() >= b.East() {
				r.problemf("box %s has west %v >= east %v", b.ID, b.West(), b.East())
			}
			if j > 0 && row[j-1].East() > b.West() {
				r.problemf("box %s overlaps its western neighbor", b.ID)
			}
			got, err := x.BoxFor(b.Center.Lon, b.Center.Lat)
			if err != nil {
				r.problemf("center of %s: %v", b.ID, err)
			} else if got != b.ID {
				r.problemf("center of %s resolves to %s", b.ID, got)
			}
		}
	}

	p := x.manifest.Params
	for i := 1; i < len(x.bands); i++ {
		lat := x.bands[i].Boundary
		for _, b := range x.boxes[i] {
			x.checkPoint(&r, b.Center.Lon, lat)
		}
	}

	if len(x.bands) == 0 || samples <= 0 {
		return r
	}
	south, north := x.bands[0].Boundary, x.bands[len(x.bands)-1].Top()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for range samples {
		lon := p.LonStart + rng.Float64()*p.LonSpan
		lat := south + rng.Float64()*(north-south)
		switch x.checkPoint(&r, lon, lat) {
		case pointOcean:
			r.SampledOcean++
		case pointLand:
			r.SampledLand++
		}
	}
	return r
}

type pointResult int

const (
	pointBad pointResult = iota
	pointOcean
	pointLand
)

// checkPoint resolves (lon, lat) and verifies that the owning box holds it
// and that its band neighbors do not.
func (x *Index) checkPoint(r *Report, lon, lat float64) pointResult {
	id, err := x.BoxFor(lon, lat)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return pointLand
	case err != nil:
		r.problemf("point (%v, %v): %v", lon, lat, err)
		return pointBad
	}
	b, _ := x.Box(id)
	if !b.Contains(lon, lat) {
		r.problemf("point (%v, %v) resolves to %s, which does not hold it", lon, lat, id)
		return pointBad
	}
	for _, nb := range x.BandBoxes(id.Lat - 1) {
		if nb.Contains(lon, lat) {
			r.problemf("point (%v, %v) held by both %s and %s", lon, lat, id, nb.ID)
			return pointBad
		}
	}
	return pointOcean
}
