package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/geo"
	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
	"github.com/couchcryptid/ocean-grid-etl/internal/pentad"
	"github.com/couchcryptid/ocean-grid-etl/internal/store"
)

// Grid is the read-only grid view served by the API. *lookup.Index
// satisfies it.
type Grid interface {
	BoxFor(lon, lat float64) (domain.BoxID, error)
	Box(id domain.BoxID) (grid.Box, bool)
	BoxesWithin(center domain.BoxID, radiusKm float64) ([]domain.BoxID, error)
}

// ObservationQuerier reads stored observations.
type ObservationQuerier interface {
	Query(ctx context.Context, q store.Query) ([]domain.TaggedObservation, error)
}

// API serves box, pentad, neighbor, and observation lookups under /v1.
type API struct {
	grid     Grid
	calendar *pentad.Calendar
	obs      ObservationQuerier
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAPI wires the lookup handlers. obs may be nil, in which case
// /v1/observations is not mounted.
func NewAPI(g Grid, cal *pentad.Calendar, obs ObservationQuerier, logger *slog.Logger, metrics *observability.Metrics) *API {
	return &API{grid: g, calendar: cal, obs: obs, logger: logger, metrics: metrics}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/box", a.handleBox)
	mux.HandleFunc("GET /v1/boxes/{name}", a.handleBoxByName)
	mux.HandleFunc("GET /v1/pentad", a.handlePentad)
	mux.HandleFunc("GET /v1/neighbors", a.handleNeighbors)
	if a.obs != nil {
		mux.HandleFunc("GET /v1/observations", a.handleObservations)
	}
}

func (a *API) handleBox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lon, err := floatParam(q.Get("lon"), "lon")
	if err == nil && lon >= 180 && lon < 360 {
		lon = geo.NormalizeLongitude(lon)
	}
	var lat float64
	if err == nil {
		lat, err = floatParam(q.Get("lat"), "lat")
	}
	var id domain.BoxID
	if err == nil {
		id, err = a.grid.BoxFor(lon, lat)
	}
	a.metrics.Lookups.WithLabelValues("box", observability.LookupOutcome(err)).Inc()
	if err != nil {
		a.writeError(w, err)
		return
	}
	box, _ := a.grid.Box(id)
	writeJSON(w, http.StatusOK, box)
}

func (a *API) handleBoxByName(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBoxID(r.PathValue("name"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	box, ok := a.grid.Box(id)
	if !ok {
		a.writeError(w, fmt.Errorf("box %s: %w", id, domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, box)
}

type pentadResponse struct {
	Pentad    int    `json:"pentad"`
	HalfMonth int    `json:"half_month"`
	Month     int    `json:"month"`
	Start     string `json:"start"` // MM-DD
	End       string `json:"end"`
}

// handlePentad accepts either date=YYYY-MM-DD or month= and day=.
func (a *API) handlePentad(w http.ResponseWriter, r *http.Request) {
	bucket, err := a.resolvePentad(r)
	a.metrics.Lookups.WithLabelValues("pentad", observability.LookupOutcome(err)).Inc()
	if err != nil {
		a.writeError(w, err)
		return
	}
	start, end, err := a.calendar.PentadDates(bucket.Pentad)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pentadResponse{
		Pentad:    bucket.Pentad,
		HalfMonth: bucket.HalfMonth,
		Month:     bucket.Month,
		Start:     start.Format("01-02"),
		End:       end.Format("01-02"),
	})
}

func (a *API) resolvePentad(r *http.Request) (pentad.Bucket, error) {
	q := r.URL.Query()
	if s := q.Get("date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return pentad.Bucket{}, fmt.Errorf("date %q: %w", s, domain.ErrInvalidInput)
		}
		return a.calendar.Resolve(t)
	}
	month, err := intParam(q.Get("month"), "month")
	if err != nil {
		return pentad.Bucket{}, err
	}
	day, err := intParam(q.Get("day"), "day")
	if err != nil {
		return pentad.Bucket{}, err
	}
	if month < 1 || month > 12 {
		return pentad.Bucket{}, fmt.Errorf("month %d: %w", month, domain.ErrInvalidInput)
	}
	// PentadForDay rejects impossible days such as April 31.
	if _, err := a.calendar.PentadForDay(time.Month(month), day); err != nil {
		return pentad.Bucket{}, err
	}
	return a.calendar.Resolve(time.Date(pentad.ReferenceYear, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

type neighborsResponse struct {
	Center   domain.BoxID   `json:"center"`
	RadiusKm float64        `json:"radius_km"`
	Boxes    []domain.BoxID `json:"boxes"`
}

func (a *API) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	center, radius, err := a.centerAndRadius(r)
	var boxes []domain.BoxID
	if err == nil {
		boxes, err = a.grid.BoxesWithin(center, radius)
	}
	a.metrics.Lookups.WithLabelValues("neighbors", observability.LookupOutcome(err)).Inc()
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, neighborsResponse{Center: center, RadiusKm: radius, Boxes: boxes})
}

func (a *API) centerAndRadius(r *http.Request) (domain.BoxID, float64, error) {
	q := r.URL.Query()
	center, err := domain.ParseBoxID(q.Get("box"))
	if err != nil {
		return domain.BoxID{}, 0, err
	}
	radius := 0.0
	if s := q.Get("radius_km"); s != "" {
		if radius, err = floatParam(s, "radius_km"); err != nil {
			return domain.BoxID{}, 0, err
		}
	}
	return center, radius, nil
}

type observationsResponse struct {
	Boxes        []domain.BoxID             `json:"boxes"`
	Years        string                     `json:"years"`
	Count        int                        `json:"count"`
	Observations []domain.TaggedObservation `json:"observations"`
}

// handleObservations returns observations in the boxes within radius_km
// of box, for the requested years and optional pentads.
func (a *API) handleObservations(w http.ResponseWriter, r *http.Request) {
	query, err := a.observationQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	obs, err := a.obs.Query(r.Context(), query)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if obs == nil {
		obs = []domain.TaggedObservation{}
	}
	writeJSON(w, http.StatusOK, observationsResponse{
		Boxes:        query.Boxes,
		Years:        query.Years.String(),
		Count:        len(obs),
		Observations: obs,
	})
}

func (a *API) observationQuery(r *http.Request) (store.Query, error) {
	center, radius, err := a.centerAndRadius(r)
	if err != nil {
		return store.Query{}, err
	}
	boxes, err := a.grid.BoxesWithin(center, radius)
	if err != nil {
		return store.Query{}, err
	}
	years, err := domain.ParseYearRange(r.URL.Query().Get("years"))
	if err != nil {
		return store.Query{}, err
	}
	pentads, err := intListParam(r.URL.Query().Get("pentads"), "pentads")
	if err != nil {
		return store.Query{}, err
	}
	for _, p := range pentads {
		if p < 1 || p > a.calendar.PentadCount() {
			return store.Query{}, fmt.Errorf("pentad %d: %w", p, domain.ErrInvalidInput)
		}
	}
	return store.Query{Boxes: boxes, Years: years, Pentads: pentads}, nil
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("lookup failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGridIncomplete):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func floatParam(s, name string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing %s: %w", name, domain.ErrInvalidInput)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, domain.ErrInvalidInput)
	}
	return v, nil
}

func intParam(s, name string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing %s: %w", name, domain.ErrInvalidInput)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, domain.ErrInvalidInput)
	}
	return v, nil
}

// intListParam parses a comma-separated list. Empty input is an empty list.
func intListParam(s, name string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := intParam(strings.TrimSpace(p), name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
