package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, parseLevel(tc.in))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("band committed", "band", 3, "kept", 41)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "band committed", rec["msg"])
	assert.EqualValues(t, 3, rec["band"])
	assert.EqualValues(t, 41, rec["kept"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "debug", "text").Debug("lookup", "box", "3_8")
	assert.Contains(t, buf.String(), "box=3_8")
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.GridBoxesKept.Add(3)
	m.Lookups.WithLabelValues("box", "success").Inc()

	assert.InDelta(t, 3.0, testutil.ToFloat64(m.GridBoxesKept), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("box", "success")), 0)
}

func TestLookupOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("wrapped: %w", domain.ErrOutOfBounds), "out_of_bounds"},
		{domain.ErrNotFound, "not_found"},
		{domain.ErrInvalidInput, "invalid"},
		{errors.New("disk on fire"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupOutcome(tt.err))
		})
	}
}
