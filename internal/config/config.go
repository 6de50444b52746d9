package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/ocean-grid-etl/internal/grid"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// StorePath is the Badger directory. Empty runs an in-memory database.
	StorePath string
	// LandShapefile is the polygon source for grid builds. Empty builds an
	// all-ocean grid.
	LandShapefile string

	Grid            grid.Params
	LookupCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	params, err := parseGridParams()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("LOOKUP_CACHE_SIZE", 10000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-ocean-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "tagged-ocean-observations"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "ocean-grid-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		StorePath:     sharedcfg.EnvOrDefault("STORE_PATH", ""),
		LandShapefile: sharedcfg.EnvOrDefault("LAND_SHAPEFILE", ""),

		Grid:            params,
		LookupCacheSize: cacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// parseGridParams overlays GRID_* variables on grid.DefaultParams and
// validates the result.
func parseGridParams() (grid.Params, error) {
	p := grid.DefaultParams()
	floats := []struct {
		key string
		dst *float64
	}{
		{"GRID_LON_START", &p.LonStart},
		{"GRID_LAT_START", &p.LatStart},
		{"GRID_LON_SPAN", &p.LonSpan},
		{"GRID_LAT_SPAN", &p.LatSpan},
		{"GRID_SIDE_M", &p.SideM},
	}
	for _, f := range floats {
		s := sharedcfg.EnvOrDefault(f.key, "")
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return grid.Params{}, fmt.Errorf("invalid %s %q: %w", f.key, s, err)
		}
		*f.dst = v
	}

	concurrency, err := parsePositiveInt("GRID_CONCURRENCY", p.Concurrency)
	if err != nil {
		return grid.Params{}, err
	}
	p.Concurrency = concurrency

	if err := p.Validate(); err != nil {
		return grid.Params{}, fmt.Errorf("invalid GRID_* settings: %w", err)
	}
	return p, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}
