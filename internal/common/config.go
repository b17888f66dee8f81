package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for tsemarket
type Config struct {
	Environment string        `toml:"environment"`
	History     HistoryConfig `toml:"history"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// HistoryConfig controls delta planning and batch execution.
type HistoryConfig struct {
	ChunkSize   int `toml:"chunk_size"`  // instruments per batch request
	Concurrency int `toml:"concurrency"` // concurrent batch requests in flight
}

// StorageConfig holds the export area configuration.
type StorageConfig struct {
	Export AreaConfig `toml:"export"` // per-symbol CSV exports
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	TSE TSEConfig `toml:"tse"`
}

// TSEConfig holds exchange data service configuration. RetryCount,
// Pause and PauseMultiplier tune the transport's retry loop only; the
// core never retries.
type TSEConfig struct {
	BaseURL         string  `toml:"base_url"`
	ListingURL      string  `toml:"listing_url"`
	RateLimit       int     `toml:"rate_limit"`
	Timeout         string  `toml:"timeout"`
	RetryCount      int     `toml:"retry_count"`
	Pause           string  `toml:"pause"`
	PauseMultiplier float64 `toml:"pause_multiplier"`
}

// GetTimeout parses and returns the timeout duration
func (c *TSEConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetPause parses and returns the base retry pause duration
func (c *TSEConfig) GetPause() time.Duration {
	d, err := time.ParseDuration(c.Pause)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		History: HistoryConfig{
			ChunkSize:   50,
			Concurrency: 1,
		},
		Storage: StorageConfig{
			Export: AreaConfig{Path: "data/export"},
		},
		Clients: ClientsConfig{
			TSE: TSEConfig{
				BaseURL:         "http://service.tsetmc.com/WebService/TseClient.asmx",
				ListingURL:      "http://www.tsetmc.com/Loader.aspx?ParTree=111C1213",
				RateLimit:       4,
				Timeout:         "30s",
				RetryCount:      3,
				Pause:           "100ms",
				PauseMultiplier: 2.5,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalize(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TSEMARKET_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("TSEMARKET_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("TSEMARKET_EXPORT_PATH"); path != "" {
		config.Storage.Export.Path = path
	}

	if url := os.Getenv("TSEMARKET_TSE_BASE_URL"); url != "" {
		config.Clients.TSE.BaseURL = url
	}

	if chunk := os.Getenv("TSEMARKET_CHUNK_SIZE"); chunk != "" {
		if n, err := strconv.Atoi(chunk); err == nil {
			config.History.ChunkSize = n
		}
	}

	if conc := os.Getenv("TSEMARKET_CONCURRENCY"); conc != "" {
		if n, err := strconv.Atoi(conc); err == nil {
			config.History.Concurrency = n
		}
	}
}

// normalize clamps config values to their valid ranges.
func normalize(config *Config) {
	if config.History.ChunkSize < 1 {
		config.History.ChunkSize = 1
	}
	if config.History.Concurrency < 1 {
		config.History.Concurrency = 1
	}
}
