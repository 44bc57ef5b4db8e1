// Package config provides environment-based configuration for RepStack Core.
// The host shell passes settings through the process environment; every
// field has a default so the core also runs with none set.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all tunables for the core and the sync subsystem.
type Config struct {
	// DataDir is where the SQLite database lives.
	DataDir string `env:"REPSTACK_DATA_DIR" envDefault:"./data"`

	// LogLevel is the minimum log level: DEBUG, INFO, WARN, ERROR.
	LogLevel string `env:"REPSTACK_LOG_LEVEL" envDefault:"INFO"`

	// SyncEndpointURL is the remote sync RPC endpoint.
	SyncEndpointURL string `env:"REPSTACK_SYNC_ENDPOINT" envDefault:"https://api.repstack.app/rpc/sync"`

	// SyncTimeout bounds one remote endpoint call. A timeout is treated
	// as a network failure.
	SyncTimeout time.Duration `env:"REPSTACK_SYNC_TIMEOUT" envDefault:"30s"`

	// DrainBatchSize bounds how many queue entries one drain pass replays.
	DrainBatchSize int `env:"REPSTACK_DRAIN_BATCH_SIZE" envDefault:"50"`

	// DrainInterval is the periodic background drain cadence.
	DrainInterval time.Duration `env:"REPSTACK_DRAIN_INTERVAL" envDefault:"1m"`

	// MaxAttempts is the replay attempt limit before an entry is
	// dead-lettered.
	MaxAttempts int `env:"REPSTACK_SYNC_MAX_ATTEMPTS" envDefault:"8"`

	// BackoffBase and BackoffCap bound the retry backoff schedule.
	BackoffBase time.Duration `env:"REPSTACK_SYNC_BACKOFF_BASE" envDefault:"1m"`
	BackoffCap  time.Duration `env:"REPSTACK_SYNC_BACKOFF_CAP" envDefault:"1h"`

	// PrefsDebounce is the settle window for debounced preference writes.
	PrefsDebounce time.Duration `env:"REPSTACK_PREFS_DEBOUNCE" envDefault:"2s"`

	// ConnectivityProbeURL is the reachability probe target. An empty
	// probe response with status 204 confirms internet reachability.
	ConnectivityProbeURL string `env:"REPSTACK_CONNECTIVITY_PROBE" envDefault:"https://api.repstack.app/generate_204"`

	// ConnectivityTimeout bounds one reachability probe.
	ConnectivityTimeout time.Duration `env:"REPSTACK_CONNECTIVITY_TIMEOUT" envDefault:"5s"`

	// DesktopPort is the localhost port for the desktop dev harness.
	DesktopPort int `env:"REPSTACK_DESKTOP_PORT" envDefault:"8090"`

	// TelemetryEnabled opts in to in-process sync telemetry counters.
	TelemetryEnabled bool `env:"REPSTACK_TELEMETRY" envDefault:"false"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// LoadWithDotenv reads an optional .env file before parsing the
// environment. A missing file is not an error; the desktop harness uses
// this, the mobile FFI path does not.
func LoadWithDotenv(path string) (*Config, error) {
	_ = godotenv.Load(path)
	return Load()
}
