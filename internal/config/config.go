// Package config loads server and CLI configuration from a TOML file,
// with environment variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Backend names accepted by the store and snapshot sections.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config is the full application configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `toml:"listen"`

	// Catalog is an optional TOML file of extra component kinds.
	Catalog string `toml:"catalog"`

	Store    StoreConfig    `toml:"store"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Sim      SimConfig      `toml:"sim"`
}

// StoreConfig selects the version store backend.
type StoreConfig struct {
	Backend  string `toml:"backend"` // "memory" or "mongo"
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// SnapshotConfig selects the local snapshot mirror backend.
type SnapshotConfig struct {
	Backend string `toml:"backend"` // "memory", "file", "redis", or "none"
	Dir     string `toml:"dir"`
	Addr    string `toml:"addr"`
}

// SimConfig points at the simulation collaborator.
type SimConfig struct {
	URL string `toml:"url"`
}

// Default returns the zero-dependency configuration: everything
// in-process, no simulator.
func Default() Config {
	return Config{
		Listen:   ":8080",
		Store:    StoreConfig{Backend: BackendMemory, Database: "ampflux"},
		Snapshot: SnapshotConfig{Backend: BackendMemory},
	}
}

// Load reads a TOML config file over the defaults, then applies
// environment overrides. An empty path loads defaults plus environment
// only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv maps deployment environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AMPFLUX_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("AMPFLUX_MONGO_URI"); v != "" {
		cfg.Store.Backend = BackendMongo
		cfg.Store.URI = v
	}
	if v := os.Getenv("AMPFLUX_REDIS_ADDR"); v != "" {
		cfg.Snapshot.Backend = BackendRedis
		cfg.Snapshot.Addr = v
	}
	if v := os.Getenv("AMPFLUX_SIM_URL"); v != "" {
		cfg.Sim.URL = v
	}
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Store.URI == "" {
			return fmt.Errorf("store backend %q requires a uri", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Snapshot.Backend {
	case BackendMemory, BackendNone:
	case BackendFile:
		// An empty dir falls back to the XDG cache directory.
	case BackendRedis:
		if c.Snapshot.Addr == "" {
			return fmt.Errorf("snapshot backend %q requires an addr", c.Snapshot.Backend)
		}
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	return nil
}
