// Package cli implements the ampflux command-line interface.
//
// The CLI exposes four commands: serve starts the HTTP API, edit opens a
// terminal canvas on a project, export converts a snapshot file to DOT or
// SVG, and versions lists a project's save history. All commands support
// --verbose (-v) for debug-level logging and --config for a TOML
// configuration file.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nuno18084/Ampflux-sub000/internal/config"
	"github.com/nuno18084/Ampflux-sub000/pkg/buildinfo"
	"github.com/nuno18084/Ampflux-sub000/pkg/cache"
	"github.com/nuno18084/Ampflux-sub000/pkg/catalog"
	"github.com/nuno18084/Ampflux-sub000/pkg/sim"
	"github.com/nuno18084/Ampflux-sub000/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "ampflux"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a timestamped logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "AmpFlux edits and serves circuit diagrams",
		Long:         `AmpFlux is the engine of a circuit-diagram editor: it keeps typed components and wires on a pannable, zoomable canvas and versions every save.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a TOML config file")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.versionsCommand())

	return root
}

// loadConfig reads the --config file, or defaults plus environment when
// no file was given.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// buildStore constructs the version store named by the config. The mongo
// backend dials and pings before returning.
func (c *CLI) buildStore(ctx context.Context, cfg config.Config) (store.VersionStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		s, err := store.NewMongoStore(ctx, cfg.Store.URI, cfg.Store.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect version store: %w", err)
		}
		c.Logger.Debug("using mongo version store", "database", cfg.Store.Database)
		return s, func() { _ = s.Close(context.Background()) }, nil
	default:
		c.Logger.Debug("using in-memory version store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

// buildSnapshotCache constructs the local snapshot mirror backend.
func (c *CLI) buildSnapshotCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Snapshot.Backend {
	case config.BackendFile:
		dir := cfg.Snapshot.Dir
		if dir == "" {
			var err error
			dir, err = snapshotDir()
			if err != nil {
				return cache.NewMemoryCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.Snapshot.Addr)
	case config.BackendNone:
		return cache.NewNullCache(), nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

// buildCatalog loads the builtin component kinds, merged with the extra
// kinds file when one is configured.
func (c *CLI) buildCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog == "" {
		return catalog.Builtin(), nil
	}
	cat, err := catalog.LoadTOML(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// buildRunner returns the simulation client, or nil when no simulator is
// configured.
func (c *CLI) buildRunner(cfg config.Config) sim.Runner {
	if cfg.Sim.URL == "" {
		return nil
	}
	return sim.NewClient(cfg.Sim.URL)
}

// snapshotDir returns the local mirror directory using the XDG standard
// (~/.cache/ampflux/snapshots).
func snapshotDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName, "snapshots"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName, "snapshots"), nil
}
