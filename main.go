package main

import (
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stevemurr/persistent-data-store/config"
	"github.com/stevemurr/persistent-data-store/store"
)

// app carries the flags and resolved state shared by every subcommand.
type app struct {
	configPath string
	dataRoot   string
	backend    string
	verbose    bool

	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pdstore",
		Short: "Save and load JSON records keyed by type name and uid",
		Long: `pdstore manages a directory of JSON records. Each record is addressed by a
type name and an optional uid and is stored at

    <data root>/PersistentData/<type>[-<uid>].json

Other backends (sqlite, pebble, redis, memory) keep the same addressing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.dataRoot, "data-root", "", "persistent data root (overrides config)")
	flags.StringVar(&a.backend, "backend", "", "storage backend: json, sqlite, pebble, redis, memory")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.existsCmd(),
		a.getCmd(),
		a.putCmd(),
		a.rmCmd(),
		a.lsCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataRoot != "" {
		cfg.DataRoot = a.dataRoot
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.log == nil {
		a.log, err = newLogger(cfg.LogLevel, a.verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	return nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func (a *app) openStore() (*store.Store, error) {
	b, err := a.cfg.OpenBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to open store (backend=%s): %w", a.cfg.Backend, err)
	}
	a.log.Debug("store opened",
		zap.String("backend", a.cfg.Backend),
		zap.String("root", a.cfg.StoreRoot()))
	return store.NewStore(b, store.WithLogger(a.log)), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
