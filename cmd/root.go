package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingodrill/internal/config"
	"github.com/abhisek/lingodrill/internal/session"
	"github.com/abhisek/lingodrill/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "lingodrill",
	Short: "Adaptive language practice sessions",
	Long: "Lingodrill builds short practice sessions from the vocabulary and grammar " +
		"items a learner is weakest on, scores the answers, and keeps new sessions " +
		"coming in the background.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LINGODRILL_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default $XDG_CONFIG_HOME/lingodrill/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", "", "Path to a .env file (default ./.env when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is what most commands need: the loaded configuration, a logger, the
// store and the session manager over it.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	cache   *store.Cache
	manager *session.Manager
}

// openEnv opens the store and the session manager. The session cache is
// best effort: another process holding it only costs speed.
func openEnv(cmd *cobra.Command) (*env, error) {
	e, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	e.cache = openCache(e.cfg, e.logger)
	e.manager = session.NewManager(e.store, session.Options{
		MaxPending: e.cfg.AutoSession.MaxPendingSessions,
		TTL:        e.cfg.AutoSession.Expiry(),
		Cache:      e.cache,
		Logger:     e.logger,
	})
	return e, nil
}

// openStore loads the configuration and opens only the store.
func openStore(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &env{cfg: cfg, logger: logger, store: st}, nil
}

func (e *env) Close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Warn("close session cache", "error", err)
		}
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("close store", "error", err)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.Options{Path: path, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path (file or LINGODRILL_DB), then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func openCache(cfg *config.Config, logger *slog.Logger) *store.Cache {
	dir := cfg.CacheDir
	if dir == "off" {
		return nil
	}
	if dir == "" {
		d, err := store.DefaultCacheDir()
		if err != nil {
			logger.Warn("session cache disabled", "error", err)
			return nil
		}
		dir = d
	}
	c, err := store.OpenCache(store.CacheConfig{Path: dir, Logger: logger})
	if err != nil {
		logger.Warn("session cache disabled", "dir", dir, "error", err)
		return nil
	}
	return c
}
