// Package cli implements the memdigest CLI commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rcliao/memdigest/internal/config"
	"github.com/rcliao/memdigest/internal/digest"
	"github.com/rcliao/memdigest/internal/service"
	"github.com/rcliao/memdigest/internal/store"
)

var (
	cfgFile    string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memdigest",
	Short: "Per-user memory store for prompt injection",
	Long:  "Durable per-owner memories, formatted into a cached digest for prompt templates. SQLite or Postgres backed.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./memdigest.yaml or ~/.config/memdigest/memdigest.yaml)")
	RootCmd.PersistentFlags().StringP("db", "d", "", "SQLite database path (default: $MEMDIGEST_DB_PATH or ~/.memdigest/memory.db)")
	RootCmd.PersistentFlags().StringP("owner", "o", "", "Owner ID (default: $MEMDIGEST_OWNER)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
}

func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		exitErr("logger", err)
	}
	return logger
}

func openStore(cfg *config.Config) (*store.SQLStore, error) {
	validator, err := cfg.Metadata.Validator()
	if err != nil {
		return nil, err
	}
	opts := store.Options{Validator: validator, MaxOpenConns: cfg.DB.MaxOpenConns}
	if cfg.DB.Driver == store.DriverPostgres {
		return store.NewPostgresStore(cfg.DB.DSN, opts)
	}
	return store.NewSQLiteStore(cfg.DB.Path, opts)
}

func openBackend(cfg *config.Config) (digest.Backend, error) {
	if cfg.Cache.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return digest.NewRedisBackend(client, cfg.Redis.Prefix), nil
	}
	return digest.NewMemoryBackend(cfg.Cache.MaxCost)
}

// openService wires store, digest cache and service from configuration.
func openService(cfg *config.Config, logger *slog.Logger) (*service.Service, error) {
	s, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	backend, err := openBackend(cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	cache := digest.New(s, digest.NewFormatter(cfg.Digest.Options), backend, logger)
	return service.New(s, cache, service.Options{
		Placeholder: cfg.Digest.Placeholder,
		Logger:      logger,
	}), nil
}

// setup loads config and opens the service for a command that acts on one
// owner's memories.
func setup(cmd *cobra.Command) (*service.Service, string) {
	cfg := loadConfig(cmd)
	if cfg.Owner == "" {
		exitErr("owner", errors.New("owner is required (--owner or MEMDIGEST_OWNER)"))
	}
	svc, err := openService(cfg, newLogger(cfg))
	if err != nil {
		exitErr("open", err)
	}
	return svc, cfg.Owner
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
