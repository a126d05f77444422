// Package config loads memdigest settings from defaults, a YAML file,
// MEMDIGEST_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rcliao/memdigest/internal/digest"
	"github.com/rcliao/memdigest/internal/model"
	"github.com/rcliao/memdigest/internal/service"
)

const EnvPrefix = "MEMDIGEST"

type Config struct {
	Owner    string         `yaml:"owner" mapstructure:"owner"`
	DB       DBConfig       `yaml:"db" mapstructure:"db"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Digest   DigestConfig   `yaml:"digest" mapstructure:"digest"`
	Metadata MetadataConfig `yaml:"metadata" mapstructure:"metadata"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

type DBConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path         string `yaml:"path" mapstructure:"path"`
	DSN          string `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

type CacheConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // memory or redis
	MaxCost int64  `yaml:"max_cost" mapstructure:"max_cost"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

type DigestConfig struct {
	digest.Options `yaml:",inline" mapstructure:",squash"`
	Placeholder    string `yaml:"placeholder" mapstructure:"placeholder"`
}

type MetadataConfig struct {
	SchemaFile string `yaml:"schema_file" mapstructure:"schema_file"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// DefaultDBPath is ~/.memdigest/memory.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memdigest", "memory.db")
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":    "db.path",
	"owner": "owner",
	"addr":  "server.addr",
}

func setDefaults(v *viper.Viper) {
	d := digest.DefaultOptions()

	v.SetDefault("owner", "")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", DefaultDBPath())
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 0)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_cost", digest.DefaultMaxCost)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "memdigest:")
	v.SetDefault("digest.header", d.Header)
	v.SetDefault("digest.footer", d.Footer)
	v.SetDefault("digest.include_id", d.IncludeID)
	v.SetDefault("digest.include_importance", d.IncludeImportance)
	v.SetDefault("digest.include_metadata", d.IncludeMetadata)
	v.SetDefault("digest.min_importance", d.MinImportance)
	v.SetDefault("digest.max_chars", d.MaxChars)
	v.SetDefault("digest.placeholder", service.DefaultPlaceholder)
	v.SetDefault("metadata.schema_file", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. An explicit file must exist; otherwise
// memdigest.yaml is searched in the working directory and the user config
// directory, and its absence is not an error. Flags that were set on the
// command line override everything else.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("memdigest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "memdigest"))
		}
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "memdigest"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("config: db.path is required for sqlite")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("config: db.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: db.driver %q is invalid (must be sqlite or postgres)", c.DB.Driver)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("config: cache.backend %q is invalid (must be memory or redis)", c.Cache.Backend)
	}

	if c.Digest.MinImportance < 0 || c.Digest.MaxChars < 0 {
		return fmt.Errorf("config: digest.min_importance and digest.max_chars must not be negative")
	}
	if c.Digest.Placeholder == "" {
		return fmt.Errorf("config: digest.placeholder must not be empty")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q is invalid (must be text or json)", c.Log.Format)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Validator returns the metadata validator for the configured JSON Schema
// file, or the default object-only validator when none is set.
func (c MetadataConfig) Validator() (*model.MetadataValidator, error) {
	if c.SchemaFile == "" {
		return model.DefaultMetadataValidator, nil
	}
	data, err := os.ReadFile(c.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("read metadata schema: %w", err)
	}
	return model.NewMetadataValidator(string(data))
}
