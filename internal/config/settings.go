package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Driver names accepted by Settings.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Settings holds the runtime configuration shared by the CLI and MCP server.
type Settings struct {
	Driver      string        `mapstructure:"driver" yaml:"driver"`
	DSN         string        `mapstructure:"dsn" yaml:"dsn,omitempty"`
	DBPath      string        `mapstructure:"db_path" yaml:"db_path"`
	Strategy    string        `mapstructure:"strategy" yaml:"strategy"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	Verify      bool          `mapstructure:"verify" yaml:"verify"`
	Tree        string        `mapstructure:"tree" yaml:"tree"`
}

// NewViper returns a viper instance with arbor defaults, the ARBOR_ env
// prefix and the config file location applied. The file is not read yet.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("driver", DriverSQLite)
	v.SetDefault("dsn", "")
	v.SetDefault("db_path", "")
	v.SetDefault("strategy", "recursive")
	v.SetDefault("max_attempts", 10)
	v.SetDefault("base_delay", 10*time.Millisecond)
	v.SetDefault("verify", true)
	v.SetDefault("tree", "default")

	v.SetEnvPrefix("ARBOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if explicit := os.Getenv("ARBOR_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigFile(GetConfigPath())
	}
	v.SetConfigType("yaml")
	return v
}

// Load reads the config file (if present) into settings.
func Load(v *viper.Viper) (Settings, error) {
	if v == nil {
		v = NewViper()
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return s, s.Validate()
}

// Validate checks settings for consistency.
func (s Settings) Validate() error {
	switch s.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if s.DSN == "" {
			return fmt.Errorf("driver %q requires dsn", s.Driver)
		}
	default:
		return fmt.Errorf("invalid driver: %s (valid values: sqlite, postgres)", s.Driver)
	}
	switch s.Strategy {
	case "naive", "recursive":
	default:
		return fmt.Errorf("invalid strategy: %s (valid values: naive, recursive)", s.Strategy)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", s.MaxAttempts)
	}
	if s.BaseDelay < 0 {
		return fmt.Errorf("base_delay must not be negative")
	}
	if strings.TrimSpace(s.Tree) == "" {
		return fmt.Errorf("tree must not be empty")
	}
	return nil
}

// ResolvedDBPath returns DBPath or the default database location.
func (s Settings) ResolvedDBPath() string {
	if s.DBPath != "" {
		return s.DBPath
	}
	return GetDBPath()
}
