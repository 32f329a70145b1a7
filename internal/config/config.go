// Package config loads the ledger's runtime configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, so ledger.user_id
// becomes LEDGER_LEDGER_USER_ID and database.path becomes LEDGER_DATABASE_PATH.
const EnvPrefix = "LEDGER"

// Config is the resolved configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Ledger   LedgerConfig
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string
}

// LedgerConfig holds the engine settings.
type LedgerConfig struct {
	UserID            string
	BaseCurrency      string
	Epsilon           decimal.Decimal
	SeriesConcurrency int
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/spice-ledger/ledger.db")
	v.SetDefault("ledger.user_id", "default")
	v.SetDefault("ledger.base_currency", "USD")
	v.SetDefault("ledger.epsilon", "0.01")
	v.SetDefault("ledger.series_concurrency", 4)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration from v, applying defaults and environment
// overrides, and validates the result.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	epsilon, err := decimal.NewFromString(strings.TrimSpace(v.GetString("ledger.epsilon")))
	if err != nil {
		return Config{}, fmt.Errorf("%w: ledger.epsilon %q", common.ErrInvalidConfig, v.GetString("ledger.epsilon"))
	}

	cfg := Config{
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Ledger: LedgerConfig{
			UserID:            strings.TrimSpace(v.GetString("ledger.user_id")),
			BaseCurrency:      model.NormalizeCurrencyCode(v.GetString("ledger.base_currency")),
			Epsilon:           epsilon,
			SeriesConcurrency: v.GetInt("ledger.series_concurrency"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
	}
	if cfg.Database.Path != ":memory:" {
		cfg.Database.Path = ExpandPath(cfg.Database.Path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Ledger.UserID == "" {
		return fmt.Errorf("%w: ledger.user_id", common.ErrMissingConfig)
	}
	if len(c.Ledger.BaseCurrency) < 2 {
		return fmt.Errorf("%w: ledger.base_currency %q", common.ErrInvalidConfig, c.Ledger.BaseCurrency)
	}
	if c.Ledger.Epsilon.IsNegative() {
		return fmt.Errorf("%w: ledger.epsilon must not be negative", common.ErrInvalidConfig)
	}
	if c.Ledger.SeriesConcurrency < 1 {
		return fmt.Errorf("%w: ledger.series_concurrency must be at least 1", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
