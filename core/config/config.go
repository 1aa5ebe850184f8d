// Package config provides environment-based configuration for Seal.
//
// Configuration is loaded from environment variables using Viper, with
// sensible defaults for development. This package handles database
// connection settings, logging levels, server ports, and the check engine's
// evaluation limits.
//
// # Environment Variables
//
//   - DB_TYPE: Database type (sqlite, postgres, mysql). Default: sqlite
//   - DSN: Database connection string. Default: seal.db
//   - SKIP_AUTO_MIGRATE: Skip automatic database migrations. Default: false
//   - LOG_LEVEL: Logging level (debug, info, warn, error). Default: info
//   - PORT: HTTP server port. Default: 8080
//   - MAX_CHECK_DEPTH: Recursion limit for permission checks. Default: 64
//   - CHECK_CACHE_TTL: TTL for cached check decisions, e.g. "5s". Default: 0 (off)
//   - REDIS_ADDR: When set, check decisions are cached in Redis instead of memory.
//   - ADMIN_TOKEN_HASH: bcrypt hash of the admin bearer token. Empty disables auth.
//   - JWT_SECRET: HS256 secret for admin JWTs. Empty disables JWT auth.
//   - TELEMETRY_ENABLED: Enable OpenTelemetry tracing and metrics. Default: false
//   - OTLP_ENDPOINT: OTLP gRPC endpoint for trace export. Empty keeps traces local.
//   - TRACE_SAMPLING_RATE: Trace sampling rate (0.0-1.0). Default: 1.0
//   - ENVIRONMENT: Deployment environment label. Default: development
//
// # Example Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Starting on port %d with %s database\n", cfg.Port, cfg.DBType)
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBType          string        `mapstructure:"DB_TYPE"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"DSN"`
	SkipAutoMigrate bool          `mapstructure:"SKIP_AUTO_MIGRATE"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	Port            int           `mapstructure:"PORT"`
	MaxCheckDepth   int           `mapstructure:"MAX_CHECK_DEPTH"`
	CheckCacheTTL   time.Duration `mapstructure:"CHECK_CACHE_TTL"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	AdminTokenHash  string        `mapstructure:"ADMIN_TOKEN_HASH"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`

	TelemetryEnabled  bool    `mapstructure:"TELEMETRY_ENABLED"`
	OTLPEndpoint      string  `mapstructure:"OTLP_ENDPOINT"`
	TraceSamplingRate float64 `mapstructure:"TRACE_SAMPLING_RATE"`
	Environment       string  `mapstructure:"ENVIRONMENT"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_TYPE", "sqlite")
	viper.SetDefault("DSN", "seal.db") // Default to sqlite if not provided
	viper.SetDefault("SKIP_AUTO_MIGRATE", false)
	viper.SetDefault("MAX_CHECK_DEPTH", 64)
	viper.SetDefault("CHECK_CACHE_TTL", time.Duration(0))
	viper.SetDefault("TELEMETRY_ENABLED", false)
	viper.SetDefault("TRACE_SAMPLING_RATE", 1.0)
	viper.SetDefault("ENVIRONMENT", "development")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
