// Package config loads the backtest runner's configuration from
// environment variables and .env files, failing fast with an aggregated
// error when required settings are missing or malformed.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/quantrook/backreplay/bterrors"
)

// validDatabaseBackends is the set of historical-data backends spec.md §6
// recognizes. Only sqlite is wired by historicaldata.SQLiteSource today;
// mysql/mongodb are accepted at the config layer so a future Source
// implementation can be selected without a config-shape change.
var validDatabaseBackends = map[string]bool{"sqlite": true, "mysql": true, "mongodb": true}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "error": true, "fatal": true,
	"panic": true, "disabled": true,
}

// Config holds every setting the backtest runner reads from its
// environment. Field names mirror the database.* keys from spec.md §6 and
// the BACKTEST_* ambient keys documented in SPEC_FULL.md §6.
type Config struct {
	// database.*
	DatabaseBackend  string // database.name
	DatabasePath     string // database.database
	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseTimezone string

	// ambient
	LogLevel       string
	ServerHost     string
	ServerPort     int
	UseGlobalCache bool

	BinanceAPIKey    string
	BinanceAPISecret string

	// ArtifactDir, when non-empty, is the directory a completed run's
	// history.dat/trades.dat chart-viewer dump (spec.md §6) is written
	// under, one subdirectory per run ID. Empty disables the dump.
	ArtifactDir string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}

// Load reads configuration from environment variables and a .env file (if
// present), then validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseBackend:  getEnv("BACKTEST_DB_BACKEND", "sqlite"),
		DatabasePath:     getEnv("BACKTEST_DB_PATH", "./data/backreplay.db"),
		DatabaseHost:     os.Getenv("BACKTEST_DB_HOST"),
		DatabasePort:     getEnvInt("BACKTEST_DB_PORT", 0),
		DatabaseUser:     os.Getenv("BACKTEST_DB_USER"),
		DatabasePassword: os.Getenv("BACKTEST_DB_PASSWORD"),
		DatabaseTimezone: getEnv("BACKTEST_DB_TIMEZONE", "Local"),

		LogLevel:       getEnv("BACKTEST_LOG_LEVEL", "info"),
		ServerHost:     getEnv("BACKTEST_SERVER_HOST", "0.0.0.0"),
		ServerPort:     getEnvInt("BACKTEST_SERVER_PORT", 8199),
		UseGlobalCache: getEnvBool("BACKTEST_USE_GLOBAL_CACHE", false),

		BinanceAPIKey:    os.Getenv("BACKTEST_BINANCE_API_KEY"),
		BinanceAPISecret: os.Getenv("BACKTEST_BINANCE_API_SECRET"),

		ArtifactDir: os.Getenv("BACKTEST_ARTIFACT_DIR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate aggregates every configuration problem into a single
// bterrors.ValidationError (Config kind) so an operator can fix them all in
// one pass.
func (c *Config) Validate() error {
	ve := &bterrors.ValidationError{}

	if !validDatabaseBackends[c.DatabaseBackend] {
		ve.Add("invalid BACKTEST_DB_BACKEND %q: must be one of sqlite, mysql, mongodb", c.DatabaseBackend)
	}
	if c.DatabaseBackend == "sqlite" && c.DatabasePath == "" {
		ve.Add("BACKTEST_DB_PATH is empty: set BACKTEST_DB_PATH to a sqlite file path")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		ve.Add("invalid BACKTEST_LOG_LEVEL %q: must be one of trace, debug, info, warn, error, fatal, panic, disabled", c.LogLevel)
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		ve.Add("invalid BACKTEST_SERVER_PORT %d: must be between 1 and 65535", c.ServerPort)
	}

	if err := ve.OrNil(); err != nil {
		return bterrors.Wrap(bterrors.Config, "config validation failed", err)
	}
	return nil
}
