package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var errMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres dialect")

type APIConfig struct {
	Addr             string
	DBDialect        string
	DatabaseURL      string
	SQLitePath       string
	MarketVolatility string
	QuoteEndpoint    string
	QuoteTimeout     time.Duration
	LiveQuotes       bool
}

type WorkerConfig struct {
	DBDialect   string
	DatabaseURL string
	SQLitePath  string
	TickEvery   time.Duration
	RunOnce     bool
	TurnsPerRun int
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("STRATSIM_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:             addr,
		DBDialect:        envDialectDefault(),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:       envDefault("STRATSIM_SQLITE_PATH", "stratsim.db"),
		MarketVolatility: envVolatilityDefault(),
		QuoteEndpoint:    strings.TrimRight(envDefault("STRATSIM_QUOTE_ENDPOINT", "https://stooq.com/q/l/"), "/"),
		QuoteTimeout:     envDurationDefault("STRATSIM_QUOTE_TIMEOUT", 5*time.Second),
		LiveQuotes:       envBoolDefault("STRATSIM_LIVE_QUOTES", false),
	}
	if cfg.DBDialect == "postgres" && cfg.DatabaseURL == "" {
		return cfg, errMissingDatabaseURL
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DBDialect:   envDialectDefault(),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  envDefault("STRATSIM_SQLITE_PATH", "stratsim.db"),
		TickEvery:   envDurationDefault("STRATSIM_WORKER_TICK_EVERY", time.Minute),
		RunOnce:     envBoolDefault("STRATSIM_WORKER_RUN_ONCE", false),
		TurnsPerRun: envIntDefault("STRATSIM_WORKER_TURNS_PER_RUN", 1),
	}
	if cfg.DBDialect == "postgres" && cfg.DatabaseURL == "" {
		return cfg, errMissingDatabaseURL
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("STRAT_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDialectDefault() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DB_DIALECT"))) {
	case "postgres", "pgx":
		return "postgres"
	default:
		return "sqlite"
	}
}

func envVolatilityDefault() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("VOLATILITY")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(os.Getenv("STRATSIM_MARKET_VOLATILITY")))
	}
	switch v {
	case "calm", "mor", "wild":
		return v
	default:
		return "mor"
	}
}
