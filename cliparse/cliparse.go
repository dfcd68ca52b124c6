package cliparse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	CatalogPath  string
	LockLease    time.Duration
	LockWait     time.Duration
	TrendHours   int
	MaxQueryLen  int
}

// Defaults
const (
	DefaultPort        = 3318
	DefaultLockLease   = 60 * time.Second
	DefaultLockWait    = 30 * time.Second
	DefaultTrendHours  = 24 * 30
	DefaultMaxQueryLen = 1000
)

// ParseFlags validates flags and fills unset values from the environment.
// A .env file in the working directory is loaded first if present; it never
// overrides variables that are already set.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	flagSet := pflag.NewFlagSet("result-query", pflag.ContinueOnError)

	// Network and storage
	flagSet.IntVarP(&cfg.Port, "port", "p", 0, "Server port")
	flagSet.StringVarP(&cfg.DatabaseURL, "database-url", "d", "", "Database URL")
	flagSet.StringVarP(&cfg.DatabaseType, "database-type", "t", "", "Database type (sqlite or postgres)")
	flagSet.StringVar(&cfg.CatalogPath, "catalog", "", "Item catalog YAML file")

	// Query engine tuning
	flagSet.DurationVar(&cfg.LockLease, "lock-lease", 0, "Scan lock lease")
	flagSet.DurationVar(&cfg.LockWait, "lock-wait", 0, "Maximum wait for a scan lock")
	flagSet.IntVar(&cfg.TrendHours, "trend-hours", 0, "Trend histogram window in hours")
	flagSet.IntVar(&cfg.MaxQueryLen, "max-query-len", 0, "Maximum filter query length")

	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	var err error
	if cfg.Port, err = intFromEnv(cfg.Port, "PORT", DefaultPort); err != nil {
		return Config{}, err
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = os.Getenv("CATALOG_PATH")
	}

	if cfg.LockLease, err = durationFromEnv(cfg.LockLease, "LOCK_LEASE", DefaultLockLease); err != nil {
		return Config{}, err
	}
	if cfg.LockWait, err = durationFromEnv(cfg.LockWait, "LOCK_WAIT", DefaultLockWait); err != nil {
		return Config{}, err
	}
	if cfg.TrendHours, err = intFromEnv(cfg.TrendHours, "TREND_HOURS", DefaultTrendHours); err != nil {
		return Config{}, err
	}
	if cfg.MaxQueryLen, err = intFromEnv(cfg.MaxQueryLen, "MAX_QUERY_LEN", DefaultMaxQueryLen); err != nil {
		return Config{}, err
	}

	if cfg.LockLease < 3*time.Millisecond {
		return Config{}, errors.New("lock lease too short")
	}
	if cfg.TrendHours <= 0 || cfg.MaxQueryLen <= 0 {
		return Config{}, errors.New("trend hours and max query length must be positive")
	}

	return cfg, nil
}

func intFromEnv(v int, key string, def int) (int, error) {
	if v != 0 {
		return v, nil
	}
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func durationFromEnv(v time.Duration, key string, def time.Duration) (time.Duration, error) {
	if v != 0 {
		return v, nil
	}
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
