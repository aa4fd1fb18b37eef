// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Messaging brokers.
const (
	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Store     StoreConfig
	Search    SearchConfig
	Messaging MessagingConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// DataPath is the base directory for embedded stores and the search index.
	DataPath string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins for the admin, seller and storefront apps
}

// StoreConfig selects and configures the category record store.
type StoreConfig struct {
	Driver string // sqlite, postgres or badger
	// Path is the sqlite file or badger directory (default: under DataPath).
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
	// PostgresDriver is the database/sql driver used for PostgreSQL: pgx or pq.
	PostgresDriver string
}

// SearchConfig holds the storefront search index configuration.
type SearchConfig struct {
	// Path is the bleve index directory. Empty disables the index.
	Path string
}

// MessagingConfig selects the pub/sub backend for messages and presence.
type MessagingConfig struct {
	Broker        string // memory or redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// CatalogConfig controls how the category tree is populated.
type CatalogConfig struct {
	TaxonomyFile  string // Optional YAML taxonomy applied at startup
	WatchTaxonomy bool   // Re-apply TaxonomyFile when it changes
	SeedDefaults  bool   // Load the built-in taxonomy into an empty store
}

// RateLimitConfig holds limits for mutating endpoints.
type RateLimitConfig struct {
	MutationsPerMinute int
	Burst              int
}

// Flags holds raw command-line values. Empty strings mean "not set", so
// environment variables and defaults can fill them in.
type Flags struct {
	EnvFile            string
	Env                string
	LogLevel           string
	DataPath           string
	Port               string
	ReadTimeout        string
	WriteTimeout       string
	IdleTimeout        string
	AllowedOrigins     string
	StoreDriver        string
	StorePath          string
	StoreDSN           string
	PostgresDriver     string
	SearchPath         string
	Broker             string
	RedisAddr          string
	TaxonomyFile       string
	WatchTaxonomy      string
	SeedDefaults       string
	MutationsPerMinute string
}

// Register binds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")
	fs.StringVar(&f.Env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.DataPath, "data-path", "", "Base path for embedded data (default: ~/.tradepost)")
	fs.StringVar(&f.Port, "port", "", "Server port (default: 8080)")
	fs.StringVar(&f.ReadTimeout, "read-timeout", "", "HTTP read timeout (default: 15s)")
	fs.StringVar(&f.WriteTimeout, "write-timeout", "", "HTTP write timeout (default: 15s)")
	fs.StringVar(&f.IdleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 60s)")
	fs.StringVar(&f.AllowedOrigins, "allowed-origins", "", "Comma-separated CORS origins")
	fs.StringVar(&f.StoreDriver, "store-driver", "", "Category store (sqlite, postgres, badger)")
	fs.StringVar(&f.StorePath, "store-path", "", "sqlite file or badger directory")
	fs.StringVar(&f.StoreDSN, "database-url", "", "PostgreSQL connection string")
	fs.StringVar(&f.PostgresDriver, "postgres-driver", "", "PostgreSQL driver (pgx, pq)")
	fs.StringVar(&f.SearchPath, "search-path", "", "Search index directory")
	fs.StringVar(&f.Broker, "broker", "", "Messaging broker (memory, redis)")
	fs.StringVar(&f.RedisAddr, "redis-addr", "", "Redis address for the redis broker")
	fs.StringVar(&f.TaxonomyFile, "taxonomy", "", "YAML taxonomy file applied at startup")
	fs.StringVar(&f.WatchTaxonomy, "watch-taxonomy", "", "Re-apply the taxonomy file on change")
	fs.StringVar(&f.SeedDefaults, "seed-defaults", "", "Seed the default taxonomy into an empty store")
	fs.StringVar(&f.MutationsPerMinute, "mutations-per-minute", "", "Rate limit for mutating requests per client")
}

// LoadConfig loads configuration from the process command line.
func LoadConfig() (*Config, error) {
	var f Flags
	f.Register(flag.CommandLine)
	flag.Parse()
	return Load(f)
}

// Load builds configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(f Flags) (*Config, error) {
	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(f.EnvFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(f.Env, "ENV", "development"),
			DataPath:    getConfigValue(f.DataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(f.LogLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(f.Port, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(f.AllowedOrigins, "ALLOWED_ORIGINS", "*")),
		},
		Store: StoreConfig{
			Driver:         getConfigValue(f.StoreDriver, "STORE_DRIVER", DriverSQLite),
			Path:           getConfigValue(f.StorePath, "STORE_PATH", ""),
			DSN:            getConfigValue(f.StoreDSN, "DATABASE_URL", ""),
			PostgresDriver: getConfigValue(f.PostgresDriver, "POSTGRES_DRIVER", "pgx"),
		},
		Search: SearchConfig{
			Path: getConfigValue(f.SearchPath, "SEARCH_PATH", ""),
		},
		Messaging: MessagingConfig{
			Broker:        getConfigValue(f.Broker, "MESSAGING_BROKER", BrokerMemory),
			RedisAddr:     getConfigValue(f.RedisAddr, "REDIS_ADDR", "localhost:6379"),
			RedisPassword: getConfigValue("", "REDIS_PASSWORD", ""),
			RedisDB:       getIntConfigValue("", "REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			TaxonomyFile:  getConfigValue(f.TaxonomyFile, "TAXONOMY_FILE", ""),
			WatchTaxonomy: getBoolConfigValue(f.WatchTaxonomy, "WATCH_TAXONOMY", false),
			SeedDefaults:  getBoolConfigValue(f.SeedDefaults, "SEED_DEFAULTS", true),
		},
		RateLimit: RateLimitConfig{
			MutationsPerMinute: getIntConfigValue(f.MutationsPerMinute, "MUTATIONS_PER_MINUTE", 120),
			Burst:              getIntConfigValue("", "MUTATIONS_BURST", 20),
		},
	}

	timeouts := []struct {
		flag, env, def string
		dst            *time.Duration
	}{
		{f.ReadTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{f.WriteTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{f.IdleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
	}
	for _, to := range timeouts {
		raw := getConfigValue(to.flag, to.env, to.def)
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(to.env), raw, err)
		}
		*to.dst = d
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}
	if !slices.Contains([]string{"development", "staging", "production"}, c.App.Environment) {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the %s driver", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
		if c.Store.PostgresDriver != "pgx" && c.Store.PostgresDriver != "pq" {
			return fmt.Errorf("invalid postgres driver: %s (must be pgx or pq)", c.Store.PostgresDriver)
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be sqlite, postgres, or badger)", c.Store.Driver)
	}

	switch c.Messaging.Broker {
	case BrokerMemory:
	case BrokerRedis:
		if c.Messaging.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis broker")
		}
	default:
		return fmt.Errorf("invalid messaging broker: %s (must be memory or redis)", c.Messaging.Broker)
	}

	if c.RateLimit.MutationsPerMinute <= 0 {
		return fmt.Errorf("mutations per minute must be positive, got %d", c.RateLimit.MutationsPerMinute)
	}

	return nil
}

// expandPaths resolves DataPath and derives store and search paths from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	c.App.DataPath, err = expandPath(c.App.DataPath, filepath.Join(homeDir, ".tradepost"))
	if err != nil {
		return err
	}

	var defaultStore string
	switch c.Store.Driver {
	case DriverSQLite:
		defaultStore = filepath.Join(c.App.DataPath, "catalog.db")
	case DriverBadger:
		defaultStore = filepath.Join(c.App.DataPath, "badger")
	}
	if c.Store.Path, err = expandPath(c.Store.Path, defaultStore); err != nil {
		return err
	}

	if c.Search.Path, err = expandPath(c.Search.Path, filepath.Join(c.App.DataPath, "search")); err != nil {
		return err
	}

	if c.Catalog.TaxonomyFile != "" {
		if c.Catalog.TaxonomyFile, err = expandPath(c.Catalog.TaxonomyFile, ""); err != nil {
			return err
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
