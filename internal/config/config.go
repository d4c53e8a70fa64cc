package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported persistence drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

const minJWTSecretLen = 32

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string
	JWTSecret          string
	JWTTTLSecs         int
	BcryptCost         int
	AdminToken         string
	DBDriver           string
	DBURL              string
	MongoURI           string
	MongoDatabase      string
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	DBMaxConns         int
	DBMinConns         int
	DBMaxIdleSecs      int
	DBMaxLifeSecs      int
	DBConnTimeoutSecs  int
	DBStatementCache   int
	RateLimitRequests  int
	RateLimitWindowSec int
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
}

// LoadDotEnv populates the process environment from a .env file. Values
// already present in the environment win; a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := fromEnv()

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLen {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen)
	}
	if cfg.JWTTTLSecs <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL_SECS must be positive")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if err := validateDatabase(cfg); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRequests < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be non-negative")
	}
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindowSec <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW_SECS must be positive")
	}

	return cfg, nil
}

// LoadDatabase reads the same environment as Load but only validates the
// persistence settings. Offline tools use it.
func LoadDatabase() (Config, error) {
	cfg := fromEnv()
	if err := validateDatabase(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateDatabase(cfg Config) error {
	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBURL == "" {
			return fmt.Errorf("DB_URL is required")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
		if cfg.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE must not be empty")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q", DriverPostgres, DriverMongo)
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

func fromEnv() Config {
	return Config{
		Port:               getEnv("PORT", "3000"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTTTLSecs:         getEnvInt("JWT_TTL_SECS", 3600),
		BcryptCost:         getEnvInt("BCRYPT_COST", 10),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DBURL:              os.Getenv("DB_URL"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "lms-system"),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:   getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		RateLimitRequests:  getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SECS", 60),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
