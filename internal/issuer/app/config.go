package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/service"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Signing key modes.
const (
	KeyModeEphemeral = "ephemeral"
	KeyModeFile      = "file"
)

type Config struct {
	PublicURL string // Optional: credential issuer identifier, derived from requests when empty
	Store     string // Optional: memory, sqlite or redis (default: sqlite)

	DatabaseFile string // Optional: path to the SQLite database file (default: ./issuer.db)
	RedisURL     string // Optional: redis connection URL (default: redis://localhost:6379/0)
	RedisPrefix  string // Optional: key prefix for the redis store (default: vcissuer)

	CodeTTL            time.Duration // Optional: pre-authorized code lifetime (default: 5m)
	TokenTTL           time.Duration // Optional: access token lifetime (default: 5m)
	CredentialValidity time.Duration // Optional: mdoc validity window (default: 365 days)
	TxCodeLength       int           // Optional: numeric transaction code length, 0 disables (default: 6)
	TxCodeDescription  string        // Optional: shown by wallets next to the tx code prompt

	KeyMode       string // Optional: ephemeral or file (default: ephemeral)
	KeyFile       string // Required in file mode: PEM private key
	CertFile      string // Optional in file mode: PEM certificate, self-signed when empty
	KeyEncrypted  bool   // Optional: KeyFile is sealed with the master key
	MasterKeyPath string // Optional: path to the master key (falls back to ISSUER_MASTER_KEY)
	PepperFile    string // Optional: path to the tx code hashing pepper (default: ./pepper); must be shared by every instance on one redis store

	ClaimsFile string // Optional: YAML file with credential claims
	AdminToken string // Optional: bearer token guarding the offer endpoints

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1m)
}

func LoadConfig() Config {
	cfg := Config{
		PublicURL: strings.TrimRight(os.Getenv("ISSUER_PUBLIC_URL"), "/"),
		Store:     strings.ToLower(getEnvOrDefault("ISSUER_STORE", StoreSQLite)),

		DatabaseFile: getEnvOrDefault("ISSUER_DATABASE_FILE", "issuer.db"),
		RedisURL:     getEnvOrDefault("ISSUER_REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix:  getEnvOrDefault("ISSUER_REDIS_PREFIX", "vcissuer"),

		CodeTTL:            getEnvDurationOrDefault("ISSUER_CODE_TTL", service.DefaultCodeTTL),
		TokenTTL:           getEnvDurationOrDefault("ISSUER_TOKEN_TTL", service.DefaultTokenTTL),
		CredentialValidity: getEnvDurationOrDefault("ISSUER_CREDENTIAL_VALIDITY", service.DefaultCredentialValidity),
		TxCodeLength:       getEnvIntOrDefault("ISSUER_TX_CODE_LENGTH", 6),
		TxCodeDescription:  getEnvOrDefault("ISSUER_TX_CODE_DESCRIPTION", "Enter the code shown by the issuer"),

		KeyMode:       strings.ToLower(getEnvOrDefault("ISSUER_KEY_MODE", KeyModeEphemeral)),
		KeyFile:       os.Getenv("ISSUER_KEY_FILE"),
		CertFile:      os.Getenv("ISSUER_CERT_FILE"),
		KeyEncrypted:  getEnvBoolOrDefault("ISSUER_KEY_ENCRYPTED", false),
		MasterKeyPath: os.Getenv("ISSUER_MASTER_KEY_PATH"),
		PepperFile:    getEnvOrDefault("ISSUER_PEPPER_FILE", "pepper"),

		ClaimsFile: os.Getenv("ISSUER_CLAIMS_FILE"),
		AdminToken: os.Getenv("ISSUER_ADMIN_TOKEN"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Minute),
	}

	if cfg.TxCodeLength < 0 {
		cfg.TxCodeLength = 0
	}

	return cfg
}

// IsDev reports whether the issuer runs in a development environment.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, "dev") || strings.EqualFold(c.Env, "development")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
