package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"

	IdentityFirebase = "firebase"
	IdentityLocal    = "local"
)

type Config struct {
	Server     ServerConfig
	TLS        TLSConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Firebase   FirebaseConfig
	Identity   IdentityConfig
	Plaid      PlaidConfig
	Dwolla     DwollaConfig
	Encryption EncryptionConfig
	Redis      RedisConfig
	Reconciler ReconcilerConfig
	RateLimit  RateLimitConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

// StoreConfig selects the document store backend and names its collections.
type StoreConfig struct {
	Backend                  string
	UserCollection           string
	BankCollection           string
	ReconciliationCollection string
	IdentityCollection       string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	WebAPIKey       string
}

type IdentityConfig struct {
	Provider   string
	SessionTTL time.Duration
	CookieName string
	JWTSecret  string
}

type PlaidConfig struct {
	ClientID     string
	Secret       string
	Env          string
	Products     []string
	CountryCodes []string
	Language     string
	Processor    string
}

type DwollaConfig struct {
	Key    string
	Secret string
	Env    string
}

type EncryptionConfig struct {
	Key string
}

type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	DashboardCacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type ReconcilerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
	MaxAttempts   int
}

type RateLimitConfig struct {
	LinkPerSecond float64
	LinkBurst     int
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	dashboardTTL, err := time.ParseDuration(getEnv("DASHBOARD_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_CACHE_TTL: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "120h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	// Parse reconciler configuration
	reconcilerWorkers, err := strconv.Atoi(getEnv("RECONCILER_WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILER_WORKERS: %w", err)
	}
	reconcilerJobDelay, err := time.ParseDuration(getEnv("RECONCILER_JOB_DELAY", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILER_JOB_DELAY: %w", err)
	}
	reconcilerQueueSize, err := strconv.Atoi(getEnv("RECONCILER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILER_QUEUE_SIZE: %w", err)
	}
	reconcilerMaxAttempts, err := strconv.Atoi(getEnv("RECONCILER_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILER_MAX_ATTEMPTS: %w", err)
	}

	linkRate, err := strconv.ParseFloat(getEnv("LINK_RATE_LIMIT", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LINK_RATE_LIMIT: %w", err)
	}
	linkBurst, err := strconv.Atoi(getEnv("LINK_RATE_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LINK_RATE_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: getListEnv("ALLOWED_HOSTS", ""),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Store: StoreConfig{
			Backend:                  strings.ToLower(getEnv("STORE_BACKEND", StoreFirestore)),
			UserCollection:           getEnv("USER_COLLECTION", "users"),
			BankCollection:           getEnv("BANK_COLLECTION", "banks"),
			ReconciliationCollection: getEnv("RECONCILIATION_COLLECTION", "link_reconciliations"),
			IdentityCollection:       getEnv("IDENTITY_COLLECTION", "identities"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "horizon"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "horizon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			WebAPIKey:       getEnv("FIREBASE_WEB_API_KEY", ""),
		},
		Identity: IdentityConfig{
			Provider:   strings.ToLower(getEnv("IDENTITY_PROVIDER", IdentityFirebase)),
			SessionTTL: sessionTTL,
			CookieName: getEnv("SESSION_COOKIE_NAME", "horizon-session"),
			JWTSecret:  getEnv("JWT_SECRET", ""),
		},
		Plaid: PlaidConfig{
			ClientID:     getEnv("PLAID_CLIENT_ID", ""),
			Secret:       getEnv("PLAID_SECRET", ""),
			Env:          getEnv("PLAID_ENV", "sandbox"),
			Products:     getListEnv("PLAID_PRODUCTS", "auth"),
			CountryCodes: getListEnv("PLAID_COUNTRY_CODES", "US"),
			Language:     getEnv("PLAID_LANGUAGE", "en"),
			Processor:    getEnv("PLAID_PROCESSOR", "dwolla"),
		},
		Dwolla: DwollaConfig{
			Key:    getEnv("DWOLLA_KEY", ""),
			Secret: getEnv("DWOLLA_SECRET", ""),
			Env:    getEnv("DWOLLA_ENV", "sandbox"),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", ""),
			Password:          getEnv("REDIS_PASSWORD", ""),
			DB:                redisDB,
			DashboardCacheTTL: dashboardTTL,
		},
		Reconciler: ReconcilerConfig{
			Enabled:       getBoolEnv("RECONCILER_ENABLED", true),
			ScheduleTimes: getListEnv("RECONCILER_TIMES", "03:00,15:00"),
			WorkerCount:   reconcilerWorkers,
			JobDelay:      reconcilerJobDelay,
			QueueSize:     reconcilerQueueSize,
			RunOnStartup:  getBoolEnv("RECONCILER_RUN_ON_STARTUP", false),
			MaxAttempts:   reconcilerMaxAttempts,
		},
		RateLimit: RateLimitConfig{
			LinkPerSecond: linkRate,
			LinkBurst:     linkBurst,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "horizon-api"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9464"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Encryption.Key == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(c.Encryption.Key) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	switch c.Store.Backend {
	case StoreFirestore, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Identity.Provider {
	case IdentityFirebase:
		if c.Firebase.WebAPIKey == "" {
			return fmt.Errorf("FIREBASE_WEB_API_KEY is required when IDENTITY_PROVIDER=firebase")
		}
	case IdentityLocal:
		if c.Identity.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when IDENTITY_PROVIDER=local")
		}
	default:
		return fmt.Errorf("unsupported IDENTITY_PROVIDER %q", c.Identity.Provider)
	}

	if c.Plaid.ClientID == "" || c.Plaid.Secret == "" {
		return fmt.Errorf("PLAID_CLIENT_ID and PLAID_SECRET are required")
	}
	if c.Dwolla.Key == "" || c.Dwolla.Secret == "" {
		return fmt.Errorf("DWOLLA_KEY and DWOLLA_SECRET are required")
	}
	if len(c.Plaid.Products) != 1 {
		return fmt.Errorf("PLAID_PRODUCTS must name exactly one product, got %d", len(c.Plaid.Products))
	}
	if len(c.Plaid.CountryCodes) != 1 {
		return fmt.Errorf("PLAID_COUNTRY_CODES must name exactly one country, got %d", len(c.Plaid.CountryCodes))
	}

	if c.Reconciler.MaxAttempts <= 0 {
		return fmt.Errorf("RECONCILER_MAX_ATTEMPTS must be positive")
	}

	// Validate TLS configuration
	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// getListEnv splits a comma-separated variable, dropping blank entries.
func getListEnv(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
