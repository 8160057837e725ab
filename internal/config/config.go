package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Gateway      GatewayConfig
	Directory    DirectoryConfig
	Bot          BotConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// GatewayConfig controls the websocket chat gateway.
type GatewayConfig struct {
	Host              string
	Port              string
	WriteTimeoutSec   int
	AllowedOrigins    []string
	OutboundQueueSize int
}

// DirectoryConfig lists the static identity tiers.
type DirectoryConfig struct {
	PrimaryAdmins   []string
	SecondaryAdmins []string
	SuperAdmin      string
	AdminNames      map[string]string
	File            string
}

// BotConfig tunes the conversational front end.
type BotConfig struct {
	Categories          []string
	DeliveryConcurrency int
}

// PostgresConfig holds DB connection values for the audit log.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// ApplicationName is reported to the server for each connection.
	ApplicationName string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Service string
}

// AuthConfig defines identity token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	IssuerSecretHash      string
}

// NotificationConfig controls where ticket events are published.
type NotificationConfig struct {
	RedisChannel string
}

// DefaultCategories mirrors the sections offered to users when none are configured.
var DefaultCategories = []string{"Forex", "Crypto", "Gold/FX", "Options", "Education"}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	names, err := parseNames(os.Getenv("ADMIN_NAMES"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_NAMES: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-relay"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Gateway: GatewayConfig{
			Host:              getEnv("GATEWAY_HOST", "0.0.0.0"),
			Port:              getEnv("GATEWAY_PORT", "8081"),
			WriteTimeoutSec:   getEnvAsInt("GATEWAY_WRITE_TIMEOUT_SECONDS", 10),
			AllowedOrigins:    getEnvAsList("GATEWAY_ALLOWED_ORIGINS", nil),
			OutboundQueueSize: getEnvAsInt("GATEWAY_OUTBOUND_QUEUE", 64),
		},
		Directory: DirectoryConfig{
			PrimaryAdmins:   getEnvAsList("PRIMARY_ADMINS", nil),
			SecondaryAdmins: getEnvAsList("SECONDARY_ADMINS", nil),
			SuperAdmin:      strings.TrimSpace(os.Getenv("SUPER_ADMIN")),
			AdminNames:      names,
			File:            os.Getenv("DIRECTORY_FILE"),
		},
		Bot: BotConfig{
			Categories:          getEnvAsList("CATEGORIES", DefaultCategories),
			DeliveryConcurrency: getEnvAsInt("DELIVERY_CONCURRENCY", 8),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ApplicationName: getEnv("APP_NAME", "support-relay"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Service: getEnv("APP_NAME", "support-relay"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			IssuerSecretHash:      os.Getenv("AUTH_ISSUER_SECRET_HASH"),
		},
		Notification: NotificationConfig{
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", "support-relay.tickets"),
		},
	}

	if cfg.Directory.File != "" {
		if err := cfg.Directory.MergeFile(cfg.Directory.File); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Addr returns the websocket gateway bind address.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%s", g.Host, g.Port)
}

// WriteTimeout returns the per-frame write deadline.
func (g GatewayConfig) WriteTimeout() time.Duration {
	if g.WriteTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(g.WriteTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	items := splitList(os.Getenv(key))
	if len(items) == 0 {
		return fallback
	}
	return items
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// parseNames reads "id=name,id=name" pairs.
func parseNames(raw string) (map[string]string, error) {
	names := make(map[string]string)
	for _, pair := range splitList(raw) {
		id, name, ok := strings.Cut(pair, "=")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		names[id] = name
	}
	return names, nil
}
