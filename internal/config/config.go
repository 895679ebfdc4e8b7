// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSource          string        `mapstructure:"DB_SOURCE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Auth
	JWTSecretKey                string        `mapstructure:"JWT_SECRET_KEY"`
	JWTAccessTokenExpiryMinutes time.Duration `mapstructure:"JWT_ACCESS_TOKEN_EXPIRY_MINUTES"`
	AuthRateLimitPerMinute      int           `mapstructure:"AUTH_RATE_LIMIT_PER_MINUTE"`
	AuthRateLimitBurst          int           `mapstructure:"AUTH_RATE_LIMIT_BURST"`

	// Marketplace
	OfferLifespan          time.Duration `mapstructure:"OFFER_LIFESPAN_HOURS"`
	OfferExpiryJobSchedule string        `mapstructure:"OFFER_EXPIRY_JOB_SCHEDULE"`

	// Uploads
	UploadStoragePath string `mapstructure:"UPLOAD_STORAGE_PATH"`
	UploadPublicURL   string `mapstructure:"UPLOAD_PUBLIC_URL"`

	// Websocket
	WSAllowedOrigins []string `mapstructure:"WS_ALLOWED_ORIGINS"`

	// Firebase Configuration (optional, push notifications)
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`

	// Elasticsearch Configuration (optional, catalog mirror)
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "arc_community_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SOURCE", "arc_community.db")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60*24)
	v.SetDefault("AUTH_RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 5)

	v.SetDefault("OFFER_LIFESPAN_HOURS", 72)
	v.SetDefault("OFFER_EXPIRY_JOB_SCHEDULE", "@every 15m")

	v.SetDefault("UPLOAD_STORAGE_PATH", "./uploads")
	v.SetDefault("UPLOAD_PUBLIC_URL", "/uploads")

	v.SetDefault("WS_ALLOWED_ORIGINS", "*")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("ELASTICSEARCH_URL", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.JWTAccessTokenExpiryMinutes = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES")) * time.Minute
	cfg.OfferLifespan = time.Duration(v.GetInt("OFFER_LIFESPAN_HOURS")) * time.Hour
	cfg.WSAllowedOrigins = splitList(v.GetString("WS_ALLOWED_ORIGINS"))

	if cfg.DBDriver == "postgres" {
		cfg.DBSource = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimezone)
	}

	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return nil, fmt.Errorf("FATAL: JWT_SECRET_KEY is not set")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("FATAL: DB_DRIVER must be 'postgres' or 'sqlite', got %q", cfg.DBDriver)
	}
	if cfg.FirebaseServiceAccountKeyPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", cfg.FirebaseServiceAccountKeyPath)
		}
	}

	return &cfg, nil
}

// ClientConfig configures the hub client (hubctl).
type ClientConfig struct {
	APIURL               string        `mapstructure:"API_URL"`
	SocketURL            string        `mapstructure:"SOCKET_URL"`
	SessionFile          string        `mapstructure:"SESSION_FILE"`
	ChatPollInterval     time.Duration `mapstructure:"CHAT_POLL_INTERVAL_MS"`
	BadgeRefreshInterval time.Duration `mapstructure:"BADGE_REFRESH_INTERVAL_SECONDS"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	LogFormat            string        `mapstructure:"LOG_FORMAT"`
	GinMode              string        `mapstructure:"GIN_MODE"`
}

// LoadClient reads the client configuration. API_URL has no default: the
// backend address must always be configured explicitly.
func LoadClient() (*ClientConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("API_URL", "")
	v.SetDefault("SOCKET_URL", "")
	v.SetDefault("SESSION_FILE", defaultSessionFile())
	v.SetDefault("CHAT_POLL_INTERVAL_MS", 2000)
	v.SetDefault("BADGE_REFRESH_INTERVAL_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("GIN_MODE", "release")
	v.AutomaticEnv()

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling client configuration: %w", err)
	}
	cfg.ChatPollInterval = time.Duration(v.GetInt("CHAT_POLL_INTERVAL_MS")) * time.Millisecond
	cfg.BadgeRefreshInterval = time.Duration(v.GetInt("BADGE_REFRESH_INTERVAL_SECONDS")) * time.Second

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("API_URL is not set; the backend address must be configured explicitly")
	}
	if cfg.SocketURL == "" {
		cfg.SocketURL = SocketURLFromAPI(cfg.APIURL)
	}
	return &cfg, nil
}

// SocketURLFromAPI derives the websocket endpoint from the REST base URL.
func SocketURLFromAPI(apiURL string) string {
	u := strings.TrimRight(apiURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/ws"
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("error loading .env file: %w", err)
		}
	}
	return nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hubctl-session.json"
	}
	return home + string(os.PathSeparator) + ".hubctl-session.json"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
