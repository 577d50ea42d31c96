package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Retrieval scopes
const (
	ScopeOwner  = "owner"
	ScopeGlobal = "global"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	OpenAI        OpenAIConfig
	Upload        UploadConfig
	Retrieval     RetrievalConfig
	Chat          ChatConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds access-token validation settings. Tokens are HS256 JWTs
// signed with the identity provider's shared secret.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	APIKey              string
	Organization        string
	BaseURL             string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	Temperature         float64
	Timeout             time.Duration
}

// UploadConfig bounds document uploads
type UploadConfig struct {
	MaxFileSize      int64
	AllowedFileTypes []string
}

// IsAllowedType reports whether a MIME type is in the allow-list
func (u UploadConfig) IsAllowedType(mimeType string) bool {
	for _, t := range u.AllowedFileTypes {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

// RetrievalConfig holds similarity-search parameters for chat and search
type RetrievalConfig struct {
	ChatMatchThreshold   float64
	ChatMatchCount       int
	SearchMatchThreshold float64
	SearchDefaultLimit   int
	Scope                string // owner or global
}

// IsGlobal returns true when retrieval searches every user's documents
func (r RetrievalConfig) IsGlobal() bool {
	return r.Scope == ScopeGlobal
}

// ChatConfig holds chat turn limits
type ChatConfig struct {
	StreamTimeout      time.Duration
	PersistTimeout     time.Duration
	RateLimitPerMinute int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
			Audience:  getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			Organization:        getEnv("OPENAI_ORGANIZATION", ""),
			BaseURL:             getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			Temperature:         getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
			Timeout:             getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
		},
		Upload: UploadConfig{
			MaxFileSize:      getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			AllowedFileTypes: getEnvAsList("ALLOWED_FILE_TYPES", []string{"application/pdf", "text/plain"}),
		},
		Retrieval: RetrievalConfig{
			ChatMatchThreshold:   getEnvAsFloat("CHAT_MATCH_THRESHOLD", 0.5),
			ChatMatchCount:       getEnvAsInt("CHAT_MATCH_COUNT", 3),
			SearchMatchThreshold: getEnvAsFloat("SEARCH_MATCH_THRESHOLD", 0.5),
			SearchDefaultLimit:   getEnvAsInt("SEARCH_DEFAULT_LIMIT", 5),
			Scope:                strings.ToLower(getEnv("RETRIEVAL_SCOPE", ScopeOwner)),
		},
		Chat: ChatConfig{
			StreamTimeout:      getEnvAsDuration("CHAT_STREAM_TIMEOUT", 5*time.Minute),
			PersistTimeout:     getEnvAsDuration("CHAT_PERSIST_TIMEOUT", 10*time.Second),
			RateLimitPerMinute: getEnvAsInt("CHAT_RATE_LIMIT_PER_MINUTE", 0),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required")
	}

	if c.IsProduction() && c.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required in production")
	}
	if c.OpenAI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if len(c.Upload.AllowedFileTypes) == 0 {
		return fmt.Errorf("at least one allowed file type is required")
	}

	if c.Retrieval.Scope != ScopeOwner && c.Retrieval.Scope != ScopeGlobal {
		return fmt.Errorf("retrieval scope must be %q or %q, got %q", ScopeOwner, ScopeGlobal, c.Retrieval.Scope)
	}
	if c.Retrieval.ChatMatchCount <= 0 || c.Retrieval.SearchDefaultLimit <= 0 {
		return fmt.Errorf("match counts must be positive")
	}
	for name, threshold := range map[string]float64{
		"CHAT_MATCH_THRESHOLD":   c.Retrieval.ChatMatchThreshold,
		"SEARCH_MATCH_THRESHOLD": c.Retrieval.SearchMatchThreshold,
	} {
		if threshold < -1 || threshold >= 1 {
			return fmt.Errorf("%s must be in [-1, 1), got %v", name, threshold)
		}
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("OpenAI temperature must be between 0 and 2, got %v", c.OpenAI.Temperature)
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}

	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "postgres")
	pool.Password = getEnv("DB_PASSWORD", "")
	pool.Database = getEnv("DB_NAME", "sop_assistant")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
