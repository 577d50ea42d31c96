package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT":     "development",
				"AUTH_JWT_SECRET": "secret",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "sop_assistant", cfg.Database.Database)
				assert.Equal(t, "authenticated", cfg.Auth.Audience)

				assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.ChatModel)
				assert.Equal(t, "text-embedding-ada-002", cfg.OpenAI.EmbeddingModel)
				assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimensions)
				assert.Equal(t, 0.7, cfg.OpenAI.Temperature)

				assert.Equal(t, int64(10485760), cfg.Upload.MaxFileSize)
				assert.Equal(t, []string{"application/pdf", "text/plain"}, cfg.Upload.AllowedFileTypes)

				assert.Equal(t, 0.5, cfg.Retrieval.ChatMatchThreshold)
				assert.Equal(t, 3, cfg.Retrieval.ChatMatchCount)
				assert.Equal(t, 0.5, cfg.Retrieval.SearchMatchThreshold)
				assert.Equal(t, 5, cfg.Retrieval.SearchDefaultLimit)
				assert.Equal(t, ScopeOwner, cfg.Retrieval.Scope)
				assert.False(t, cfg.Retrieval.IsGlobal())

				assert.Equal(t, 5*time.Minute, cfg.Chat.StreamTimeout)
				assert.Equal(t, 10*time.Second, cfg.Chat.PersistTimeout)
				assert.Equal(t, 0, cfg.Chat.RateLimitPerMinute)
			},
		},
		{
			name: "upload and retrieval overrides",
			envVars: map[string]string{
				"AUTH_JWT_SECRET":    "secret",
				"MAX_FILE_SIZE":      "2048",
				"ALLOWED_FILE_TYPES": "text/plain, text/markdown ,",
				"RETRIEVAL_SCOPE":    "GLOBAL",
				"CHAT_MATCH_COUNT":   "5",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, int64(2048), cfg.Upload.MaxFileSize)
				assert.Equal(t, []string{"text/plain", "text/markdown"}, cfg.Upload.AllowedFileTypes)
				assert.True(t, cfg.Retrieval.IsGlobal())
				assert.Equal(t, 5, cfg.Retrieval.ChatMatchCount)
			},
		},
		{
			name: "zero temperature and thresholds are kept",
			envVars: map[string]string{
				"AUTH_JWT_SECRET":        "secret",
				"OPENAI_TEMPERATURE":     "0",
				"CHAT_MATCH_THRESHOLD":   "0",
				"SEARCH_MATCH_THRESHOLD": "0",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.0, cfg.OpenAI.Temperature)
				assert.Equal(t, 0.0, cfg.Retrieval.ChatMatchThreshold)
				assert.Equal(t, 0.0, cfg.Retrieval.SearchMatchThreshold)
			},
		},
		{
			name: "DATABASE_URL takes precedence",
			envVars: map[string]string{
				"AUTH_JWT_SECRET": "secret",
				"DATABASE_URL":    "postgres://u:p@db.internal:6543/sop?sslmode=require",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db.internal:6543/sop?sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "host=db.internal port=6543 database=sop", cfg.Database.LogString())
				assert.Equal(t, 25, cfg.Database.MaxOpenConns)
			},
		},
		{
			name: "custom timeouts and pool settings",
			envVars: map[string]string{
				"AUTH_JWT_SECRET":     "secret",
				"SERVER_READ_TIMEOUT": "60s",
				"CHAT_STREAM_TIMEOUT": "2m",
				"DB_MAX_OPEN_CONNS":   "50",
				"DB_MAX_IDLE_CONNS":   "10",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 2*time.Minute, cfg.Chat.StreamTimeout)
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.Equal(t, 10, cfg.Database.MaxIdleConns)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"AUTH_JWT_SECRET": "secret",
				"PORT":            "9443",
				"SERVER_PORT":     "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "production with OpenAI key",
			envVars: map[string]string{
				"ENVIRONMENT":     "production",
				"AUTH_JWT_SECRET": "secret",
				"OPENAI_API_KEY":  "sk-xxxxx",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.Equal(t, "sk-xxxxx", cfg.OpenAI.APIKey)
			},
		},
		{
			name: "production without OpenAI key",
			envVars: map[string]string{
				"ENVIRONMENT":     "production",
				"AUTH_JWT_SECRET": "secret",
			},
			wantErr: true,
		},
		{
			name:    "missing JWT secret",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "invalid retrieval scope",
			envVars: map[string]string{
				"AUTH_JWT_SECRET": "secret",
				"RETRIEVAL_SCOPE": "tenant",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Auth:   AuthConfig{JWTSecret: "secret"},
		OpenAI: OpenAIConfig{EmbeddingDimensions: 1536},
		Upload: UploadConfig{
			MaxFileSize:      1024,
			AllowedFileTypes: []string{"text/plain"},
		},
		Retrieval: RetrievalConfig{
			ChatMatchCount:     3,
			SearchDefaultLimit: 5,
			Scope:              ScopeOwner,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid development config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: true,
			errMsg:  "JWT secret",
		},
		{
			name:    "non-positive max file size",
			mutate:  func(c *Config) { c.Upload.MaxFileSize = 0 },
			wantErr: true,
			errMsg:  "max file size",
		},
		{
			name:    "empty allow-list",
			mutate:  func(c *Config) { c.Upload.AllowedFileTypes = nil },
			wantErr: true,
			errMsg:  "allowed file type",
		},
		{
			name:    "zero embedding dimensions",
			mutate:  func(c *Config) { c.OpenAI.EmbeddingDimensions = 0 },
			wantErr: true,
			errMsg:  "embedding dimensions",
		},
		{
			name:   "zero thresholds and temperature",
			mutate: func(c *Config) { c.Retrieval.ChatMatchThreshold, c.Retrieval.SearchMatchThreshold, c.OpenAI.Temperature = 0, 0, 0 },
		},
		{
			name:    "threshold that no match can exceed",
			mutate:  func(c *Config) { c.Retrieval.ChatMatchThreshold = 1 },
			wantErr: true,
			errMsg:  "CHAT_MATCH_THRESHOLD",
		},
		{
			name:    "negative search threshold below range",
			mutate:  func(c *Config) { c.Retrieval.SearchMatchThreshold = -1.5 },
			wantErr: true,
			errMsg:  "SEARCH_MATCH_THRESHOLD",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.OpenAI.Temperature = 2.5 },
			wantErr: true,
			errMsg:  "temperature",
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestUploadConfig_IsAllowedType(t *testing.T) {
	u := UploadConfig{AllowedFileTypes: []string{"application/pdf", "text/plain"}}

	assert.True(t, u.IsAllowedType("text/plain"))
	assert.True(t, u.IsAllowedType("Application/PDF"))
	assert.False(t, u.IsAllowedType("image/png"))
	assert.False(t, u.IsAllowedType(""))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"a"}, getEnvAsList("TEST_LIST", []string{"a"}))

	os.Setenv("TEST_LIST", " , ")
	assert.Equal(t, []string{"a"}, getEnvAsList("TEST_LIST", []string{"a"}))

	os.Setenv("TEST_LIST", "x, y")
	assert.Equal(t, []string{"x", "y"}, getEnvAsList("TEST_LIST", nil))
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}
