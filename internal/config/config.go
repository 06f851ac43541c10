package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server          ServerConfig              `json:"server"`
	Database        DatabaseConfig            `json:"database"`
	Storage         StorageConfig             `json:"storage"`
	Search          SearchConfig              `json:"search"`
	Auth            AuthConfig                `json:"auth"`
	Orchestrator    OrchestratorConfig        `json:"orchestrator"`
	Providers       map[string]ProviderConfig `json:"providers"`
	DefaultSelector string                    `json:"default_selector"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	SSLMode         string        `json:"sslmode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

type StorageConfig struct {
	Backend       string `json:"backend"` // "s3" or "local"
	Bucket        string `json:"bucket"`
	Region        string `json:"region"`
	Endpoint      string `json:"endpoint,omitempty"`
	AccessKeyID   string `json:"access_key_id,omitempty"`
	SecretKey     string `json:"secret_key,omitempty"`
	UsePathStyle  bool   `json:"use_path_style"`
	PublicBaseURL string `json:"public_base_url"`
	LocalDir      string `json:"local_dir"`
}

type SearchConfig struct {
	SerperAPIKey string `json:"serper_api_key,omitempty"`
}

type AuthConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// OrchestratorConfig holds the tunables of the manager loop. They live in
// config rather than constants so retry policy and history bounds can be
// adjusted per deployment.
type OrchestratorConfig struct {
	HistoryThreshold int           `json:"history_threshold"` // trim when transcript exceeds this many turns
	TrimBlock        int           `json:"trim_block"`        // how many of the oldest turns get summarized
	KeepRecent       int           `json:"keep_recent"`       // most recent turns always kept verbatim
	ToolRetryCap     int           `json:"tool_retry_cap"`    // corrective re-prompts per tool call
	MaxToolRounds    int           `json:"max_tool_rounds"`   // hard cap on model/tool iterations per run
	RetryAttempts    int           `json:"retry_attempts"`    // resilient operation wrapper attempts
	RetryBackoff     time.Duration `json:"retry_backoff"`     // linear backoff base per attempt
}

type ProviderConfig struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	BaseURL    string   `json:"base_url,omitempty"`
	APIKey     string   `json:"api_key,omitempty"`
	Models     []string `json:"models"`
	ImageModel string   `json:"image_model,omitempty"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".memegen"))
	}

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "memegen")
	viper.SetDefault("database.database", "memegen")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("storage.backend", "local")
	viper.SetDefault("storage.local_dir", "./memes")
	viper.SetDefault("storage.public_base_url", "http://localhost:8080/static")
	viper.SetDefault("auth.token_ttl", 24*time.Hour)
	viper.SetDefault("orchestrator.history_threshold", 15)
	viper.SetDefault("orchestrator.trim_block", 10)
	viper.SetDefault("orchestrator.keep_recent", 5)
	viper.SetDefault("orchestrator.tool_retry_cap", 2)
	viper.SetDefault("orchestrator.max_tool_rounds", 12)
	viper.SetDefault("orchestrator.retry_attempts", 3)
	viper.SetDefault("orchestrator.retry_backoff", 500*time.Millisecond)
	viper.SetDefault("default_selector", "openai:gpt-4.1")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := createDefaultConfig()
			loadEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func createDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "memegen",
			Password:        "",
			Database:        "memegen",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:       "local",
			LocalDir:      "./memes",
			PublicBaseURL: "http://localhost:8080/static",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Orchestrator: OrchestratorConfig{
			HistoryThreshold: 15,
			TrimBlock:        10,
			KeepRecent:       5,
			ToolRetryCap:     2,
			MaxToolRounds:    12,
			RetryAttempts:    3,
			RetryBackoff:     500 * time.Millisecond,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Type:       "openai",
				Name:       "OpenAI",
				Models:     []string{"gpt-4.1", "gpt-4o"},
				ImageModel: "gpt-4.1-mini",
			},
		},
		DefaultSelector: "openai:gpt-4.1",
	}
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("MEMEGEN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("MEMEGEN_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	if secret := os.Getenv("MEMEGEN_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if p, ok := cfg.Providers["openai"]; ok {
			p.APIKey = key
			cfg.Providers["openai"] = p
		}
	}
	if key := os.Getenv("SERPER_API_KEY"); key != "" {
		cfg.Search.SerperAPIKey = key
	}
	if bucket := os.Getenv("MEMEGEN_S3_BUCKET"); bucket != "" {
		cfg.Storage.Backend = "s3"
		cfg.Storage.Bucket = bucket
	}
	if key := os.Getenv("MEMEGEN_S3_ACCESS_KEY_ID"); key != "" {
		cfg.Storage.AccessKeyID = key
	}
	if key := os.Getenv("MEMEGEN_S3_SECRET_KEY"); key != "" {
		cfg.Storage.SecretKey = key
	}
}
