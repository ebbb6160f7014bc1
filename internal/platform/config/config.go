package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "TRANSLATOR_CONFIG_FILE"

type Config struct {
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Gateway  GatewayConfig  `yaml:"gateway" envPrefix:"GATEWAY_"`
	Pipeline PipelineConfig `yaml:"pipeline" envPrefix:"PIPELINE_"`
}

type AppConfig struct {
	Env      string `yaml:"env" env:"ENV"`
	Port     string `yaml:"port" env:"PORT"`
	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret" env:"JWT_SECRET"`
	JWTExpiry time.Duration `yaml:"jwtExpiry" env:"JWT_EXPIRY"`
	// OperatorPasswordHash is a bcrypt hash; an empty hash disables operator login.
	OperatorPasswordHash string `yaml:"operatorPasswordHash" env:"OPERATOR_PASSWORD_HASH"`
}

type DatabaseConfig struct {
	Host          string        `yaml:"host" env:"HOST"`
	Port          string        `yaml:"port" env:"PORT"`
	User          string        `yaml:"user" env:"USER"`
	Password      string        `yaml:"password" env:"PASSWORD"`
	Name          string        `yaml:"name" env:"NAME"`
	SSLMode       string        `yaml:"sslMode" env:"SSLMODE"`
	MigrationsDir string        `yaml:"migrationsDir" env:"MIGRATIONS_DIR"`
	MaxOpenConns  int           `yaml:"maxOpenConns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns  int           `yaml:"maxIdleConns" env:"MAX_IDLE_CONNS"`
	ConnMaxLife   time.Duration `yaml:"connMaxLifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN renders the key/value connection string understood by pgx.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	// Addr empty means the pipeline wakes workers through an in-process channel.
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	SignalKey string `yaml:"signalKey" env:"SIGNAL_KEY"`
}

type GatewayConfig struct {
	Provider       string        `yaml:"provider" env:"PROVIDER"` // ollama | openai
	BaseURL        string        `yaml:"baseUrl" env:"BASE_URL"`
	APIKey         string        `yaml:"apiKey" env:"API_KEY"`
	DefaultModel   string        `yaml:"defaultModel" env:"DEFAULT_MODEL"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries     int           `yaml:"maxRetries" env:"MAX_RETRIES"`
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay" env:"RETRY_BASE_DELAY"`
}

type PipelineConfig struct {
	Store             string        `yaml:"store" env:"STORE"` // postgres | memory
	Concurrency       int           `yaml:"concurrency" env:"CONCURRENCY"`
	IdleWait          time.Duration `yaml:"idleWait" env:"IDLE_WAIT"`
	StoreErrorBackoff time.Duration `yaml:"storeErrorBackoff" env:"STORE_ERROR_BACKOFF"`
	RetryBaseDelay    time.Duration `yaml:"retryBaseDelay" env:"RETRY_BASE_DELAY"`
	RequeueInterval   time.Duration `yaml:"requeueInterval" env:"REQUEUE_INTERVAL"`
	StaleJobTimeout   time.Duration `yaml:"staleJobTimeout" env:"STALE_JOB_TIMEOUT"`
	MetricsWindowDays int           `yaml:"metricsWindowDays" env:"METRICS_WINDOW_DAYS"`
	FallbackPenalty   float64       `yaml:"fallbackPenalty" env:"FALLBACK_PENALTY"`
	AutoStart         bool          `yaml:"autoStart" env:"AUTO_START"`
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{Env: "development", Port: "8080", LogLevel: "info"},
		Auth: AuthConfig{
			JWTSecret: "defaultsecret",
			JWTExpiry: 12 * time.Hour,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          "5432",
			User:          "user",
			Password:      "password",
			Name:          "globalnews",
			SSLMode:       "disable",
			MigrationsDir: "migrations",
			MaxOpenConns:  25,
			MaxIdleConns:  25,
			ConnMaxLife:   5 * time.Minute,
		},
		Redis: RedisConfig{SignalKey: "translation_jobs:signal"},
		Gateway: GatewayConfig{
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			DefaultModel:   "llama3.1:8b",
			Timeout:        2 * time.Minute,
			MaxRetries:     2,
			RetryBaseDelay: 500 * time.Millisecond,
		},
		Pipeline: PipelineConfig{
			Store:             "postgres",
			Concurrency:       3,
			IdleWait:          5 * time.Second,
			StoreErrorBackoff: 5 * time.Second,
			RetryBaseDelay:    time.Minute,
			RequeueInterval:   30 * time.Second,
			StaleJobTimeout:   30 * time.Minute,
			MetricsWindowDays: 7,
			AutoStart:         true,
		},
	}
}

// Load layers defaults, the optional YAML file named by TRANSLATOR_CONFIG_FILE, a
// local .env file and finally the process environment.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs error
	if c.Pipeline.Concurrency < 1 {
		errs = multierr.Append(errs, errors.New("pipeline.concurrency must be at least 1"))
	}
	if c.Pipeline.MetricsWindowDays < 1 {
		errs = multierr.Append(errs, errors.New("pipeline.metricsWindowDays must be at least 1"))
	}
	if c.Pipeline.FallbackPenalty < 0 || c.Pipeline.FallbackPenalty > 1 {
		errs = multierr.Append(errs, errors.New("pipeline.fallbackPenalty must be within [0,1]"))
	}
	switch c.Pipeline.Store {
	case "postgres", "memory":
	default:
		errs = multierr.Append(errs, fmt.Errorf("pipeline.store %q is not one of postgres, memory", c.Pipeline.Store))
	}
	switch c.Gateway.Provider {
	case "ollama", "openai":
	default:
		errs = multierr.Append(errs, fmt.Errorf("gateway.provider %q is not one of ollama, openai", c.Gateway.Provider))
	}
	if errs != nil {
		return fmt.Errorf("config: %w", errs)
	}
	return nil
}
