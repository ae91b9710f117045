// Package config loads catalog settings from catalog.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog"
	"github.com/e-lopezc/serverless-product-catalog-api/catalog/pagination"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbsdk"
)

// FileName is the config file searched for from the working directory up.
const FileName = "catalog.yaml"

const (
	BackendDynamoDB = "dynamodb"
	BackendBadger   = "badger"
)

// Config holds everything needed to open a catalog.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"logLevel"`

	// Backend is "dynamodb" or "badger".
	Backend   string `yaml:"backend"`
	TableName string `yaml:"tableName"`

	Region string `yaml:"region"`
	// Endpoint overrides the DynamoDB endpoint, e.g. for DynamoDB Local.
	Endpoint    string `yaml:"endpoint"`
	MaxAttempts int    `yaml:"maxAttempts"`

	// DataDir is where the badger backend keeps its files. Empty means
	// in-memory.
	DataDir string `yaml:"dataDir"`

	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	StockRetries    int           `yaml:"stockRetries"`
	TokenSecret     string        `yaml:"tokenSecret"`
	DefaultPageSize int           `yaml:"defaultPageSize"`
	MaxPageSize     int           `yaml:"maxPageSize"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig mirrors ddbsdk.BreakerSettings.
type BreakerConfig struct {
	Disabled         bool          `yaml:"disabled"`
	MaxRequests      uint32        `yaml:"maxRequests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failureThreshold"`
	MinRequests      uint32        `yaml:"minRequests"`
}

func (b BreakerConfig) settings() ddbsdk.BreakerSettings {
	return ddbsdk.BreakerSettings{
		MaxRequests:      b.MaxRequests,
		Interval:         b.Interval,
		Timeout:          b.Timeout,
		FailureThreshold: b.FailureThreshold,
		MinRequests:      b.MinRequests,
	}
}

// Default returns the settings used when neither the file nor the
// environment says otherwise.
func Default() Config {
	bs := ddbsdk.DefaultBreakerSettings()
	return Config{
		Environment:     "development",
		LogLevel:        "info",
		Backend:         BackendDynamoDB,
		TableName:       catalog.DefaultTableName,
		Region:          "us-east-1",
		RequestTimeout:  5 * time.Second,
		StockRetries:    catalog.DefaultStockRetries,
		DefaultPageSize: catalog.DefaultPageSize,
		MaxPageSize:     catalog.MaxPageSize,
		Breaker: BreakerConfig{
			MaxRequests:      bs.MaxRequests,
			Interval:         bs.Interval,
			Timeout:          bs.Timeout,
			FailureThreshold: bs.FailureThreshold,
			MinRequests:      bs.MinRequests,
		},
	}
}

// Load starts from Default, applies catalog.yaml if one is found walking up
// from the working directory, applies environment overrides and validates
// the result.
func Load() (Config, error) {
	cfg := Default()

	dir, err := os.Getwd()
	if err != nil {
		return cfg, fmt.Errorf("failed to get working directory: %w", err)
	}
	if path := getEnv("CATALOG_CONFIG", findConfigFile(dir)); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile decodes the yaml file at path over cfg. Fields absent from the
// file keep their current value; unknown fields are an error.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// findConfigFile searches for catalog.yaml walking up from dir.
func findConfigFile(dir string) string {
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Backend = getEnv("CATALOG_BACKEND", cfg.Backend)
	cfg.TableName = getEnv("DYNAMODB_TABLE", cfg.TableName)
	cfg.Region = getEnv("AWS_REGION", cfg.Region)
	cfg.Endpoint = getEnv("DYNAMODB_ENDPOINT", cfg.Endpoint)
	cfg.DataDir = getEnv("CATALOG_DATA_DIR", cfg.DataDir)
	cfg.TokenSecret = getEnv("CATALOG_TOKEN_SECRET", cfg.TokenSecret)
	cfg.RequestTimeout = getEnvDuration("CATALOG_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.StockRetries = getEnvInt("CATALOG_STOCK_RETRIES", cfg.StockRetries)
	cfg.Breaker.Disabled = getEnvBool("CATALOG_BREAKER_DISABLED", cfg.Breaker.Disabled)
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendDynamoDB, BackendBadger:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.TableName == "" {
		return errors.New("table name is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.StockRetries <= 0 {
		return fmt.Errorf("stock retries must be positive, got %d", c.StockRetries)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max attempts must not be negative, got %d", c.MaxAttempts)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default %d, max %d", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.TokenSecret != "" && len(c.TokenSecret) < pagination.MinSecretLen {
		return fmt.Errorf("token secret must be at least %d bytes", pagination.MinSecretLen)
	}
	if c.IsProduction() && c.TokenSecret == "" {
		return errors.New("CATALOG_TOKEN_SECRET is required in production")
	}
	if !c.Breaker.Disabled && (c.Breaker.FailureThreshold <= 0 || c.Breaker.FailureThreshold > 1) {
		return fmt.Errorf("breaker failure threshold must be in (0, 1], got %v", c.Breaker.FailureThreshold)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
