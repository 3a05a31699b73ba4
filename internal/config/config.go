// Package config provides configuration management for the stockroom server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"stockroom/internal/password"
)

// Store backend names.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendDynamo = "dynamodb"
)

// Default configuration values.
const (
	DefaultServerPort          = 8080
	DefaultProbePort           = 9090
	DefaultLogLevel            = "info"
	DefaultShutdownTimeout     = 30 * time.Second
	DefaultMetricsEnabled      = true
	DefaultStoreBackend        = BackendMemory
	DefaultMongoURI            = "mongodb://localhost:27017"
	DefaultMongoDatabase       = "stockroom"
	DefaultMongoConnectTimeout = 10 * time.Second
	DefaultDynamoItemsTable    = "items"
	DefaultDynamoUsersTable    = "users"
	DefaultBcryptCost          = password.DefaultCost
)

// Environment variable names.
const (
	EnvServerPort          = "APP_SERVER_PORT"
	EnvProbePort           = "APP_PROBE_PORT"
	EnvLogLevel            = "APP_LOG_LEVEL"
	EnvShutdownTimeout     = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled      = "APP_METRICS_ENABLED"
	EnvStoreBackend        = "APP_STORE_BACKEND"
	EnvMongoURI            = "APP_MONGO_URI"
	EnvMongoDatabase       = "APP_MONGO_DATABASE"
	EnvMongoConnectTimeout = "APP_MONGO_CONNECT_TIMEOUT"
	EnvDynamoRegion        = "APP_DYNAMO_REGION"
	EnvDynamoEndpoint      = "APP_DYNAMO_ENDPOINT"
	EnvDynamoItemsTable    = "APP_DYNAMO_ITEMS_TABLE"
	EnvDynamoUsersTable    = "APP_DYNAMO_USERS_TABLE"
	EnvBcryptCost          = "APP_BCRYPT_COST"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	ProbePort       int // Probe server port (0 = disabled).
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Store backend: memory, mongo, dynamodb.
	StoreBackend string

	// MongoDB settings.
	MongoURI            string
	MongoDatabase       string
	MongoConnectTimeout time.Duration

	// DynamoDB settings. Region and Endpoint fall back to the SDK
	// default resolution chain when empty.
	DynamoRegion     string
	DynamoEndpoint   string
	DynamoItemsTable string
	DynamoUsersTable string

	// Credential hashing cost.
	BcryptCost int
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidProbePort       = errors.New("probe port must be between 0 and 65535")
	ErrProbePortConflict      = errors.New("probe port must differ from server port when probe port is not 0")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreBackend    = errors.New(
		"store backend must be one of: memory, mongo, dynamodb",
	)
	ErrInvalidMongoURI = errors.New(
		"mongo URI must be set when store backend is mongo",
	)
	ErrInvalidMongoDatabase = errors.New(
		"mongo database must be set when store backend is mongo",
	)
	ErrInvalidMongoConnectTimeout = errors.New(
		"mongo connect timeout must be positive",
	)
	ErrInvalidDynamoTables = errors.New(
		"dynamo items and users tables must be set when store backend is dynamodb",
	)
	ErrInvalidBcryptCost = errors.New(
		"bcrypt cost must be between 4 and 31",
	)
)

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is applied first; real
// environment variables keep priority over both the file and defaults.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:          DefaultServerPort,
		ProbePort:           DefaultProbePort,
		LogLevel:            DefaultLogLevel,
		ShutdownTimeout:     DefaultShutdownTimeout,
		MetricsEnabled:      DefaultMetricsEnabled,
		StoreBackend:        DefaultStoreBackend,
		MongoURI:            DefaultMongoURI,
		MongoDatabase:       DefaultMongoDatabase,
		MongoConnectTimeout: DefaultMongoConnectTimeout,
		DynamoItemsTable:    DefaultDynamoItemsTable,
		DynamoUsersTable:    DefaultDynamoUsersTable,
		BcryptCost:          DefaultBcryptCost,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadStoreEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvProbePort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvProbePort, err)
		}
		c.ProbePort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadStoreEnv loads store and credential environment variables.
func (c *Config) loadStoreEnv() error {
	if val := os.Getenv(EnvStoreBackend); val != "" {
		c.StoreBackend = val
	}

	if val := os.Getenv(EnvMongoURI); val != "" {
		c.MongoURI = val
	}

	if val := os.Getenv(EnvMongoDatabase); val != "" {
		c.MongoDatabase = val
	}

	if val := os.Getenv(EnvMongoConnectTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMongoConnectTimeout, err)
		}
		c.MongoConnectTimeout = timeout
	}

	if val := os.Getenv(EnvDynamoRegion); val != "" {
		c.DynamoRegion = val
	}

	if val := os.Getenv(EnvDynamoEndpoint); val != "" {
		c.DynamoEndpoint = val
	}

	if val := os.Getenv(EnvDynamoItemsTable); val != "" {
		c.DynamoItemsTable = val
	}

	if val := os.Getenv(EnvDynamoUsersTable); val != "" {
		c.DynamoUsersTable = val
	}

	if val := os.Getenv(EnvBcryptCost); val != "" {
		cost, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvBcryptCost, err)
		}
		c.BcryptCost = cost
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort != 0 && (c.ProbePort < 1 || c.ProbePort > 65535) {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateStore validates store and credential configuration.
func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" {
			return ErrInvalidMongoURI
		}
		if c.MongoDatabase == "" {
			return ErrInvalidMongoDatabase
		}
		if c.MongoConnectTimeout <= 0 {
			return ErrInvalidMongoConnectTimeout
		}
	case BackendDynamo:
		if c.DynamoItemsTable == "" || c.DynamoUsersTable == "" {
			return ErrInvalidDynamoTables
		}
	default:
		return ErrInvalidStoreBackend
	}

	if c.BcryptCost < password.MinCost || c.BcryptCost > password.MaxCost {
		return ErrInvalidBcryptCost
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}
