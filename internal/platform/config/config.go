package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	JWT      JWTConfig      `json:"jwt"`
	Cache    CacheConfig    `json:"cache"`
	Storage  StorageConfig  `json:"storage"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	WebDomain string `json:"webDomain"`
	Debug     bool   `json:"debug"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Postgres PostgreSQLConfig `json:"postgres"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	SSLMode         string        `json:"sslMode"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnectTimeout  int           `json:"connectTimeout"`
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Enabled bool          `json:"enabled"`
	Backend string        `json:"backend"`
	Prefix  string        `json:"prefix"`
	TTL     time.Duration `json:"ttl"`
	Redis   RedisConfig   `json:"redis"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address      string `json:"address"`
	Password     string `json:"password"`
	Database     int    `json:"database"`
	PoolSize     int    `json:"poolSize"`
	MinIdleConns int    `json:"minIdleConns"`
}

// StorageConfig holds blob storage and governance configuration.
// SystemMaxStorageBytes is the hard cap every user policy is clamped against.
// GlobalMonthlyTransformLimit is re-read on every monthly-stats access so a
// change here takes effect without a migration.
type StorageConfig struct {
	Provider        string `json:"provider"`
	Endpoint        string `json:"endpoint"`
	AccountID       string `json:"accountId"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	BucketName      string `json:"bucketName"`
	Region          string `json:"region"`
	PublicURL       string `json:"publicUrl"`

	SystemMaxStorageBytes       int64 `json:"systemMaxStorageBytes"`
	DefaultStorageBytes         int64 `json:"defaultStorageBytes"`
	DefaultMaxFilesPerMessage   int   `json:"defaultMaxFilesPerMessage"`
	DefaultMaxMessageFilesBytes int64 `json:"defaultMaxMessageFilesBytes"`
	DefaultFileRetentionDays    int   `json:"defaultFileRetentionDays"`
	GlobalMonthlyTransformLimit int   `json:"globalMonthlyTransformLimit"`

	SweepBatchSize  int           `json:"sweepBatchSize"`
	SweepMaxRuntime time.Duration `json:"sweepMaxRuntime"`
	SweepInterval   time.Duration `json:"sweepInterval"`

	ContentCacheTTL time.Duration `json:"contentCacheTTL"`
	StatsCacheTTL   time.Duration `json:"statsCacheTTL"`
}

// LoadFromEnv loads configuration from environment variables, reading a .env
// file first when one is present.
func LoadFromEnv() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}

	if loadErr != nil {
		// Not an error: environment variables and defaults still apply.
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	config := &Config{
		Server: ServerConfig{
			Host:      getEnvOrDefault("HOST", "localhost"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			WebDomain: getEnvOrDefault("WEB_DOMAIN", "http://localhost:3000"),
			Debug:     getEnvAsBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Postgres: PostgreSQLConfig{
				Host:            getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:            getEnvAsInt("POSTGRES_PORT", 5432),
				Username:        getEnvOrDefault("POSTGRES_USERNAME", ""),
				Password:        getEnvOrDefault("POSTGRES_PASSWORD", ""),
				Database:        getEnvOrDefault("POSTGRES_DATABASE", "lumen"),
				SSLMode:         getEnvOrDefault("POSTGRES_SSL_MODE", "disable"),
				MaxOpenConns:    getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
				ConnectTimeout:  getEnvAsInt("POSTGRES_CONNECT_TIMEOUT", 10),
			},
		},
		JWT: JWTConfig{
			PublicKey:  getEnvOrDefault("JWT_PUBLIC_KEY", ""),
			PrivateKey: getEnvOrDefault("JWT_PRIVATE_KEY", ""),
		},
		Cache: CacheConfig{
			Enabled: getEnvAsBool("CACHE_ENABLED", true),
			Backend: getEnvOrDefault("CACHE_BACKEND", "memory"),
			Prefix:  getEnvOrDefault("CACHE_PREFIX", "lumen:"),
			TTL:     getEnvAsDuration("CACHE_TTL", 5*time.Minute),
			Redis: RedisConfig{
				Address:      getEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
				Password:     getEnvOrDefault("REDIS_PASSWORD", ""),
				Database:     getEnvAsInt("REDIS_DATABASE", 0),
				PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
				MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			},
		},
		Storage: StorageConfig{
			Provider:        getEnvOrDefault("STORAGE_PROVIDER", "s3"),
			Endpoint:        getEnvOrDefault("STORAGE_ENDPOINT", ""),
			AccountID:       getEnvOrDefault("STORAGE_ACCOUNT_ID", ""),
			AccessKeyID:     getEnvOrDefault("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnvOrDefault("STORAGE_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnvOrDefault("STORAGE_BUCKET_NAME", ""),
			Region:          getEnvOrDefault("STORAGE_REGION", "auto"),
			PublicURL:       getEnvOrDefault("STORAGE_PUBLIC_URL", ""),

			SystemMaxStorageBytes:       getEnvAsInt64("STORAGE_SYSTEM_MAX_BYTES", 100*1024*1024),
			DefaultStorageBytes:         getEnvAsInt64("STORAGE_DEFAULT_BYTES", 20*1024*1024),
			DefaultMaxFilesPerMessage:   getEnvAsInt("STORAGE_DEFAULT_MAX_FILES_PER_MESSAGE", 10),
			DefaultMaxMessageFilesBytes: getEnvAsInt64("STORAGE_DEFAULT_MAX_MESSAGE_FILES_BYTES", 1000*1024*1024),
			DefaultFileRetentionDays:    getEnvAsInt("STORAGE_DEFAULT_RETENTION_DAYS", 30),
			GlobalMonthlyTransformLimit: getEnvAsInt("STORAGE_GLOBAL_MONTHLY_TRANSFORM_LIMIT", 10000),

			SweepBatchSize:  getEnvAsInt("STORAGE_SWEEP_BATCH_SIZE", 100),
			SweepMaxRuntime: getEnvAsDuration("STORAGE_SWEEP_MAX_RUNTIME", 30*time.Second),
			SweepInterval:   getEnvAsDuration("STORAGE_SWEEP_INTERVAL", 15*time.Minute),

			ContentCacheTTL: getEnvAsDuration("STORAGE_CONTENT_CACHE_TTL", 5*time.Minute),
			StatsCacheTTL:   getEnvAsDuration("STORAGE_STATS_CACHE_TTL", 10*time.Minute),
		},
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
