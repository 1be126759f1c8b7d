// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory     = "memory"
	StoragePersistent = "persistent"

	devJWTSecret = "dev-secret-change-me"
)

type Config struct {
	HTTPPort       string `yaml:"http_port"`
	GRPCHealthPort string `yaml:"grpc_health_port"`
	Storage        string `yaml:"storage"`

	MongoURI    string `yaml:"mongo_uri"`
	MongoDBName string `yaml:"mongo_db_name"`

	DB DBConfig `yaml:"db"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CheckoutLockTTL time.Duration `yaml:"checkout_lock_ttl"`
	// AuthRateLimit is the number of /auth requests allowed per client IP per minute.
	AuthRateLimit int `yaml:"auth_rate_limit"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	LogMode    string `yaml:"log_mode"`
	OtelStdout bool   `yaml:"otel_stdout"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

func Default() Config {
	return Config{
		HTTPPort:        "8080",
		GRPCHealthPort:  "9090",
		Storage:         StorageMemory,
		MongoURI:        "mongodb://localhost:27017",
		MongoDBName:     "storefront",
		DB:              DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "postgres", Name: "ecommerce"},
		KafkaTopic:      "order-events",
		JWTSecret:       devJWTSecret,
		TokenTTL:        time.Hour,
		RequestTimeout:  15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CheckoutLockTTL: 30 * time.Second,
		AuthRateLimit:   20,
		LogMode:         "dev",
	}
}

// Load reads CONFIG_FILE (if set) over the defaults, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCHealthPort = getEnv("GRPC_HEALTH_PORT", c.GRPCHealthPort)
	c.Storage = strings.ToLower(getEnv("STORAGE", c.Storage))
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDBName = getEnv("MONGO_DB_NAME", c.MongoDBName)
	c.DB.Host = getEnv("DB_HOST", c.DB.Host)
	c.DB.User = getEnv("DB_USER", c.DB.User)
	c.DB.Password = getEnv("DB_PASSWORD", c.DB.Password)
	c.DB.Name = getEnv("DB_NAME", c.DB.Name)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AdminEmail = getEnv("ADMIN_EMAIL", c.AdminEmail)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)
	c.LogMode = getEnv("LOG_MODE", c.LogMode)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}

	var err error
	if c.DB.Port, err = getEnvInt("DB_PORT", c.DB.Port); err != nil {
		return err
	}
	if c.AuthRateLimit, err = getEnvInt("AUTH_RATE_LIMIT", c.AuthRateLimit); err != nil {
		return err
	}
	if c.TokenTTL, err = getEnvDuration("TOKEN_TTL", c.TokenTTL); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.CheckoutLockTTL, err = getEnvDuration("CHECKOUT_LOCK_TTL", c.CheckoutLockTTL); err != nil {
		return err
	}
	if v := os.Getenv("OTEL_STDOUT"); v != "" {
		if c.OtelStdout, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid OTEL_STDOUT: %w", err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Storage != StorageMemory && c.Storage != StoragePersistent:
		return fmt.Errorf("invalid STORAGE %q: want %q or %q", c.Storage, StorageMemory, StoragePersistent)
	case c.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET must not be empty")
	case c.TokenTTL <= 0:
		return fmt.Errorf("TOKEN_TTL must be positive")
	case c.RequestTimeout <= 0:
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	case c.CheckoutLockTTL <= 0:
		return fmt.Errorf("CHECKOUT_LOCK_TTL must be positive")
	case c.AuthRateLimit <= 0:
		return fmt.Errorf("AUTH_RATE_LIMIT must be positive")
	case c.Storage == StoragePersistent && c.JWTSecret == devJWTSecret:
		return fmt.Errorf("JWT_SECRET must be set when STORAGE=%s", StoragePersistent)
	}
	return nil
}

// UsesDevSecret reports whether the built-in development JWT secret is active.
func (c Config) UsesDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
