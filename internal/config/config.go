// Package config loads server settings from APPSCOPE_* environment variables,
// optionally layered over a YAML file named by APPSCOPE_CONFIG.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MemoryDatabaseURL selects the in-process store instead of PostgreSQL.
const MemoryDatabaseURL = "memory://"

type Config struct {
	DatabaseURL string `yaml:"database_url"` // APPSCOPE_DATABASE_URL (required)
	DBMaxConns  int    `yaml:"db_max_conns"` // APPSCOPE_DB_MAX_CONNS (default 5)
	HTTPAddr    string `yaml:"http_addr"`    // APPSCOPE_HTTP_ADDR (default ":3001")
	GRPCAddr    string `yaml:"grpc_addr"`    // APPSCOPE_GRPC_ADDR (default ":9091"; set empty to disable)
	WriteKey    string `yaml:"write_key"`    // APPSCOPE_WRITE_KEY (default "wk_default_key")
	ReadKey     string `yaml:"read_key"`     // APPSCOPE_READ_KEY (default "rk_default_key")
	NATSURL     string `yaml:"nats_url"`     // APPSCOPE_NATS_URL (optional, empty = no events)
	NATSIngest  bool   `yaml:"nats_ingest"`  // APPSCOPE_NATS_INGEST (default false)
	LogLevel    string `yaml:"log_level"`    // APPSCOPE_LOG_LEVEL (default "info")

	// Export settings
	ExportInterval   time.Duration `yaml:"export_interval"`    // APPSCOPE_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Bucket   string        `yaml:"export_s3_bucket"`   // APPSCOPE_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        `yaml:"export_s3_endpoint"` // APPSCOPE_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        `yaml:"export_s3_region"`   // APPSCOPE_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Prefix   string        `yaml:"export_s3_prefix"`   // APPSCOPE_EXPORT_S3_PREFIX (default "appscope/")
	ExportDir        string        `yaml:"export_dir"`         // APPSCOPE_EXPORT_DIR (enables local export when set)
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		DBMaxConns:     5,
		HTTPAddr:       ":3001",
		GRPCAddr:       ":9091",
		WriteKey:       "wk_default_key",
		ReadKey:        "rk_default_key",
		LogLevel:       "info",
		ExportS3Region: "us-east-1",
		ExportS3Prefix: "appscope/",
	}
}

func Load() (*Config, error) {
	c := Defaults()

	if path := os.Getenv("APPSCOPE_CONFIG"); path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}

	c.DatabaseURL = envOrDefault("APPSCOPE_DATABASE_URL", c.DatabaseURL)
	c.HTTPAddr = envOrDefault("APPSCOPE_HTTP_ADDR", c.HTTPAddr)
	if v, ok := os.LookupEnv("APPSCOPE_GRPC_ADDR"); ok {
		c.GRPCAddr = v
	}
	c.WriteKey = envOrDefault("APPSCOPE_WRITE_KEY", c.WriteKey)
	c.ReadKey = envOrDefault("APPSCOPE_READ_KEY", c.ReadKey)
	c.NATSURL = envOrDefault("APPSCOPE_NATS_URL", c.NATSURL)
	c.LogLevel = envOrDefault("APPSCOPE_LOG_LEVEL", c.LogLevel)
	c.ExportS3Bucket = envOrDefault("APPSCOPE_EXPORT_S3_BUCKET", c.ExportS3Bucket)
	c.ExportS3Endpoint = envOrDefault("APPSCOPE_EXPORT_S3_ENDPOINT", c.ExportS3Endpoint)
	c.ExportS3Region = envOrDefault("APPSCOPE_EXPORT_S3_REGION", c.ExportS3Region)
	c.ExportS3Prefix = envOrDefault("APPSCOPE_EXPORT_S3_PREFIX", c.ExportS3Prefix)
	c.ExportDir = envOrDefault("APPSCOPE_EXPORT_DIR", c.ExportDir)

	if v := os.Getenv("APPSCOPE_DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("APPSCOPE_DB_MAX_CONNS: %w", err)
		}
		c.DBMaxConns = n
	}
	if v := os.Getenv("APPSCOPE_NATS_INGEST"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("APPSCOPE_NATS_INGEST: %w", err)
		}
		c.NATSIngest = b
	}
	if v := os.Getenv("APPSCOPE_EXPORT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("APPSCOPE_EXPORT_INTERVAL: %w", err)
		}
		c.ExportInterval = d
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("APPSCOPE_DATABASE_URL is required")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("APPSCOPE_DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.ExportInterval < 0 {
		return fmt.Errorf("APPSCOPE_EXPORT_INTERVAL must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// UseMemoryStore reports whether DatabaseURL selects the in-process store.
func (c *Config) UseMemoryStore() bool {
	return strings.HasPrefix(c.DatabaseURL, MemoryDatabaseURL)
}

// SlogLevel returns LogLevel as a slog.Level. Load has already validated it.
func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("APPSCOPE_LOG_LEVEL: %w", err)
	}
	return l, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
