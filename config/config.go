// Package config loads the webmaild configuration from a YAML file and
// WEBMAIL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level webmaild configuration.
type Config struct {
	Listen    string          `mapstructure:"listen"`
	DataDir   string          `mapstructure:"data_dir"`
	LogLevel  string          `mapstructure:"log_level"`
	Session   SessionConfig   `mapstructure:"session"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// SessionConfig controls login session lifetime.
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// BlobConfig selects and configures the blob store backend.
// Backend is one of "memory", "s3" or "gcs".
type BlobConfig struct {
	Backend string    `mapstructure:"backend"`
	S3      S3Config  `mapstructure:"s3"`
	GCS     GCSConfig `mapstructure:"gcs"`
}

// S3Config configures the S3 blob backend. Leave the credential fields
// empty to use the default AWS credential chain.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	SessionToken string `mapstructure:"session_token"`
}

// GCSConfig configures the GCS blob backend. Leave CredentialsFile empty
// to use Application Default Credentials.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// EventsConfig configures the domain event transport. When RedisAddr is
// empty, events stay in-process.
type EventsConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// TelemetryConfig toggles OpenTelemetry instrumentation.
type TelemetryConfig struct {
	Tracing bool   `mapstructure:"tracing"`
	Metrics bool   `mapstructure:"metrics"`
	Service string `mapstructure:"service"`
}

// Load reads the configuration from path. An empty path looks for
// webmaild.yaml in the working directory; a missing file is not an error,
// defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":8080")
	v.SetDefault("data_dir", "data")
	v.SetDefault("log_level", "info")
	v.SetDefault("session.ttl", 30*24*time.Hour)
	v.SetDefault("blob.backend", "memory")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("telemetry.service", "webmail")

	v.SetEnvPrefix("WEBMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("webmaild")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Blob.Backend {
	case "memory":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 backend")
		}
	case "gcs":
		if c.Blob.GCS.Bucket == "" {
			return fmt.Errorf("blob.gcs.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}
	return nil
}
