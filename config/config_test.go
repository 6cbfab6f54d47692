package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Listen != ":8080" {
		t.Errorf("expected listen ':8080', got %q", cfg.Listen)
	}
	if cfg.DataDir != "data" {
		t.Errorf("expected data dir 'data', got %q", cfg.DataDir)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %q", cfg.LogLevel)
	}
	if cfg.Session.TTL != 30*24*time.Hour {
		t.Errorf("expected session TTL 720h, got %v", cfg.Session.TTL)
	}
	if cfg.Blob.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Blob.Backend)
	}
	if cfg.Blob.S3.Region != "us-east-1" {
		t.Errorf("expected region 'us-east-1', got %q", cfg.Blob.S3.Region)
	}
	if cfg.Telemetry.Service != "webmail" {
		t.Errorf("expected service 'webmail', got %q", cfg.Telemetry.Service)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webmaild.yaml")
	data := `
listen: ":9090"
data_dir: /var/lib/webmail
blob:
  backend: s3
  s3:
    bucket: mail-blobs
    region: eu-west-1
events:
  redis_addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected listen ':9090', got %q", cfg.Listen)
	}
	if cfg.DataDir != "/var/lib/webmail" {
		t.Errorf("expected data dir '/var/lib/webmail', got %q", cfg.DataDir)
	}
	if cfg.Blob.Backend != "s3" || cfg.Blob.S3.Bucket != "mail-blobs" {
		t.Errorf("unexpected blob config: %+v", cfg.Blob)
	}
	if cfg.Blob.S3.Region != "eu-west-1" {
		t.Errorf("expected region override, got %q", cfg.Blob.S3.Region)
	}
	if cfg.Events.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr, got %q", cfg.Events.RedisAddr)
	}
	// Untouched keys keep their defaults
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WEBMAIL_LISTEN", ":7070")
	t.Setenv("WEBMAIL_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("expected listen ':7070', got %q", cfg.Listen)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.LogLevel)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	t.Run("s3 requires bucket", func(t *testing.T) {
		t.Setenv("WEBMAIL_BLOB_BACKEND", "s3")
		_, err := Load("")
		if err == nil || !strings.Contains(err.Error(), "blob.s3.bucket") {
			t.Errorf("expected bucket error, got %v", err)
		}
	})

	t.Run("gcs requires bucket", func(t *testing.T) {
		t.Setenv("WEBMAIL_BLOB_BACKEND", "gcs")
		_, err := Load("")
		if err == nil || !strings.Contains(err.Error(), "blob.gcs.bucket") {
			t.Errorf("expected bucket error, got %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("WEBMAIL_BLOB_BACKEND", "tape")
		_, err := Load("")
		if err == nil || !strings.Contains(err.Error(), "unknown blob backend") {
			t.Errorf("expected backend error, got %v", err)
		}
	})
}
