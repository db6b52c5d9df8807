package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
etrade:
  consumer_key: "ck"
  consumer_secret: "cs"
  oauth_token: "tok"
  oauth_token_secret: "toksecret"
  sandbox: false
redis:
  enabled: true
  host: "redis.example.com"
  port: 6380
  db: 1
kafka:
  enabled: true
  brokers:
    - "kafka1:9092"
    - "kafka2:9092"
telemetry:
  collector_url: "collector:4317"
  enabled: true
log:
  level: "debug"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	chdir(t, tmpDir)

	cfg, err := Load("config")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %v, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %v, want 9000", cfg.Server.Port)
	}
	if cfg.ETrade.ConsumerKey != "ck" || cfg.ETrade.OAuthTokenSecret != "toksecret" {
		t.Errorf("ETrade = %+v, want credentials from file", cfg.ETrade)
	}
	if cfg.ETrade.Sandbox {
		t.Error("ETrade.Sandbox should be false")
	}
	if cfg.Redis.Addr() != "redis.example.com:6380" {
		t.Errorf("Redis.Addr() = %v, want redis.example.com:6380", cfg.Redis.Addr())
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Kafka.Brokers length = %v, want 2", len(cfg.Kafka.Brokers))
	}
	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled should be true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %v, want debug", cfg.Log.Level)
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("nonexistent")
	if err != nil {
		t.Fatalf("Load() should not error when config file not found: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Default Server.Host = %v, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Default Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 120*time.Second {
		t.Errorf("Default Server.WriteTimeout = %v, want 2m", cfg.Server.WriteTimeout)
	}
	if !cfg.ETrade.Sandbox {
		t.Error("Default ETrade.Sandbox should be true")
	}
	if cfg.ETrade.Callback != "oob" {
		t.Errorf("Default ETrade.Callback = %v, want oob", cfg.ETrade.Callback)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Error("Redis and Kafka should be disabled by default")
	}
	if cfg.Telemetry.ServiceName != "broker-etrade" {
		t.Errorf("Default Telemetry.ServiceName = %v, want broker-etrade", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("BROKER_ETRADE_SERVER_PORT", "3000")
	t.Setenv("BROKER_ETRADE_ETRADE_CONSUMER_KEY", "env-key")

	cfg, err := Load("nonexistent")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %v, want 3000 (from env)", cfg.Server.Port)
	}
	if cfg.ETrade.ConsumerKey != "env-key" {
		t.Errorf("ETrade.ConsumerKey = %v, want env-key (from env)", cfg.ETrade.ConsumerKey)
	}
}

func TestLoad_WithDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	dotenv := "BROKER_ETRADE_ETRADE_CONSUMER_SECRET=dotenv-secret\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(dotenv), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("BROKER_ETRADE_ETRADE_CONSUMER_SECRET") })

	cfg, err := Load("nonexistent")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ETrade.ConsumerSecret != "dotenv-secret" {
		t.Errorf("ETrade.ConsumerSecret = %v, want dotenv-secret", cfg.ETrade.ConsumerSecret)
	}
}
