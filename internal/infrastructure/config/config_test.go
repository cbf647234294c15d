package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validJWTSecret meets the 32-character minimum.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
service:
  name: "taller-test"
database:
  driver: "sqlite"
  path: "/tmp/test.db"
  busy_timeout: 5
api:
  host: "127.0.0.1"
  port: 9000
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
    algorithm: "HS512"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "taller-test" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "taller-test")
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Security.JWT.Algorithm != "HS512" {
		t.Errorf("Security.JWT.Algorithm = %q, want %q", cfg.Security.JWT.Algorithm, "HS512")
	}
	// Not set in the file, so the default applies.
	if got := cfg.GetAccessTokenTTL(); got != 30*time.Minute {
		t.Errorf("GetAccessTokenTTL() = %v, want 30m", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingSecretFailsStartup(t *testing.T) {
	t.Setenv("TALLER_JWT_SECRET", "")
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error for missing jwt secret, got nil")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret is required") {
		t.Errorf("Load() error = %v, want mention of security.jwt.secret", err)
	}
}

func TestLoad_SecretFromEnvironment(t *testing.T) {
	t.Setenv("TALLER_JWT_SECRET", validJWTSecret)
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.JWT.Secret != validJWTSecret {
		t.Errorf("Security.JWT.Secret not taken from environment")
	}
}

func TestLoad_InvalidIntegerOverride(t *testing.T) {
	t.Setenv("TALLER_JWT_SECRET", validJWTSecret)
	t.Setenv("TALLER_API_PORT", "eighty")
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for non-numeric TALLER_API_PORT, got nil")
	}
	if !strings.Contains(err.Error(), "TALLER_API_PORT") {
		t.Errorf("Load() error = %v, want mention of TALLER_API_PORT", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = validJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(c *Config) {}, wantErr: false},
		{
			name:    "postgres with dsn",
			mutate:  func(c *Config) { c.Database.Driver = DriverPostgres; c.Database.DSN = "postgres://u:p@localhost/taller" },
			wantErr: false,
		},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "tls without cert", mutate: func(c *Config) { c.API.TLS.Enabled = true }, wantErr: true},
		{name: "missing JWT secret", mutate: func(c *Config) { c.Security.JWT.Secret = "" }, wantErr: true},
		{name: "JWT secret too short", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: true},
		{name: "asymmetric algorithm", mutate: func(c *Config) { c.Security.JWT.Algorithm = "RS256" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Security.JWT.AccessTokenTTL = 0 }, wantErr: true},
		{name: "rate limit without budget", mutate: func(c *Config) { c.Security.RateLimit.RequestsPerMinute = 0 }, wantErr: true},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.URL = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.Port = 0
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"api.port", "mqtt.qos", "security.jwt.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("TALLER_DATABASE_DRIVER", "pgx")
	t.Setenv("TALLER_DATABASE_DSN", "postgres://taller@db/taller")
	t.Setenv("TALLER_MQTT_HOST", "mqtt.example.com")
	t.Setenv("TALLER_API_PORT", "8443")
	t.Setenv("TALLER_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("TALLER_JWT_SECRET", "jwt-secret")
	t.Setenv("TALLER_JWT_TTL_MINUTES", "45")
	t.Setenv("TALLER_ADMIN_EMAIL", "root@example.com")
	t.Setenv("TALLER_LOG_LEVEL", "debug")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Database.Driver != "pgx" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "pgx")
	}
	if cfg.Database.DSN != "postgres://taller@db/taller" {
		t.Errorf("Database.DSN = %q, want %q", cfg.Database.DSN, "postgres://taller@db/taller")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.API.Port != 8443 {
		t.Errorf("API.Port = %d, want 8443", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
	if cfg.Security.JWT.AccessTokenTTL != 45 {
		t.Errorf("Security.JWT.AccessTokenTTL = %d, want 45", cfg.Security.JWT.AccessTokenTTL)
	}
	if cfg.Security.BootstrapAdmin.Email != "root@example.com" {
		t.Errorf("BootstrapAdmin.Email = %q, want %q", cfg.Security.BootstrapAdmin.Email, "root@example.com")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "TALLER_TEST_FROM_FILE=from-file\nTALLER_TEST_PRESET=from-file\n"
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("TALLER_TEST_PRESET", "from-process")
	// t.Setenv restores the original value; unset the new one ourselves.
	t.Cleanup(func() { os.Unsetenv("TALLER_TEST_FROM_FILE") })

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	if got := os.Getenv("TALLER_TEST_FROM_FILE"); got != "from-file" {
		t.Errorf("TALLER_TEST_FROM_FILE = %q, want %q", got, "from-file")
	}
	if got := os.Getenv("TALLER_TEST_PRESET"); got != "from-process" {
		t.Errorf("TALLER_TEST_PRESET = %q, want %q (process env wins)", got, "from-process")
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadEnvFile() on missing file error = %v, want nil", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Driver != DriverSQLite3 {
		t.Errorf("defaultConfig Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite3)
	}
	if cfg.Security.JWT.Secret != "" {
		t.Error("defaultConfig must not ship a JWT secret")
	}
	if cfg.Security.JWT.AccessTokenTTL != 30 {
		t.Errorf("defaultConfig AccessTokenTTL = %d, want 30", cfg.Security.JWT.AccessTokenTTL)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}
