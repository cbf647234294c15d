package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/taller-core/internal/api"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// writeConfig writes a minimal SQLite configuration and points
// TALLER_CONFIG at it.
func writeConfig(t *testing.T, dbPath string, port int, extra string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
database:
  driver: sqlite3
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: %d
  timeouts:
    read: 5
    write: 5
    idle: 5
%s`, dbPath, port, extra)
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("TALLER_CONFIG", configPath)
	t.Setenv("TALLER_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

// unsetSecret clears TALLER_JWT_SECRET for the test and restores it after.
func unsetSecret(t *testing.T) {
	t.Helper()
	t.Setenv("TALLER_JWT_SECRET", "")
	os.Unsetenv("TALLER_JWT_SECRET")
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("TALLER_CONFIG", "/nonexistent/path/config.yaml")
	t.Setenv("TALLER_ENV_FILE", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingSecretFailsStartup(t *testing.T) {
	unsetSecret(t)
	writeConfig(t, filepath.Join(t.TempDir(), "taller.db"), 19281, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a JWT secret")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("error = %v, want it to name security.jwt.secret", err)
	}
}

func TestRun_SecretFromEnvFile(t *testing.T) {
	unsetSecret(t)
	writeConfig(t, filepath.Join(t.TempDir(), "taller.db"), 19282, "")

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("TALLER_JWT_SECRET="+testSecret+"\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TALLER_ENV_FILE", envFile)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error: %v", err)
	}
}

func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	t.Setenv("TALLER_JWT_SECRET", testSecret)
	t.Setenv("TALLER_ADMIN_PASSWORD", "bootstrap-password-123")
	port := 19283
	writeConfig(t, filepath.Join(t.TempDir(), "taller.db"), port, `
security:
  bootstrap_admin:
    enabled: true
    email: admin@example.com
`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	// Wait for the listener, then log in as the bootstrap admin.
	base := fmt.Sprintf("http://127.0.0.1:%d/api/v1", port)
	var resp *http.Response
	var err error
	for attempt := 0; attempt < 50; attempt++ {
		resp, err = http.PostForm(base+"/auth/login", map[string][]string{ //nolint:noctx // test request
			"username": {"admin@example.com"},
			"password": {"bootstrap-password-123"},
		})
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("bootstrap admin login status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestRunMigrate(t *testing.T) {
	t.Setenv("TALLER_JWT_SECRET", testSecret)
	writeConfig(t, filepath.Join(t.TempDir(), "taller.db"), 19284, "")
	ctx := context.Background()

	migrate := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		if err := runMigrate(ctx, args, &out); err != nil {
			t.Fatalf("migrate %v: %v", args, err)
		}
		return out.String()
	}

	if out := migrate("status"); !strings.Contains(out, "pending  20260301_090000  initial_schema") {
		t.Errorf("status before up = %q", out)
	}
	if out := migrate(); !strings.Contains(out, "applied  20260301_090000") {
		t.Errorf("up = %q", out)
	}
	if out := migrate("down"); out != "rolled back 20260301_090000 initial_schema\n" {
		t.Errorf("down = %q", out)
	}
	if out := migrate("down"); out != "nothing to roll back\n" {
		t.Errorf("second down = %q", out)
	}

	for _, args := range [][]string{{"sideways"}, {"up", "extra"}} {
		if err := runMigrate(ctx, args, io.Discard); err == nil {
			t.Errorf("migrate %v succeeded, want usage error", args)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("TALLER_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("TALLER_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}

func TestGetEnvFilePath(t *testing.T) {
	t.Setenv("TALLER_ENV_FILE", "")
	if got := getEnvFilePath(); got != defaultEnvFile {
		t.Errorf("getEnvFilePath() = %q, want %q", got, defaultEnvFile)
	}
}

type stubCheck struct{ err error }

func (s stubCheck) HealthCheck(context.Context) error { return s.err }

func TestHealthCheck(t *testing.T) {
	ok := map[string]api.HealthChecker{"database": stubCheck{}}
	if err := healthCheck(context.Background(), ok); err != nil {
		t.Errorf("healthCheck() = %v, want nil", err)
	}

	down := errors.New("connection refused")
	failing := map[string]api.HealthChecker{
		"database": stubCheck{},
		"mqtt":     stubCheck{err: down},
	}
	err := healthCheck(context.Background(), failing)
	if !errors.Is(err, down) || !strings.HasPrefix(err.Error(), "mqtt:") {
		t.Errorf("healthCheck() = %v, want mqtt failure", err)
	}
}
