package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "ADMIN_EMAIL", "ADMIN_PASSWORD", "SESSION_SECRET", "DB_PATH",
		"PORT", "REMOTE_DATABASE_DSN", "DEFAULT_TRM", "SYNC_INTERVAL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdirTemp(t)

	cfg := Load()

	if cfg.DBPath != defaultDBPath || cfg.Port != defaultPort {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultTRM != defaultTRM || cfg.SyncInterval != defaultSyncInterval {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
	if !cfg.IsDev() || cfg.SyncEnabled() {
		t.Fatalf("expected dev mode without sync: %+v", cfg)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnv(t *testing.T) {
	clearEnv(t)
	dir := chdirTemp(t)

	content := []byte(`
# comment

APP_ENV=production
export PORT=9090
DEFAULT_TRM="4150.5"
SYNC_INTERVAL=30s
REMOTE_DATABASE_DSN=postgres://localhost/cotizaciones
`)
	if err := os.WriteFile(filepath.Join(dir, ".env"), content, 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("PORT", "7070")

	cfg := Load()

	if cfg.Port != "7070" {
		t.Fatalf("Port=%q, want real env value %q", cfg.Port, "7070")
	}
	if cfg.IsDev() {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.DefaultTRM != 4150.5 {
		t.Fatalf("DefaultTRM=%v, want 4150.5", cfg.DefaultTRM)
	}
	if cfg.SyncInterval != 30*time.Second || !cfg.SyncEnabled() {
		t.Fatalf("unexpected sync config: %+v", cfg)
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	chdirTemp(t)
	t.Setenv("DEFAULT_TRM", "-3")
	t.Setenv("SYNC_INTERVAL", "soon")

	cfg := Load()

	if cfg.DefaultTRM != defaultTRM {
		t.Fatalf("DefaultTRM=%v, want %v", cfg.DefaultTRM, defaultTRM)
	}
	if cfg.SyncInterval != defaultSyncInterval {
		t.Fatalf("SyncInterval=%s, want %s", cfg.SyncInterval, defaultSyncInterval)
	}
}
