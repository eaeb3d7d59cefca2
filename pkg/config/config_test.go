package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if !cfg.App.IsDev() {
		t.Fatalf("expected dev env by default, got %q", cfg.App.Env)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout 10s, got %v", cfg.API.Timeout)
	}
	if cfg.Storage.NormalizedDriver() != StorageDriverMemory {
		t.Fatalf("expected memory driver by default, got %q", cfg.Storage.Driver)
	}
	if cfg.Display.SuccessDuration != 1200*time.Millisecond || cfg.Display.WarningDuration != 2*time.Second {
		t.Fatalf("unexpected display durations %+v", cfg.Display)
	}
	if cfg.Display.Offset != 80 {
		t.Fatalf("expected offset 80, got %d", cfg.Display.Offset)
	}
	if cfg.Auth.LogoutOnUnauthorized {
		t.Fatalf("forced logout must be opt-in")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAppEnv, "PROD")
	t.Setenv(EnvAPITimeout, "2s")
	t.Setenv(EnvDisplayOffset, "150")
	t.Setenv(EnvLogoutOn401, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected prod env")
	}
	if cfg.API.Timeout != 2*time.Second {
		t.Fatalf("expected timeout override, got %v", cfg.API.Timeout)
	}
	if cfg.Display.Offset != 150 {
		t.Fatalf("expected offset override, got %d", cfg.Display.Offset)
	}
	if !cfg.Auth.LogoutOnUnauthorized {
		t.Fatalf("expected forced logout enabled")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAPIBaseURL); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAPIBaseURL, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_StorageDriverRequirements(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "redis without address", env: map[string]string{EnvStorageDriver: "redis"}, wantErr: true},
		{name: "redis with url", env: map[string]string{EnvStorageDriver: "redis", EnvRedisURL: "redis://localhost:6379/0"}},
		{name: "postgres without dsn", env: map[string]string{EnvStorageDriver: "postgres"}, wantErr: true},
		{name: "postgres with dsn", env: map[string]string{EnvStorageDriver: "postgres", EnvDBDSN: "postgres://u:p@localhost/db"}},
		{name: "sqlite default path", env: map[string]string{EnvStorageDriver: "SQLite"}},
		{name: "unknown driver", env: map[string]string{EnvStorageDriver: "floppy"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setMinimalEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAPIBaseURL, "http://localhost:8080/api")
	for _, key := range []string{EnvAppEnv, EnvStorageDriver, EnvDBDSN, EnvRedisURL, EnvRedisAddr, EnvAPITimeout, EnvDisplayOffset, EnvLogoutOn401} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}
