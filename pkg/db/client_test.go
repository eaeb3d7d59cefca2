package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/storefront/pkg/config"
)

func TestNewSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")
	client, err := New(context.Background(), config.StorageDriverSQLite, config.DBConfig{SQLitePath: path, MaxOpenConns: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if client.Dialect() != "sqlite3" {
		t.Fatalf("expected sqlite3 dialect, got %q", client.Dialect())
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		driver string
		cfg    config.DBConfig
	}{
		{name: "sqlite without path", driver: config.StorageDriverSQLite},
		{name: "postgres without dsn", driver: config.StorageDriverPostgres},
		{name: "unknown driver", driver: "memory", cfg: config.DBConfig{DSN: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(context.Background(), tc.driver, tc.cfg, nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
