package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"radius-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		wantErr bool
	}{
		{
			name: "memory database",
			cfg:  config.DatabaseConfig{Type: "memory"},
		},
		{
			name: "sqlite database",
			cfg:  config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()},
		},
		{
			name:    "sqlite database without data_dir",
			cfg:     config.DatabaseConfig{Type: "sqlite"},
			wantErr: true,
		},
		{
			name:    "unknown database type",
			cfg:     config.DatabaseConfig{Type: "unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDatabaseFromConfig(tt.cfg, "device-123")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDatabaseFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Error("NewDatabaseFromConfig() should return nil on error")
				}
				return
			}
			defer got.Close()

			// The schema must be usable immediately.
			if _, err := got.EnsureUser(context.Background()); err != nil {
				t.Errorf("EnsureUser() error = %v", err)
			}
		})
	}
}

func TestNewDatabaseFromConfig_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DatabaseConfig{Type: "sqlite", DataDir: dir}
	ctx := context.Background()

	db, err := NewDatabaseFromConfig(cfg, "device-1")
	if err != nil {
		t.Fatalf("first open error = %v", err)
	}
	user, err := db.EnsureUser(ctx)
	if err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	user.Address = "1 Market St"
	if err := db.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Join(dir, "device-1.db")); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	db, err = NewDatabaseFromConfig(cfg, "device-1")
	if err != nil {
		t.Fatalf("second open error = %v", err)
	}
	defer db.Close()

	got, err := db.GetUser(ctx)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got == nil || got.Address != "1 Market St" {
		t.Errorf("GetUser() = %+v, want address %q", got, "1 Market St")
	}
}
