package remote

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"radius-go/internal/config"
)

func TestNewRemoteStoreFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	fsRoot := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.RemoteConfig
		wantErr bool
	}{
		{
			name: "memory store",
			cfg:  config.RemoteConfig{Type: "memory"},
		},
		{
			name: "empty type defaults to memory",
			cfg:  config.RemoteConfig{},
		},
		{
			name: "filesystem store",
			cfg:  config.RemoteConfig{Type: "filesystem", FSRoot: fsRoot},
		},
		{
			name:    "filesystem without root",
			cfg:     config.RemoteConfig{Type: "filesystem"},
			wantErr: true,
		},
		{
			name: "redis store",
			cfg:  config.RemoteConfig{Type: "redis", RedisURL: "redis://" + mr.Addr(), RedisKeyPrefix: "radius:"},
		},
		{
			name:    "redis without url",
			cfg:     config.RemoteConfig{Type: "redis"},
			wantErr: true,
		},
		{
			name:    "s3 without bucket",
			cfg:     config.RemoteConfig{Type: "s3"},
			wantErr: true,
		},
		{
			name:    "mongo without uri",
			cfg:     config.RemoteConfig{Type: "mongo"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			cfg:     config.RemoteConfig{Type: "firebase"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRemoteStoreFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewRemoteStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Error("NewRemoteStoreFromConfig() should return nil on error")
				}
				return
			}
			if got == nil {
				t.Fatal("NewRemoteStoreFromConfig() returned nil store")
			}
			got.Close()
		})
	}
}
