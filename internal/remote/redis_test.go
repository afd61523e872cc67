package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, prefix)
	t.Cleanup(func() {
		store.Close()
	})
	return store, mr
}

func TestRedisStore_WriteAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, "radius:")

	if err := store.Write(ctx, "users/u1/venues/v1/visited", true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Write(ctx, "users/u1/venues/v1/lastUpdated", int64(42)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Write(ctx, "users/u2/venues/v1/visited", false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := mr.Get("radius:users/u1/venues/v1/visited")
	if err != nil {
		t.Fatalf("key not stored under prefix: %v", err)
	}
	if got != "true" {
		t.Errorf("stored value = %q, want %q", got, "true")
	}

	snap, err := store.ReadSnapshot(ctx, "users/u1/venues")
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("ReadSnapshot() returned %d children, want 1", len(snap))
	}

	var v1 struct {
		Visited     bool  `json:"visited"`
		LastUpdated int64 `json:"lastUpdated"`
	}
	if err := json.Unmarshal(snap["v1"], &v1); err != nil {
		t.Fatalf("decoding v1: %v", err)
	}
	if !v1.Visited || v1.LastUpdated != 42 {
		t.Errorf("v1 = %+v, want visited with lastUpdated 42", v1)
	}
}

func TestRedisStore_SnapshotSpansBatches(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, "")

	n := mgetBatch + 10
	for i := 0; i < n; i++ {
		if err := store.Write(ctx, fmt.Sprintf("users/u1/venues/v%d/visited", i), true); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	snap, err := store.ReadSnapshot(ctx, "users/u1/venues")
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap) != n {
		t.Errorf("ReadSnapshot() returned %d children, want %d", len(snap), n)
	}
}

func TestRedisStore_MissingPath(t *testing.T) {
	store, _ := newTestRedisStore(t, "radius:")

	snap, err := store.ReadSnapshot(context.Background(), "users/nobody/venues")
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("ReadSnapshot() = %v, want empty", snap)
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users/u1/", "users/u1/"},
		{"a*b", `a\*b`},
		{"q?[x]", `q\?\[x\]`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
