package remote

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMemoryStore_WriteAndSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	writes := []struct {
		path  string
		value any
	}{
		{"users/u1/venues/v1/venueId", "v1"},
		{"users/u1/venues/v1/visited", true},
		{"users/u1/venues/v1/lastUpdated", int64(1700000000)},
		{"/users/u1/venues/v2/hidden/", true},
	}
	for _, w := range writes {
		if err := m.Write(ctx, w.path, w.value); err != nil {
			t.Fatalf("Write(%q) error = %v", w.path, err)
		}
	}

	snap, err := m.ReadSnapshot(ctx, "users/u1/venues")
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("ReadSnapshot() returned %d children, want 2", len(snap))
	}

	var v1 struct {
		VenueID     string `json:"venueId"`
		Visited     bool   `json:"visited"`
		LastUpdated int64  `json:"lastUpdated"`
	}
	if err := json.Unmarshal(snap["v1"], &v1); err != nil {
		t.Fatalf("decoding v1: %v", err)
	}
	if v1.VenueID != "v1" || !v1.Visited || v1.LastUpdated != 1700000000 {
		t.Errorf("v1 = %+v", v1)
	}

	if got, ok := m.Get("users/u1/venues/v2/hidden"); !ok || string(got) != "true" {
		t.Errorf("Get() = %s, %v, want true, true", got, ok)
	}
	if m.Len() != 4 {
		t.Errorf("Len() = %d, want 4", m.Len())
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if err := m.Write(ctx, "users/u1/venues/v1/visited", true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := m.Write(ctx, "users/u1/venues/v1/visited", false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, ok := m.Get("users/u1/venues/v1/visited")
	if !ok || string(got) != "false" {
		t.Errorf("Get() = %s, want false", got)
	}
}

func TestMemoryStore_MissingPath(t *testing.T) {
	m := NewMemoryStore()

	snap, err := m.ReadSnapshot(context.Background(), "users/nobody/venues")
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("ReadSnapshot() = %v, want empty", snap)
	}
}

func TestMemoryStore_InvalidPath(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if err := m.Write(ctx, "", true); err == nil {
		t.Error("Write() with empty path should fail")
	}
	if _, err := m.ReadSnapshot(ctx, "users//venues"); err == nil {
		t.Error("ReadSnapshot() with empty segment should fail")
	}
}

func TestMemoryStore_UnencodableValue(t *testing.T) {
	m := NewMemoryStore()

	err := m.Write(context.Background(), "users/u1/bad", make(chan int))
	if err == nil {
		t.Fatal("Write() of a channel should fail")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed write", m.Len())
	}
}
