package testutil

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"radius-go/internal/radius"
	"radius-go/internal/remote"
)

// NewTestRemote creates a new in-memory remote store for testing.
func NewTestRemote() *remote.MemoryStore {
	return remote.NewMemoryStore()
}

// RecordingRemote wraps a RemoteStore, records every write path and can be
// told to fail reads or writes. Safe for concurrent use.
type RecordingRemote struct {
	radius.RemoteStore

	mu         sync.Mutex
	writes     []string
	readErr    error
	writeErr   error
	failPrefix string
}

// NewRecordingRemote wraps inner.
func NewRecordingRemote(inner radius.RemoteStore) *RecordingRemote {
	return &RecordingRemote{RemoteStore: inner}
}

// FailReads makes every ReadSnapshot return err. A nil err clears it.
func (r *RecordingRemote) FailReads(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = err
}

// FailWrites makes writes under pathPrefix return err. An empty prefix
// matches every path; a nil err clears the failure.
func (r *RecordingRemote) FailWrites(pathPrefix string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failPrefix = pathPrefix
	r.writeErr = err
}

func (r *RecordingRemote) ReadSnapshot(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	r.mu.Lock()
	err := r.readErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.RemoteStore.ReadSnapshot(ctx, path)
}

func (r *RecordingRemote) Write(ctx context.Context, path string, value any) error {
	r.mu.Lock()
	r.writes = append(r.writes, path)
	err := r.writeErr
	if err != nil && strings.HasPrefix(path, r.failPrefix) {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()
	return r.RemoteStore.Write(ctx, path, value)
}

// Writes returns the paths of every attempted write, in order.
func (r *RecordingRemote) Writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

// ResetWrites forgets the recorded writes.
func (r *RecordingRemote) ResetWrites() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = nil
}

// StubFetcher returns a fixed set of venues and counts calls.
type StubFetcher struct {
	mu     sync.Mutex
	venues []radius.ExternalVenue
	calls  int
}

// NewStubFetcher creates a StubFetcher returning venues.
func NewStubFetcher(venues ...radius.ExternalVenue) *StubFetcher {
	return &StubFetcher{venues: venues}
}

func (f *StubFetcher) FetchNearbyVenues(ctx context.Context, lat, lng float64) []radius.ExternalVenue {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]radius.ExternalVenue(nil), f.venues...)
}

// SetVenues replaces the venues returned by later calls.
func (f *StubFetcher) SetVenues(venues ...radius.ExternalVenue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.venues = venues
}

// Calls returns how many times FetchNearbyVenues ran.
func (f *StubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ExternalVenue builds a fetched venue with rating and review count set.
func ExternalVenue(id, name string, rating float64, reviews int, lat, lng float64) radius.ExternalVenue {
	return radius.ExternalVenue{
		ID:          id,
		Name:        name,
		Rating:      &rating,
		ReviewCount: &reviews,
		Lat:         lat,
		Lng:         lng,
	}
}
