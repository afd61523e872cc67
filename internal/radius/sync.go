package radius

import (
	"context"
	"encoding/json"
	"fmt"
)

// SyncResult counts what one FullSync pass did.
type SyncResult struct {
	RemoteRecords  int // records decoded from the snapshot
	DecodeFailures int // snapshot entries skipped as malformed
	Pulled         int // local venues overwritten from remote
	Pushed         int // venues written to remote (local ahead)
	PushFailures   int // remote writes that failed during the pass
	InSync         int // venues whose timestamps already matched
	Unmatched      int // local venues with no remote record or remote timestamp
}

// SyncEngine reconciles the mutable venue fields between the local store and
// a per-user namespace in the remote store using last-write-wins on
// LastUpdated. Callers must not run FullSync concurrently with a reconcile
// pass on the same store.
type SyncEngine struct {
	store  Store
	remote RemoteStore
	logger Logger
}

// NewSyncEngine creates a SyncEngine over the given stores.
func NewSyncEngine(store Store, remote RemoteStore, logger Logger) *SyncEngine {
	return &SyncEngine{
		store:  store,
		remote: remote,
		logger: logger,
	}
}

// FullSync performs one bidirectional reconciliation pass for userID.
// It is a no-op for an empty userID.
//
// The remote snapshot is captured before any local mutation. Only local venues
// with a matching remote record that carries a LastUpdated are compared: a
// strictly newer remote overwrites Visited/Hidden locally, a strictly older
// remote receives the local values, and equal timestamps are left alone.
// Venues without such a record are counted as Unmatched and never written.
// Local changes are persisted once at the end.
func (e *SyncEngine) FullSync(ctx context.Context, userID string) (*SyncResult, error) {
	result := &SyncResult{}
	if userID == "" {
		return result, nil
	}

	snapshot, err := e.remote.ReadSnapshot(ctx, userVenuesPath(userID))
	if err != nil {
		return result, fmt.Errorf("reading remote venues: %w", err)
	}

	records := make(map[string]*RemoteVenueRecord, len(snapshot))
	for key, raw := range snapshot {
		var rec RemoteVenueRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			e.logger.Warn("skipping malformed remote venue", "key", key, "error", err)
			result.DecodeFailures++
			continue
		}
		// Records written by PushVenueUpdate always carry venueId. Older
		// records without it are matched by their child key, which is the
		// venue id they were written under.
		id := key
		if rec.VenueID != nil && *rec.VenueID != "" {
			id = *rec.VenueID
		}
		records[id] = &rec
		result.RemoteRecords++
	}

	venues, err := e.store.ListVenues(ctx, VenueFilter{})
	if err != nil {
		return result, fmt.Errorf("listing local venues: %w", err)
	}

	var changed []*Venue
	for _, v := range venues {
		rec := records[v.ID]
		if rec == nil || rec.LastUpdated == nil {
			result.Unmatched++
			continue
		}
		remoteUpdated := *rec.LastUpdated

		switch {
		case remoteUpdated > v.LastUpdated:
			if rec.Visited != nil {
				v.Visited = *rec.Visited
			}
			if rec.Hidden != nil {
				v.Hidden = *rec.Hidden
			}
			v.LastUpdated = remoteUpdated
			changed = append(changed, v)
			result.Pulled++
			e.logger.Debug("pulled remote venue state", "venue", v.ID, "last_updated", remoteUpdated)

		case remoteUpdated < v.LastUpdated:
			if err := e.PushVenueUpdate(ctx, userID, v.ID, v.Visited, v.Hidden, v.LastUpdated); err != nil {
				e.logger.Warn("pushing venue state failed", "venue", v.ID, "error", err)
				result.PushFailures++
				continue
			}
			result.Pushed++

		default:
			result.InSync++
		}
	}

	if len(changed) > 0 {
		if err := e.store.SaveVenues(ctx, changed); err != nil {
			e.logger.Error("persisting synced venues failed", "count", len(changed), "error", err)
			return result, fmt.Errorf("saving synced venues: %w", err)
		}
	}

	e.logger.Info("full sync complete",
		"user", userID,
		"remote", result.RemoteRecords,
		"pulled", result.Pulled,
		"pushed", result.Pushed,
		"unmatched", result.Unmatched,
		"decode_failures", result.DecodeFailures,
		"push_failures", result.PushFailures,
	)
	return result, nil
}

// PushVenueUpdate writes one venue's mutable fields to the remote store.
// It is a no-op for an empty userID.
func (e *SyncEngine) PushVenueUpdate(ctx context.Context, userID, venueID string, visited, hidden bool, lastUpdated int64) error {
	if userID == "" {
		return nil
	}

	node := userVenuePath(userID, venueID)
	fields := []struct {
		name  string
		value any
	}{
		{"venueId", venueID},
		{"visited", visited},
		{"hidden", hidden},
		{"lastUpdated", lastUpdated},
	}
	for _, f := range fields {
		if err := e.remote.Write(ctx, node+"/"+f.name, f.value); err != nil {
			return fmt.Errorf("writing %s for venue %s: %w", f.name, venueID, err)
		}
	}

	e.logger.Debug("pushed venue state", "venue", venueID, "last_updated", lastUpdated)
	return nil
}

// StoreHomeAddress mirrors the home base to the remote store.
// It is a no-op for an empty userID.
func (e *SyncEngine) StoreHomeAddress(ctx context.Context, userID, address string, lat, lng float64) error {
	if userID == "" {
		return nil
	}

	node := userAddressPath(userID)
	if err := e.remote.Write(ctx, node+"/address", address); err != nil {
		return fmt.Errorf("writing address: %w", err)
	}
	if err := e.remote.Write(ctx, node+"/latitude", lat); err != nil {
		return fmt.Errorf("writing latitude: %w", err)
	}
	if err := e.remote.Write(ctx, node+"/longitude", lng); err != nil {
		return fmt.Errorf("writing longitude: %w", err)
	}
	return nil
}
