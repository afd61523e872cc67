package radius

import (
	"context"
	"encoding/json"
	"fmt"
)

// RemoteStore is a hierarchical key-value store addressed by slash-separated
// paths, e.g. "users/{uid}/venues/{venueId}/visited".
type RemoteStore interface {
	// ReadSnapshot returns every direct child of path as a JSON value captured
	// at a single point in time. A missing path yields an empty map.
	ReadSnapshot(ctx context.Context, path string) (map[string]json.RawMessage, error)

	// Write stores value at path, replacing anything already there.
	Write(ctx context.Context, path string, value any) error

	// Close releases any connections held by the store.
	Close() error
}

func userVenuesPath(userID string) string {
	return fmt.Sprintf("users/%s/venues", userID)
}

func userVenuePath(userID, venueID string) string {
	return fmt.Sprintf("users/%s/venues/%s", userID, venueID)
}

func userAddressPath(userID string) string {
	return fmt.Sprintf("users/%s/address", userID)
}
