package radius

import "context"

// PlacesFetcher returns venues near a coordinate from an external search API.
// Implementations degrade to partial or empty results instead of failing.
type PlacesFetcher interface {
	FetchNearbyVenues(ctx context.Context, lat, lng float64) []ExternalVenue
}
