package radius

import "radius-go/internal/geo"

// ReconcileResult describes the outcome of merging one fetch into local history.
type ReconcileResult struct {
	// Venues holds every record that must be persisted: all pre-existing
	// local venues (mutated in place) followed by newly inserted ones.
	Venues []*Venue

	Updated  int // existing venues refreshed from the fetch
	Inserted int // new venues that met the popularity threshold
	Skipped  int // new venues rejected by the popularity threshold
	Stale    int // existing venues absent from the fetch
}

// Reconcile merges fetched venues into the local record set.
//
// Every local venue is first marked inactive with its display fields cleared.
// Fetched venues matching a local id then overwrite the display fields and are
// re-activated; unmatched fetched venues are inserted only when they carry both
// a rating and more than MinReviewsForNewVenue reviews. Visited, Hidden and
// LastUpdated are never touched here.
func Reconcile(fetched []ExternalVenue, home Coordinate, local []*Venue) *ReconcileResult {
	byID := make(map[string]*Venue, len(local))
	for _, v := range local {
		v.resetDisplay()
		byID[v.ID] = v
	}

	result := &ReconcileResult{
		Venues: append([]*Venue(nil), local...),
	}

	for i := range fetched {
		ext := &fetched[i]

		if existing, ok := byID[ext.ID]; ok {
			if !existing.Active {
				result.Updated++
			}
			applyExternal(existing, ext, home)
			continue
		}

		if !popularEnough(ext) {
			result.Skipped++
			continue
		}

		v := &Venue{ID: ext.ID}
		applyExternal(v, ext, home)
		byID[v.ID] = v
		result.Venues = append(result.Venues, v)
		result.Inserted++
	}

	for _, v := range local {
		if !v.Active {
			result.Stale++
		}
	}

	return result
}

// popularEnough reports whether a venue without local history may be inserted.
func popularEnough(ext *ExternalVenue) bool {
	if ext.Rating == nil || ext.ReviewCount == nil {
		return false
	}
	return *ext.ReviewCount > MinReviewsForNewVenue
}

// applyExternal copies display fields from ext and recomputes the distance from home.
func applyExternal(v *Venue, ext *ExternalVenue, home Coordinate) {
	v.Name = ext.Name
	v.Lat = ext.Lat
	v.Lng = ext.Lng

	v.Rating = 0
	if ext.Rating != nil {
		v.Rating = *ext.Rating
	}
	v.ReviewCount = 0
	if ext.ReviewCount != nil {
		v.ReviewCount = *ext.ReviewCount
	}
	v.ImageURL = ""
	if ext.ImageURL != nil {
		v.ImageURL = *ext.ImageURL
	}

	v.MilesFromHome = geo.DistanceMiles(home.Lat, home.Lng, ext.Lat, ext.Lng)
	v.Active = true
}
