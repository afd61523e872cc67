package radius

import "time"

// MinReviewsForNewVenue is the popularity threshold a fetched venue must exceed
// before it is added to local history.
const MinReviewsForNewVenue = 5

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// IsZero reports whether the coordinate has never been set.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Venue is a locally tracked point of interest.
// Display fields (Name through MilesFromHome) are derived from the latest fetch;
// Visited, Hidden and LastUpdated are user state that is synced remotely.
type Venue struct {
	ID            string
	Name          string
	Rating        float64
	ReviewCount   int
	ImageURL      string // empty when unknown
	Lat           float64
	Lng           float64
	MilesFromHome float64

	Visited     bool
	Hidden      bool
	Active      bool
	LastUpdated int64 // unix seconds of the last visited/hidden change
}

// resetDisplay clears every field derived from a fetch so stale venues
// cannot show outdated information.
func (v *Venue) resetDisplay() {
	v.Name = ""
	v.Rating = 0
	v.ReviewCount = 0
	v.ImageURL = ""
	v.Lat = 0
	v.Lng = 0
	v.MilesFromHome = 0
	v.Active = false
}

// User is the single per-device user record.
type User struct {
	Email      string
	FirebaseID string // identity-provider subject id; empty when signed out
	Address    string
	Lat        float64
	Lng        float64

	ShowVisited   bool
	ShowUnvisited bool
	ShowHidden    bool

	LastFetchAt time.Time // zero if venues were never fetched
}

// NewUser returns a User with the default list preferences.
func NewUser() *User {
	return &User{
		ShowVisited:   true,
		ShowUnvisited: true,
		ShowHidden:    false,
	}
}

// Home returns the user's home base coordinate.
func (u *User) Home() Coordinate {
	return Coordinate{Lat: u.Lat, Lng: u.Lng}
}

// SignedIn reports whether an identity is attached to this device.
func (u *User) SignedIn() bool {
	return u.FirebaseID != ""
}

// ExternalVenue is a venue as returned by the nearby-search API.
// Optional upstream fields are pointers; nil means the API omitted them.
type ExternalVenue struct {
	ID          string
	Name        string
	ImageURL    *string
	Rating      *float64
	ReviewCount *int
	Lat         float64
	Lng         float64
}

// RemoteVenueRecord is the remote-store view of a venue's mutable fields.
// A nil field means the remote side has no opinion yet.
type RemoteVenueRecord struct {
	VenueID     *string `json:"venueId,omitempty"`
	Visited     *bool   `json:"visited,omitempty"`
	Hidden      *bool   `json:"hidden,omitempty"`
	LastUpdated *int64  `json:"lastUpdated,omitempty"`
}

// VenueSort selects the ordering of ListVenues results.
type VenueSort int

const (
	SortByDistance VenueSort = iota
	SortByName
)

// VenueFilter is the query predicate for local venue lookups.
// The zero value matches every venue.
type VenueFilter struct {
	ActiveOnly bool
	// When ApplyPreferences is set, the three Show* flags restrict results
	// the same way the user's list preferences do.
	ApplyPreferences bool
	ShowVisited      bool
	ShowUnvisited    bool
	ShowHidden       bool
	// IDs, when non-empty, restricts results to these venue ids.
	IDs  []string
	Sort VenueSort
}

// FilterFromPreferences builds the list filter the user has configured.
func FilterFromPreferences(u *User) VenueFilter {
	return VenueFilter{
		ActiveOnly:       true,
		ApplyPreferences: true,
		ShowVisited:      u.ShowVisited,
		ShowUnvisited:    u.ShowUnvisited,
		ShowHidden:       u.ShowHidden,
		Sort:             SortByDistance,
	}
}

// Operation is a recorded fetch, sync or user-edit pass.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}
