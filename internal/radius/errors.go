package radius

import "errors"

var (
	// ErrNotSignedIn is returned by operations that need an identity.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrVenueNotFound is returned when a venue id has no local record.
	ErrVenueNotFound = errors.New("venue not found")

	// ErrNoHomeBase is returned when venues are refreshed before a home base is set.
	ErrNoHomeBase = errors.New("home base not set")
)
