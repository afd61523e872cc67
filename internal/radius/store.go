package radius

import "context"

// Store is the on-device record store for venues, the user and operation history.
// Implementations own their durability; SaveVenues must be atomic so readers
// never observe a partially applied reconciliation pass.
type Store interface {
	// User operations

	// EnsureUser returns the singleton user, creating it with default
	// preferences if this device has none yet.
	EnsureUser(ctx context.Context) (*User, error)

	// GetUser returns the singleton user, or nil if EnsureUser was never called.
	GetUser(ctx context.Context) (*User, error)

	// SaveUser overwrites the singleton user.
	SaveUser(ctx context.Context, user *User) error

	// Venue operations

	// ListVenues returns venues matching filter, ordered by filter.Sort.
	ListVenues(ctx context.Context, filter VenueFilter) ([]*Venue, error)

	// GetVenue returns a venue by id, or nil if it does not exist.
	GetVenue(ctx context.Context, id string) (*Venue, error)

	// SaveVenues inserts or replaces all given venues in a single transaction.
	SaveVenues(ctx context.Context, venues []*Venue) error

	// DeleteVenues removes venues matching filter and returns how many were removed.
	DeleteVenues(ctx context.Context, filter VenueFilter) (int64, error)

	// Operation history

	// CreateOperation records the start of a pass and returns it with its ID set.
	CreateOperation(ctx context.Context, operation, parameters string) (*Operation, error)

	// FinishOperation marks an operation complete with the given status.
	FinishOperation(ctx context.Context, id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)

	// Close closes the underlying connection.
	Close() error
}
