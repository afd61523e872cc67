package radius

import (
	"context"
	"fmt"
	"time"
)

// RadiusService is the orchestration layer that coordinates the local store,
// the places fetcher and the sync engine for the operations the CLI exposes.
type RadiusService struct {
	store            Store
	fetcher          PlacesFetcher
	sync             *SyncEngine
	logger           Logger
	clock            Clock
	minFetchInterval time.Duration
}

// NewRadiusService creates a new RadiusService with the provided dependencies.
// minFetchInterval throttles RefreshVenues; zero disables throttling.
func NewRadiusService(store Store, fetcher PlacesFetcher, remote RemoteStore, logger Logger, clock Clock, minFetchInterval time.Duration) *RadiusService {
	return &RadiusService{
		store:            store,
		fetcher:          fetcher,
		sync:             NewSyncEngine(store, remote, logger),
		logger:           logger,
		clock:            clock,
		minFetchInterval: minFetchInterval,
	}
}

// Init performs the one-time startup step of loading or creating the device user.
func (s *RadiusService) Init(ctx context.Context) (*User, error) {
	user, err := s.store.EnsureUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing user: %w", err)
	}
	return user, nil
}

// User returns the device user. Init must have been called first.
func (s *RadiusService) User(ctx context.Context) (*User, error) {
	user, err := s.store.GetUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not initialized")
	}
	return user, nil
}

// RefreshVenues fetches venues around the home base and reconciles them into
// local history in one atomic save. It returns nil, nil when throttled.
func (s *RadiusService) RefreshVenues(ctx context.Context, force bool) (*ReconcileResult, error) {
	user, err := s.User(ctx)
	if err != nil {
		return nil, err
	}
	home := user.Home()
	if home.IsZero() {
		return nil, ErrNoHomeBase
	}

	now := s.clock.Now()
	if !force && s.minFetchInterval > 0 && !user.LastFetchAt.IsZero() && now.Sub(user.LastFetchAt) < s.minFetchInterval {
		s.logger.Info("venue refresh skipped", "last_fetch", user.LastFetchAt.UTC().Format(time.RFC3339))
		return nil, nil
	}

	fetched := s.fetcher.FetchNearbyVenues(ctx, home.Lat, home.Lng)

	local, err := s.store.ListVenues(ctx, VenueFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing local venues: %w", err)
	}

	result := Reconcile(fetched, home, local)

	if err := s.store.SaveVenues(ctx, result.Venues); err != nil {
		s.logger.Error("persisting reconciled venues failed", "count", len(result.Venues), "error", err)
		return nil, fmt.Errorf("saving reconciled venues: %w", err)
	}

	user.LastFetchAt = now
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("recording fetch time: %w", err)
	}

	s.logger.Info("venues reconciled",
		"fetched", len(fetched),
		"updated", result.Updated,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"stale", result.Stale,
	)
	return result, nil
}

// FullSync runs a bidirectional sync for the signed-in user.
func (s *RadiusService) FullSync(ctx context.Context) (*SyncResult, error) {
	user, err := s.User(ctx)
	if err != nil {
		return nil, err
	}
	if !user.SignedIn() {
		return nil, ErrNotSignedIn
	}
	return s.sync.FullSync(ctx, user.FirebaseID)
}

// ListVenues returns the venues the user's list preferences make visible.
func (s *RadiusService) ListVenues(ctx context.Context) ([]*Venue, error) {
	user, err := s.User(ctx)
	if err != nil {
		return nil, err
	}
	venues, err := s.store.ListVenues(ctx, FilterFromPreferences(user))
	if err != nil {
		return nil, fmt.Errorf("listing venues: %w", err)
	}
	return venues, nil
}

// SetVisited records a local visited toggle and pushes it upstream.
func (s *RadiusService) SetVisited(ctx context.Context, venueID string, visited bool) (*Venue, error) {
	return s.updateVenueState(ctx, venueID, func(v *Venue) { v.Visited = visited })
}

// SetHidden records a local hidden toggle and pushes it upstream.
func (s *RadiusService) SetHidden(ctx context.Context, venueID string, hidden bool) (*Venue, error) {
	return s.updateVenueState(ctx, venueID, func(v *Venue) { v.Hidden = hidden })
}

// updateVenueState applies mutate, advances LastUpdated and persists the venue.
// A mutation that leaves Visited and Hidden as they were is a no-op.
// The remote push is fire-and-forget: a failure is logged, never returned.
func (s *RadiusService) updateVenueState(ctx context.Context, venueID string, mutate func(*Venue)) (*Venue, error) {
	v, err := s.store.GetVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("loading venue: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrVenueNotFound, venueID)
	}

	visited, hidden := v.Visited, v.Hidden
	mutate(v)
	if v.Visited == visited && v.Hidden == hidden {
		return v, nil
	}
	v.LastUpdated = nextTimestamp(s.clock.Now().Unix(), v.LastUpdated)

	if err := s.store.SaveVenues(ctx, []*Venue{v}); err != nil {
		s.logger.Error("persisting venue state failed", "venue", v.ID, "error", err)
		return nil, fmt.Errorf("saving venue: %w", err)
	}

	user, err := s.User(ctx)
	if err != nil {
		return v, err
	}
	if err := s.sync.PushVenueUpdate(ctx, user.FirebaseID, v.ID, v.Visited, v.Hidden, v.LastUpdated); err != nil {
		s.logger.Warn("remote venue update failed", "venue", v.ID, "error", err)
	}
	return v, nil
}

// ForgetVenue removes a venue from local history. A later fetch may add it
// back if it still meets the popularity threshold.
func (s *RadiusService) ForgetVenue(ctx context.Context, venueID string) error {
	n, err := s.store.DeleteVenues(ctx, VenueFilter{IDs: []string{venueID}})
	if err != nil {
		s.logger.Error("deleting venue failed", "venue", venueID, "error", err)
		return fmt.Errorf("deleting venue: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrVenueNotFound, venueID)
	}
	s.logger.Info("venue forgotten", "venue", venueID)
	return nil
}

// nextTimestamp keeps LastUpdated strictly increasing even when the wall
// clock is behind the previous stamp.
func nextTimestamp(now, previous int64) int64 {
	if now > previous {
		return now
	}
	return previous + 1
}

// SetHome updates the home base locally and mirrors it remotely when signed in.
// Distances are recomputed on the next RefreshVenues.
func (s *RadiusService) SetHome(ctx context.Context, address string, lat, lng float64) error {
	user, err := s.User(ctx)
	if err != nil {
		return err
	}

	user.Address = address
	user.Lat = lat
	user.Lng = lng
	// A new home invalidates the throttle window.
	user.LastFetchAt = time.Time{}

	if err := s.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("saving home base: %w", err)
	}

	if err := s.sync.StoreHomeAddress(ctx, user.FirebaseID, address, lat, lng); err != nil {
		s.logger.Warn("remote home address update failed", "error", err)
	}
	return nil
}

// SetPreferences stores the venue list filter preferences.
func (s *RadiusService) SetPreferences(ctx context.Context, showVisited, showUnvisited, showHidden bool) error {
	user, err := s.User(ctx)
	if err != nil {
		return err
	}
	user.ShowVisited = showVisited
	user.ShowUnvisited = showUnvisited
	user.ShowHidden = showHidden
	if err := s.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// SignIn attaches an identity to this device, mirrors the home base and
// runs a full sync for the new identity.
func (s *RadiusService) SignIn(ctx context.Context, email, userID string) (*SyncResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	user, err := s.User(ctx)
	if err != nil {
		return nil, err
	}
	user.Email = email
	user.FirebaseID = userID
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("saving identity: %w", err)
	}
	s.logger.Info("signed in", "user", userID)

	if user.Address != "" {
		if err := s.sync.StoreHomeAddress(ctx, userID, user.Address, user.Lat, user.Lng); err != nil {
			s.logger.Warn("remote home address update failed", "error", err)
		}
	}

	return s.sync.FullSync(ctx, userID)
}

// SignOut detaches the identity from this device. Local venues are kept.
func (s *RadiusService) SignOut(ctx context.Context) error {
	user, err := s.User(ctx)
	if err != nil {
		return err
	}
	if !user.SignedIn() {
		return ErrNotSignedIn
	}
	user.Email = ""
	user.FirebaseID = ""
	if err := s.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("clearing identity: %w", err)
	}
	s.logger.Info("signed out")
	return nil
}

// DeleteAccount clears identity fields while retaining local venue history.
// It reports whether the deletion took effect; the caller owns user messaging.
func (s *RadiusService) DeleteAccount(ctx context.Context) (bool, error) {
	user, err := s.User(ctx)
	if err != nil {
		return false, err
	}
	if !user.SignedIn() {
		return false, ErrNotSignedIn
	}

	userID := user.FirebaseID
	user.Email = ""
	user.FirebaseID = ""
	if err := s.store.SaveUser(ctx, user); err != nil {
		s.logger.Error("account deletion failed", "user", userID, "error", err)
		return false, fmt.Errorf("clearing identity: %w", err)
	}

	s.logger.Info("account deleted", "user", userID)
	return true, nil
}

// GetHistory returns the most recent operations, newest first.
func (s *RadiusService) GetHistory(ctx context.Context, limit int) ([]*Operation, error) {
	ops, err := s.store.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
