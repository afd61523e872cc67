package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"radius-go/internal/config"
	"radius-go/internal/database"
	"radius-go/internal/places"
	"radius-go/internal/radius"
	"radius-go/internal/remote"
)

// RadiusApp is the application layer between the CLI and RadiusService.
// It constructs all dependencies from config, records an operation for every
// mutating command, and manages the store lifecycle on Close.
type RadiusApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	remote  radius.RemoteStore
	service *radius.RadiusService
	logger  radius.Logger
	op      *Operation
	logFile *os.File
}

// NewRadiusApp creates a fully wired RadiusApp from the given config.
// operation identifies the CLI command being run (e.g. "fetch", "sync").
// The caller must call Close when done.
func NewRadiusApp(ctx context.Context, cfg *config.Config, operation string) (*RadiusApp, error) {
	opID := uuid.New().String()
	slogger, logFile, err := newLogger(cfg.LogDir, opID, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.DeviceID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	rs, err := remote.NewRemoteStoreFromConfig(ctx, cfg.Remote)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating remote store: %w", err)
	}

	fetcher := places.NewClient(placesConfig(cfg.Places), nil, logger)
	minInterval := time.Duration(cfg.Places.MinFetchIntervalMinutes) * time.Minute

	svc := radius.NewRadiusService(db, fetcher, rs, logger, radius.RealClock{}, minInterval)
	if _, err := svc.Init(ctx); err != nil {
		rs.Close()
		db.Close()
		logFile.Close()
		return nil, err
	}

	return &RadiusApp{
		cfg:     cfg,
		db:      db,
		remote:  rs,
		service: svc,
		logger:  logger,
		op:      NewOperation(operation),
		logFile: logFile,
	}, nil
}

// placesConfig maps the file configuration onto the client configuration,
// filling defaults for unset values.
func placesConfig(cfg config.PlacesConfig) places.Config {
	out := places.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Terms:     cfg.Terms,
		MaxPages:  cfg.MaxPages,
		PageDelay: pageDelay(cfg.PageDelayMS),
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	if out.BaseURL == "" {
		out.BaseURL = config.DefaultPlacesBaseURL
	}
	if len(out.Terms) == 0 {
		out.Terms = config.DefaultTerms
	}
	if out.MaxPages <= 0 {
		out.MaxPages = config.DefaultMaxPages
	}
	if out.Timeout <= 0 {
		out.Timeout = config.DefaultTimeoutSeconds * time.Second
	}
	return out
}

// pageDelay maps page_delay_ms to a duration. An unset value gets the
// default wait and a negative value turns it off.
func pageDelay(ms int) time.Duration {
	switch {
	case ms < 0:
		return 0
	case ms == 0:
		return config.DefaultPageDelayMS * time.Millisecond
	default:
		return time.Duration(ms) * time.Millisecond
	}
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for commands that change local or remote state.
func (a *RadiusApp) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(ctx, a.op.Operation, parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// User returns the device user.
func (a *RadiusApp) User(ctx context.Context) (*radius.User, error) {
	return a.service.User(ctx)
}

// SetHome stores a new home base.
func (a *RadiusApp) SetHome(ctx context.Context, address string, lat, lng float64) error {
	if err := a.persistOperation(ctx, fmt.Sprintf("address=%q lat=%g lng=%g", address, lat, lng)); err != nil {
		return err
	}
	return a.op.Record(a.service.SetHome(ctx, address, lat, lng))
}

// RefreshVenues fetches and reconciles venues around the home base.
// It returns nil, nil when the refresh was throttled.
func (a *RadiusApp) RefreshVenues(ctx context.Context, force bool) (*radius.ReconcileResult, error) {
	if err := a.persistOperation(ctx, fmt.Sprintf("force=%t", force)); err != nil {
		return nil, err
	}
	result, err := a.service.RefreshVenues(ctx, force)
	return result, a.op.Record(err)
}

// FullSync runs a bidirectional sync for the signed-in user.
func (a *RadiusApp) FullSync(ctx context.Context) (*radius.SyncResult, error) {
	if err := a.persistOperation(ctx, ""); err != nil {
		return nil, err
	}
	result, err := a.service.FullSync(ctx)
	return result, a.op.Record(err)
}

// ListVenues returns the venues visible under the user's preferences.
func (a *RadiusApp) ListVenues(ctx context.Context) ([]*radius.Venue, error) {
	return a.service.ListVenues(ctx)
}

// SetVisited marks a venue visited or unvisited.
func (a *RadiusApp) SetVisited(ctx context.Context, venueID string, visited bool) (*radius.Venue, error) {
	if err := a.persistOperation(ctx, fmt.Sprintf("venue=%s visited=%t", venueID, visited)); err != nil {
		return nil, err
	}
	v, err := a.service.SetVisited(ctx, venueID, visited)
	return v, a.op.Record(err)
}

// SetHidden hides or unhides a venue.
func (a *RadiusApp) SetHidden(ctx context.Context, venueID string, hidden bool) (*radius.Venue, error) {
	if err := a.persistOperation(ctx, fmt.Sprintf("venue=%s hidden=%t", venueID, hidden)); err != nil {
		return nil, err
	}
	v, err := a.service.SetHidden(ctx, venueID, hidden)
	return v, a.op.Record(err)
}

// ForgetVenue removes a venue from local history.
func (a *RadiusApp) ForgetVenue(ctx context.Context, venueID string) error {
	if err := a.persistOperation(ctx, fmt.Sprintf("venue=%s", venueID)); err != nil {
		return err
	}
	return a.op.Record(a.service.ForgetVenue(ctx, venueID))
}

// SetPreferences stores the venue list filter preferences.
func (a *RadiusApp) SetPreferences(ctx context.Context, showVisited, showUnvisited, showHidden bool) error {
	params := fmt.Sprintf("visited=%t unvisited=%t hidden=%t", showVisited, showUnvisited, showHidden)
	if err := a.persistOperation(ctx, params); err != nil {
		return err
	}
	return a.op.Record(a.service.SetPreferences(ctx, showVisited, showUnvisited, showHidden))
}

// SignIn attaches an identity and syncs it.
func (a *RadiusApp) SignIn(ctx context.Context, email, userID string) (*radius.SyncResult, error) {
	if err := a.persistOperation(ctx, fmt.Sprintf("email=%s", email)); err != nil {
		return nil, err
	}
	result, err := a.service.SignIn(ctx, email, userID)
	return result, a.op.Record(err)
}

// SignOut detaches the identity.
func (a *RadiusApp) SignOut(ctx context.Context) error {
	if err := a.persistOperation(ctx, ""); err != nil {
		return err
	}
	return a.op.Record(a.service.SignOut(ctx))
}

// DeleteAccount clears the identity while keeping venue history.
func (a *RadiusApp) DeleteAccount(ctx context.Context) (bool, error) {
	if err := a.persistOperation(ctx, ""); err != nil {
		return false, err
	}
	ok, err := a.service.DeleteAccount(ctx)
	return ok, a.op.Record(err)
}

// GetHistory returns the most recent operations.
func (a *RadiusApp) GetHistory(ctx context.Context, limit int) ([]*radius.Operation, error) {
	return a.service.GetHistory(ctx, limit)
}

// Close finalizes the operation and closes all resources.
func (a *RadiusApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.remote.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing remote store: %w", err)
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
