package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"radius-go/internal/database/migrations"
	"radius-go/internal/radius"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements radius.Store using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// The schema is not touched; call Migrate before use.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:   db,
		path: path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:   db,
		path: "",
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// User operations

const userColumns = `email, firebase_id, address, lat, lng, show_visited, show_unvisited, show_hidden, last_fetch_at`

func (s *SQLiteDatabase) EnsureUser(ctx context.Context) (*radius.User, error) {
	defaults := radius.NewUser()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, show_visited, show_unvisited, show_hidden) VALUES (1, ?, ?, ?)`,
		defaults.ShowVisited, defaults.ShowUnvisited, defaults.ShowHidden,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	user, err := s.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user missing after insert")
	}
	return user, nil
}

func (s *SQLiteDatabase) GetUser(ctx context.Context) (*radius.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = 1`)

	var (
		u           radius.User
		lastFetchAt int64
	)
	err := row.Scan(&u.Email, &u.FirebaseID, &u.Address, &u.Lat, &u.Lng,
		&u.ShowVisited, &u.ShowUnvisited, &u.ShowHidden, &lastFetchAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if lastFetchAt > 0 {
		u.LastFetchAt = time.Unix(lastFetchAt, 0).UTC()
	}
	return &u, nil
}

func (s *SQLiteDatabase) SaveUser(ctx context.Context, u *radius.User) error {
	var lastFetchAt int64
	if !u.LastFetchAt.IsZero() {
		lastFetchAt = u.LastFetchAt.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, `+userColumns+`)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			firebase_id = excluded.firebase_id,
			address = excluded.address,
			lat = excluded.lat,
			lng = excluded.lng,
			show_visited = excluded.show_visited,
			show_unvisited = excluded.show_unvisited,
			show_hidden = excluded.show_hidden,
			last_fetch_at = excluded.last_fetch_at`,
		u.Email, u.FirebaseID, u.Address, u.Lat, u.Lng,
		u.ShowVisited, u.ShowUnvisited, u.ShowHidden, lastFetchAt,
	)
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// Venue operations

const venueColumns = `id, name, rating, review_count, image_url, lat, lng, miles_from_home, visited, hidden, active, last_updated`

// buildVenueWhere translates a filter into a WHERE clause and its arguments.
func buildVenueWhere(filter radius.VenueFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.ActiveOnly {
		conds = append(conds, "active = 1")
	}
	if filter.ApplyPreferences {
		if !filter.ShowHidden {
			conds = append(conds, "hidden = 0")
		}
		if !filter.ShowVisited {
			conds = append(conds, "visited = 0")
		}
		if !filter.ShowUnvisited {
			conds = append(conds, "visited = 1")
		}
	}
	if len(filter.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.IDs)), ",")
		conds = append(conds, "id IN ("+placeholders+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func venueOrder(sort radius.VenueSort) string {
	switch sort {
	case radius.SortByName:
		return " ORDER BY name COLLATE NOCASE, id"
	default:
		return " ORDER BY miles_from_home, id"
	}
}

func scanVenue(scan func(dest ...any) error) (*radius.Venue, error) {
	var v radius.Venue
	err := scan(&v.ID, &v.Name, &v.Rating, &v.ReviewCount, &v.ImageURL, &v.Lat, &v.Lng,
		&v.MilesFromHome, &v.Visited, &v.Hidden, &v.Active, &v.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteDatabase) ListVenues(ctx context.Context, filter radius.VenueFilter) ([]*radius.Venue, error) {
	where, args := buildVenueWhere(filter)
	rows, err := s.db.QueryContext(ctx, `SELECT `+venueColumns+` FROM venues`+where+venueOrder(filter.Sort), args...)
	if err != nil {
		return nil, fmt.Errorf("listing venues: %w", err)
	}
	defer rows.Close()

	var venues []*radius.Venue
	for rows.Next() {
		v, err := scanVenue(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning venue: %w", err)
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating venues: %w", err)
	}
	return venues, nil
}

func (s *SQLiteDatabase) GetVenue(ctx context.Context, id string) (*radius.Venue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
	v, err := scanVenue(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding venue: %w", err)
	}
	return v, nil
}

// SaveVenues upserts all venues inside one transaction, so a reconciliation
// pass becomes visible all at once or not at all.
func (s *SQLiteDatabase) SaveVenues(ctx context.Context, venues []*radius.Venue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO venues (`+venueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			rating = excluded.rating,
			review_count = excluded.review_count,
			image_url = excluded.image_url,
			lat = excluded.lat,
			lng = excluded.lng,
			miles_from_home = excluded.miles_from_home,
			visited = excluded.visited,
			hidden = excluded.hidden,
			active = excluded.active,
			last_updated = excluded.last_updated`)
	if err != nil {
		return fmt.Errorf("preparing venue upsert: %w", err)
	}
	defer stmt.Close()

	for _, v := range venues {
		_, err := stmt.ExecContext(ctx, v.ID, v.Name, v.Rating, v.ReviewCount, v.ImageURL,
			v.Lat, v.Lng, v.MilesFromHome, v.Visited, v.Hidden, v.Active, v.LastUpdated)
		if err != nil {
			return fmt.Errorf("saving venue %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteVenues(ctx context.Context, filter radius.VenueFilter) (int64, error) {
	where, args := buildVenueWhere(filter)
	res, err := s.db.ExecContext(ctx, `DELETE FROM venues`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting venues: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted venues: %w", err)
	}
	return n, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string) (*radius.Operation, error) {
	startedAt := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (operation, parameters, started_at) VALUES (?, ?, ?)`,
		operation, parameters, startedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &radius.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     "running",
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC().Unix(), status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*radius.Operation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation, parameters, started_at, finished_at, status
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*radius.Operation
	for rows.Next() {
		var (
			op         radius.Operation
			startedAt  int64
			finishedAt sql.NullInt64
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &startedAt, &finishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		op.StartedAt = time.Unix(startedAt, 0).UTC()
		if finishedAt.Valid {
			t := time.Unix(finishedAt.Int64, 0).UTC()
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate brings the schema up to the latest version.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements radius.Store interface
var _ radius.Store = (*SQLiteDatabase)(nil)
