package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/sandlin/cma-scout/internal/domain/model"
)

// Default connection behavior for PostgresStore.
const (
	defaultPingAttempts = 10
	defaultPingInterval = 2 * time.Second
)

// PostgresStore implements Store on PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB

	pingAttempts int
	pingInterval time.Duration
}

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPingRetries sets how often and how patiently the initial
// connectivity check retries.
func WithPingRetries(attempts int, interval time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if attempts > 0 {
			s.pingAttempts = attempts
		}
		if interval > 0 {
			s.pingInterval = interval
		}
	}
}

// NewPostgresStore opens a connection, waits for the database to come up,
// and runs the schema migration.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	s := &PostgresStore{
		db:           db,
		pingAttempts: defaultPingAttempts,
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	for i := 0; i < s.pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pingInterval):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: ping failed after %d attempts: %v", ErrUnavailable, s.pingAttempts, err)
	}

	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS assignments (
			id              TEXT PRIMARY KEY,
			community       TEXT NOT NULL,
			builder_name    TEXT NOT NULL,
			detected_name   TEXT NOT NULL DEFAULT '',
			url             TEXT NOT NULL DEFAULT '',
			lat             DOUBLE PRECISION NOT NULL DEFAULT 0,
			lon             DOUBLE PRECISION NOT NULL DEFAULT 0,
			price_min       INTEGER NOT NULL DEFAULT 0,
			price_max       INTEGER NOT NULL DEFAULT 0,
			competitor_id   TEXT NOT NULL DEFAULT '',
			alignment_score INTEGER,
			distance_miles  DOUBLE PRECISION NOT NULL DEFAULT 0,
			status          TEXT NOT NULL DEFAULT 'pending'
		);
		CREATE TABLE IF NOT EXISTS competitors (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			builder         TEXT NOT NULL DEFAULT '',
			lat             DOUBLE PRECISION NOT NULL DEFAULT 0,
			lon             DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_scraped    TIMESTAMPTZ NOT NULL,
			price_min       INTEGER NOT NULL DEFAULT 0,
			price_max       INTEGER NOT NULL DEFAULT 0,
			alignment_score INTEGER
		);
		CREATE TABLE IF NOT EXISTS alerts (
			id              TEXT PRIMARY KEY,
			competitor_id   TEXT NOT NULL,
			competitor_name TEXT NOT NULL,
			type            TEXT NOT NULL,
			severity        TEXT NOT NULL,
			message         TEXT NOT NULL,
			date            TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS alerts_competitor_idx ON alerts (competitor_id, type, date);
	`)
	return err
}

// ListAssignments returns all assignments ordered by id.
func (s *PostgresStore) ListAssignments(ctx context.Context) ([]model.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, community, builder_name, detected_name, url, lat, lon,
		       price_min, price_max, competitor_id, alignment_score,
		       distance_miles, status
		FROM assignments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list assignments: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var score sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Community, &a.BuilderName, &a.DetectedName,
			&a.URL, &a.Location.Lat, &a.Location.Lon,
			&a.PriceMin, &a.PriceMax, &a.CompetitorID, &score,
			&a.DistanceMiles, &a.Status); err != nil {
			return nil, fmt.Errorf("%w: scan assignment: %v", ErrUnavailable, err)
		}
		a.AlignmentScore = fromNullInt(score)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListCompetitors returns all competitors ordered by id.
func (s *PostgresStore) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, builder, lat, lon, last_scraped,
		       price_min, price_max, alignment_score
		FROM competitors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list competitors: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		var score sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &c.Builder,
			&c.Location.Lat, &c.Location.Lon, &c.LastScraped,
			&c.PriceMin, &c.PriceMax, &score); err != nil {
			return nil, fmt.Errorf("%w: scan competitor: %v", ErrUnavailable, err)
		}
		c.AlignmentScore = fromNullInt(score)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListAlerts returns all alerts, newest first.
func (s *PostgresStore) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, competitor_id, competitor_name, type, severity, message, date
		FROM alerts ORDER BY date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list alerts: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.CompetitorID, &a.CompetitorName,
			&a.Type, &a.Severity, &a.Message, &a.Date); err != nil {
			return nil, fmt.Errorf("%w: scan alert: %v", ErrUnavailable, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAssignment returns one assignment or ErrNotFound.
func (s *PostgresStore) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	var a model.Assignment
	var score sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, community, builder_name, detected_name, url, lat, lon,
		       price_min, price_max, competitor_id, alignment_score,
		       distance_miles, status
		FROM assignments WHERE id = $1`, id).
		Scan(&a.ID, &a.Community, &a.BuilderName, &a.DetectedName,
			&a.URL, &a.Location.Lat, &a.Location.Lon,
			&a.PriceMin, &a.PriceMax, &a.CompetitorID, &score,
			&a.DistanceMiles, &a.Status)
	if err == sql.ErrNoRows {
		return model.Assignment{}, ErrNotFound
	}
	if err != nil {
		return model.Assignment{}, fmt.Errorf("%w: get assignment: %v", ErrUnavailable, err)
	}
	a.AlignmentScore = fromNullInt(score)
	return a, nil
}

// GetCompetitor returns one competitor or ErrNotFound.
func (s *PostgresStore) GetCompetitor(ctx context.Context, id string) (model.Competitor, error) {
	var c model.Competitor
	var score sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, builder, lat, lon, last_scraped,
		       price_min, price_max, alignment_score
		FROM competitors WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Builder,
			&c.Location.Lat, &c.Location.Lon, &c.LastScraped,
			&c.PriceMin, &c.PriceMax, &score)
	if err == sql.ErrNoRows {
		return model.Competitor{}, ErrNotFound
	}
	if err != nil {
		return model.Competitor{}, fmt.Errorf("%w: get competitor: %v", ErrUnavailable, err)
	}
	c.AlignmentScore = fromNullInt(score)
	return c, nil
}

// PutAssignment creates or replaces an assignment.
func (s *PostgresStore) PutAssignment(ctx context.Context, a model.Assignment) error {
	_, err := s.db.ExecContext(ctx, upsertAssignmentSQL, assignmentArgs(a)...)
	if err != nil {
		return fmt.Errorf("%w: put assignment: %v", ErrUnavailable, err)
	}
	return nil
}

// ApplyOutcome writes the outcome inside one SQL transaction.
func (s *PostgresStore) ApplyOutcome(ctx context.Context, out Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if out.Assignment != nil {
		if _, err := tx.ExecContext(ctx, upsertAssignmentSQL, assignmentArgs(*out.Assignment)...); err != nil {
			return fmt.Errorf("%w: write assignment: %v", ErrUnavailable, err)
		}
	}
	if out.Competitor != nil {
		c := out.Competitor
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO competitors
				(id, name, builder, lat, lon, last_scraped, price_min, price_max, alignment_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, builder = EXCLUDED.builder,
				lat = EXCLUDED.lat, lon = EXCLUDED.lon,
				last_scraped = EXCLUDED.last_scraped,
				price_min = EXCLUDED.price_min, price_max = EXCLUDED.price_max,
				alignment_score = EXCLUDED.alignment_score`,
			c.ID, c.Name, c.Builder, c.Location.Lat, c.Location.Lon,
			c.LastScraped, c.PriceMin, c.PriceMax, toNullInt(c.AlignmentScore)); err != nil {
			return fmt.Errorf("%w: write competitor: %v", ErrUnavailable, err)
		}
	}
	for _, a := range out.Alerts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alerts
				(id, competitor_id, competitor_name, type, severity, message, date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.CompetitorID, a.CompetitorName, a.Type, a.Severity, a.Message, a.Date); err != nil {
			return fmt.Errorf("%w: write alert: %v", ErrUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

const upsertAssignmentSQL = `
	INSERT INTO assignments
		(id, community, builder_name, detected_name, url, lat, lon,
		 price_min, price_max, competitor_id, alignment_score, distance_miles, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		community = EXCLUDED.community, builder_name = EXCLUDED.builder_name,
		detected_name = EXCLUDED.detected_name, url = EXCLUDED.url,
		lat = EXCLUDED.lat, lon = EXCLUDED.lon,
		price_min = EXCLUDED.price_min, price_max = EXCLUDED.price_max,
		competitor_id = EXCLUDED.competitor_id,
		alignment_score = EXCLUDED.alignment_score,
		distance_miles = EXCLUDED.distance_miles, status = EXCLUDED.status`

func assignmentArgs(a model.Assignment) []any {
	return []any{
		a.ID, a.Community, a.BuilderName, a.DetectedName, a.URL,
		a.Location.Lat, a.Location.Lon, a.PriceMin, a.PriceMax,
		a.CompetitorID, toNullInt(a.AlignmentScore), a.DistanceMiles, a.Status,
	}
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
