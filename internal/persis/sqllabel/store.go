// Package sqllabel implements the label store on top of database/sql.
// SQLite and PostgreSQL are supported; the engine is chosen from the
// database URL.
package sqllabel

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/churnlab/retrainer/internal/cmn/backoff"
	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/core/exec"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ exec.LabelStore = (*Store)(nil)

// Store reads and writes customer labels.
type Store struct {
	db           *sql.DB
	dialect      Dialect
	now          func() time.Time
	connectRetry backoff.RetryPolicy
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithConnectRetry retries the initial connection according to policy.
// Invalid URLs are never retried.
func WithConnectRetry(policy backoff.RetryPolicy) Option {
	return func(s *Store) {
		s.connectRetry = policy
	}
}

// Open connects to the database identified by url. The schema is not
// touched; call Migrate for that.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	dialect, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dialect.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Driver, err)
	}
	if dialect.Driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}

	s := New(db, dialect, opts...)
	if err := s.ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect.Driver, err)
	}

	logger.Debug(ctx, "Label store opened", tag.Driver(dialect.Driver))
	return s, nil
}

func (s *Store) ping(ctx context.Context) error {
	if s.connectRetry == nil {
		return s.db.PingContext(ctx)
	}
	return backoff.Retry(ctx, s.db.PingContext, s.connectRetry, nil)
}

// New wraps an already opened database.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialect, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(s.dialect.Goose, s.db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate label store: %w", err)
	}
	for _, r := range results {
		logger.Info(ctx, "Applied migration",
			tag.File(r.Source.Path),
			tag.Duration(r.Duration),
		)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CountLabels returns the number of labeled customers.
func (s *Store) CountLabels(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customer_labels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count labels: %w", err)
	}
	return n, nil
}

// FetchTrainingSet returns every labeled customer ordered by customer id.
func (s *Store) FetchTrainingSet(ctx context.Context) (*core.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, target, features, created_at, updated_at
		FROM customer_labels
		ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ds := &core.Dataset{}
	for rows.Next() {
		var (
			rec       core.LabeledCustomer
			features  string
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&rec.CustomerID, &rec.Target, &features, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
			return nil, fmt.Errorf("invalid features for customer %s: %w", rec.CustomerID, err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		ds.Records = append(ds.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return ds, nil
}

// SaveLabel inserts a label or replaces the outcome and features of an
// existing one. created_at is kept on update.
func (s *Store) SaveLabel(ctx context.Context, label core.LabeledCustomer) error {
	id := strings.TrimSpace(label.CustomerID)
	if id == "" {
		return errors.New("customer id is required")
	}

	features := label.Features
	if features == nil {
		features = map[string]float64{}
	}
	data, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	now := s.now().UnixMilli()
	query := s.dialect.Rebind(`
		INSERT INTO customer_labels (customer_id, target, features, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (customer_id) DO UPDATE SET
			target = excluded.target,
			features = excluded.features,
			updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, id, label.Target, string(data), now, now); err != nil {
		return fmt.Errorf("failed to save label for customer %s: %w", id, err)
	}
	return nil
}

// DeleteLabel removes the label of a customer. Deleting an unknown
// customer is not an error.
func (s *Store) DeleteLabel(ctx context.Context, customerID string) error {
	query := s.dialect.Rebind(`DELETE FROM customer_labels WHERE customer_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, customerID); err != nil {
		return fmt.Errorf("failed to delete label for customer %s: %w", customerID, err)
	}
	return nil
}

// Stats summarizes the stored labels.
func (s *Store) Stats(ctx context.Context) (core.LabelStats, error) {
	var (
		stats   core.LabelStats
		churned sql.NullInt64
		oldest  sql.NullInt64
		newest  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			SUM(CASE WHEN target THEN 1 ELSE 0 END),
			MIN(created_at),
			MAX(updated_at)
		FROM customer_labels`).Scan(&stats.Total, &churned, &oldest, &newest)
	if err != nil {
		return core.LabelStats{}, fmt.Errorf("failed to compute label stats: %w", err)
	}

	stats.Churned = int(churned.Int64)
	stats.NotChurned = stats.Total - stats.Churned
	if oldest.Valid {
		t := time.UnixMilli(oldest.Int64).UTC()
		stats.Oldest = &t
	}
	if newest.Valid {
		t := time.UnixMilli(newest.Int64).UTC()
		stats.Newest = &t
	}
	return stats, nil
}
