// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultMaxConns bounds the connection pool when the caller passes zero.
const DefaultMaxConns = 5

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db  *sql.DB
	now store.Clock
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// bounds the connection pool to maxConns, and runs any pending migrations.
func New(databaseURL string, maxConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) AppendEvent(ctx context.Context, event *model.Event) error {
	event.Stamp(s.now())
	return queryAppendEvent(ctx, s.db, event)
}

func (s *PostgresStore) AppendFeedback(ctx context.Context, feedback *model.Feedback) error {
	feedback.Stamp(s.now())
	return queryAppendFeedback(ctx, s.db, feedback)
}

func (s *PostgresStore) ListAppSummaries(ctx context.Context, today time.Time) ([]model.AppSummary, error) {
	return queryListAppSummaries(ctx, s.db, today)
}

func (s *PostgresStore) DailyActiveUsers(ctx context.Context, appID string, since time.Time) ([]model.DauPoint, error) {
	return queryDailyActiveUsers(ctx, s.db, appID, since)
}

func (s *PostgresStore) CountInstalls(ctx context.Context, appID string) (int64, error) {
	return queryCountInstalls(ctx, s.db, appID)
}

func (s *PostgresStore) DailyInstalls(ctx context.Context, appID string, since time.Time) ([]model.InstallPoint, error) {
	return queryDailyInstalls(ctx, s.db, appID, since)
}

func (s *PostgresStore) CohortMembers(ctx context.Context, appID string, since time.Time) ([]model.CohortMember, error) {
	return queryCohortMembers(ctx, s.db, appID, since)
}

func (s *PostgresStore) ListFeedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error) {
	return queryListFeedback(ctx, s.db, appID, limit)
}

func (s *PostgresStore) ListEventsByDate(ctx context.Context, date time.Time) ([]*model.Event, error) {
	return queryListEventsByDate(ctx, s.db, date)
}

func (s *PostgresStore) ListFeedbackByDate(ctx context.Context, date time.Time) ([]*model.Feedback, error) {
	return queryListFeedbackByDate(ctx, s.db, date)
}

// ReadSnapshot begins a read-only REPEATABLE READ transaction, creates a
// txStore that delegates to it, calls fn, and commits on success or rolls
// back on error. Every query fn issues sees the same snapshot.
func (s *PostgresStore) ReadSnapshot(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx, now: s.now}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx  *sql.Tx
	now store.Clock
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) AppendEvent(ctx context.Context, event *model.Event) error {
	event.Stamp(s.now())
	return queryAppendEvent(ctx, s.tx, event)
}

func (s *txStore) AppendFeedback(ctx context.Context, feedback *model.Feedback) error {
	feedback.Stamp(s.now())
	return queryAppendFeedback(ctx, s.tx, feedback)
}

func (s *txStore) ListAppSummaries(ctx context.Context, today time.Time) ([]model.AppSummary, error) {
	return queryListAppSummaries(ctx, s.tx, today)
}

func (s *txStore) DailyActiveUsers(ctx context.Context, appID string, since time.Time) ([]model.DauPoint, error) {
	return queryDailyActiveUsers(ctx, s.tx, appID, since)
}

func (s *txStore) CountInstalls(ctx context.Context, appID string) (int64, error) {
	return queryCountInstalls(ctx, s.tx, appID)
}

func (s *txStore) DailyInstalls(ctx context.Context, appID string, since time.Time) ([]model.InstallPoint, error) {
	return queryDailyInstalls(ctx, s.tx, appID, since)
}

func (s *txStore) CohortMembers(ctx context.Context, appID string, since time.Time) ([]model.CohortMember, error) {
	return queryCohortMembers(ctx, s.tx, appID, since)
}

func (s *txStore) ListFeedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error) {
	return queryListFeedback(ctx, s.tx, appID, limit)
}

func (s *txStore) ListEventsByDate(ctx context.Context, date time.Time) ([]*model.Event, error) {
	return queryListEventsByDate(ctx, s.tx, date)
}

func (s *txStore) ListFeedbackByDate(ctx context.Context, date time.Time) ([]*model.Feedback, error) {
	return queryListFeedbackByDate(ctx, s.tx, date)
}

// ReadSnapshot on a txStore reuses the existing transaction (no nesting).
func (s *txStore) ReadSnapshot(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Ping is a no-op inside a transaction.
func (s *txStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
