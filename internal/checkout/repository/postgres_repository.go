package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

type Repository struct {
	db *sql.DB
}

func NewRepository(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) CreateAttempt(ctx context.Context, attempt *Attempt) error {
	query := `INSERT INTO checkout_attempts (order_id, session_id, idempotency_key, fingerprint, total, payment_url, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		attempt.OrderID,
		attempt.SessionID,
		attempt.IdempotencyKey,
		attempt.Fingerprint,
		attempt.Total,
		attempt.PaymentURL,
		attempt.Status)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAttempt
		}
		return fmt.Errorf("insert checkout attempt: %w", insertErr)
	}
	return nil
}

const attemptColumns = `order_id, session_id, idempotency_key, fingerprint, total, payment_url, status, created_at, updated_at`

func (r *Repository) PendingAttempt(ctx context.Context, sessionID string) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts
	          WHERE session_id = $1 AND status = $2
	          ORDER BY created_at DESC LIMIT 1`

	return r.scanAttempt(r.db.QueryRowContext(ctx, query, sessionID, AttemptStatusPending))
}

func (r *Repository) AttemptByOrder(ctx context.Context, orderID int64) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE order_id = $1`

	return r.scanAttempt(r.db.QueryRowContext(ctx, query, orderID))
}

func (r *Repository) SetPaymentURL(ctx context.Context, orderID int64, paymentURL string) error {
	query := `UPDATE checkout_attempts SET payment_url = $1, updated_at = NOW() WHERE order_id = $2`
	return r.exec(ctx, query, paymentURL, orderID)
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, status AttemptStatus) error {
	query := `UPDATE checkout_attempts SET status = $1, updated_at = NOW() WHERE order_id = $2`
	return r.exec(ctx, query, status, orderID)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update checkout attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checkout attempt: %w", err)
	}
	if n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (r *Repository) scanAttempt(row *sql.Row) (*Attempt, error) {
	var a Attempt
	err := row.Scan(
		&a.OrderID,
		&a.SessionID,
		&a.IdempotencyKey,
		&a.Fingerprint,
		&a.Total,
		&a.PaymentURL,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout attempt: %w", err)
	}
	return &a, nil
}
