package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// SQLiteRepository keeps the journal in a local SQLite file. The shopper CLI stores it next to the cart,
// so an order placed by one invocation can be confirmed or retried by the next.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	dsn := dbPath
	if dbPath != ":memory:" && !strings.Contains(dbPath, "?") {
		dsn = dbPath + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) RunMigrations() error {
	src, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) CreateAttempt(ctx context.Context, attempt *Attempt) error {
	query := `INSERT INTO checkout_attempts (order_id, session_id, idempotency_key, fingerprint, total, payment_url, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(order_id) DO NOTHING`

	now := r.now().UnixNano()
	res, err := r.db.ExecContext(ctx, query,
		attempt.OrderID,
		attempt.SessionID,
		attempt.IdempotencyKey,
		attempt.Fingerprint,
		attempt.Total.String(),
		attempt.PaymentURL,
		string(attempt.Status),
		now,
		now)
	if err != nil {
		return fmt.Errorf("insert checkout attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert checkout attempt: %w", err)
	}
	if n == 0 {
		return ErrDuplicateAttempt
	}
	return nil
}

func (r *SQLiteRepository) PendingAttempt(ctx context.Context, sessionID string) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts
	          WHERE session_id = ? AND status = ?
	          ORDER BY created_at DESC, order_id DESC LIMIT 1`

	return r.scanAttempt(r.db.QueryRowContext(ctx, query, sessionID, string(AttemptStatusPending)))
}

func (r *SQLiteRepository) AttemptByOrder(ctx context.Context, orderID int64) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE order_id = ?`

	return r.scanAttempt(r.db.QueryRowContext(ctx, query, orderID))
}

func (r *SQLiteRepository) SetPaymentURL(ctx context.Context, orderID int64, paymentURL string) error {
	query := `UPDATE checkout_attempts SET payment_url = ?, updated_at = ? WHERE order_id = ?`
	return r.exec(ctx, query, paymentURL, r.now().UnixNano(), orderID)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, orderID int64, status AttemptStatus) error {
	query := `UPDATE checkout_attempts SET status = ?, updated_at = ? WHERE order_id = ?`
	return r.exec(ctx, query, string(status), r.now().UnixNano(), orderID)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) error {
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

func (r *SQLiteRepository) scanAttempt(row *sql.Row) (*Attempt, error) {
	var (
		a                Attempt
		total            string
		created, updated int64
	)
	err := row.Scan(
		&a.OrderID,
		&a.SessionID,
		&a.IdempotencyKey,
		&a.Fingerprint,
		&total,
		&a.PaymentURL,
		&a.Status,
		&created,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout attempt: %w", err)
	}
	if err := a.Total.UnmarshalText([]byte(total)); err != nil {
		return nil, fmt.Errorf("query checkout attempt: total %q: %w", total, err)
	}
	a.CreatedAt = time.Unix(0, created)
	a.UpdatedAt = time.Unix(0, updated)
	return &a, nil
}
