package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"btcinvest/internal/domain/model"
)

const uniqueViolation = "23505"

type PostgresAdapter struct {
	db *sqlx.DB
}

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func NewPostgresAdapter(ctx context.Context, connStr string, pool PoolOptions) (*PostgresAdapter, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAdapter{db: db}, nil
}

// NewPostgresAdapterFromDB wraps an existing handle; used with sqlmock in tests.
func NewPostgresAdapterFromDB(db *sql.DB) *PostgresAdapter {
	return &PostgresAdapter{db: sqlx.NewDb(db, "postgres")}
}

func (a *PostgresAdapter) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		balance_cents BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
	`
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
	INSERT INTO accounts (id, name, email, password_hash, balance_cents, created_at, updated_at)
	VALUES (:id, :name, :email, :password_hash, :balance_cents, :created_at, :updated_at)`

	if _, err := a.db.NamedExecContext(ctx, query, account); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.Errorf(model.KindEmailTaken, "storage.CreateAccount", "Email already in use")
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return a.findOne(ctx, `SELECT id, name, email, password_hash, balance_cents, created_at, updated_at FROM accounts WHERE email = $1`, email)
}

func (a *PostgresAdapter) FindAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return a.findOne(ctx, `SELECT id, name, email, password_hash, balance_cents, created_at, updated_at FROM accounts WHERE id = $1`, id)
}

func (a *PostgresAdapter) findOne(ctx context.Context, query string, arg string) (*model.Account, error) {
	var account model.Account
	if err := a.db.GetContext(ctx, &account, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}

func (a *PostgresAdapter) AddToBalance(ctx context.Context, id string, amountCents int64) (*model.Account, error) {
	query := `
	UPDATE accounts SET balance_cents = balance_cents + $1, updated_at = NOW()
	WHERE id = $2
	RETURNING id, name, email, password_hash, balance_cents, created_at, updated_at`

	var account model.Account
	if err := a.db.GetContext(ctx, &account, query, amountCents, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return &account, nil
}

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}
