package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			platform TEXT NOT NULL,
			avatar_url TEXT DEFAULT '',
			page_id TEXT DEFAULT '',
			ig_user_id TEXT DEFAULT '',
			phone_number_id TEXT DEFAULT '',
			business_id TEXT DEFAULT '',
			access_token TEXT DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_accounts_platform ON accounts(platform);
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateAccount inserts a new account record.
func (s *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) (*models.Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV7())
	}
	now := time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, platform, avatar_url, page_id, ig_user_id, phone_number_id, business_id, access_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, a.ID, a.Name, string(a.Platform), a.AvatarURL, a.PageID, a.IGUserID, a.PhoneNumberID, a.BusinessID, a.AccessToken, now)
	if err != nil {
		return nil, err
	}

	return s.GetAccountByID(ctx, a.ID)
}

// GetAccountByID retrieves an account by ID.
func (s *PostgresStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a := &models.Account{}
	var platform string
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, platform, avatar_url, page_id, ig_user_id, phone_number_id, business_id, access_token, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(
		&a.ID,
		&a.Name,
		&platform,
		&a.AvatarURL,
		&a.PageID,
		&a.IGUserID,
		&a.PhoneNumberID,
		&a.BusinessID,
		&a.AccessToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Platform = models.Platform(platform)
	return a, nil
}

// ListAccounts retrieves all accounts, oldest first.
func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, platform, avatar_url, page_id, ig_user_id, phone_number_id, business_id, access_token, created_at, updated_at
		FROM accounts
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var platform string
		if err := rows.Scan(
			&a.ID,
			&a.Name,
			&platform,
			&a.AvatarURL,
			&a.PageID,
			&a.IGUserID,
			&a.PhoneNumberID,
			&a.BusinessID,
			&a.AccessToken,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		a.Platform = models.Platform(platform)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account. Returns false if no row matched.
func (s *PostgresStore) DeleteAccount(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountAccounts returns the total number of stored accounts.
func (s *PostgresStore) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}
