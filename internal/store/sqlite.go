package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/digitext.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/digitext.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		platform TEXT NOT NULL,
		avatar_url TEXT DEFAULT '',
		page_id TEXT DEFAULT '',
		ig_user_id TEXT DEFAULT '',
		phone_number_id TEXT DEFAULT '',
		business_id TEXT DEFAULT '',
		access_token TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_platform ON accounts(platform);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAccount inserts a new account record.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a *models.Account) (*models.Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV7())
	}
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, platform, avatar_url, page_id, ig_user_id, phone_number_id, business_id, access_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID.String(), a.Name, string(a.Platform), a.AvatarURL, a.PageID, a.IGUserID, a.PhoneNumberID, a.BusinessID, a.AccessToken, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetAccountByID(ctx, a.ID)
}

// GetAccountByID retrieves an account by ID.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a := &models.Account{}
	var idStr, platform string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, platform, avatar_url, page_id, ig_user_id, phone_number_id, business_id, access_token, created_at, updated_at
		FROM accounts WHERE id = ?
	`, id.String()).Scan(
		&idStr,
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.ID = uuid.MustParse(idStr)
	a.Platform = models.Platform(platform)
	return a, nil
}

// ListAccounts retrieves all accounts, oldest first.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var idStr, platform string
		if err := rows.Scan(
			&idStr,
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
		a.ID = uuid.MustParse(idStr)
		a.Platform = models.Platform(platform)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account. Returns false if no row matched.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountAccounts returns the total number of stored accounts.
func (s *SQLiteStore) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}
