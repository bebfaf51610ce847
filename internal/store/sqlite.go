package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the embedded stand-in for the managed document store.
// Every document is namespaced by the deployment's app ID, mirroring the
// /artifacts/{appId}/users/{identity} path convention.
type SQLiteStore struct {
	db    *sql.DB
	appID string
}

func NewSQLiteStore(dataSourceName, appID string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, appID: appID}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS profiles (
        app_id TEXT NOT NULL,
        identity TEXT NOT NULL,
        mbti_category TEXT NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (app_id, identity)
    );

    CREATE TABLE IF NOT EXISTS exchanges (
        id TEXT PRIMARY KEY, -- UUID
        app_id TEXT NOT NULL,
        identity TEXT NOT NULL,
        mode TEXT NOT NULL CHECK (mode IN ('mentor', 'qa', 'summary', 'quiz', 'image')),
        prompt_text TEXT NOT NULL,
        response_text TEXT NOT NULL,
        mbti_category TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_exchanges_identity ON exchanges (app_id, identity);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Profile methods

// GetProfile returns nil when no profile document exists for the
// identity; the caller treats absence as a first-run condition.
func (s *SQLiteStore) GetProfile(identity string) (*Profile, error) {
	var profile Profile
	err := s.db.QueryRow(
		"SELECT identity, mbti_category, updated_at FROM profiles WHERE app_id = ? AND identity = ?",
		s.appID, identity,
	).Scan(&profile.Identity, &profile.MBTICategory, &profile.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Profile not found
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile merge-writes the learning-style category: an existing
// profile document keeps its other columns, only the category and the
// update timestamp change.
func (s *SQLiteStore) SaveProfile(identity, mbtiCategory string) error {
	stmt, err := s.db.Prepare(`
        INSERT INTO profiles (app_id, identity, mbti_category) VALUES (?, ?, ?)
        ON CONFLICT (app_id, identity)
        DO UPDATE SET mbti_category = excluded.mbti_category, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare profile upsert: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(s.appID, identity, mbtiCategory); err != nil {
		return fmt.Errorf("failed to execute profile upsert: %w", err)
	}
	return nil
}

// Exchange methods

// CreateExchange appends one record to the identity's history. The
// creation timestamp is assigned by the database, never by the caller;
// the stored value is read back into ex.CreatedAt.
func (s *SQLiteStore) CreateExchange(ex *Exchange) error {
	ex.ID = uuid.NewString() // Ensure ID is set

	stmt, err := s.db.Prepare("INSERT INTO exchanges (id, app_id, identity, mode, prompt_text, response_text, mbti_category) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare exchange insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(ex.ID, s.appID, ex.Identity, ex.Mode, ex.PromptText, ex.ResponseText, ex.MBTICategory)
	if err != nil {
		return fmt.Errorf("failed to execute exchange insert: %w", err)
	}

	err = s.db.QueryRow("SELECT created_at FROM exchanges WHERE id = ?", ex.ID).Scan(&ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to read back exchange timestamp: %w", err)
	}
	return nil
}

// GetExchanges returns the identity's full history in no particular
// order; the backing store makes no ordering guarantee and consumers
// re-sort locally on every batch.
func (s *SQLiteStore) GetExchanges(identity string) ([]Exchange, error) {
	rows, err := s.db.Query(
		"SELECT id, identity, mode, prompt_text, response_text, mbti_category, created_at FROM exchanges WHERE app_id = ? AND identity = ?",
		s.appID, identity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var ex Exchange
		var category sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Identity, &ex.Mode, &ex.PromptText, &ex.ResponseText, &category, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange row: %w", err)
		}
		if category.Valid {
			ex.MBTICategory = &category.String
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}
