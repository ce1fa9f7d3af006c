package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "ulcare.db"

// Preference keys of the identity record.
const (
	KeyName   = "name"
	KeyGender = "gender"
)

// ErrNotFound is returned by GetPreference for a missing key.
var ErrNotFound = errors.New("preference not found")

// IdentityStore provides SQLite-based storage for the patient identity.
// The identity is a two-key record in a small key-value table.
//
// Design decision: A single preferences table rather than an identity
// table with typed columns. The record is tiny, and "either key missing"
// must mean "no identity yet", which a key-value layout expresses directly.
// Writes are last-writer-wins.
type IdentityStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures IdentityStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an IdentityStore in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*IdentityStore, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &IdentityStore{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *IdentityStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *IdentityStore) Path() string {
	return s.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (s *IdentityStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SetPreference stores value under key, replacing any previous value.
func (s *IdentityStore) SetPreference(ctx context.Context, key, value string) error {
	return setPreference(ctx, s.db, key, value)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setPreference(ctx context.Context, db execer, key, value string) error {
	query := `
	INSERT INTO preferences (key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to store preference %q: %w", key, err)
	}
	return nil
}

// GetPreference returns the value stored under key, or ErrNotFound.
func (s *IdentityStore) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %q: %w", key, err)
	}
	return value, nil
}

// SaveIdentity validates id and stores it, replacing any previous identity.
// Both keys are written in one transaction.
func (s *IdentityStore) SaveIdentity(ctx context.Context, id model.Identity) error {
	id.Name = strings.TrimSpace(id.Name)
	if err := id.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := setPreference(ctx, tx, KeyName, id.Name); err != nil {
		return err
	}
	if err := setPreference(ctx, tx, KeyGender, string(id.Gender)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// GetIdentity returns the stored identity, or nil when none has been saved.
// A record with a blank name or an unknown gender code counts as absent.
func (s *IdentityStore) GetIdentity(ctx context.Context) (*model.Identity, error) {
	name, err := s.GetPreference(ctx, KeyName)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	gender, err := s.GetPreference(ctx, KeyGender)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id := &model.Identity{Name: name, Gender: model.Gender(gender)}
	if id.Validate() != nil {
		return nil, nil
	}
	return id, nil
}

// HasIdentity reports whether a complete identity is stored.
func (s *IdentityStore) HasIdentity(ctx context.Context) (bool, error) {
	id, err := s.GetIdentity(ctx)
	if err != nil {
		return false, err
	}
	return id != nil, nil
}

// ClearIdentity removes the stored identity.
func (s *IdentityStore) ClearIdentity(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM preferences WHERE key IN (?, ?)", KeyName, KeyGender); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return nil
}
