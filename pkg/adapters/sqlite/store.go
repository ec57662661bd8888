package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/weft/pkg/domain"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Store implements ports.DefinitionStore backed by SQLite.
//
// Definitions live in a single table keyed by store key, with the content
// hash in its own column so staleness checks need not decode the body.
type Store struct {
	db  *sql.DB
	own bool
}

// Open opens (or creates) the SQLite database at dsn with the modernc driver
// and prepares the schema. ":memory:" gives a private in-memory database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.own = true
	return s, nil
}

// New initializes the required schema in the given database and returns a
// store using it. The caller keeps ownership of db.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS definitions (
			key TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			body BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	)
	return err
}

// Save upserts the definition.
func (s *Store) Save(ctx context.Context, key string, def *domain.GraphDefinition) error {
	body, err := domain.MarshalDefinition(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO definitions (key, hash, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			hash = excluded.hash,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		key,
		domain.FormatHash(def.Hash),
		body,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save definition %s: %w", key, err)
	}
	return nil
}

// Load retrieves and verifies the definition.
func (s *Store) Load(ctx context.Context, key string) (*domain.GraphDefinition, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM definitions WHERE key = ?`, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("failed to load definition %s: %w", key, err)
	}
	def, err := domain.UnmarshalDefinition(body)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition %s: %w", key, err)
	}
	return def, nil
}

// Hash implements ports.HashIndex.
func (s *Store) Hash(ctx context.Context, key string) (uint64, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM definitions WHERE key = ?`, key).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrDefinitionNotFound
		}
		return 0, fmt.Errorf("failed to read hash of %s: %w", key, err)
	}
	return domain.ParseHash(hash)
}

// UpdatedAt returns when key was last saved.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM definitions WHERE key = ?`, key).Scan(&ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrDefinitionNotFound
		}
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Delete removes the definition.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM definitions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete definition %s: %w", key, err)
	}
	return nil
}

// List returns the stored keys.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM definitions ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if !s.own {
		return nil
	}
	return s.db.Close()
}
