// Package vectordb provides index snapshot stores.
// Clean Architecture: Adapters implementing ports.IndexStore.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

// DefaultPath is the snapshot database used when none is configured.
const DefaultPath = "faq_index.db"

// SQLiteStore implements ports.IndexStore with SQLite-based persistence.
// It holds exactly one snapshot: a metadata row plus one row per passage.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the snapshot database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		strategy TEXT NOT NULL,
		checksum TEXT NOT NULL,
		passage_count INTEGER NOT NULL,
		encoder_state BLOB,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS passages (
		id INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored snapshot in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *entities.IndexSnapshot) error {
	if len(snap.Vectors) != len(snap.Passages) {
		return fmt.Errorf("snapshot has %d vectors for %d passages", len(snap.Vectors), len(snap.Passages))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages"); err != nil {
		return fmt.Errorf("clearing passages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM index_meta"); err != nil {
		return fmt.Errorf("clearing metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, strategy, checksum, passage_count, encoder_state, created_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, snap.Strategy, snap.Checksum, snap.PassageCount, snap.EncoderState, snap.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO passages (id, text, embedding) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range snap.Passages {
		embeddingJSON, err := json.Marshal(snap.Vectors[i])
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Text, embeddingJSON); err != nil {
			return fmt.Errorf("inserting passage %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// Load reads the stored snapshot. Rows come back in passage ID order.
func (s *SQLiteStore) Load(ctx context.Context) (*entities.IndexSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		snap      entities.IndexSnapshot
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT strategy, checksum, passage_count, encoder_state, created_at
		FROM index_meta WHERE id = 1
	`).Scan(&snap.Strategy, &snap.Checksum, &snap.PassageCount, &snap.EncoderState, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying metadata: %w", err)
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, text, embedding FROM passages ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p             entities.Passage
			embeddingJSON []byte
			vec           []float32
		)
		if err := rows.Scan(&p.ID, &p.Text, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &vec); err != nil {
			return nil, fmt.Errorf("%w: corrupt embedding for passage %d", entities.ErrIndexStale, p.ID)
		}
		snap.Passages = append(snap.Passages, p)
		snap.Vectors = append(snap.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading passages: %w", err)
	}

	return &snap, nil
}

// Clear removes the stored snapshot.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM passages"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM index_meta")
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}
