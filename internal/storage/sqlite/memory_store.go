package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

// Embedder converts text to a fixed-length vector. Satisfied by
// llm.EmbeddingGenerator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MemoryStore implements storage.MemoryStore using an embedded SQLite
// database.
type MemoryStore struct {
	db       *sql.DB
	embedder Embedder
}

var _ storage.MemoryStore = (*MemoryStore)(nil)

// NewMemoryStore opens (or creates) a SQLite store at path and applies the
// schema. Use ":memory:" for an ephemeral store in tests.
func NewMemoryStore(path string, embedder Embedder) (*MemoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set pragmas: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &MemoryStore{db: db, embedder: embedder}, nil
}

// DB returns the underlying database handle, used by tests to manipulate
// timestamps directly.
func (s *MemoryStore) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *MemoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Store persists one candidate. Embedding failures drop the candidate
// silently; duplicate (user, type, content) triples are ignored.
func (s *MemoryStore) Store(ctx context.Context, userID string, candidate types.Candidate, contextTags []string) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID is required", storage.ErrInvalidInput)
	}
	if strings.TrimSpace(candidate.Content) == "" {
		return fmt.Errorf("%w: candidate content is required", storage.ErrInvalidInput)
	}
	if !candidate.Type.IsValid() {
		return fmt.Errorf("%w: invalid memory type %q", storage.ErrInvalidInput, candidate.Type)
	}
	candidate.Clamp()

	embedding, err := s.embedder.Embed(ctx, candidate.Content)
	if err != nil {
		// A candidate without a vector is never persisted; drop it.
		log.Printf("WARNING: sqlite: embedding failed, dropping candidate %q: %v", candidate.Content, err)
		return nil
	}
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal embedding: %w", err)
	}

	if len(contextTags) == 0 {
		contextTags = []string{"chat"}
	}
	tagsJSON, err := json.Marshal(contextTags)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal context tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO memories
			(id, user_id, memory_type, content, confidence, emotional_weight, importance, context_tags, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), userID, string(candidate.Type), candidate.Content,
		candidate.Confidence, candidate.EmotionalWeight, candidate.Importance,
		string(tagsJSON), string(embeddingJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite: failed to store memory: %w", err)
	}
	return nil
}

// TouchAccess increments access_count for the given ids, best effort.
func (s *MemoryStore) TouchAccess(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: failed to touch access counts: %w", err)
	}
	return nil
}

// DecayPass ages importance and access counts of active records older than
// params.MinAge. The last_decayed_at guard keeps overlapping triggers from
// compounding decay within one window.
func (s *MemoryStore) DecayPass(ctx context.Context, params storage.DecayParams) (int, error) {
	now := time.Now().Unix()
	ageCutoff := now - int64(params.MinAge.Seconds())

	query := `
		UPDATE memories
		SET importance = importance * ?,
		    access_count = CAST(access_count * ? AS INTEGER),
		    last_decayed_at = ?
		WHERE is_active = 1
		  AND created_at < ?
	`
	args := []interface{}{params.ImportanceFactor, params.AccessFactor, now, ageCutoff}

	if params.Guard > 0 {
		query += ` AND (last_decayed_at IS NULL OR last_decayed_at < ?)`
		args = append(args, now-int64(params.Guard.Seconds()))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to apply decay pass: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	return int(n), nil
}
