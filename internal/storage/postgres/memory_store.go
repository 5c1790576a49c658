package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // also registers the "postgres" database/sql driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

// Embedder converts text to a fixed-length vector. Satisfied by
// llm.EmbeddingGenerator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MemoryStore implements storage.MemoryStore using PostgreSQL with pgvector
// for the semantic path and ILIKE/trigram for the keyword path.
type MemoryStore struct {
	db                *sql.DB
	embedder          Embedder
	pgvectorAvailable bool // true when the vector extension is present
}

var _ storage.MemoryStore = (*MemoryStore)(nil)

// NewMemoryStore opens a PostgreSQL store at dsn and applies the schema.
// A server without the pgvector extension still works: inserts proceed
// without vectors and the semantic query path degrades to empty results with
// a warning, leaving the keyword path functional.
func NewMemoryStore(dsn string, embedder Embedder) (*MemoryStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	s := &MemoryStore{db: db, embedder: embedder}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to apply schema: %w", err)
	}

	// Try to enable the pgvector extension. This may fail on servers without
	// pgvector installed — log a corrective hint and continue degraded.
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (semantic recall disabled; install pgvector to enable): %v", err)
	} else if _, err := db.Exec(MigrationPgvector); err != nil {
		log.Printf("postgres: failed to apply pgvector migration (semantic recall disabled): %v", err)
	} else {
		s.pgvectorAvailable = true
	}

	// Trigram index accelerates the keyword path but is not required for
	// correctness; ILIKE works without it.
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm"); err != nil {
		log.Printf("postgres: pg_trgm extension not available (keyword recall unindexed): %v", err)
	} else if _, err := db.Exec(MigrationTrigram); err != nil {
		log.Printf("postgres: failed to create trigram index: %v", err)
	}

	return s, nil
}

// DB returns the underlying database handle, used by integration tests.
func (s *MemoryStore) DB() *sql.DB {
	return s.db
}

// Close releases the database connection pool.
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

	var vec interface{}
	if s.pgvectorAvailable {
		embedding, err := s.embedder.Embed(ctx, candidate.Content)
		if err != nil {
			// A candidate without a vector is never persisted; drop it.
			log.Printf("WARNING: postgres: embedding failed, dropping candidate %q: %v", candidate.Content, err)
			return nil
		}
		vec = pgvector.NewVector(embedding)
	}

	if len(contextTags) == 0 {
		contextTags = []string{"chat"}
	}
	tagsJSON, err := json.Marshal(contextTags)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal context tags: %w", err)
	}

	if s.pgvectorAvailable {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO memories (id, user_id, memory_type, content, confidence, emotional_weight, importance, context_tags, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id, memory_type, content) DO NOTHING
		`, uuid.NewString(), userID, string(candidate.Type), candidate.Content,
			candidate.Confidence, candidate.EmotionalWeight, candidate.Importance, tagsJSON, vec)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO memories (id, user_id, memory_type, content, confidence, emotional_weight, importance, context_tags)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id, memory_type, content) DO NOTHING
		`, uuid.NewString(), userID, string(candidate.Type), candidate.Content,
			candidate.Confidence, candidate.EmotionalWeight, candidate.Importance, tagsJSON)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to store memory: %w", err)
	}
	return nil
}

// TouchAccess increments access_count for the given ids. Best effort: the
// caller treats failures as non-fatal, so we just wrap the error.
func (s *MemoryStore) TouchAccess(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1 WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("postgres: failed to touch access counts: %w", err)
	}
	return nil
}

// DecayPass ages importance and access counts of records older than
// params.MinAge. The last_decayed_at guard keeps overlapping triggers from
// compounding decay within one window.
func (s *MemoryStore) DecayPass(ctx context.Context, params storage.DecayParams) (int, error) {
	query := `
		UPDATE memories
		SET importance = importance * $1,
		    access_count = FLOOR(access_count * $2),
		    last_decayed_at = NOW()
		WHERE is_active
		  AND created_at < NOW() - $3::interval
	`
	args := []interface{}{
		params.ImportanceFactor,
		params.AccessFactor,
		fmt.Sprintf("%f seconds", params.MinAge.Seconds()),
	}
	if params.Guard > 0 {
		query += ` AND (last_decayed_at IS NULL OR last_decayed_at < NOW() - $4::interval)`
		args = append(args, fmt.Sprintf("%f seconds", params.Guard.Seconds()))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to apply decay pass: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to get rows affected: %w", err)
	}
	return int(n), nil
}
