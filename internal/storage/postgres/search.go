package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

// memorySelectColumns is the canonical SELECT column list for recall queries.
// It must match the scan order in scanScoredRows.
const memorySelectColumns = `
	id, user_id, memory_type, content,
	confidence, emotional_weight, importance,
	context_tags, access_count, is_active, created_at, last_decayed_at
`

// similarityThreshold is the cosine similarity FindSimilar requires before
// treating two contents as duplicates of each other.
const similarityThreshold = 0.85

var warnNoVectorOnce sync.Once

// Query returns active records for userID with importance >= minImportance,
// ranked by 0.7·cosine similarity + 0.3·(1/(1+days_old)).
//
// Without pgvector the semantic path cannot run; it degrades to an empty
// result with a one-time warning so recall falls back to the keyword path.
func (s *MemoryStore) Query(ctx context.Context, userID string, embedding []float32, minImportance float64, limit int) ([]storage.ScoredMemory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if !s.pgvectorAvailable {
		warnNoVectorOnce.Do(func() {
			log.Printf("WARNING: postgres: semantic recall requested but pgvector is unavailable; returning empty results")
		})
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)
	query := `
		SELECT ` + memorySelectColumns + `,
		       1 - (embedding <=> $2) AS similarity
		FROM memories
		WHERE user_id = $1
		  AND is_active
		  AND embedding IS NOT NULL
		  AND importance >= $3
		ORDER BY (1 - (embedding <=> $2)) * 0.7
		       + (1.0 / (1.0 + EXTRACT(EPOCH FROM (NOW() - created_at)) / 86400.0)) * 0.3 DESC
		LIMIT $4
	`

	rows, err := s.db.QueryContext(ctx, query, userID, vec, minImportance, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: semantic query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanScoredRows(rows, true)
}

// QueryByKeywords returns active records whose content contains any keyword,
// newest first. A fixed similarity placeholder of 0.9 is assigned since no
// semantic score exists for this path.
func (s *MemoryStore) QueryByKeywords(ctx context.Context, userID string, keywords []string, limit int) ([]storage.ScoredMemory, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + kw + "%"
	}

	query := `
		SELECT ` + memorySelectColumns + `
		FROM memories
		WHERE user_id = $1
		  AND is_active
		  AND content ILIKE ANY($2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, pq.Array(patterns), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: keyword query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scored, err := scanScoredRows(rows, false)
	if err != nil {
		return nil, err
	}
	for i := range scored {
		scored[i].Similarity = storageKeywordSimilarity
	}
	return scored, nil
}

// storageKeywordSimilarity is the placeholder score for keyword hits.
const storageKeywordSimilarity = 0.9

// FindSimilar returns the most similar active record of the given type when
// its cosine similarity to content exceeds 0.85, or (nil, nil) otherwise.
// Embedding failures degrade to (nil, nil) — dedup checks are advisory.
func (s *MemoryStore) FindSimilar(ctx context.Context, userID, content string, memoryType types.MemoryType) (*storage.ScoredMemory, error) {
	if !s.pgvectorAvailable {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		log.Printf("WARNING: postgres: FindSimilar embedding failed: %v", err)
		return nil, nil
	}
	vec := pgvector.NewVector(embedding)

	query := `
		SELECT ` + memorySelectColumns + `,
		       1 - (embedding <=> $3) AS similarity
		FROM memories
		WHERE user_id = $1
		  AND is_active
		  AND memory_type = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $3) > $4
		ORDER BY embedding <=> $3
		LIMIT 1
	`

	rows, err := s.db.QueryContext(ctx, query, userID, string(memoryType), vec, similarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("postgres: FindSimilar query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scored, err := scanScoredRows(rows, true)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return nil, nil
	}
	return &scored[0], nil
}

// scanScoredRows reads recall query rows. When withSimilarity is true the
// query is expected to append a similarity column after the memory columns.
func scanScoredRows(rows *sql.Rows, withSimilarity bool) ([]storage.ScoredMemory, error) {
	var results []storage.ScoredMemory

	for rows.Next() {
		var mem types.Memory
		var memType string
		var tagsJSON sql.NullString
		var lastDecayedAt sql.NullTime
		var similarity float64

		dest := []interface{}{
			&mem.ID, &mem.UserID, &memType, &mem.Content,
			&mem.Confidence, &mem.EmotionalWeight, &mem.Importance,
			&tagsJSON, &mem.AccessCount, &mem.IsActive, &mem.CreatedAt, &lastDecayedAt,
		}
		if withSimilarity {
			dest = append(dest, &similarity)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan memory row: %w", err)
		}

		mem.MemoryType = types.MemoryType(memType)
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &mem.ContextTags); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal context tags: %w", err)
			}
		}
		if lastDecayedAt.Valid {
			t := lastDecayedAt.Time
			mem.LastDecayedAt = &t
		}

		results = append(results, storage.ScoredMemory{Memory: mem, Similarity: similarity})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}
	return results, nil
}
