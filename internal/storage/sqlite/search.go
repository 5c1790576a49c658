package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

// similarityThreshold is the cosine similarity FindSimilar requires before
// treating two contents as duplicates of each other.
const similarityThreshold = 0.85

// keywordSimilarity is the placeholder score for keyword hits.
const keywordSimilarity = 0.9

// Query returns active records for userID with importance >= minImportance,
// ranked by 0.7·cosine similarity + 0.3·(1/(1+days_old)). Embeddings are
// loaded into Go memory and scored there.
func (s *MemoryStore) Query(ctx context.Context, userID string, embedding []float32, minImportance float64, limit int) ([]storage.ScoredMemory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, memory_type, content,
		       confidence, emotional_weight, importance,
		       context_tags, embedding, access_count, is_active, created_at, last_decayed_at
		FROM memories
		WHERE user_id = ? AND is_active = 1 AND embedding IS NOT NULL AND importance >= ?
	`, userID, minImportance)
	if err != nil {
		return nil, fmt.Errorf("sqlite: semantic query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type rankedMemory struct {
		scored storage.ScoredMemory
		rank   float64
	}

	now := time.Now()
	var ranked []rankedMemory
	for rows.Next() {
		mem, vec, err := scanMemoryRow(rows)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			continue
		}
		sim := cosineSimilarity(embedding, vec)
		daysOld := now.Sub(mem.CreatedAt).Hours() / 24.0
		if daysOld < 0 {
			daysOld = 0
		}
		recency := 1.0 / (1.0 + daysOld)
		ranked = append(ranked, rankedMemory{
			scored: storage.ScoredMemory{Memory: mem, Similarity: sim},
			rank:   sim*0.7 + recency*0.3,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].rank > ranked[j].rank
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]storage.ScoredMemory, len(ranked))
	for i, r := range ranked {
		results[i] = r.scored
	}
	return results, nil
}

// QueryByKeywords returns active records whose content contains any keyword
// (case-insensitive), newest first, with the fixed placeholder similarity.
func (s *MemoryStore) QueryByKeywords(ctx context.Context, userID string, keywords []string, limit int) ([]storage.ScoredMemory, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	conditions := make([]string, len(keywords))
	args := []interface{}{userID}
	for i, kw := range keywords {
		conditions[i] = "lower(content) LIKE ?"
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}
	args = append(args, limit)

	query := `
		SELECT id, user_id, memory_type, content,
		       confidence, emotional_weight, importance,
		       context_tags, embedding, access_count, is_active, created_at, last_decayed_at
		FROM memories
		WHERE user_id = ? AND is_active = 1 AND (` + strings.Join(conditions, " OR ") + `)
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: keyword query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []storage.ScoredMemory
	for rows.Next() {
		mem, _, err := scanMemoryRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, storage.ScoredMemory{Memory: mem, Similarity: keywordSimilarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
	}
	return results, nil
}

// FindSimilar returns the most similar active record of the given type when
// its cosine similarity to content exceeds 0.85, or (nil, nil) otherwise.
func (s *MemoryStore) FindSimilar(ctx context.Context, userID, content string, memoryType types.MemoryType) (*storage.ScoredMemory, error) {
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		log.Printf("WARNING: sqlite: FindSimilar embedding failed: %v", err)
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, memory_type, content,
		       confidence, emotional_weight, importance,
		       context_tags, embedding, access_count, is_active, created_at, last_decayed_at
		FROM memories
		WHERE user_id = ? AND is_active = 1 AND memory_type = ? AND embedding IS NOT NULL
	`, userID, string(memoryType))
	if err != nil {
		return nil, fmt.Errorf("sqlite: FindSimilar query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var best *storage.ScoredMemory
	for rows.Next() {
		mem, vec, err := scanMemoryRow(rows)
		if err != nil {
			return nil, err
		}
		sim := cosineSimilarity(embedding, vec)
		if sim <= similarityThreshold {
			continue
		}
		if best == nil || sim > best.Similarity {
			best = &storage.ScoredMemory{Memory: mem, Similarity: sim}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
	}
	return best, nil
}

// scanMemoryRow scans a single row into a Memory plus its decoded embedding.
// The SELECT column order must match the queries above.
func scanMemoryRow(rows *sql.Rows) (types.Memory, []float32, error) {
	var mem types.Memory
	var memType string
	var tagsJSON, embeddingJSON sql.NullString
	var createdAt int64
	var lastDecayedAt sql.NullInt64
	var isActive int

	err := rows.Scan(
		&mem.ID, &mem.UserID, &memType, &mem.Content,
		&mem.Confidence, &mem.EmotionalWeight, &mem.Importance,
		&tagsJSON, &embeddingJSON, &mem.AccessCount, &isActive, &createdAt, &lastDecayedAt,
	)
	if err != nil {
		return mem, nil, fmt.Errorf("sqlite: scan memory row: %w", err)
	}

	mem.MemoryType = types.MemoryType(memType)
	mem.IsActive = isActive != 0
	mem.CreatedAt = time.Unix(createdAt, 0)
	if lastDecayedAt.Valid {
		t := time.Unix(lastDecayedAt.Int64, 0)
		mem.LastDecayedAt = &t
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &mem.ContextTags); err != nil {
			return mem, nil, fmt.Errorf("sqlite: unmarshal context tags: %w", err)
		}
	}

	var vec []float32
	if embeddingJSON.Valid && embeddingJSON.String != "" {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &vec); err != nil {
			return mem, nil, fmt.Errorf("sqlite: unmarshal embedding: %w", err)
		}
	}
	return mem, vec, nil
}

// cosineSimilarity computes cosine similarity between two equal-length
// vectors. Mismatched lengths or zero vectors yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
