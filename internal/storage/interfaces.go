// Package storage defines the MemoryStore interface and shared storage types.
// Two implementations exist: postgres (lib/pq + pgvector) for deployments
// with a real database, and sqlite (modernc.org/sqlite) for embedded and
// bootstrapping setups.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/reveriehq/reverie/pkg/types"
)

// Sentinel errors returned by store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ScoredMemory pairs a memory with the similarity assigned by the query path
// that produced it. Keyword hits carry a fixed placeholder similarity since
// no semantic score is computed for that path.
type ScoredMemory struct {
	Memory     types.Memory
	Similarity float64
}

// DecayParams are the knobs of the periodic decay pass.
type DecayParams struct {
	// MinAge is how old a record must be before it decays (default 7 days).
	MinAge time.Duration
	// ImportanceFactor multiplies importance each pass (default 0.95).
	ImportanceFactor float64
	// AccessFactor multiplies access_count each pass, floored (default 0.9).
	AccessFactor float64
	// Guard skips records already decayed within this window, protecting
	// against overlapping job triggers. Zero disables the guard.
	Guard time.Duration
}

// DefaultDecayParams returns the reference decay configuration.
func DefaultDecayParams() DecayParams {
	return DecayParams{
		MinAge:           7 * 24 * time.Hour,
		ImportanceFactor: 0.95,
		AccessFactor:     0.9,
		Guard:            12 * time.Hour,
	}
}

// MemoryStore persists memory records and answers the recall queries.
//
// All methods degrade rather than cascade: a store created against missing
// infrastructure (no pgvector extension, no table yet) returns empty results
// with a logged warning instead of surfacing errors to the recall path.
type MemoryStore interface {
	// Store persists one candidate for userID. It computes an embedding for
	// the candidate's content; if embedding generation fails the candidate is
	// silently dropped. Duplicate (user, type, content) triples are ignored,
	// not overwritten.
	Store(ctx context.Context, userID string, candidate types.Candidate, contextTags []string) error

	// FindSimilar returns the active record of the given type whose content
	// is most similar to content, when cosine similarity exceeds 0.85.
	// Returns (nil, nil) when nothing qualifies.
	FindSimilar(ctx context.Context, userID, content string, memoryType types.MemoryType) (*ScoredMemory, error)

	// Query returns active records with importance >= minImportance, ranked
	// by 0.7·cosine(embedding) + 0.3·(1/(1+days_old)).
	Query(ctx context.Context, userID string, embedding []float32, minImportance float64, limit int) ([]ScoredMemory, error)

	// QueryByKeywords returns active records whose content contains any of
	// the keywords (case-insensitive substring match), newest first, with a
	// fixed similarity of 0.9.
	QueryByKeywords(ctx context.Context, userID string, keywords []string, limit int) ([]ScoredMemory, error)

	// TouchAccess increments access_count for the given ids, best effort.
	TouchAccess(ctx context.Context, ids []string) error

	// DecayPass ages importance and access counts of records older than
	// params.MinAge and returns the number of records touched.
	DecayPass(ctx context.Context, params DecayParams) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
