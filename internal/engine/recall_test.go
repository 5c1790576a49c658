package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveriehq/reverie/internal/llm/mockllm"
	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

func scored(id, content string, similarity, importance float64) storage.ScoredMemory {
	return storage.ScoredMemory{
		Memory: types.Memory{
			ID:         id,
			UserID:     "u1",
			MemoryType: types.MemoryFact,
			Content:    content,
			Importance: importance,
			IsActive:   true,
			CreatedAt:  time.Now(),
		},
		Similarity: similarity,
	}
}

func TestRecallFailsClosedOnEmbeddingError(t *testing.T) {
	store := &stubStore{queryHits: []storage.ScoredMemory{scored("m1", "x", 0.9, 0.9)}}
	embedder := &mockllm.Embedder{Err: errors.New("embedding provider down")}
	eng := New(store, &stubExtractor{}, embedder, fastEngineConfig())

	results := eng.Recall(context.Background(), "u1", "anything", RecallOptions{})
	assert.Empty(t, results)
	assert.Equal(t, 0, store.queries, "no store query without an embedding")
}

func TestRecallRanksBySimilarityTimesImportance(t *testing.T) {
	// 0.9 similarity with 0.2 importance (0.18) must lose to
	// 0.5 similarity with 0.9 importance (0.45).
	store := &stubStore{queryHits: []storage.ScoredMemory{
		scored("hi-sim", "barely matters", 0.9, 0.2),
		scored("hi-imp", "really matters", 0.5, 0.9),
	}}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	results := eng.Recall(context.Background(), "u1", "tell me", RecallOptions{})
	require.Len(t, results, 2)
	assert.Equal(t, "hi-imp", results[0].Memory.ID)
	assert.Equal(t, "hi-sim", results[1].Memory.ID)
}

func TestRecallKeywordFallbackSurvivesSemanticMiss(t *testing.T) {
	// Semantic search finds nothing; the keyword path must still surface
	// the lexical match.
	store := &stubStore{
		keywordHits: []storage.ScoredMemory{scored("kw1", "User is allergic to shellfish", 0.9, 0.8)},
	}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	results := eng.Recall(context.Background(), "u1", "any allergy concerns for dinner?", RecallOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, "kw1", results[0].Memory.ID)
}

func TestRecallExpandsSynonymsIntoKeywordQuery(t *testing.T) {
	store := &stubStore{}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	eng.Recall(context.Background(), "u1", "any allergy concerns?", RecallOptions{})

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.keywordArgs, 1)
	assert.Contains(t, store.keywordArgs[0], "allergy")
	assert.Contains(t, store.keywordArgs[0], "allergic")
	assert.Contains(t, store.keywordArgs[0], "allergies")
}

func TestRecallDedupesKeywordAndSemanticHits(t *testing.T) {
	shared := scored("both", "seen twice", 0.8, 0.8)
	store := &stubStore{
		queryHits:   []storage.ScoredMemory{shared},
		keywordHits: []storage.ScoredMemory{shared, scored("kw-only", "only lexical", 0.9, 0.5)},
	}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	results := eng.Recall(context.Background(), "u1", "seen twice lexical", RecallOptions{})
	require.Len(t, results, 2)
	ids := []string{results[0].Memory.ID, results[1].Memory.ID}
	assert.ElementsMatch(t, []string{"both", "kw-only"}, ids)
}

func TestRecallTruncatesToLimit(t *testing.T) {
	store := &stubStore{queryHits: []storage.ScoredMemory{
		scored("a", "a", 0.9, 0.9),
		scored("b", "b", 0.8, 0.9),
		scored("c", "c", 0.7, 0.9),
	}}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	results := eng.Recall(context.Background(), "u1", "everything", RecallOptions{Limit: 2})
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Memory.ID)
	assert.Equal(t, "b", results[1].Memory.ID)
}

func TestRecallTouchesAccessCounts(t *testing.T) {
	store := &stubStore{queryHits: []storage.ScoredMemory{scored("m1", "x", 0.9, 0.9)}}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	results := eng.Recall(context.Background(), "u1", "remember this", RecallOptions{})
	require.Len(t, results, 1)

	// TouchAccess is fired on a background goroutine.
	ok := waitFor(time.Second, func() bool { return len(store.touchedIDs()) == 1 })
	require.True(t, ok, "TouchAccess never fired")
	assert.Equal(t, []string{"m1"}, store.touchedIDs()[0])
}

func TestRecallTimeoutReturnsEmptyWhileLookupContinues(t *testing.T) {
	store := &stubStore{
		queryDelay: 150 * time.Millisecond,
		queryHits:  []storage.ScoredMemory{scored("slow", "late arrival", 0.9, 0.9)},
	}
	cfg := fastEngineConfig()
	cfg.RecallTimeout = 30 * time.Millisecond
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, cfg)

	start := time.Now()
	results := eng.Recall(context.Background(), "u1", "slow lookup", RecallOptions{})
	assert.Empty(t, results, "a timed-out recall returns empty, not partial")
	assert.Less(t, time.Since(start), 120*time.Millisecond, "timeout must cut the caller loose")

	// The lookup keeps running: its access-count side effect still lands.
	ok := waitFor(time.Second, func() bool { return len(store.touchedIDs()) == 1 })
	assert.True(t, ok, "background lookup should finish and touch access counts")
}

func TestRecallEmptyInputs(t *testing.T) {
	store := &stubStore{queryHits: []storage.ScoredMemory{scored("m1", "x", 0.9, 0.9)}}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	assert.Empty(t, eng.Recall(context.Background(), "u1", "   ", RecallOptions{}))
	assert.Empty(t, eng.Recall(context.Background(), "", "hello", RecallOptions{}))
}

func TestRecallSurvivesStoreErrors(t *testing.T) {
	store := &stubStore{
		queryErr:    errors.New("db down"),
		keywordHits: []storage.ScoredMemory{scored("kw1", "lexical hit", 0.9, 0.8)},
	}
	eng := New(store, &stubExtractor{}, &mockllm.Embedder{}, fastEngineConfig())

	// A failed semantic query degrades to the keyword results alone.
	results := eng.Recall(context.Background(), "u1", "lexical hit please", RecallOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, "kw1", results[0].Memory.ID)
}
