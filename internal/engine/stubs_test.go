package engine

import (
	"context"
	"sync"
	"time"

	"github.com/reveriehq/reverie/internal/extract"
	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

// stubStore is an instrumented in-memory storage.MemoryStore for engine
// tests. The canned query results and recorded calls make queue and recall
// behavior observable without a database.
type stubStore struct {
	mu sync.Mutex

	storeErr error
	stored   []storedCall

	queryDelay time.Duration
	queryHits  []storage.ScoredMemory
	queryErr   error
	queries    int

	keywordHits []storage.ScoredMemory
	keywordErr  error
	keywordArgs [][]string

	touched [][]string

	decayN     int
	decayErr   error
	decayCalls []storage.DecayParams
}

type storedCall struct {
	userID    string
	candidate types.Candidate
}

var _ storage.MemoryStore = (*stubStore)(nil)

func (s *stubStore) Store(_ context.Context, userID string, candidate types.Candidate, _ []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.stored = append(s.stored, storedCall{userID: userID, candidate: candidate})
	return nil
}

func (s *stubStore) FindSimilar(context.Context, string, string, types.MemoryType) (*storage.ScoredMemory, error) {
	return nil, nil
}

func (s *stubStore) Query(_ context.Context, _ string, _ []float32, _ float64, _ int) ([]storage.ScoredMemory, error) {
	if s.queryDelay > 0 {
		time.Sleep(s.queryDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	return s.queryHits, s.queryErr
}

func (s *stubStore) QueryByKeywords(_ context.Context, _ string, keywords []string, _ int) ([]storage.ScoredMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywordArgs = append(s.keywordArgs, append([]string(nil), keywords...))
	return s.keywordHits, s.keywordErr
}

func (s *stubStore) TouchAccess(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, append([]string(nil), ids...))
	return nil
}

func (s *stubStore) DecayPass(_ context.Context, params storage.DecayParams) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decayCalls = append(s.decayCalls, params)
	return s.decayN, s.decayErr
}

func (s *stubStore) Close() error { return nil }

func (s *stubStore) storedContents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.stored))
	for i, c := range s.stored {
		out[i] = c.candidate.Content
	}
	return out
}

func (s *stubStore) touchedIDs() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.touched))
	copy(out, s.touched)
	return out
}

// stubExtractor returns canned candidates and records per-call timing spans
// so tests can assert that the drain loop never overlaps tasks.
type stubExtractor struct {
	mu         sync.Mutex
	candidates []types.Candidate
	delay      time.Duration
	panicOn    string

	seen  []string
	spans [][2]time.Time
}

var _ CandidateExtractor = (*stubExtractor)(nil)

func (s *stubExtractor) Extract(_ context.Context, userMessage, _ string, _ extract.ExchangeContext) []types.Candidate {
	start := time.Now()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, userMessage)
	s.spans = append(s.spans, [2]time.Time{start, time.Now()})
	if userMessage == s.panicOn {
		panic("extractor blew up")
	}
	return s.candidates
}

func (s *stubExtractor) calls() ([]string, [][2]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := append([]string(nil), s.seen...)
	spans := append([][2]time.Time(nil), s.spans...)
	return seen, spans
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
