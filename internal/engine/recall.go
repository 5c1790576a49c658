package engine

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reveriehq/reverie/internal/storage"
)

// Recall limits.
const (
	defaultRecallLimit      = 10
	defaultMinImportance    = 0.3
	keywordRecallLimit      = 5
	semanticOverfetchFactor = 2
)

// RecallOptions tune one recall call. Zero values take the defaults.
type RecallOptions struct {
	Limit         int
	MinImportance float64
}

// Recall returns the memories most relevant to message, ranked by
// similarity × importance, within the configured latency budget. If the
// lookup overruns the budget the caller gets an empty slice immediately and
// the lookup keeps running in the background so its access-count side
// effects still land. Recall never returns an error: a degraded memory is
// better than a failed chat turn.
func (e *Engine) Recall(ctx context.Context, userID, message string, opts RecallOptions) []storage.ScoredMemory {
	if opts.Limit <= 0 {
		opts.Limit = defaultRecallLimit
	}
	if opts.MinImportance <= 0 {
		opts.MinImportance = defaultMinImportance
	}

	resultCh := make(chan []storage.ScoredMemory, 1)
	go func() {
		// Detached from the caller: the lookup outlives a timed-out request.
		resultCh <- e.recall(context.Background(), userID, message, opts)
	}()

	select {
	case results := <-resultCh:
		return results
	case <-time.After(e.cfg.RecallTimeout):
		log.Printf("WARNING: engine: recall for user %s exceeded %s budget, returning empty", userID, e.cfg.RecallTimeout)
		return nil
	case <-ctx.Done():
		return nil
	}
}

// recall is the uncapped lookup: semantic and keyword queries in parallel,
// keyword-only hits prepended, one ranked cut.
func (e *Engine) recall(ctx context.Context, userID, message string, opts RecallOptions) []storage.ScoredMemory {
	if userID == "" || strings.TrimSpace(message) == "" {
		return nil
	}

	// Fail closed: without an embedding there is no trustworthy ranking.
	embedding, err := e.embedder.Embed(ctx, message)
	if err != nil {
		log.Printf("WARNING: engine: recall embedding failed for user %s: %v", userID, err)
		return nil
	}

	keywords := ExtractKeywords(message)

	var (
		wg           sync.WaitGroup
		semanticHits []storage.ScoredMemory
		keywordHits  []storage.ScoredMemory
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		hits, err := e.store.Query(ctx, userID, embedding, opts.MinImportance, opts.Limit*semanticOverfetchFactor)
		if err != nil {
			log.Printf("WARNING: engine: semantic recall failed for user %s: %v", userID, err)
			return
		}
		semanticHits = hits
	}()
	go func() {
		defer wg.Done()
		if len(keywords) == 0 {
			return
		}
		hits, err := e.store.QueryByKeywords(ctx, userID, keywords, keywordRecallLimit)
		if err != nil {
			log.Printf("WARNING: engine: keyword recall failed for user %s: %v", userID, err)
			return
		}
		keywordHits = hits
	}()
	wg.Wait()

	results := mergeRecallHits(semanticHits, keywordHits)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity*results[i].Memory.Importance >
			results[j].Similarity*results[j].Memory.Importance
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	if len(results) > 0 {
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.Memory.ID
		}
		// Fire and forget; a lost increment only softens future decay.
		go func() {
			if err := e.store.TouchAccess(context.Background(), ids); err != nil {
				log.Printf("WARNING: engine: failed to touch access counts: %v", err)
			}
		}()
	}
	return results
}

// mergeRecallHits prepends keyword hits that the semantic pass missed, so a
// lexical match survives even when its embedding ranked poorly.
func mergeRecallHits(semantic, keyword []storage.ScoredMemory) []storage.ScoredMemory {
	if len(keyword) == 0 {
		return semantic
	}

	present := make(map[string]struct{}, len(semantic))
	for _, hit := range semantic {
		present[hit.Memory.ID] = struct{}{}
	}

	var merged []storage.ScoredMemory
	for _, hit := range keyword {
		if _, ok := present[hit.Memory.ID]; !ok {
			merged = append(merged, hit)
		}
	}
	return append(merged, semantic...)
}
