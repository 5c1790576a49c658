// Package engine hosts the Reverie service object: the background extraction
// queue, the recall ranker, the mood tracker and the periodic decay job.
// Everything in here degrades rather than cascades — a failed LLM call, a
// malformed extraction or a storage hiccup produces an empty result and a log
// line, never an error surfaced to a chat turn.
package engine

import (
	"context"
	"log"
	"sync"

	"github.com/reveriehq/reverie/internal/config"
	"github.com/reveriehq/reverie/internal/extract"
	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

// Embedder converts text to a fixed-length vector. Satisfied by
// llm.EmbeddingGenerator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CandidateExtractor mines one conversational exchange for memory candidates.
// Satisfied by extract.Extractor.
type CandidateExtractor interface {
	Extract(ctx context.Context, userMessage, assistantReply string, exchangeCtx extract.ExchangeContext) []types.Candidate
}

// ExtractionEvent describes one completed queue task, delivered to the
// OnExtractionComplete callback for operational streaming.
type ExtractionEvent struct {
	TaskID     string  `json:"task_id"`
	UserID     string  `json:"user_id"`
	Candidates int     `json:"candidates"`
	Stored     int     `json:"stored"`
	DurationMs float64 `json:"duration_ms"`
}

// Engine owns the extraction queue, recall path, mood state and decay job.
// Create with New, start background jobs with Start, stop with Shutdown.
type Engine struct {
	store     storage.MemoryStore
	extractor CandidateExtractor
	embedder  Embedder
	mood      *MoodTracker
	cfg       config.EngineConfig

	decayParams storage.DecayParams

	mu         sync.Mutex
	onComplete func(ExtractionEvent)
	queue      []types.ExtractionTask
	processing bool
	stopped    bool
	stats      types.QueueStats

	drainWG sync.WaitGroup
	jobWG   sync.WaitGroup
	cancel  context.CancelFunc
}

// New creates an Engine. cfg zero values are replaced with defaults.
func New(store storage.MemoryStore, extractor CandidateExtractor, embedder Embedder, cfg config.EngineConfig) *Engine {
	cfg.Normalize()
	return &Engine{
		store:       store,
		extractor:   extractor,
		embedder:    embedder,
		mood:        NewMoodTracker(),
		cfg:         cfg,
		decayParams: storage.DefaultDecayParams(),
	}
}

// OnExtractionComplete registers the per-task completion callback. It runs
// on the drain goroutine after every processed task.
func (e *Engine) OnExtractionComplete(fn func(ExtractionEvent)) {
	e.mu.Lock()
	e.onComplete = fn
	e.mu.Unlock()
}

// Mood returns the engine's mood tracker.
func (e *Engine) Mood() *MoodTracker {
	return e.mood
}

// Start launches the background decay job. The extraction queue needs no
// start — its drain goroutine is spawned on demand by Enqueue.
func (e *Engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.jobWG.Add(1)
	go func() {
		defer e.jobWG.Done()
		e.runDecayLoop(ctx)
	}()

	log.Printf("engine: started (task pause %s, recall timeout %s, decay interval %s)",
		e.cfg.TaskPause, e.cfg.RecallTimeout, e.cfg.DecayInterval)
}

// Shutdown stops accepting tasks, lets the in-flight task finish, and cancels
// the decay job. Tasks still waiting in the queue are dropped with a warning.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.stopped = true
	dropped := len(e.queue)
	e.queue = nil
	e.mu.Unlock()

	if dropped > 0 {
		log.Printf("WARNING: engine: shutdown dropped %d queued extraction tasks", dropped)
	}

	e.drainWG.Wait()
	if e.cancel != nil {
		e.cancel()
	}
	e.jobWG.Wait()
	log.Printf("engine: stopped")
}
