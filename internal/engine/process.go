package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/reveriehq/reverie/internal/extract"
	"github.com/reveriehq/reverie/pkg/types"
)

// confidenceGate is the persistence threshold. Candidates at or below it are
// discarded; the boundary is exclusive, so exactly 0.5 does not persist.
const confidenceGate = 0.5

// processTask runs one extraction task end to end: extract candidates, apply
// the confidence gate, persist survivors, and fold emotion candidates into
// the mood state. Per-candidate store failures are logged and counted; the
// task fails only if every persistence attempt errored.
func (e *Engine) processTask(ctx context.Context, task types.ExtractionTask) error {
	start := time.Now()

	candidates := e.extractor.Extract(ctx, task.UserMessage, task.AssistantReply, extract.ExchangeContext{
		RelationshipLevel: task.RelationshipLevel,
		Mood:              task.Mood,
		Tags:              task.Tags,
	})

	var (
		stored         int
		storeErrs      int
		firstErr       error
		emotionWeights []float64
	)
	for _, candidate := range candidates {
		candidate.Clamp()
		if candidate.Confidence <= confidenceGate {
			continue
		}

		if err := e.store.Store(ctx, task.UserID, candidate, task.Tags); err != nil {
			storeErrs++
			if firstErr == nil {
				firstErr = err
			}
			log.Printf("WARNING: engine: failed to store %s candidate for task %s: %v",
				candidate.Type, task.TaskID, err)
			continue
		}
		stored++

		if candidate.Type == types.MemoryEmotion {
			emotionWeights = append(emotionWeights, candidate.EmotionalWeight)
		}
	}

	e.mood.UpdateFromEmotions(emotionWeights)

	e.mu.Lock()
	onComplete := e.onComplete
	e.mu.Unlock()
	if onComplete != nil {
		onComplete(ExtractionEvent{
			TaskID:     task.TaskID,
			UserID:     task.UserID,
			Candidates: len(candidates),
			Stored:     stored,
			DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		})
	}

	if storeErrs > 0 && stored == 0 {
		return fmt.Errorf("engine: all %d persistence attempts failed: %w", storeErrs, firstErr)
	}
	return nil
}
