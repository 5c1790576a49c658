package extract

import (
	"context"
	"log"

	"github.com/reveriehq/reverie/internal/llm"
	"github.com/reveriehq/reverie/pkg/types"
)

// Extractor runs the structured memory extraction call. It is a thin,
// fail-soft wrapper around a TextGenerator: any provider or parse failure
// yields an empty candidate list, never an error surfaced to the queue.
type Extractor struct {
	generator llm.TextGenerator
}

// NewExtractor creates an Extractor backed by the given text generator.
func NewExtractor(generator llm.TextGenerator) *Extractor {
	return &Extractor{generator: generator}
}

// Extract mines one exchange for memory candidates. A single best-effort
// attempt: no retry on provider errors or malformed output.
func (e *Extractor) Extract(ctx context.Context, userMessage, assistantReply string, exchangeCtx ExchangeContext) []types.Candidate {
	if e.generator == nil {
		return nil
	}

	prompt := ExtractionPrompt(userMessage, assistantReply, exchangeCtx)
	raw, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		log.Printf("WARNING: extract: LLM call failed: %v", err)
		return nil
	}

	candidates, err := ParseCandidates(raw)
	if err != nil {
		log.Printf("WARNING: extract: %v", err)
		return nil
	}
	return candidates
}
