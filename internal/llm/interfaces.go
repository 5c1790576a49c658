// Package llm provides clients for the external LLM and embedding providers
// the engine depends on. All clients wrap their HTTP calls in a circuit
// breaker so a misbehaving provider degrades the engine instead of hanging it.
package llm

import "context"

// TextGenerator is the interface for LLM text completion. The structured
// extractor uses single-string completion style (not chat history).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator converts text into a fixed-length vector. The vector
// length is fixed per deployment by the configured embedding model.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
