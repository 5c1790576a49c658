// Package mockllm provides deterministic in-memory implementations of the
// llm interfaces for tests. The embedder derives a unit vector from an FNV
// hash of the input text, so identical texts always embed identically and
// distinct texts are very unlikely to collide — no network, no model.
package mockllm

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// DefaultDim is the embedding dimension used when none is configured.
const DefaultDim = 64

// Embedder is a deterministic EmbeddingGenerator for tests.
type Embedder struct {
	// Dim is the vector length (default DefaultDim).
	Dim int
	// Err, when set, is returned by every Embed call (fail-closed tests).
	Err error
	// Fixed maps exact input texts to canned vectors, overriding hashing.
	// Useful for forcing orthogonal or identical embeddings.
	Fixed map[string][]float32

	mu    sync.Mutex
	calls []string
}

// Embed returns a deterministic unit vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if vec, ok := e.Fixed[text]; ok {
		return vec, nil
	}

	dim := e.Dim
	if dim <= 0 {
		dim = DefaultDim
	}

	// FNV seed, then a 64-bit LCG to fill the vector.
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		// Map the top bits to [-1, 1).
		v := float64(int64(state>>11))/float64(1<<52) - 1.0
		vec[i] = float32(v)
		norm += v * v
	}

	// Normalize to a unit vector so cosine similarity is well-behaved.
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// GetModel returns a fixed model identifier.
func (e *Embedder) GetModel() string { return "mock-embedder" }

// Calls returns the texts embedded so far, in order.
func (e *Embedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// Generator is a canned TextGenerator for tests.
type Generator struct {
	// Response is returned by every Complete call unless Script is set.
	Response string
	// Script, when non-empty, returns responses in order, repeating the
	// last one after exhaustion.
	Script []string
	// Err, when set, is returned by every Complete call.
	Err error

	mu      sync.Mutex
	prompts []string
}

// Complete returns the canned response.
func (g *Generator) Complete(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Script) > 0 {
		if n >= len(g.Script) {
			n = len(g.Script) - 1
		}
		return g.Script[n], nil
	}
	return g.Response, nil
}

// GetModel returns a fixed model identifier.
func (g *Generator) GetModel() string { return "mock-generator" }

// Prompts returns the prompts seen so far, in order.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}
