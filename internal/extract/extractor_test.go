package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveriehq/reverie/pkg/types"
)

// stubGenerator is a canned TextGenerator for extractor tests.
type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func (s *stubGenerator) GetModel() string { return "stub" }

func TestExtractReturnsCandidates(t *testing.T) {
	gen := &stubGenerator{
		response: `{"facts":[{"content":"plays guitar","confidence":0.85,"emotional_weight":0.3,"importance":0.6}]}`,
	}
	ex := NewExtractor(gen)

	candidates := ex.Extract(context.Background(), "I played guitar all night", "That sounds wonderful!", ExchangeContext{})
	require.Len(t, candidates, 1)
	assert.Equal(t, types.MemoryFact, candidates[0].Type)
	assert.Equal(t, "plays guitar", candidates[0].Content)
}

func TestExtractProviderErrorIsEmptyNotFatal(t *testing.T) {
	ex := NewExtractor(&stubGenerator{err: errors.New("connection refused")})

	candidates := ex.Extract(context.Background(), "hello", "hi", ExchangeContext{})
	assert.Empty(t, candidates)
}

func TestExtractMalformedOutputIsEmptyNotFatal(t *testing.T) {
	ex := NewExtractor(&stubGenerator{response: "I'd rather chat about the weather."})

	candidates := ex.Extract(context.Background(), "hello", "hi", ExchangeContext{})
	assert.Empty(t, candidates)
}

func TestExtractSingleAttempt(t *testing.T) {
	gen := &stubGenerator{response: "not json"}
	ex := NewExtractor(gen)

	ex.Extract(context.Background(), "hello", "hi", ExchangeContext{})
	assert.Len(t, gen.prompts, 1, "malformed output must not trigger a retry")
}

func TestExtractPromptCarriesExchangeAndContext(t *testing.T) {
	gen := &stubGenerator{response: "{}"}
	ex := NewExtractor(gen)

	ex.Extract(context.Background(), "I moved to Oslo", "Exciting!", ExchangeContext{
		RelationshipLevel: 3,
		Mood:              "cheerful",
		Tags:              []string{"chat"},
	})

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.True(t, strings.Contains(prompt, "I moved to Oslo"))
	assert.True(t, strings.Contains(prompt, "Exciting!"))
	assert.True(t, strings.Contains(prompt, "Relationship level: 3"))
	assert.True(t, strings.Contains(prompt, "cheerful"))
	assert.True(t, strings.Contains(prompt, "relationship_notes"))
}

func TestExtractNilGenerator(t *testing.T) {
	ex := NewExtractor(nil)
	assert.Empty(t, ex.Extract(context.Background(), "a", "b", ExchangeContext{}))
}
