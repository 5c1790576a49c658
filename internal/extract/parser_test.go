package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveriehq/reverie/pkg/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object",
			in:   `{"facts":[]}`,
			want: `{"facts":[]}`,
		},
		{
			name: "markdown fences stripped",
			in:   "```json\n{\"facts\":[]}\n```",
			want: `{"facts":[]}`,
		},
		{
			name: "leading explanation ignored",
			in:   `Here is the JSON you asked for: {"facts":[]} hope that helps!`,
			want: `{"facts":[]}`,
		},
		{
			name: "braces inside strings do not confuse the matcher",
			in:   `{"facts":[{"content":"likes {weird} strings","confidence":0.9,"emotional_weight":0,"importance":0.5}]}`,
			want: `{"facts":[{"content":"likes {weird} strings","confidence":0.9,"emotional_weight":0,"importance":0.5}]}`,
		},
		{
			name: "no json returns input unchanged",
			in:   "sorry, I cannot do that",
			want: "sorry, I cannot do that",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestParseCandidatesFullResponse(t *testing.T) {
	raw := `{
		"facts": [{"content":"allergic to shellfish","confidence":0.9,"emotional_weight":-0.3,"importance":0.8}],
		"emotions": [{"content":"felt scared about the allergy","confidence":0.8,"emotional_weight":-0.6,"importance":0.5}],
		"events": [],
		"preferences": [],
		"triggers": [],
		"relationship_notes": [],
		"promises": [],
		"shared_experiences": []
	}`

	candidates, err := ParseCandidates(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, types.MemoryFact, candidates[0].Type)
	assert.Equal(t, "allergic to shellfish", candidates[0].Content)
	assert.Equal(t, 0.9, candidates[0].Confidence)

	assert.Equal(t, types.MemoryEmotion, candidates[1].Type)
	assert.Equal(t, -0.6, candidates[1].EmotionalWeight)
}

func TestParseCandidatesSkipsBadEntries(t *testing.T) {
	raw := `{
		"facts": [
			{"content":"","confidence":0.9,"emotional_weight":0,"importance":0.5},
			{"content":"  ","confidence":0.9,"emotional_weight":0,"importance":0.5},
			{"content":"lives in Lisbon","confidence":0.9,"emotional_weight":0,"importance":0.5}
		],
		"wishlist": [{"content":"wants a pony","confidence":0.9,"emotional_weight":0.5,"importance":0.5}]
	}`

	candidates, err := ParseCandidates(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "lives in Lisbon", candidates[0].Content)
}

func TestParseCandidatesClampsScores(t *testing.T) {
	raw := `{"facts":[{"content":"works nights","confidence":1.7,"emotional_weight":-3.0,"importance":-0.2}]}`

	candidates, err := ParseCandidates(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 1.0, candidates[0].Confidence)
	assert.Equal(t, -1.0, candidates[0].EmotionalWeight)
	assert.Equal(t, 0.0, candidates[0].Importance)
}

func TestParseCandidatesMalformedJSON(t *testing.T) {
	_, err := ParseCandidates(`{"facts": [`)
	assert.Error(t, err)

	_, err = ParseCandidates(`I refuse to answer in JSON`)
	assert.Error(t, err)
}

func TestParseCandidatesDeterministicTypeOrder(t *testing.T) {
	// Keys out of canonical order in the JSON still yield fact before emotion.
	raw := `{
		"emotions": [{"content":"was happy","confidence":0.8,"emotional_weight":0.5,"importance":0.3}],
		"facts": [{"content":"has a dog","confidence":0.8,"emotional_weight":0.2,"importance":0.4}]
	}`

	candidates, err := ParseCandidates(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, types.MemoryFact, candidates[0].Type)
	assert.Equal(t, types.MemoryEmotion, candidates[1].Type)
}
