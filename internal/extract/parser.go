package extract

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/reveriehq/reverie/pkg/types"
)

// candidateEntry mirrors one extracted entry in the LLM's JSON response.
type candidateEntry struct {
	Content         string  `json:"content"`
	Confidence      float64 `json:"confidence"`
	EmotionalWeight float64 `json:"emotional_weight"`
	Importance      float64 `json:"importance"`
}

// extractJSON extracts the first complete JSON object from a string that may
// contain extra text. LLMs add explanations before/after the JSON despite
// instructions, and wrap it in markdown fences.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // no JSON found, let the parser fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		// Only count braces outside of strings.
		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // no complete object found, let the parser fail
}

// ParseCandidates parses the extractor's JSON response into a flat candidate
// list. The response must be an object whose keys name memory types (plural
// forms accepted) and whose values are arrays of entries.
//
// Per-entry problems — unknown type key, empty content, out-of-range scores —
// skip that entry rather than failing the batch. Only malformed JSON returns
// an error.
func ParseCandidates(raw string) ([]types.Candidate, error) {
	clean := extractJSON(raw)

	var grouped map[string][]candidateEntry
	if err := json.Unmarshal([]byte(clean), &grouped); err != nil {
		return nil, fmt.Errorf("extract: failed to parse candidate JSON: %w", err)
	}

	var candidates []types.Candidate
	// Walk types in canonical order so output order is deterministic.
	for _, mt := range types.AllMemoryTypes {
		for key, entries := range grouped {
			if types.ParseMemoryType(key) != mt {
				continue
			}
			for _, entry := range entries {
				content := strings.TrimSpace(entry.Content)
				if content == "" {
					continue
				}
				c := types.Candidate{
					Type:            mt,
					Content:         content,
					Confidence:      entry.Confidence,
					EmotionalWeight: entry.EmotionalWeight,
					Importance:      entry.Importance,
				}
				c.Clamp()
				candidates = append(candidates, c)
			}
		}
	}

	// Surface unknown keys once per parse so prompt drift is visible in logs.
	for key, entries := range grouped {
		if types.ParseMemoryType(key) == types.MemoryUnknown && len(entries) > 0 {
			log.Printf("extract: skipping %d entries under unknown type key %q", len(entries), key)
		}
	}

	return candidates, nil
}
