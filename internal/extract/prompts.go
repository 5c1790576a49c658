// Package extract implements the structured memory extractor: it turns one
// conversational exchange into typed memory candidates via a single
// strict-JSON LLM call.
//
// Extraction is selective by construction — the prompt instructs the model to
// return empty arrays unless something is truly worth remembering, pushing
// the precision/recall tradeoff upstream into the prompt. The only downstream
// filter is the confidence gate applied by the engine before persistence.
package extract

import (
	"fmt"
	"strings"
)

// ExchangeContext carries the conversational context the extractor includes
// in its prompt.
type ExchangeContext struct {
	RelationshipLevel int
	Mood              string
	Tags              []string
}

// ExtractionPrompt generates the strict JSON-only prompt for memory
// extraction. The response must be a single object with eight arrays, one
// per memory type, each entry carrying content, confidence, emotional_weight
// and importance.
func ExtractionPrompt(userMessage, assistantReply string, ctx ExchangeContext) string {
	var meta strings.Builder
	if ctx.RelationshipLevel > 0 {
		fmt.Fprintf(&meta, "Relationship level: %d\n", ctx.RelationshipLevel)
	}
	if ctx.Mood != "" {
		fmt.Fprintf(&meta, "Current mood: %s\n", ctx.Mood)
	}
	if len(ctx.Tags) > 0 {
		fmt.Fprintf(&meta, "Context tags: %s\n", strings.Join(ctx.Tags, ", "))
	}

	return fmt.Sprintf(`TASK: Extract durable memories about the user from one conversation exchange.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks. NO ARRAY - MUST BE OBJECT.

MEMORY TYPES (ONLY these 8 keys, ALL must be present, empty array when nothing qualifies):
- facts: stable facts about the user (job, home, health, family)
- emotions: feelings the user expressed in this exchange
- events: things that happened or will happen in the user's life
- preferences: likes, dislikes, tastes
- triggers: topics or situations that provoke a strong reaction
- relationship_notes: observations about the user's relationship with the assistant
- promises: commitments either party made
- shared_experiences: moments the user and assistant went through together

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
Each entry MUST have: content, confidence, emotional_weight, importance

Example structure (EXACT FORMAT REQUIRED):
{
  "facts": [{"content":"allergic to shellfish","confidence":0.9,"emotional_weight":-0.3,"importance":0.8}],
  "emotions": [],
  "events": [],
  "preferences": [],
  "triggers": [],
  "relationship_notes": [],
  "promises": [],
  "shared_experiences": []
}

VALIDATION (STRICT):
1. Start with { - End with }
2. All 8 keys present, each an array
3. Each entry is an object with exactly: content, confidence, emotional_weight, importance
4. confidence and importance in 0.0-1.0, emotional_weight in -1.0-1.0
5. content is a short third-person statement about the user
6. No trailing commas, no null values, valid JSON syntax
7. BE SELECTIVE: return empty arrays unless the information is truly memorable

%sUSER MESSAGE:
%s

ASSISTANT REPLY:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`, meta.String(), userMessage, assistantReply)
}
