package types

import "time"

// MemoryType is the closed category assigned to a memory at extraction time.
type MemoryType string

const (
	MemoryFact             MemoryType = "fact"
	MemoryEmotion          MemoryType = "emotion"
	MemoryEvent            MemoryType = "event"
	MemoryPreference       MemoryType = "preference"
	MemoryTrigger          MemoryType = "trigger"
	MemoryRelationshipNote MemoryType = "relationship_note"
	MemoryPromise          MemoryType = "promise"
	MemorySharedExperience MemoryType = "shared_experience"

	// MemoryUnknown is the catch-all for types the extractor emits that we
	// do not recognize. Records of this type are never persisted.
	MemoryUnknown MemoryType = "unknown"
)

// AllMemoryTypes lists the eight persistable memory types in extraction order.
var AllMemoryTypes = []MemoryType{
	MemoryFact,
	MemoryEmotion,
	MemoryEvent,
	MemoryPreference,
	MemoryTrigger,
	MemoryRelationshipNote,
	MemoryPromise,
	MemorySharedExperience,
}

// ParseMemoryType maps a raw type string to a MemoryType. Plural forms used
// by the extraction prompt's JSON keys ("facts", "relationship_notes", ...)
// collapse to their singular variants. Unrecognized strings map to
// MemoryUnknown.
func ParseMemoryType(s string) MemoryType {
	switch s {
	case "fact", "facts":
		return MemoryFact
	case "emotion", "emotions":
		return MemoryEmotion
	case "event", "events":
		return MemoryEvent
	case "preference", "preferences":
		return MemoryPreference
	case "trigger", "triggers":
		return MemoryTrigger
	case "relationship_note", "relationship_notes":
		return MemoryRelationshipNote
	case "promise", "promises":
		return MemoryPromise
	case "shared_experience", "shared_experiences":
		return MemorySharedExperience
	default:
		return MemoryUnknown
	}
}

// IsValid reports whether t is one of the eight persistable memory types.
func (t MemoryType) IsValid() bool {
	switch t {
	case MemoryFact, MemoryEmotion, MemoryEvent, MemoryPreference,
		MemoryTrigger, MemoryRelationshipNote, MemoryPromise, MemorySharedExperience:
		return true
	}
	return false
}

// Memory is the durable unit of the engine: a single extracted statement
// about a user, with its embedding and recall-priority signals.
type Memory struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	MemoryType      MemoryType `json:"memory_type"`
	Content         string     `json:"content"`
	Confidence      float64    `json:"confidence"`       // extractor certainty, [0,1]
	EmotionalWeight float64    `json:"emotional_weight"` // valence of the content, [-1,1]
	Importance      float64    `json:"importance"`       // recall priority, [0,1]; decays
	Embedding       []float32  `json:"embedding,omitempty"`
	ContextTags     []string   `json:"context_tags,omitempty"`
	AccessCount     int        `json:"access_count"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`

	// LastDecayedAt guards the decay job against double-decay when two
	// triggers overlap within the same window.
	LastDecayedAt *time.Time `json:"last_decayed_at,omitempty"`
}

// Candidate is a not-yet-persisted memory proposed by the structured
// extractor. Scores are clamped before the persistence gate is applied.
type Candidate struct {
	Type            MemoryType `json:"-"`
	Content         string     `json:"content"`
	Confidence      float64    `json:"confidence"`
	EmotionalWeight float64    `json:"emotional_weight"`
	Importance      float64    `json:"importance"`
}

// Clamp forces the candidate's scores into their documented ranges.
func (c *Candidate) Clamp() {
	c.Confidence = ClampUnit(c.Confidence)
	c.EmotionalWeight = ClampSigned(c.EmotionalWeight)
	c.Importance = ClampUnit(c.Importance)
}

// ClampUnit clamps v to [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampSigned clamps v to [-1, 1].
func ClampSigned(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
