package types

import "time"

// Affect is a 2-D emotional coordinate: valence is positivity in [-1,1],
// arousal is intensity in [0,1].
type Affect struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// MoodSample is one historical mood observation.
type MoodSample struct {
	Timestamp time.Time `json:"timestamp"`
	Valence   float64   `json:"valence"`
	Arousal   float64   `json:"arousal"`
}

// MoodState is the process-wide decaying affect state. Baseline is the
// resting point the current mood drifts back toward; History holds the most
// recent observations (bounded, oldest dropped on overflow).
type MoodState struct {
	Baseline Affect       `json:"baseline"`
	Current  Affect       `json:"current"`
	History  []MoodSample `json:"history,omitempty"`
}
