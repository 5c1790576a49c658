package engine

import (
	"math"
	"sync"
	"time"

	"github.com/reveriehq/reverie/pkg/types"
)

// Mood tracker tunables. New observations move the current state by the
// smoothing factor; the decay job eases it back toward baseline.
const (
	moodSmoothing   = 0.3
	moodDriftFactor = 0.1
	moodHistoryMax  = 100
)

// MoodTracker holds the process-wide decaying affect state, updated from the
// emotional weights of stored emotion memories. All methods are safe for
// concurrent use, though in practice updates arrive serialized through the
// extraction drain loop.
type MoodTracker struct {
	mu    sync.Mutex
	state types.MoodState
}

// NewMoodTracker creates a tracker at a neutral baseline.
func NewMoodTracker() *MoodTracker {
	return &MoodTracker{}
}

// UpdateFromEmotions folds a batch of emotional weights (each in [-1,1]) into
// the current mood: valence is their mean, arousal the mean magnitude, and
// the state moves toward that observation by the smoothing factor. An empty
// batch is a strict no-op — no smoothing, no history sample.
func (m *MoodTracker) UpdateFromEmotions(weights []float64) {
	if len(weights) == 0 {
		return
	}

	var sumValence, sumArousal float64
	for _, w := range weights {
		sumValence += w
		sumArousal += math.Abs(w)
	}
	observed := types.Affect{
		Valence: sumValence / float64(len(weights)),
		Arousal: sumArousal / float64(len(weights)),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Current.Valence = m.state.Current.Valence*(1-moodSmoothing) + observed.Valence*moodSmoothing
	m.state.Current.Arousal = m.state.Current.Arousal*(1-moodSmoothing) + observed.Arousal*moodSmoothing

	m.state.History = append(m.state.History, types.MoodSample{
		Timestamp: time.Now(),
		Valence:   m.state.Current.Valence,
		Arousal:   m.state.Current.Arousal,
	})
	if len(m.state.History) > moodHistoryMax {
		m.state.History = m.state.History[len(m.state.History)-moodHistoryMax:]
	}
}

// DecayTowardBaseline eases the current mood back toward the baseline by
// factor (0 leaves it alone, 1 snaps to baseline). Called by the decay job
// so affect fades when nothing emotional has happened.
func (m *MoodTracker) DecayTowardBaseline(factor float64) {
	if factor <= 0 {
		return
	}
	if factor > 1 {
		factor = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Current.Valence += (m.state.Baseline.Valence - m.state.Current.Valence) * factor
	m.state.Current.Arousal += (m.state.Baseline.Arousal - m.state.Current.Arousal) * factor
}

// Snapshot returns a copy of the mood state, history included.
func (m *MoodTracker) Snapshot() types.MoodState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.state
	out.History = make([]types.MoodSample, len(m.state.History))
	copy(out.History, m.state.History)
	return out
}
