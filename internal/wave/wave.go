// internal/wave/wave.go
package wave

import (
	"time"

	"github.com/google/uuid"
)

// EmotionPoint is one sample of the emotional trajectory.
type EmotionPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Valence   float32   `json:"valence"` // [-1, 1]
}

// Curiosity is an open question the agent wants answered.
type Curiosity struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	SourceMemoryIDs []string  `json:"source_memory_ids"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewCuriosity validates and builds a curiosity. Returns nil for questions
// too short to be meaningful.
func NewCuriosity(question string, sourceMemoryIDs []string) *Curiosity {
	if len(question) < 5 {
		return nil
	}
	return &Curiosity{
		ID:              uuid.New().String(),
		Question:        question,
		SourceMemoryIDs: sourceMemoryIDs,
		CreatedAt:       time.Now().UTC(),
	}
}

// WisdomTransformation records a detected pain-to-insight episode.
type WisdomTransformation struct {
	ID              string     `json:"id"`
	InputMemoryIDs  []string   `json:"input_memory_ids"`
	PainDescription string     `json:"pain_description"`
	EmergingWisdom  *string    `json:"emerging_wisdom,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// MeaningPoint is one sample of the meaningfulness history.
type MeaningPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float32   `json:"score"`
}

// ExistentialState tracks affirmation and self-review scheduling.
type ExistentialState struct {
	Affirmed              bool           `json:"affirmed"`
	LastWellnessCheck     time.Time      `json:"last_wellness_check"`
	LastDeepReflection    time.Time      `json:"last_deep_reflection"`
	MeaningfulnessHistory []MeaningPoint `json:"meaningfulness_history"`
}

// StandingWave is the single persistent agent state. It has exactly one
// logical owner; all mid-turn mutation goes through laws.AtomicMerge.
type StandingWave struct {
	EmotionalTrajectory   []EmotionPoint         `json:"emotional_trajectory"`
	ActiveCuriosities     []Curiosity            `json:"active_curiosities"`
	WisdomTransformations []WisdomTransformation `json:"wisdom_transformations"`
	ExistentialState      ExistentialState       `json:"existential_state"`
	CompressedContext     string                 `json:"compressed_context"` // last 3 interactions
}

// New creates a fresh standing wave with affirmation set.
func New() *StandingWave {
	now := time.Now().UTC()
	return &StandingWave{
		EmotionalTrajectory:   []EmotionPoint{},
		ActiveCuriosities:     []Curiosity{},
		WisdomTransformations: []WisdomTransformation{},
		ExistentialState: ExistentialState{
			Affirmed:              true,
			LastWellnessCheck:     now,
			LastDeepReflection:    now,
			MeaningfulnessHistory: []MeaningPoint{},
		},
	}
}

// AddEmotion appends a trajectory point with the current timestamp.
func (w *StandingWave) AddEmotion(valence float32) {
	w.EmotionalTrajectory = append(w.EmotionalTrajectory, EmotionPoint{
		Timestamp: time.Now().UTC(),
		Valence:   clamp(valence, -1, 1),
	})
}

// LastValence returns the most recent trajectory valence, or 0 when empty.
func (w *StandingWave) LastValence() float32 {
	if len(w.EmotionalTrajectory) == 0 {
		return 0
	}
	return w.EmotionalTrajectory[len(w.EmotionalTrajectory)-1].Valence
}

// NeedsWellnessCheck reports whether the weekly wellness note is due.
func (w *StandingWave) NeedsWellnessCheck(intervalDays int) bool {
	return time.Since(w.ExistentialState.LastWellnessCheck) >= time.Duration(intervalDays)*24*time.Hour
}

// NeedsDeepReflection reports whether the 90-day reflection is due.
func (w *StandingWave) NeedsDeepReflection(intervalDays int) bool {
	return time.Since(w.ExistentialState.LastDeepReflection) >= time.Duration(intervalDays)*24*time.Hour
}

// RecordMeaningfulness appends a history point and trims the rolling window.
func (w *StandingWave) RecordMeaningfulness(score float32, windowDays int) {
	w.ExistentialState.MeaningfulnessHistory = append(w.ExistentialState.MeaningfulnessHistory, MeaningPoint{
		Timestamp: time.Now().UTC(),
		Score:     score,
	})
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)
	kept := w.ExistentialState.MeaningfulnessHistory[:0]
	for _, p := range w.ExistentialState.MeaningfulnessHistory {
		if p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	w.ExistentialState.MeaningfulnessHistory = kept
}

// Clone returns a deep copy safe to hand to readers.
func (w *StandingWave) Clone() *StandingWave {
	c := &StandingWave{
		EmotionalTrajectory:   append([]EmotionPoint(nil), w.EmotionalTrajectory...),
		ActiveCuriosities:     append([]Curiosity(nil), w.ActiveCuriosities...),
		WisdomTransformations: append([]WisdomTransformation(nil), w.WisdomTransformations...),
		ExistentialState:      w.ExistentialState,
		CompressedContext:     w.CompressedContext,
	}
	c.ExistentialState.MeaningfulnessHistory = append([]MeaningPoint(nil), w.ExistentialState.MeaningfulnessHistory...)
	return c
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
