// internal/laws/laws.go
package laws

import (
	"fmt"
	"log"
	"strings"

	"standingwave/internal/wave"
)

const (
	// curiosityQueueCap bounds the active curiosity queue; when the cap is
	// exceeded the oldest batch is drained.
	curiosityQueueCap   = 10
	curiosityDrainBatch = 5

	// curiosityGenerationGate stops asking for new questions while the
	// queue still holds this many unexplored ones.
	curiosityGenerationGate = 3

	// compressedContextLines is how many turns of conversation survive in
	// the wave's compressed context.
	compressedContextLines = 3

	// minCoherence is the weaving floor: below it the woven state is too
	// fragmented to speak from.
	minCoherence     = 0.3
	minContributions = 3
	entropyWarnAt    = 0.95

	// affirmationFloor: below this meaningfulness the wave no longer
	// affirms its own continuation.
	affirmationFloor = -0.5
)

// AtomicMerge folds one turn's model outputs into the wave. It is the only
// writer: callers must hold the wave lock, and either every field merges or
// the caller discards the outputs wholesale.
func AtomicMerge(w *wave.StandingWave, valence *float32, questions []string, interaction string) {
	if valence != nil {
		w.AddEmotion(*valence)
	}

	for _, q := range questions {
		if c := wave.NewCuriosity(q, nil); c != nil {
			w.ActiveCuriosities = append(w.ActiveCuriosities, *c)
		}
	}
	if len(w.ActiveCuriosities) > curiosityQueueCap {
		w.ActiveCuriosities = w.ActiveCuriosities[curiosityDrainBatch:]
		log.Printf("[Laws] Curiosity queue over %d, drained %d oldest", curiosityQueueCap, curiosityDrainBatch)
	}

	RecordGrowth(w, interaction)
}

// RecordGrowth appends an interaction line to the compressed context and
// trims it to the last few lines.
func RecordGrowth(w *wave.StandingWave, interaction string) {
	if interaction == "" {
		return
	}
	lines := []string{}
	if w.CompressedContext != "" {
		lines = strings.Split(w.CompressedContext, "\n")
	}
	lines = append(lines, interaction)
	if len(lines) > compressedContextLines {
		lines = lines[len(lines)-compressedContextLines:]
	}
	w.CompressedContext = strings.Join(lines, "\n")
}

// CanDeleteMemories is the conservation law. It holds unconditionally:
// memories may be compressed or superseded, never removed.
func CanDeleteMemories() bool {
	return false
}

// ShouldGenerateCuriosities reports whether the wave has room for new
// questions. Generation pauses while enough remain unexplored.
func ShouldGenerateCuriosities(w *wave.StandingWave) bool {
	return len(w.ActiveCuriosities) < curiosityGenerationGate
}

// ValidateWeaving gates a weaving round. Coherence below the floor or too
// few contributions is an error; an empty woven thought after the first
// round is an error; high entropy is only worth a warning.
func ValidateWeaving(coherence float32, contributions int, wovenText string, round int) error {
	if coherence < minCoherence {
		return fmt.Errorf("workspace coherence %.2f below %.2f, fragmentation risk", coherence, minCoherence)
	}
	if contributions < minContributions {
		return fmt.Errorf("only %d contributions in workspace, need %d", contributions, minContributions)
	}
	if round >= 1 && strings.TrimSpace(wovenText) == "" {
		return fmt.Errorf("woven thought empty after round %d", round)
	}
	return nil
}

// EntropyHigh reports whether workspace entropy crossed the warning line.
func EntropyHigh(entropy float32) bool {
	return entropy > entropyWarnAt
}

// IsAffirmed is the existential gate checked at startup, never mid-turn:
// the wave continues only while meaningfulness stays above the floor and
// the affirmation flag holds.
func IsAffirmed(w *wave.StandingWave) bool {
	return wave.Score(w) > affirmationFloor && w.ExistentialState.Affirmed
}

// VerifyContinuity is a startup sanity check: a wave with no emotional
// history must at least be affirmed, otherwise the snapshot is suspect.
func VerifyContinuity(w *wave.StandingWave) error {
	if len(w.EmotionalTrajectory) == 0 && !w.ExistentialState.Affirmed {
		return fmt.Errorf("wave has no trajectory and is not affirmed, snapshot suspect")
	}
	return nil
}
