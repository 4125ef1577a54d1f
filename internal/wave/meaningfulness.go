// internal/wave/meaningfulness.go
package wave

// ScoreFunc derives a bounded meaningfulness score from the standing wave.
// Pluggable: the exact formula is a product decision, the contract is that
// the result stays in [-1, 1] and rises with recent positive valence.
type ScoreFunc func(w *StandingWave) float32

// DefaultScore weighs the recent emotional trajectory most heavily, with
// open curiosities and accumulated wisdom as smaller positive signals.
func DefaultScore(w *StandingWave) float32 {
	const recentWindow = 7

	var emotional float32
	n := len(w.EmotionalTrajectory)
	if n > 0 {
		take := recentWindow
		if n < take {
			take = n
		}
		var sum float32
		for _, p := range w.EmotionalTrajectory[n-take:] {
			sum += p.Valence
		}
		emotional = sum / float32(take)
	}

	curiosity := float32(len(w.ActiveCuriosities))
	if curiosity > 5 {
		curiosity = 5
	}
	wisdom := float32(len(w.WisdomTransformations))
	if wisdom > 5 {
		wisdom = 5
	}

	score := emotional*0.6 + (curiosity/5)*0.2 + (wisdom/5)*0.2
	return clamp(score, -1, 1)
}

// Score is the active scoring function. Tests and experiments may swap it.
var Score ScoreFunc = DefaultScore

// MeaningfulnessScore evaluates the active scoring function.
func (w *StandingWave) MeaningfulnessScore() float32 {
	return Score(w)
}
