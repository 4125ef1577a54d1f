// internal/model/workspace.go
package model

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

const embeddingDim = 128

// Contribution source labels inside the shared workspace.
const (
	SourceGenerator  = "generator"
	SourceElaborator = "elaborator"
	SourceClassifier = "classifier"
)

// Workspace is the shared state the iterative mode weaves thoughts in.
// Each model holds exactly one contribution vector, overwritten when it
// contributes again; the blended state tracks 70% history, 30% newest.
// Coherence is the mean pairwise similarity across the per-model vectors,
// entropy the magnitude of the blended state.
type Workspace struct {
	vectors   map[string][]float32
	texts     map[string]string
	order     []string // first-contribution order, for stable rendering
	blended   []float32
	woven     string
	coherence float32
	entropy   float32
	round     int
}

func NewWorkspace() *Workspace {
	return &Workspace{
		vectors:   map[string][]float32{},
		texts:     map[string]string{},
		coherence: 1.0,
	}
}

// IntegrateContribution adds text from one model, replacing that model's
// previous vector. Generator contributions become the current woven thought.
func (ws *Workspace) IntegrateContribution(source, text string) {
	vec := embed(text)
	if _, seen := ws.vectors[source]; !seen {
		ws.order = append(ws.order, source)
	}
	ws.vectors[source] = vec
	ws.texts[source] = text

	if ws.blended == nil {
		ws.blended = make([]float32, embeddingDim)
		copy(ws.blended, vec)
	} else {
		for i := range ws.blended {
			ws.blended[i] = 0.7*ws.blended[i] + 0.3*vec[i]
		}
	}

	if source == SourceGenerator {
		ws.woven = text
	}

	ws.recompute()
}

// recompute refreshes coherence and entropy from the latest per-model
// vectors; stale rounds do not participate.
func (ws *Workspace) recompute() {
	n := len(ws.order)
	if n < 2 {
		ws.coherence = 1.0
	} else {
		var total float64
		pairs := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				total += float64(cosine(ws.vectors[ws.order[i]], ws.vectors[ws.order[j]]))
				pairs++
			}
		}
		mean := total / float64(pairs)
		ws.coherence = float32((mean + 1) / 2)
	}

	var mag float64
	for _, v := range ws.blended {
		mag += float64(v) * float64(v)
	}
	ws.entropy = float32(math.Sqrt(mag) / math.Sqrt(float64(embeddingDim)))
}

// Context renders the workspace for the next round's prompts: the woven
// thought so far plus each model's latest contribution.
func (ws *Workspace) Context() string {
	var b strings.Builder
	if ws.woven != "" {
		fmt.Fprintf(&b, "Current woven thought: %s\n", ws.woven)
	}
	for _, source := range ws.order {
		fmt.Fprintf(&b, "[%s] %s\n", source, ws.texts[source])
	}
	return b.String()
}

// FinalThought is the woven text after the last round.
func (ws *Workspace) FinalThought() string { return ws.woven }

func (ws *Workspace) Coherence() float32 { return ws.coherence }
func (ws *Workspace) Entropy() float32   { return ws.entropy }
func (ws *Workspace) Round() int         { return ws.round }

// ContributionCount counts the models that have contributed.
func (ws *Workspace) ContributionCount() int { return len(ws.order) }

// AdvanceRound marks the end of one weaving round.
func (ws *Workspace) AdvanceRound() { ws.round++ }

// embed maps text to a fixed vector by hashing lowercased words into
// buckets, then L2-normalizing. Crude, but stable and dependency-free,
// which is all the coherence heuristic needs.
func embed(text string) []float32 {
	vec := make([]float32, embeddingDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDim]++
	}
	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	if mag > 0 {
		norm := float32(math.Sqrt(mag))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func cosine(a, b []float32) float32 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
