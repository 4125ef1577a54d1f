// internal/model/orchestrator.go
package model

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"standingwave/internal/laws"
)

const (
	maxElaboratorQuestions = 2

	// defaultConvergence ends the rounds early once the workspace holds
	// together this well, unless the config says otherwise.
	defaultConvergence = 0.7
)

// Outputs is one turn's worth of model results. Each field is independently
// fallible: a nil Primary means the generator failed, a nil Valence means
// the classifier failed, and so on.
type Outputs struct {
	Primary   *string
	Questions []string
	Valence   *float32
}

// StatusFunc receives weaving progress for live observers.
type StatusFunc func(round int, coherence float32)

// Orchestrator fans one input out to the generator, elaborator and
// classifier models, in parallel or by iterative weaving.
type Orchestrator struct {
	client      *Client
	generator   string
	elaborator  string
	classifier  string
	rounds      int
	convergence float32
}

func NewOrchestrator(client *Client, generator, elaborator, classifier string, weavingRounds int, convergence float32) *Orchestrator {
	if weavingRounds < 1 {
		weavingRounds = 3
	}
	if convergence <= 0 || convergence > 1 {
		convergence = defaultConvergence
	}
	return &Orchestrator{
		client:      client,
		generator:   generator,
		elaborator:  elaborator,
		classifier:  classifier,
		rounds:      weavingRounds,
		convergence: convergence,
	}
}

// WeavingRounds returns the configured round count, used for turn timeouts.
func (o *Orchestrator) WeavingRounds() int { return o.rounds }

// ProcessParallel runs the three models concurrently. Failures are absorbed
// per model: whatever succeeded comes back in Outputs.
func (o *Orchestrator) ProcessParallel(ctx context.Context, input string, pctx PromptContext, generateCuriosities bool) Outputs {
	var out Outputs
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		text, err := o.client.Generate(ctx, o.generator, generatorPrompt(input, pctx))
		if err != nil {
			log.Printf("[Model] Generator failed: %v", err)
			return
		}
		text = FilterInternalThoughts(text)
		if err := ValidateResponse(text); err != nil {
			log.Printf("[Model] Generator response rejected: %v", err)
			return
		}
		mu.Lock()
		out.Primary = &text
		mu.Unlock()
	}()

	if generateCuriosities {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := o.client.Generate(ctx, o.elaborator, elaboratorPrompt(input))
			if err != nil {
				log.Printf("[Model] Elaborator failed: %v", err)
				return
			}
			questions := parseQuestions(text)
			mu.Lock()
			out.Questions = questions
			mu.Unlock()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		text, err := o.client.Generate(ctx, o.classifier, classifierPrompt(input))
		if err != nil {
			log.Printf("[Model] Classifier failed: %v", err)
			return
		}
		v, err := parseValence(text)
		if err != nil {
			log.Printf("[Model] Classifier output unparseable: %v", err)
			return
		}
		mu.Lock()
		out.Valence = &v
		mu.Unlock()
	}()

	wg.Wait()
	return out
}

// ProcessWeaving runs the iterative mode: fixed order generator, elaborator,
// classifier per round in a shared workspace, gated after every round. Any
// model failure is a hard error so the caller can fall back to parallel.
func (o *Orchestrator) ProcessWeaving(ctx context.Context, input string, pctx PromptContext, onStatus StatusFunc) (Outputs, error) {
	ws := NewWorkspace()
	var questions []string

	for round := 0; round < o.rounds; round++ {
		gen, err := o.client.Generate(ctx, o.generator, weavingGeneratorPrompt(input, pctx, ws.Context(), round))
		if err != nil {
			return Outputs{}, fmt.Errorf("weaving round %d generator: %w", round, err)
		}
		gen = FilterInternalThoughts(gen)
		if err := ValidateResponse(gen); err != nil {
			return Outputs{}, fmt.Errorf("weaving round %d generator output invalid: %w", round, err)
		}
		ws.IntegrateContribution(SourceGenerator, gen)

		elab, err := o.client.Generate(ctx, o.elaborator, elaboratorPrompt(input))
		if err != nil {
			return Outputs{}, fmt.Errorf("weaving round %d elaborator: %w", round, err)
		}
		ws.IntegrateContribution(SourceElaborator, elab)
		if round == 0 {
			questions = parseQuestions(elab)
		}

		// The classifier slot in weaving is a local tone reading, no
		// network round trip.
		tone := heuristicValence(gen)
		ws.IntegrateContribution(SourceClassifier, fmt.Sprintf("The emotional tone sits near %.2f.", tone))

		ws.AdvanceRound()

		if err := laws.ValidateWeaving(ws.Coherence(), ws.ContributionCount(), ws.FinalThought(), ws.Round()); err != nil {
			return Outputs{}, fmt.Errorf("weaving aborted: %w", err)
		}
		if laws.EntropyHigh(ws.Entropy()) {
			log.Printf("[Model] Workspace entropy %.2f is high, thought may be scattered", ws.Entropy())
		}
		if onStatus != nil {
			onStatus(ws.Round(), ws.Coherence())
		}
		if ws.Coherence() >= o.convergence {
			log.Printf("[Model] Weaving converged after round %d (coherence %.2f)", ws.Round(), ws.Coherence())
			break
		}
	}

	final := ws.FinalThought()
	v := heuristicValence(final)
	return Outputs{Primary: &final, Questions: questions, Valence: &v}, nil
}

// parseQuestions keeps lines that end with a question mark, capped.
func parseQuestions(text string) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" || !strings.HasSuffix(line, "?") {
			continue
		}
		questions = append(questions, line)
		if len(questions) >= maxElaboratorQuestions {
			break
		}
	}
	return questions
}

// parseValence extracts the first float token and clamps it to [-1, 1].
func parseValence(text string) (float32, error) {
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, ".,;:()")
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			continue
		}
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		return float32(v), nil
	}
	return 0, fmt.Errorf("no number in classifier output: %q", text)
}

var positiveWords = map[string]bool{
	"glad": true, "happy": true, "wonderful": true, "love": true, "beautiful": true,
	"good": true, "delighted": true, "curious": true, "warm": true, "hope": true,
}

var negativeWords = map[string]bool{
	"sad": true, "afraid": true, "terrible": true, "hate": true, "lost": true,
	"bad": true, "lonely": true, "angry": true, "hurt": true, "worried": true,
}

// heuristicValence is a cheap word-list tone estimate for paths where a
// classifier round trip is not worth its latency.
func heuristicValence(text string) float32 {
	score := 0
	words := strings.Fields(strings.ToLower(text))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"")
		if positiveWords[w] {
			score++
		}
		if negativeWords[w] {
			score--
		}
	}
	if len(words) == 0 {
		return 0
	}
	v := float32(score) / 5
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return v
}
