// internal/core/core.go
package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"standingwave/internal/curiosity"
	"standingwave/internal/laws"
	"standingwave/internal/memory"
	"standingwave/internal/model"
	"standingwave/internal/wave"
)

// Mode selects how the three models are combined per turn.
type Mode string

const (
	ModeParallel Mode = "parallel"
	ModeWeaving  Mode = "weaving"
)

const (
	parallelTurnTimeout = 90 * time.Second
	weavingRoundTimeout = 120 * time.Second

	recallRecentN = 5
)

// Core owns the standing wave and drives turns and the background pulse.
// The wave has a single writer: every mutation happens under c.mu through
// laws.AtomicMerge or a pulse step.
type Core struct {
	mu       sync.Mutex
	wave     *wave.StandingWave
	wavePath string

	store  *memory.Store
	models *model.Orchestrator
	engine *curiosity.Engine
	mode   Mode
	hub    *StatusHub

	conversationActive atomic.Bool

	// healthProbe is swappable for tests.
	healthProbe func() bool

	pulseStop chan struct{}
	pulseWG   sync.WaitGroup
	paused    atomic.Bool
}

func New(w *wave.StandingWave, wavePath string, store *memory.Store, models *model.Orchestrator, engine *curiosity.Engine, mode Mode, hub *StatusHub) *Core {
	if hub == nil {
		hub = NewStatusHub()
	}
	return &Core{
		wave:        w,
		wavePath:    wavePath,
		store:       store,
		models:      models,
		engine:      engine,
		mode:        mode,
		hub:         hub,
		healthProbe: systemHealthy,
	}
}

// Hub exposes the status hub for the API layer.
func (c *Core) Hub() *StatusHub { return c.hub }

// Mode returns the configured processing mode.
func (c *Core) Mode() Mode { return c.mode }

// WaveSnapshot returns a deep copy of the current wave for readers.
func (c *Core) WaveSnapshot() *wave.StandingWave {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wave.Clone()
}

// MeaningfulnessScore evaluates the current wave.
func (c *Core) MeaningfulnessScore() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wave.Score(c.wave)
}

// ConversationActive reports whether a turn is in flight.
func (c *Core) ConversationActive() bool {
	return c.conversationActive.Load()
}

// ProcessTurn runs one exchange: recall, model dispatch, merge, persist.
// On timeout or persistence failure the partial outputs are discarded and
// the wave stays untouched.
func (c *Core) ProcessTurn(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty input")
	}

	timeout := parallelTurnTimeout
	if c.mode == ModeWeaving {
		timeout = time.Duration(c.models.WeavingRounds()) * weavingRoundTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.conversationActive.Store(true)
	defer c.conversationActive.Store(false)

	c.hub.Publish(StatusEvent{Type: "turn_started", Message: string(c.mode)})

	entities := memory.ExtractEntities(input)
	recalled := c.store.RecallWeighted(entities, recallRecentN)

	c.mu.Lock()
	pctx := model.PromptContext{
		Memories:    renderMemories(recalled),
		Curiosities: renderCuriosities(c.wave.ActiveCuriosities),
		Recent:      c.wave.CompressedContext,
	}
	generateCuriosities := laws.ShouldGenerateCuriosities(c.wave)
	c.mu.Unlock()

	out := c.dispatch(ctx, input, pctx, generateCuriosities)

	if ctx.Err() != nil {
		return "", fmt.Errorf("turn timed out: %w", ctx.Err())
	}

	response := model.MinimalResponse(input)
	if out.Primary != nil {
		response = *out.Primary
	}

	// Merge on a clone first so a persistence failure leaves the live
	// wave exactly as it was.
	c.mu.Lock()
	merged := c.wave.Clone()
	laws.AtomicMerge(merged, out.Valence, out.Questions, "User: "+input)
	laws.RecordGrowth(merged, "Assistant: "+response)
	if err := wave.Save(merged, c.wavePath); err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("turn discarded: %w", err)
	}
	c.wave = merged
	responseValence := merged.LastValence()
	c.mu.Unlock()

	if _, err := c.store.Append("User: "+input, memory.TypeInteraction, 0); err != nil {
		return "", fmt.Errorf("failed to remember the exchange: %w", err)
	}
	if _, err := c.store.Append("Assistant: "+response, memory.TypeInteraction, responseValence); err != nil {
		return "", fmt.Errorf("failed to remember the exchange: %w", err)
	}

	c.hub.Publish(StatusEvent{Type: "turn_complete"})
	return response, nil
}

// dispatch runs the configured mode; a weaving failure degrades to the
// parallel path rather than surfacing to the collaborator.
func (c *Core) dispatch(ctx context.Context, input string, pctx model.PromptContext, generateCuriosities bool) model.Outputs {
	if c.mode == ModeWeaving {
		out, err := c.models.ProcessWeaving(ctx, input, pctx, func(round int, coherence float32) {
			c.hub.Publish(StatusEvent{Type: "weaving_round", Round: round, Coherence: coherence})
		})
		if err == nil {
			return out
		}
		log.Printf("[Core] Weaving failed, falling back to parallel: %v", err)
	}
	return c.models.ProcessParallel(ctx, input, pctx, generateCuriosities)
}

func renderMemories(mems []memory.Memory) string {
	if len(mems) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range mems {
		note := ""
		if m.Source == memory.SourceCuriosityLookup {
			note = " (researched, unverified)"
		}
		fmt.Fprintf(&b, "- %s%s\n", m.Content, note)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCuriosities(cs []wave.Curiosity) string {
	if len(cs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range cs {
		fmt.Fprintf(&b, "- %s\n", c.Question)
	}
	return strings.TrimRight(b.String(), "\n")
}
