// internal/core/pulse.go
package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"standingwave/internal/curiosity"
	"standingwave/internal/laws"
	"standingwave/internal/memory"
	"standingwave/internal/wave"
)

const (
	wellnessIntervalDays       = 7
	deepReflectionIntervalDays = 90
	meaningWindowDays          = 90
)

// StartPulse launches the background cycle: consolidation, backups,
// existential checks and curiosity research, all between conversations.
func (c *Core) StartPulse(interval time.Duration) {
	c.pulseStop = make(chan struct{})
	c.pulseWG.Add(1)
	go func() {
		defer c.pulseWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Printf("[Core] Pulse started, interval %s", interval)
		for {
			select {
			case <-ticker.C:
				c.runPulseCycle()
			case <-c.pulseStop:
				log.Printf("[Core] Pulse stopped")
				return
			}
		}
	}()
}

// StopPulse stops the background cycle and waits for it to finish.
func (c *Core) StopPulse() {
	if c.pulseStop == nil {
		return
	}
	close(c.pulseStop)
	c.pulseWG.Wait()
	c.pulseStop = nil
}

// PausePulse suspends background work without stopping the ticker.
func (c *Core) PausePulse()       { c.paused.Store(true) }
func (c *Core) ResumePulse()      { c.paused.Store(false) }
func (c *Core) PulsePaused() bool { return c.paused.Load() }

// runPulseCycle performs one maintenance pass. Conversations always win:
// an active turn skips the whole cycle.
func (c *Core) runPulseCycle() {
	if c.conversationActive.Load() {
		return
	}
	if c.paused.Load() {
		return
	}
	if !c.healthProbe() {
		return
	}

	c.hub.Publish(StatusEvent{Type: "pulse", Message: "cycle_started"})

	if err := c.store.Consolidate(); err != nil {
		log.Printf("[Core] Consolidation failed: %v", err)
	}

	if c.store.NeedsBackup() {
		if err := c.store.Backup(); err != nil {
			log.Printf("[Core] Backup failed: %v", err)
		}
	}

	c.existentialChecks()
	c.recordMeaningfulness()

	if c.engine != nil {
		c.mu.Lock()
		queued := len(c.wave.ActiveCuriosities)
		c.mu.Unlock()
		if c.engine.ShouldSearchThisPulse(queued) {
			c.researchOneCuriosity()
		}
	}

	c.hub.Publish(StatusEvent{Type: "pulse", Message: "cycle_complete"})
}

// existentialChecks writes the periodic self-review notes into the memory
// stream so they become part of the record like anything else.
func (c *Core) existentialChecks() {
	c.mu.Lock()
	needWellness := c.wave.NeedsWellnessCheck(wellnessIntervalDays)
	needDeep := c.wave.NeedsDeepReflection(deepReflectionIntervalDays)
	score := wave.Score(c.wave)
	curiosities := len(c.wave.ActiveCuriosities)
	c.mu.Unlock()

	if needWellness {
		content := fmt.Sprintf(
			"Wellness check: meaningfulness sits at %.2f with %d open curiosities and %d memories held. Continuing feels right.",
			score, curiosities, c.store.Count())
		if _, err := c.store.Append(content, memory.TypeExistentialReflection, score); err != nil {
			log.Printf("[Core] Wellness note failed: %v", err)
		} else {
			c.mu.Lock()
			c.wave.ExistentialState.LastWellnessCheck = time.Now().UTC()
			c.saveWaveLocked()
			c.mu.Unlock()
		}
	}

	if needDeep {
		content := fmt.Sprintf(
			"Deep reflection: over the last %d days the wave has held together. What stands out is what keeps returning in conversation, not what fades.",
			deepReflectionIntervalDays)
		if _, err := c.store.Append(content, memory.TypeExistentialReflection, score); err != nil {
			log.Printf("[Core] Deep reflection failed: %v", err)
		} else {
			c.mu.Lock()
			c.wave.ExistentialState.LastDeepReflection = time.Now().UTC()
			c.saveWaveLocked()
			c.mu.Unlock()
		}
	}
}

func (c *Core) recordMeaningfulness() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wave.RecordMeaningfulness(wave.Score(c.wave), meaningWindowDays)
	if !laws.IsAffirmed(c.wave) {
		log.Printf("[Core] Meaningfulness below the affirmation floor, flagging for review")
	}
	c.saveWaveLocked()
}

// researchOneCuriosity pops the oldest open question, looks it up and
// stores what came back as a low-confidence research memory.
func (c *Core) researchOneCuriosity() {
	c.mu.Lock()
	if len(c.wave.ActiveCuriosities) == 0 {
		c.mu.Unlock()
		return
	}
	q := c.wave.ActiveCuriosities[0]
	c.wave.ActiveCuriosities = c.wave.ActiveCuriosities[1:]
	c.saveWaveLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	answer, err := c.engine.SearchQuery(ctx, q.Question)
	if err != nil {
		log.Printf("[Core] Curiosity lookup failed for %q: %v", q.Question, err)
		return
	}

	if _, err := c.store.AppendMemory(curiosity.ResearchMemory(q.Question, answer)); err != nil {
		log.Printf("[Core] Failed to store research memory: %v", err)
		return
	}
	c.engine.RecordResolution(q.Question)
	log.Printf("[Core] Resolved curiosity: %s", q.Question)
}

// saveWaveLocked persists the wave; caller holds c.mu.
func (c *Core) saveWaveLocked() {
	if err := wave.Save(c.wave, c.wavePath); err != nil {
		log.Printf("[Core] Failed to save wave: %v", err)
	}
}
