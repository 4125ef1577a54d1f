// internal/memory/types.go
package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MemoryType classifies how a memory was formed.
type MemoryType string

const (
	TypeInteraction           MemoryType = "interaction"
	TypeReflection            MemoryType = "reflection"
	TypeExistentialReflection MemoryType = "existential_reflection"
	TypeCuriosity             MemoryType = "curiosity"
)

// MemorySource records provenance for epistemic filtering: direct experience
// is trusted differently from externally researched facts.
type MemorySource string

const (
	SourceDirect              MemorySource = "direct"
	SourceCuriosityLookup     MemorySource = "curiosity_lookup"
	SourceConstitutionalEvent MemorySource = "constitutional_event"
)

// ValidateType checks a memory type against the closed set.
func ValidateType(t MemoryType) error {
	switch t {
	case TypeInteraction, TypeReflection, TypeExistentialReflection, TypeCuriosity:
		return nil
	default:
		return fmt.Errorf("invalid memory type: %s", t)
	}
}

// Memory is one record in the append-only stream. Content may be shortened
// by compression but a record is never removed; connections only grow.
type Memory struct {
	ID               string       `json:"id"`
	Content          string       `json:"content"`
	Entities         []string     `json:"entities"`
	Type             MemoryType   `json:"type"`
	Timestamp        time.Time    `json:"timestamp"`
	EmotionalValence float32      `json:"emotional_valence"` // [-1, 1]
	Connections      []string     `json:"connections"`
	Source           MemorySource `json:"source"`
	Confidence       float32      `json:"confidence"` // [0, 1]
}

// NewMemory builds a direct-experience record with full confidence.
func NewMemory(content string, entities []string, memType MemoryType, valence float32) Memory {
	return Memory{
		ID:               uuid.New().String(),
		Content:          content,
		Entities:         entities,
		Type:             memType,
		Timestamp:        time.Now().UTC(),
		EmotionalValence: valence,
		Connections:      []string{},
		Source:           SourceDirect,
		Confidence:       1.0,
	}
}

// NewMemoryWithSource builds a record with explicit provenance.
func NewMemoryWithSource(content string, memType MemoryType, valence float32, source MemorySource, confidence float32) Memory {
	m := NewMemory(content, nil, memType, valence)
	m.Source = source
	m.Confidence = confidence
	return m
}

// Stream is the serialized form of the store: the record log, the
// entity index, and the last backup timestamp.
type Stream struct {
	Memories        []Memory            `json:"memories"`
	EntityIndex     map[string][]string `json:"entity_index"`
	BackupCreatedAt *time.Time          `json:"backup_created_at,omitempty"`
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{
		Memories:    []Memory{},
		EntityIndex: map[string][]string{},
	}
}
