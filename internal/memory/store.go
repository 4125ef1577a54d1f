// internal/memory/store.go
package memory

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// RecallLimit caps how many memories a single recall returns.
	RecallLimit = 10

	// compressionThreshold is the default record count above which the
	// oldest records get their content truncated. Records are never
	// removed. Overridable through SetCompressionThreshold.
	compressionThreshold    = 1000
	compressionMinThreshold = 100
	compressionBatch        = 100
	compressedPrefix        = "[Compressed] "
	compressedKeep          = 100

	// backupInterval is how long a backup stays fresh.
	backupInterval = 7 * 24 * time.Hour

	consolidationOverlap = 0.7
)

// ErrBackupMissing is returned by RestoreFromBackup when no backup file
// exists, as distinct from a backup that exists but cannot be read.
var ErrBackupMissing = fmt.Errorf("no backup file exists")

// Store is the append-only memory stream with its entity index, persisted
// as JSON. All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	stream    *Stream
	filePath  string
	threshold int
}

// LoadOrCreate opens the store at path, creating an empty stream when the
// file does not exist. A corrupt file is an error, not a silent reset.
func LoadOrCreate(path string) (*Store, error) {
	s := &Store{filePath: path}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.stream = NewStream()
		log.Printf("[Memory] No existing stream at %s, starting fresh", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stream: %w", err)
	}

	var stream Stream
	if err := json.Unmarshal(raw, &stream); err != nil {
		return nil, fmt.Errorf("failed to parse memory stream: %w", err)
	}
	if stream.EntityIndex == nil {
		stream.EntityIndex = map[string][]string{}
	}
	s.stream = &stream
	log.Printf("[Memory] Loaded %d memories from %s", len(stream.Memories), path)
	return s, nil
}

// SetCompressionThreshold overrides the record count that triggers
// compression. Values below the floor keep the default.
func (s *Store) SetCompressionThreshold(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < compressionMinThreshold {
		log.Printf("[Memory] Ignoring compression threshold %d, floor is %d", n, compressionMinThreshold)
		return
	}
	s.threshold = n
}

// compressionLimit returns the active threshold. Caller holds the lock.
func (s *Store) compressionLimit() int {
	if s.threshold >= compressionMinThreshold {
		return s.threshold
	}
	return compressionThreshold
}

// Append adds a direct-experience record: entities are extracted from the
// content, causal connections built against the existing stream, the entity
// index updated, compression applied if due, and the stream saved.
func (s *Store) Append(content string, memType MemoryType, valence float32) (Memory, error) {
	mem := NewMemory(content, ExtractEntities(content), memType, valence)
	return s.append(mem)
}

// AppendWithSource adds a record with explicit provenance and confidence.
func (s *Store) AppendWithSource(content string, memType MemoryType, valence float32, source MemorySource, confidence float32) (Memory, error) {
	mem := NewMemoryWithSource(content, memType, valence, source, confidence)
	mem.Entities = ExtractEntities(content)
	return s.append(mem)
}

// AppendMemory adds a prebuilt record, extracting entities when absent.
func (s *Store) AppendMemory(mem Memory) (Memory, error) {
	if len(mem.Entities) == 0 {
		mem.Entities = ExtractEntities(mem.Content)
	}
	return s.append(mem)
}

func (s *Store) append(mem Memory) (Memory, error) {
	if err := ValidateType(mem.Type); err != nil {
		return Memory{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	BuildConnections(&mem, s.stream.Memories)
	s.stream.Memories = append(s.stream.Memories, mem)
	for _, e := range mem.Entities {
		s.stream.EntityIndex[e] = append(s.stream.EntityIndex[e], mem.ID)
	}

	s.compressIfNeeded()

	if err := s.save(); err != nil {
		return Memory{}, err
	}
	return mem, nil
}

// RecallWeighted returns up to RecallLimit memories relevant to the given
// entities: everything the index holds for those entities plus the most
// recent recentN records, deduplicated and ranked by recency weighted with
// emotional intensity. The ranking is deterministic for a fixed stream.
func (s *Store) RecallWeighted(entities []string, recentN int) []Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := map[string]*Memory{}
	for i := range s.stream.Memories {
		byID[s.stream.Memories[i].ID] = &s.stream.Memories[i]
	}

	seen := map[string]bool{}
	var candidates []Memory
	add := func(id string) {
		if seen[id] {
			return
		}
		if m, ok := byID[id]; ok {
			seen[id] = true
			candidates = append(candidates, *m)
		}
	}

	for _, e := range entities {
		for _, id := range s.stream.EntityIndex[e] {
			add(id)
		}
	}

	n := len(s.stream.Memories)
	for i := n - recentN; i < n; i++ {
		if i < 0 {
			continue
		}
		add(s.stream.Memories[i].ID)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return recallWeight(&candidates[i]) > recallWeight(&candidates[j])
	})

	if len(candidates) > RecallLimit {
		candidates = candidates[:RecallLimit]
	}
	return candidates
}

// recallWeight favors recent memories, with emotional intensity worth up
// to 1000 seconds of recency. Sub-second resolution keeps ordering stable
// for records created close together.
func recallWeight(m *Memory) float64 {
	return float64(m.Timestamp.UnixNano())/1e9 + float64(abs(m.EmotionalValence))*1000
}

// Consolidate finds strongly overlapping memory pairs and rebuilds all
// connections. Overlapping records are logged as merge candidates but kept
// intact: records are never merged away or deleted.
func (s *Store) Consolidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mems := s.stream.Memories
	pairs := 0
	for i := range mems {
		for j := i + 1; j < len(mems); j++ {
			if OverlapRatio(&mems[i], &mems[j]) > consolidationOverlap {
				pairs++
				log.Printf("[Memory] Consolidation candidates: %s and %s", mems[i].ID, mems[j].ID)
			}
		}
	}
	if pairs > 0 {
		log.Printf("[Memory] Consolidation pass found %d overlapping pairs", pairs)
	}

	for i := range mems {
		BuildConnections(&mems[i], mems)
	}

	return s.save()
}

// compressIfNeeded truncates the content of the oldest records once the
// stream exceeds the threshold. Oldest means oldest by timestamp, not by
// slice position, since prebuilt records can arrive out of order.
// Already-compressed records are left alone, so repeated passes are
// idempotent. Caller holds the lock.
func (s *Store) compressIfNeeded() {
	if len(s.stream.Memories) <= s.compressionLimit() {
		return
	}

	idx := make([]int, len(s.stream.Memories))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.stream.Memories[idx[a]].Timestamp.Before(s.stream.Memories[idx[b]].Timestamp)
	})

	compressed := 0
	for k := 0; k < compressionBatch && k < len(idx); k++ {
		m := &s.stream.Memories[idx[k]]
		if strings.HasPrefix(m.Content, compressedPrefix) {
			continue
		}
		m.Content = compressedPrefix + truncateRunes(m.Content, compressedKeep)
		compressed++
	}
	if compressed > 0 {
		log.Printf("[Memory] Compressed %d oldest memories (stream at %d records)", compressed, len(s.stream.Memories))
	}
}

// truncateRunes cuts s to at most n characters on a rune boundary, so
// multibyte content stays valid UTF-8.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Backup writes the current stream to <path>.backup and records the time.
func (s *Store) Backup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(s.stream, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize backup: %w", err)
	}
	if err := os.WriteFile(s.backupPath(), raw, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	now := time.Now().UTC()
	s.stream.BackupCreatedAt = &now
	log.Printf("[Memory] Backup written to %s", s.backupPath())
	return s.save()
}

// NeedsBackup reports whether no backup exists or the last one is older
// than the backup interval.
func (s *Store) NeedsBackup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream.BackupCreatedAt == nil {
		return true
	}
	return time.Since(*s.stream.BackupCreatedAt) > backupInterval
}

// RestoreFromBackup replaces the stream with the backup copy and appends a
// recovery reflection so the restoration itself becomes part of the record.
func (s *Store) RestoreFromBackup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.backupPath())
	if os.IsNotExist(err) {
		return ErrBackupMissing
	}
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	var stream Stream
	if err := json.Unmarshal(raw, &stream); err != nil {
		return fmt.Errorf("failed to parse backup: %w", err)
	}
	if stream.EntityIndex == nil {
		stream.EntityIndex = map[string][]string{}
	}
	s.stream = &stream

	note := NewMemory(
		"Restored from backup. Some recent memories may be missing, but continuity holds.",
		nil, TypeReflection, 0.3,
	)
	s.stream.Memories = append(s.stream.Memories, note)
	log.Printf("[Memory] Restored %d memories from backup", len(stream.Memories))
	return s.save()
}

// Count returns the number of records in the stream.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stream.Memories)
}

// CountBySource returns the number of records with the given provenance.
func (s *Store) CountBySource(source MemorySource) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.stream.Memories {
		if s.stream.Memories[i].Source == source {
			n++
		}
	}
	return n
}

// All returns a copy of every record, oldest first.
func (s *Store) All() []Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Memory, len(s.stream.Memories))
	copy(out, s.stream.Memories)
	return out
}

func (s *Store) backupPath() string {
	return s.filePath + ".backup"
}

// save persists the stream. Caller holds the lock.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.stream, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize memory stream: %w", err)
	}
	if err := os.WriteFile(s.filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write memory stream: %w", err)
	}
	return nil
}
