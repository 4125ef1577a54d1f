// internal/memory/connections.go
package memory

// Causal connection rule: a new memory connects to an existing one when the
// entity-overlap ratio exceeds 0.7, or exceeds 0.3 while the two valences
// differ by less than 0.3. Connections only grow, never shrink.

// BuildConnections links mem to every existing record the rule admits.
func BuildConnections(mem *Memory, existing []Memory) {
	for i := range existing {
		other := &existing[i]
		if other.ID == mem.ID {
			continue
		}

		shared := 0
		for _, e := range mem.Entities {
			for _, oe := range other.Entities {
				if e == oe {
					shared++
					break
				}
			}
		}

		denom := len(mem.Entities)
		if denom == 0 {
			denom = 1
		}
		overlap := float32(shared) / float32(denom)
		valenceClose := abs(mem.EmotionalValence-other.EmotionalValence) < 0.3

		if overlap > 0.7 || (overlap > 0.3 && valenceClose) {
			if !contains(mem.Connections, other.ID) {
				mem.Connections = append(mem.Connections, other.ID)
			}
		}
	}
}

// OverlapRatio is the consolidation metric: shared entities divided by the
// size of the union of both entity sets.
func OverlapRatio(a, b *Memory) float32 {
	shared := 0
	for _, e := range a.Entities {
		for _, oe := range b.Entities {
			if e == oe {
				shared++
				break
			}
		}
	}
	union := len(a.Entities) + len(b.Entities) - shared
	if union == 0 {
		return 0
	}
	return float32(shared) / float32(union)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
