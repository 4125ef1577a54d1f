// internal/memory/entities.go
package memory

import "regexp"

var (
	properNounRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	quotedRe     = regexp.MustCompile(`"([^"]+)"`)
)

// stopWords are capitalized words that are not entities.
var stopWords = map[string]bool{
	"The": true, "A": true, "An": true, "I": true,
}

// ExtractEntities pulls candidate entities from text: runs of capitalized
// words (proper nouns) plus quoted substrings. Intentionally a simple
// heuristic; it may be replaced without affecting the store contracts.
func ExtractEntities(text string) []string {
	var entities []string
	seen := map[string]bool{}

	for _, match := range properNounRe.FindAllString(text, -1) {
		if stopWords[match] || seen[match] {
			continue
		}
		seen[match] = true
		entities = append(entities, match)
	}

	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		entities = append(entities, m[1])
	}

	return entities
}
