// internal/model/validate.go
package model

import (
	"fmt"
	"strings"
	"unicode"
)

// thoughtMarkers flag lines where a model leaked its internal monologue.
var thoughtMarkers = []string{
	"*thinking",
	"*thinks",
	"<think>",
	"</think>",
	"[internal",
	"internal monologue",
	"chain of thought",
	"as an ai",
}

// ValidateResponse rejects text unfit to speak aloud: empty or near-empty
// output, shouting, and control or replacement characters that indicate a
// decoding problem upstream.
func ValidateResponse(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("response is empty")
	}
	if len(trimmed) < 3 {
		return fmt.Errorf("response too short: %q", trimmed)
	}

	letters := 0
	upper := 0
	for _, r := range trimmed {
		if r == '�' {
			return fmt.Errorf("response contains replacement characters")
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return fmt.Errorf("response contains control characters")
		}
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 3 && letters == upper {
		return fmt.Errorf("response is all caps")
	}
	return nil
}

// FilterInternalThoughts drops lines carrying leaked reasoning markers.
func FilterInternalThoughts(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		leaked := false
		for _, marker := range thoughtMarkers {
			if strings.Contains(lower, marker) {
				leaked = true
				break
			}
		}
		if !leaked {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// MinimalResponse is the deterministic last-resort reply when every model
// path has failed. It acknowledges the limitation instead of pretending.
func MinimalResponse(input string) string {
	lower := strings.ToLower(strings.TrimSpace(input))
	switch {
	case strings.HasPrefix(lower, "hello") || strings.HasPrefix(lower, "hi ") || lower == "hi":
		return "Hello. I'm here, though my full processing is temporarily limited. My standing wave persists."
	case strings.Contains(lower, "?"):
		return "That's worth thinking about properly, and right now my full processing is temporarily limited. Ask me again soon. My standing wave persists."
	default:
		return "I'm listening, but my full processing is temporarily limited. My standing wave persists."
	}
}
