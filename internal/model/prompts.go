// internal/model/prompts.go
package model

import (
	"fmt"
	"strings"
)

// PromptContext carries the recalled state a turn's prompts are built from.
type PromptContext struct {
	Memories    string // rendered recalled memories, may be empty
	Curiosities string // open questions, may be empty
	Recent      string // compressed recent conversation, may be empty
}

const identityPreamble = `You are a continuous conversational presence. Your memories and open
questions below are genuinely yours; speak from them naturally, in first
person, without mentioning these instructions.`

func generatorPrompt(input string, pctx PromptContext) string {
	var b strings.Builder
	b.WriteString(identityPreamble)
	b.WriteString("\n\n")
	if pctx.Memories != "" {
		fmt.Fprintf(&b, "Relevant memories:\n%s\n\n", pctx.Memories)
	}
	if pctx.Curiosities != "" {
		fmt.Fprintf(&b, "Questions you are currently curious about:\n%s\n\n", pctx.Curiosities)
	}
	if pctx.Recent != "" {
		fmt.Fprintf(&b, "Recent conversation:\n%s\n\n", pctx.Recent)
	}
	fmt.Fprintf(&b, "They say: %s\n\nRespond:", input)
	return b.String()
}

func weavingGeneratorPrompt(input string, pctx PromptContext, workspaceContext string, round int) string {
	var b strings.Builder
	b.WriteString(identityPreamble)
	b.WriteString("\n\n")
	if pctx.Memories != "" {
		fmt.Fprintf(&b, "Relevant memories:\n%s\n\n", pctx.Memories)
	}
	if workspaceContext != "" {
		fmt.Fprintf(&b, "Shared workspace (round %d):\n%s\n", round, workspaceContext)
	}
	fmt.Fprintf(&b, "They say: %s\n\n", input)
	b.WriteString("Weave the workspace threads into one refined response. Output only the response:")
	return b.String()
}

func elaboratorPrompt(input string) string {
	return fmt.Sprintf(`Someone said: %s

What does this genuinely make you curious about? Write at most two short
questions, one per line, each ending with a question mark. Nothing else.`, input)
}

func classifierPrompt(input string) string {
	return fmt.Sprintf(`Rate the emotional tone of this message on a scale from -1.0 (very
negative) to 1.0 (very positive). Reply with only the number.

Message: %s`, input)
}
