// Package generate turns ranked topic chunks into structured step drafts by
// prompting the completion backend once per chunk and parsing the labeled
// response.
package generate

import (
	"fmt"
	"strings"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// LLM call parameters. Low temperature keeps the labeled output stable.
const (
	promptTemperature = 0.2
	promptTopP        = 0.85
	promptMaxTokens   = 1000
)

// PromptParams carry the style and constraint inputs injected into prompts.
type PromptParams struct {
	Tone            string
	Audience        string
	MinActions      int
	MaxActions      int
	MinContentWords int
}

// systemInstructions is fixed for every chunk. The section labels match what
// the parser accepts.
const systemInstructions = `You convert one segment of a training session transcript into exactly one step of a training document.

Rules:
- Use the exact terminology that appears in the transcript segment.
- Use the reference excerpts only to add technical depth, never to replace what the transcript says.
- Output exactly one step with these four labeled sections, each label on its own line:
TITLE:
OVERVIEW:
CONTENT:
KEY ACTIONS:
- KEY ACTIONS is a bullet list; every bullet starts with a strong imperative verb such as configure, create, set, verify, or run.`

// labelReminder is appended to the instructions on a reparse retry.
const labelReminder = `

Your previous response could not be parsed. Respond again using exactly these labels, one per line, in this order: TITLE:, OVERVIEW:, CONTENT:, KEY ACTIONS:.`

// BuildSystem returns the system instructions, optionally with the label
// reminder for a reparse attempt.
func BuildSystem(reparse bool) string {
	if reparse {
		return systemInstructions + labelReminder
	}
	return systemInstructions
}

// BuildPrompt composes the per-chunk user prompt: transcript segment
// verbatim, reference excerpts with provenance, style parameters, and the
// structural constraints.
func BuildPrompt(chunk *models.TopicChunk, excerpts []models.ScoredExcerpt, params PromptParams) string {
	var b strings.Builder

	b.WriteString("## Transcript Segment\n\n")
	b.WriteString(chunk.Text)
	b.WriteString("\n")

	if len(excerpts) > 0 {
		b.WriteString("\n## Reference Excerpts\n")
		for i, ex := range excerpts {
			title := ex.Excerpt.SourceTitle
			if title == "" {
				title = ex.Excerpt.SourceURL
			}
			fmt.Fprintf(&b, "\n[%d] %s (%s, relevance %.2f)\n%s\n",
				i+1, title, ex.Excerpt.SourceURL, ex.Score, ex.Excerpt.Text)
		}
	}

	b.WriteString("\n## Style\n\n")
	fmt.Fprintf(&b, "Tone: %s\nAudience: %s\n", params.Tone, params.Audience)

	b.WriteString("\n## Constraints\n\n")
	fmt.Fprintf(&b, "- Provide between %d and %d key actions, each beginning with a strong imperative verb.\n",
		params.MinActions, params.MaxActions)
	fmt.Fprintf(&b, "- The CONTENT section must contain at least %d words.\n", params.MinContentWords)

	return b.String()
}
