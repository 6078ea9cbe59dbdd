package generate

import (
	"fmt"
	"strings"

	"github.com/traindoc-io/traindoc/pkg/models"
)

type section int

const (
	sectionNone section = iota
	sectionTitle
	sectionOverview
	sectionContent
	sectionActions
)

// sectionLabels maps accepted labels (canonical and legacy forms) to their
// section. Matching is case-insensitive on the line prefix.
var sectionLabels = map[string]section{
	"TITLE:":       sectionTitle,
	"OVERVIEW:":    sectionOverview,
	"SUMMARY:":     sectionOverview,
	"CONTENT:":     sectionContent,
	"DETAILS:":     sectionContent,
	"KEY ACTIONS:": sectionActions,
	"ACTIONS:":     sectionActions,
}

// ParseStep parses a labeled completion into a step draft. Unrecognized
// lines attach to the current section; bullet markers are stripped from
// action lines. Returns an error when any required section is missing or
// empty.
func ParseStep(chunkID int, text string) (*models.StepDraft, error) {
	parts := map[section][]string{}
	current := sectionNone

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if sec, rest, ok := matchLabel(trimmed); ok {
			current = sec
			if rest != "" {
				parts[current] = append(parts[current], rest)
			}
			continue
		}
		if current == sectionNone || trimmed == "" {
			continue
		}
		parts[current] = append(parts[current], trimmed)
	}

	draft := &models.StepDraft{
		ChunkID:  chunkID,
		Title:    strings.Join(parts[sectionTitle], " "),
		Overview: strings.Join(parts[sectionOverview], " "),
		Content:  strings.Join(parts[sectionContent], " "),
	}
	for _, line := range parts[sectionActions] {
		if action := trimBullet(line); action != "" {
			draft.Actions = append(draft.Actions, action)
		}
	}

	switch {
	case draft.Title == "":
		return nil, fmt.Errorf("missing TITLE section")
	case draft.Overview == "":
		return nil, fmt.Errorf("missing OVERVIEW section")
	case draft.Content == "":
		return nil, fmt.Errorf("missing CONTENT section")
	case len(draft.Actions) == 0:
		return nil, fmt.Errorf("missing KEY ACTIONS section")
	}
	return draft, nil
}

// matchLabel checks whether a line starts with a known section label and
// returns the remainder of the line after it.
func matchLabel(line string) (section, string, bool) {
	upper := strings.ToUpper(line)
	for label, sec := range sectionLabels {
		if strings.HasPrefix(upper, label) {
			return sec, strings.TrimSpace(line[len(label):]), true
		}
	}
	return sectionNone, "", false
}

// trimBullet strips leading bullet markers and numbering from an action line.
func trimBullet(line string) string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimLeft(trimmed, "-*•")
	for len(trimmed) > 0 && trimmed[0] >= '0' && trimmed[0] <= '9' {
		trimmed = trimmed[1:]
		trimmed = strings.TrimLeft(trimmed, ".)")
	}
	return strings.TrimSpace(trimmed)
}
