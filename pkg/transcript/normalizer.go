// Package transcript turns raw transcript text into ordered, annotated
// sentences. Splitting is rule-based and deterministic: no model calls, no
// randomness, so re-normalizing normalized text is a no-op.
package transcript

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// ErrInvalidInput is returned when the transcript is empty after cleanup or
// contains no sentence-terminating punctuation.
var ErrInvalidInput = errors.New("transcript: invalid input")

// timestampRe matches a leading [hh:mm:ss] or [mm:ss] bracket.
var timestampRe = regexp.MustCompile(`^\[(\d{1,2}):(\d{2})(?::(\d{2}))?\]\s*`)

// speakerRe matches a leading "Name:" or "Role:" prefix. The prefix must be
// short and must not look like a URL scheme.
var speakerRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 .'_-]{0,30}):\s+`)

// Normalize splits raw transcript text into annotated sentences.
// IDs are dense and sequential from 0. Speaker roles propagate forward from
// the last explicit prefix until the next one changes them.
func Normalize(raw string) ([]models.Sentence, error) {
	cleaned := clean(raw)
	if cleaned == "" {
		return nil, errors.New("transcript: invalid input: empty after cleanup")
	}
	if !strings.ContainsAny(cleaned, ".?!") {
		return nil, errors.New("transcript: invalid input: no sentence-terminating punctuation")
	}

	parts := split(cleaned)
	if len(parts) == 0 {
		return nil, errors.New("transcript: invalid input: no sentences after splitting")
	}

	sentences := make([]models.Sentence, 0, len(parts))
	currentRole := models.SpeakerUnknown

	for _, part := range parts {
		text := part

		var ts *float64
		if m := timestampRe.FindStringSubmatch(text); m != nil {
			seconds := parseTimestamp(m)
			ts = &seconds
			text = text[len(m[0]):]
		}

		if m := speakerRe.FindStringSubmatch(text); m != nil {
			currentRole = mapRole(m[1])
			text = text[len(m[0]):]
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		sentences = append(sentences, models.Sentence{
			ID:               len(sentences),
			Text:             text,
			TimestampSeconds: ts,
			Speaker:          currentRole,
			IsQuestion:       isQuestion(text),
			IsTransition:     isTransition(text),
			EmphasisScore:    emphasisScore(text),
		})
	}

	if len(sentences) == 0 {
		return nil, errors.New("transcript: invalid input: no sentences with content")
	}
	return sentences, nil
}

// clean strips control characters and collapses whitespace runs to a single
// space. Newlines are treated as ordinary whitespace; sentence boundaries
// come from punctuation, not line structure.
func clean(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	lastSpace := true
	for _, r := range strings.ToValidUTF8(raw, "") {
		if r == '\n' || r == '\r' || r == '\t' || unicode.IsSpace(r) {
			if !lastSpace {
				sb.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(sb.String())
}

// split breaks cleaned text into sentences. A sentence ends at '.', '?' or
// '!' followed by whitespace or end-of-text, unless the period terminates a
// known abbreviation.
func split(text string) []string {
	var parts []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		atEnd := i == len(runes)-1
		if !atEnd && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}

		part := strings.TrimSpace(string(runes[start : i+1]))
		if part != "" {
			parts = append(parts, part)
		}
		start = i + 1
	}

	// Trailing fragment without terminal punctuation becomes its own
	// sentence so no spoken content is lost.
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

// isAbbreviation reports whether the text before a period ends with a known
// abbreviation token.
func isAbbreviation(before []rune) bool {
	s := string(before)
	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	last := strings.ToLower(s[idx+1:])
	last = strings.TrimSuffix(last, ".")
	_, ok := abbreviations[last]
	return ok
}

// parseTimestamp converts matched bracket groups to seconds.
// Two groups = mm:ss, three = hh:mm:ss.
func parseTimestamp(m []string) float64 {
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	if m[3] == "" {
		return float64(a*60 + b)
	}
	c, _ := strconv.Atoi(m[3])
	return float64(a*3600 + b*60 + c)
}

// mapRole maps a speaker prefix to a role. Unrecognized names reset the
// running role to unknown rather than inheriting the previous speaker.
func mapRole(prefix string) models.SpeakerRole {
	token := strings.ToLower(strings.TrimSpace(prefix))
	if _, ok := instructorRoles[token]; ok {
		return models.SpeakerInstructor
	}
	if _, ok := participantRoles[token]; ok {
		return models.SpeakerParticipant
	}
	return models.SpeakerUnknown
}

// isQuestion reports whether the sentence ends in '?' or begins with an
// interrogative token.
func isQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	first := strings.ToLower(firstToken(trimmed))
	_, ok := interrogativeTokens[first]
	return ok
}

// isTransition reports whether the sentence contains a transition phrase.
// Matching is on whole-word boundaries: "mustard" never matches "must".
func isTransition(text string) bool {
	folded := foldTokens(text)
	for _, phrase := range transitionPhrases {
		if strings.Contains(folded, foldTokens(phrase)) {
			return true
		}
	}
	return false
}

// emphasisScore counts whole-word emphasis token occurrences, divided by 5
// and clipped to 1.0.
func emphasisScore(text string) float64 {
	folded := foldTokens(text)
	count := 0
	for _, token := range emphasisTokens {
		count += strings.Count(folded, foldTokens(token))
	}
	score := float64(count) / 5.0
	if score > 1.0 {
		return 1.0
	}
	return score
}

// foldTokens lowercases text, replaces punctuation with spaces (keeping
// apostrophes so contractions survive), and pads both ends. Marker lookups
// against the folded form therefore only match on word boundaries.
func foldTokens(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}

// firstToken returns the first whitespace-delimited token with surrounding
// punctuation trimmed.
func firstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
