package transcript

// Closed marker sets used to derive per-sentence metadata. These are fixed
// vocabularies: changing them changes segmentation and ranking behavior, so
// they are not configurable.

// instructorRoles maps speaker-prefix tokens to the instructor role.
var instructorRoles = map[string]struct{}{
	"instructor": {},
	"teacher":    {},
	"presenter":  {},
	"host":       {},
}

// participantRoles maps speaker-prefix tokens to the participant role.
var participantRoles = map[string]struct{}{
	"participant": {},
	"student":     {},
	"attendee":    {},
	"q":           {},
}

// interrogativeTokens marks a sentence as a question when it begins with one.
var interrogativeTokens = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "can": {}, "could": {}, "would": {},
	"should": {}, "do": {}, "does": {}, "is": {}, "are": {},
}

// transitionPhrases mark a sentence as a topic transition when contained.
var transitionPhrases = []string{
	"let's move on",
	"next we'll",
	"next, we",
	"moving on",
	"now let's",
	"next topic",
	"alright, so",
	"so now",
}

// emphasisTokens contribute to the emphasis score when contained.
var emphasisTokens = []string{
	"important", "crucial", "key", "critical", "essential",
	"remember", "note that", "must", "required", "never", "always",
}

// abbreviations are tokens whose trailing period does not end a sentence.
var abbreviations = map[string]struct{}{
	"dr":   {},
	"mr":   {},
	"mrs":  {},
	"ms":   {},
	"prof": {},
	"sr":   {},
	"jr":   {},
	"st":   {},
	"e.g":  {},
	"i.e":  {},
	"etc":  {},
	"vs":   {},
	"approx": {},
	"fig":    {},
}
