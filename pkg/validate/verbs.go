package validate

import "strings"

// strongVerbs are the imperative verbs an action line must start with.
var strongVerbs = map[string]struct{}{
	"configure": {}, "create": {}, "add": {}, "set": {}, "enable": {},
	"disable": {}, "update": {}, "modify": {}, "deploy": {}, "install": {},
	"implement": {}, "run": {}, "execute": {}, "navigate": {}, "open": {},
	"access": {}, "select": {}, "click": {}, "enter": {}, "choose": {},
	"verify": {}, "test": {}, "validate": {}, "confirm": {}, "check": {},
	"monitor": {}, "define": {}, "initialize": {}, "generate": {},
	"build": {}, "apply": {},
}

// weakVerbs are passive or vague openers that disqualify an action line even
// when followed by otherwise reasonable text.
var weakVerbs = map[string]struct{}{
	"learn": {}, "understand": {}, "know": {}, "remember": {}, "recall": {},
	"review": {}, "read": {}, "study": {}, "examine": {}, "consider": {},
	"ensure": {}, "try": {}, "attempt": {},
}

// weakPhrases are multi-word weak openers checked before single-token verbs.
var weakPhrases = []string{"make sure"}

// FirstWord returns the lowercased first word of text after stripping common
// bullet markers and numbering.
func FirstWord(text string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(text), "-*•0123456789.) \t")
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,:;!?")
}

// IsStrongVerb reports whether word is in the allowed strong-verb set.
func IsStrongVerb(word string) bool {
	_, ok := strongVerbs[word]
	return ok
}

// IsWeakOpener reports whether the action text starts with a forbidden weak
// verb or phrase.
func IsWeakOpener(text string) bool {
	lowered := strings.ToLower(strings.TrimLeft(strings.TrimSpace(text), "-*• \t"))
	for _, phrase := range weakPhrases {
		if strings.HasPrefix(lowered, phrase) {
			return true
		}
	}
	_, ok := weakVerbs[FirstWord(text)]
	return ok
}

// ContainsStrongVerb reports whether any token of text is a strong verb.
// Used for actionability scoring of transcript sentences.
func ContainsStrongVerb(text string) bool {
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if _, ok := strongVerbs[strings.Trim(field, ".,:;!?()\"'")]; ok {
			return true
		}
	}
	return false
}
