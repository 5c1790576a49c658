package engine

import "strings"

// stopwords are tokens too common to carry recall signal.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "day": {}, "get": {}, "has": {}, "him": {},
	"his": {}, "how": {}, "man": {}, "new": {}, "now": {}, "old": {},
	"see": {}, "two": {}, "way": {}, "who": {}, "did": {}, "its": {},
	"let": {}, "she": {}, "too": {}, "use": {}, "that": {}, "with": {},
	"have": {}, "this": {}, "will": {}, "your": {}, "from": {}, "they": {},
	"know": {}, "want": {}, "been": {}, "good": {}, "much": {}, "some": {},
	"time": {}, "very": {}, "when": {}, "just": {}, "like": {}, "what": {},
	"about": {}, "would": {}, "there": {}, "their": {}, "could": {},
	"should": {}, "really": {}, "going": {}, "think": {}, "dont": {},
	"them": {}, "then": {}, "than": {}, "were": {}, "into": {}, "also": {},
}

// synonymGroups link word forms that should recall each other's memories.
// A token matching any member expands to the whole group, so "allergy" in a
// query finds a memory that says "allergic".
var synonymGroups = [][]string{
	{"allergy", "allergic", "allergies"},
	{"china", "chinese"},
	{"italy", "italian"},
	{"japan", "japanese"},
	{"france", "french"},
	{"mexico", "mexican"},
	{"food", "eat", "eating", "meal", "dinner", "lunch"},
	{"work", "job", "working"},
	{"birthday", "anniversary"},
	{"dog", "dogs", "puppy"},
	{"cat", "cats", "kitten"},
	{"sick", "ill", "illness"},
	{"sad", "upset", "unhappy"},
	{"happy", "glad", "joyful"},
}

// synonyms maps each member token to its group, built once at init.
var synonyms = func() map[string][]string {
	m := make(map[string][]string)
	for _, group := range synonymGroups {
		for _, word := range group {
			m[word] = group
		}
	}
	return m
}()

// ExtractKeywords tokenizes a message into recall keywords: lowercase,
// punctuation stripped, short tokens and stopwords dropped, synonym-expanded,
// deduplicated in first-seen order.
func ExtractKeywords(message string) []string {
	var keywords []string
	seen := make(map[string]struct{})
	add := func(word string) {
		if _, ok := seen[word]; ok {
			return
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	for _, token := range strings.Fields(strings.ToLower(message)) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		})
		if len(token) <= 2 {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}

		add(token)
		for _, syn := range synonyms[token] {
			add(syn)
		}
	}
	return keywords
}
