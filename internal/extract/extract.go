// Package extract turns raw interaction text into concept strings for
// the association graph. The Func type is the pluggable collaborator
// contract; Keywords is the built-in default.
package extract

import (
	"sort"
	"strings"
	"unicode"
)

// Func maps text to a set of normalized concept strings. It must be a
// pure function: same text, same concepts, no side effects.
type Func func(text string) []string

// DefaultMinLength is the minimum word length kept by Keywords.
const DefaultMinLength = 4

// stopwords are common words excluded from concept extraction.
var stopwords = map[string]bool{
	"the": true, "and": true, "a": true, "to": true, "of": true,
	"in": true, "that": true, "is": true, "was": true, "it": true,
	"for": true, "on": true, "with": true, "this": true, "are": true,
	"you": true, "your": true, "have": true, "what": true, "will": true,
	"they": true, "from": true, "very": true, "when": true, "then": true,
}

// Keywords extracts lowercase words of at least DefaultMinLength
// characters, minus stopwords, deduplicated and sorted for
// deterministic fan-out.
func Keywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range splitWords(text) {
		w := strings.ToLower(word)
		if len(w) < DefaultMinLength || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
