package pipeline

import (
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// stopwords are dropped before fuzzy comparison so that filler like "in" or
// "near" does not dilute the token overlap between two headlines about the
// same event.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "in": true, "on": true, "at": true,
	"of": true, "for": true, "to": true, "by": true, "near": true, "and": true,
	"with": true, "from": true, "over": true, "after": true, "as": true,
	"is": true, "was": true, "were": true, "has": true, "have": true,
}

// normalizeTitle lowercases, strips punctuation and removes stopwords,
// leaving only the content tokens.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var kept []string
	for _, w := range strings.Fields(b.String()) {
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// titleSimilarity scores two headlines 0-100 using token-set matching over
// their normalized forms.
func titleSimilarity(a, b string) int {
	return fuzzy.TokenSetRatio(normalizeTitle(a), normalizeTitle(b))
}
