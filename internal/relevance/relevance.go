// Package relevance decides whether a fetched entry qualifies as an
// in-scope persecution incident.
package relevance

import (
	"regexp"
	"strings"
	"time"
)

// identityKeywords indicate the subject is a religious-community actor or
// institution.
var identityKeywords = []string{
	"christian", "christians", "church", "pastor", "priest", "nun", "missionary",
	"believer", "believers", "congregation", "prayer meeting", "prayer hall",
	"bible", "catholic", "protestant", "pentecostal", "evangelical", "worship",
	"seminary", "convent", "parish", "clergy", "minority community",
}

// actionKeywords indicate a persecution-type event.
var actionKeywords = []string{
	"arrest", "arrested", "detained", "jailed", "booked", "fir",
	"attack", "attacked", "assault", "assaulted", "beaten", "thrashed", "mob",
	"violence", "vandalised", "vandalized", "ransacked", "demolished",
	"burnt", "torched", "destroyed", "threat", "threatened", "harassed",
	"intimidated", "disrupted", "stopped", "forced", "expelled", "boycott",
	"anti-conversion", "conversion charges", "persecution", "persecuted",
	"hate campaign", "denied burial",
}

// negativeKeywords indicate routine, non-incident news.
var negativeKeywords = []string{
	"obituary", "passes away", "dies at", "condolence", "funeral mass",
	"celebration", "celebrates", "anniversary", "birthday", "jubilee",
	"award", "awarded", "felicitated", "inaugurated", "appointed",
}

// containsAny distinguishes phrases and short words so tokens like "fir" or
// "mob" never match inside longer words.
func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		// Phrases match as substrings
		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		// Short tokens require word boundaries
		if len(k) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Classifier applies the geographic gate, the recency gate and the keyword
// signal checks. TrustedSource names the NGO adapter whose entries pass on a
// weaker rule (identity OR action, negative signal ignored).
type Classifier struct {
	TrustedSource string
	Lookback      time.Duration
	Floor         time.Time

	Now func() time.Time
}

func New(trustedSource string, lookback time.Duration, floor time.Time) *Classifier {
	return &Classifier{
		TrustedSource: trustedSource,
		Lookback:      lookback,
		Floor:         floor,
		Now:           time.Now,
	}
}

// Classify reports whether the entry is an in-scope incident, with a short
// reason for logging when it is not.
func (c *Classifier) Classify(title, description, sourceName string, published time.Time) (bool, string) {
	text := strings.ToLower(title + " " + description)

	// Geographic gate runs before everything else
	if !strings.Contains(text, "india") {
		return false, "outside india"
	}

	// Recency gate: sliding lookback window plus an absolute floor
	cutoff := c.Now().Add(-c.Lookback)
	if c.Floor.After(cutoff) {
		cutoff = c.Floor
	}
	if published.Before(cutoff) {
		return false, "too old"
	}

	hasIdentity := containsAny(text, identityKeywords)
	hasAction := containsAny(text, actionKeywords)

	if c.TrustedSource != "" && sourceName == c.TrustedSource {
		if hasIdentity || hasAction {
			return true, ""
		}
		return false, "no signal from trusted source"
	}

	if !hasIdentity || !hasAction {
		return false, "missing identity or action signal"
	}
	if containsAny(text, negativeKeywords) {
		return false, "routine news"
	}
	return true, ""
}
