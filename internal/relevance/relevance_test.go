package relevance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testClassifier() (*Classifier, time.Time) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := New("EFI", 10*24*time.Hour, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c.Now = func() time.Time { return now }
	return c, now
}

func TestClassifyAcceptsIncident(t *testing.T) {
	c, now := testClassifier()

	ok, reason := c.Classify(
		"Pastor arrested in Uttar Pradesh",
		"A pastor was arrested during a prayer meeting in northern India.",
		"Morning Star News", now.Add(-2*time.Hour))
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestClassifyRequiresIndia(t *testing.T) {
	c, now := testClassifier()

	ok, reason := c.Classify(
		"Pastor arrested during prayer meeting",
		"Local police detained the congregation leader.",
		"Morning Star News", now)
	assert.False(t, ok)
	assert.Equal(t, "outside india", reason)
}

func TestClassifyRecencyGate(t *testing.T) {
	c, now := testClassifier()

	ok, reason := c.Classify(
		"Church attacked in India",
		"A church in India was attacked by a mob.",
		"ICC", now.Add(-15*24*time.Hour))
	assert.False(t, ok)
	assert.Equal(t, "too old", reason)

	// Inside the lookback window passes
	ok, _ = c.Classify(
		"Church attacked in India",
		"A church in India was attacked by a mob.",
		"ICC", now.Add(-5*24*time.Hour))
	assert.True(t, ok)
}

func TestClassifyFloorOverridesLookback(t *testing.T) {
	now := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	c := New("EFI", 10*24*time.Hour, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c.Now = func() time.Time { return now }

	// Within the 10-day lookback but before the absolute floor
	ok, reason := c.Classify(
		"Church attacked in India",
		"A church in India was attacked.",
		"ICC", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
	assert.Equal(t, "too old", reason)
}

func TestClassifyRequiresBothSignals(t *testing.T) {
	c, now := testClassifier()

	// Identity without action
	ok, _ := c.Classify(
		"New church opens in Chennai, India",
		"The congregation gathered for the first service.",
		"Christian Today India", now)
	assert.False(t, ok)

	// Action without identity
	ok, _ = c.Classify(
		"Protesters attacked in Delhi, India",
		"A political rally turned violent.",
		"Christian Today India", now)
	assert.False(t, ok)
}

func TestClassifyRejectsRoutineNews(t *testing.T) {
	c, now := testClassifier()

	ok, reason := c.Classify(
		"Bishop who fought persecution passes away in India",
		"The church leader died at 84. The funeral mass is on Sunday.",
		"Christian Today India", now)
	assert.False(t, ok)
	assert.Equal(t, "routine news", reason)
}

func TestClassifyTrustedSourceWeakerRule(t *testing.T) {
	c, now := testClassifier()

	// Action signal alone passes for the trusted source
	ok, _ := c.Classify(
		"Prayer hall demolished in Madhya Pradesh, India",
		"The structure was demolished last week.",
		"EFI", now)
	assert.True(t, ok)

	// Negative keywords do not reject trusted-source entries
	ok, _ = c.Classify(
		"Pastor attacked after anniversary service in India",
		"The pastor was attacked outside the church.",
		"EFI", now)
	assert.True(t, ok)

	// But some signal is still required
	ok, reason := c.Classify(
		"Annual general meeting scheduled in India",
		"The meeting takes place next month.",
		"EFI", now)
	assert.False(t, ok)
	assert.Equal(t, "no signal from trusted source", reason)
}

func TestContainsAnyShortTokenBoundaries(t *testing.T) {
	// "fir" must not match inside "firm" or "first"
	assert.False(t, containsAny("the firm confirmed first results", actionKeywords))
	assert.True(t, containsAny("police registered an fir against the pastor", actionKeywords))

	// "mob" must not match inside "mobile"
	assert.False(t, containsAny("mobile network coverage", []string{"mob"}))
}
