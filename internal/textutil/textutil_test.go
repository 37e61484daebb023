package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Pastor beaten in Raipur",
		Normalize("<p>Pastor   beaten\n in <b>Raipur</b></p>"))

	assert.Equal(t, "church & congregation",
		Normalize("church &amp; congregation"))

	assert.Equal(t, "", Normalize("   \n\t "))
}

func TestNormalizeIdempotent(t *testing.T) {
	clean := Normalize("<div>Prayer   meeting disrupted</div>")
	assert.Equal(t, clean, Normalize(clean))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Church vandalised in Bhopal",
		CleanTitle("BREAKING: Church vandalised in Bhopal"))

	assert.Equal(t, "Church vandalised in Bhopal",
		CleanTitle("report:  Church vandalised in Bhopal"))

	// Prefix words inside the title are left alone
	assert.Equal(t, "New report on church attacks",
		CleanTitle("New report on church attacks"))
}

func TestTruncate(t *testing.T) {
	s := "First sentence here. Second sentence follows. Third one is cut."

	assert.Equal(t, s, Truncate(s, 1000))
	assert.Equal(t, "First sentence here. Second sentence follows.", Truncate(s, 50))

	// No sentence boundary deep enough: hard cut
	assert.Equal(t, "abcdefghij", Truncate("abcdefghijklmnop", 10))
}
