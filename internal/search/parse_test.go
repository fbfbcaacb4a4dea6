package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvents_MarkdownNoise(t *testing.T) {
	content := `Top picks below.

1. **Jazz at the Castle**
   - **Date(s):** June 5-7
   - **Venue/Location:** Medieval Castle Courtyard
   - **Brief Description:** Open-air jazz nights.

2) Harbour Regatta
   When: June 12
   Where: Old Port
   Sailing races with a festival atmosphere.`

	events := ParseEvents(content)
	require.Len(t, events, 2)

	assert.Equal(t, "Jazz at the Castle", events[0].Name)
	assert.Equal(t, "June 5-7", events[0].Date)
	assert.Equal(t, "Medieval Castle Courtyard", events[0].Venue)
	assert.Equal(t, "Open-air jazz nights.", events[0].Description)

	assert.Equal(t, "Harbour Regatta", events[1].Name)
	assert.Equal(t, "June 12", events[1].Date)
	assert.Equal(t, "Old Port", events[1].Venue)
	assert.Equal(t, "Sailing races with a festival atmosphere.", events[1].Description)
}

func TestParseEvents_OrdinalsFollowListOrder(t *testing.T) {
	// The provider numbered these 3 and 7; ordinals are reassigned so they
	// always reference positions in the presented list.
	content := `3. First Event
7. Second Event`

	events := ParseEvents(content)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Ordinal)
	assert.Equal(t, 2, events[1].Ordinal)
}

func TestParseEvents_UnknownLinesAccumulate(t *testing.T) {
	content := `1. Mystery Night
   An evening of puzzles.
   Bring a flashlight.`

	events := ParseEvents(content)
	require.Len(t, events, 1)
	assert.Equal(t, "An evening of puzzles. Bring a flashlight.", events[0].Description)
}

func TestParseEvents_NoEvents(t *testing.T) {
	assert.Empty(t, ParseEvents("Sorry, I could not find any confirmed events."))
	assert.Empty(t, ParseEvents(""))
}
