package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
)

func TestMapLink(t *testing.T) {
	// Fixed four-decimal rendering, no scientific notation.
	assert.Equal(t,
		"https://www.google.com/maps?q=34.6851,33.0320",
		MapLink(34.6851, 33.0320))
	assert.Equal(t,
		"https://www.google.com/maps?q=-33.8688,151.2093",
		MapLink(-33.8688, 151.2093))
}

func TestFormatEventList(t *testing.T) {
	events := []model.Event{
		{Ordinal: 1, Name: "Wine Festival", Date: "Sep 5-14", Venue: "Municipal Gardens", Description: "Annual wine celebration."},
		{Ordinal: 2, Name: "Harbour Regatta"},
	}

	out := formatEventList("Limassol", "September", events)
	assert.Contains(t, out, "top events in Limassol for September")
	assert.Contains(t, out, "1. Wine Festival")
	assert.Contains(t, out, "Date: Sep 5-14")
	assert.Contains(t, out, "Venue: Municipal Gardens")
	assert.Contains(t, out, "2. Harbour Regatta")
}

func TestFormatVenueLinks(t *testing.T) {
	links := []venueLink{
		{
			event:  model.Event{Ordinal: 1, Name: "Wine Festival", Date: "Sep 5-14"},
			result: &model.GeocodeResult{Latitude: 34.6851, Longitude: 33.0320},
			place:  "Municipal Gardens, Limassol, Cyprus",
		},
		{
			event: model.Event{Ordinal: 3, Name: "Secret Show"},
			err:   assert.AnError,
		},
	}

	out := formatVenueLinks(links, []int{9})
	assert.Contains(t, out, "1. Wine Festival (Sep 5-14)")
	assert.Contains(t, out, "Municipal Gardens, Limassol, Cyprus")
	assert.Contains(t, out, "https://www.google.com/maps?q=34.6851,33.0320")
	assert.Contains(t, out, "3. Secret Show — sorry, I couldn't locate this venue.")
	assert.Contains(t, out, "9 didn't match any listed event")
}
