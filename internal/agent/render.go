package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
)

// MapLink renders a Google Maps link for a coordinate. Four decimal places
// (~11 m) is plenty for a venue pin and keeps links stable across providers.
func MapLink(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s",
		strconv.FormatFloat(lat, 'f', 4, 64),
		strconv.FormatFloat(lon, 'f', 4, 64))
}

// formatEventList renders the numbered event list presented to the user.
func formatEventList(city, month string, events []model.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the top events in %s for %s:\n\n", city, month)

	for _, ev := range events {
		fmt.Fprintf(&b, "%d. %s\n", ev.Ordinal, ev.Name)
		if ev.Date != "" {
			fmt.Fprintf(&b, "   Date: %s\n", ev.Date)
		}
		if ev.Venue != "" {
			fmt.Fprintf(&b, "   Venue: %s\n", ev.Venue)
		}
		if ev.Description != "" {
			fmt.Fprintf(&b, "   %s\n", ev.Description)
		}
	}
	return b.String()
}

// venueLink pairs a selected event with its geocoding outcome. place is the
// label shown next to the link: the provider's place name, or a
// reverse-geocoded one when the match was fuzzy.
type venueLink struct {
	event  model.Event
	result *model.GeocodeResult
	place  string
	err    error
}

// formatVenueLinks renders the map-link section for the chosen events.
func formatVenueLinks(links []venueLink, dropped []int) string {
	var b strings.Builder
	b.WriteString("Here are the map links for your selected events:\n\n")

	for _, l := range links {
		label := l.event.Name
		if l.event.Date != "" {
			label = fmt.Sprintf("%s (%s)", label, l.event.Date)
		}
		if l.err != nil {
			fmt.Fprintf(&b, "%d. %s — sorry, I couldn't locate this venue.\n", l.event.Ordinal, label)
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n", l.event.Ordinal, label)
		if l.place != "" {
			fmt.Fprintf(&b, "   %s\n", l.place)
		}
		fmt.Fprintf(&b, "   %s\n", MapLink(l.result.Latitude, l.result.Longitude))
	}

	if len(dropped) > 0 {
		out := make([]string, len(dropped))
		for i, n := range dropped {
			out[i] = strconv.Itoa(n)
		}
		fmt.Fprintf(&b, "\n(Note: %s didn't match any listed event, so I skipped it.)\n", strings.Join(out, ", "))
	}

	b.WriteString("\nEnjoy! Tell me another city and country whenever you want to explore more.")
	return b.String()
}
