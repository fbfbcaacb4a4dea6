package search

import (
	"regexp"
	"strings"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
)

var (
	// "1. **Event Name**" or "12) Event Name"
	ordinalLine = regexp.MustCompile(`^\s*(\d{1,2})[.)]\s+(.*)$`)
	// "- Date(s): June 5-7" style field lines, with optional markdown noise
	fieldLine = regexp.MustCompile(`^\s*[-*•]?\s*\**([A-Za-z()/ ]+?)\**\s*:\s*(.+)$`)

	markdownStrip = strings.NewReplacer("**", "", "__", "", "`", "")
)

// ParseEvents parses a provider response into an ordered event list. The
// format is a numbered list with field lines underneath each entry; parsing
// is defensive — missing fields are tolerated and unrecognized lines
// accumulate into the description. Provider order is preserved.
func ParseEvents(content string) []model.Event {
	var events []model.Event
	var current *model.Event

	flush := func() {
		if current != nil && current.Name != "" {
			current.Ordinal = len(events) + 1
			events = append(events, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := ordinalLine.FindStringSubmatch(line); m != nil {
			flush()
			current = &model.Event{Name: cleanField(m[2])}
			continue
		}
		if current == nil {
			continue // preamble before the first numbered entry
		}

		if m := fieldLine.FindStringSubmatch(line); m != nil {
			value := cleanField(m[2])
			switch normalizeKey(m[1]) {
			case "date", "dates", "date(s)", "when":
				current.Date = value
			case "venue", "venue/location", "location", "where":
				current.Venue = value
			case "description", "brief description", "details":
				current.Description = value
			default:
				appendDescription(current, value)
			}
			continue
		}

		appendDescription(current, cleanField(line))
	}
	flush()

	return events
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func cleanField(s string) string {
	return strings.TrimSpace(markdownStrip.Replace(s))
}

func appendDescription(ev *model.Event, text string) {
	if text == "" {
		return
	}
	if ev.Description == "" {
		ev.Description = text
		return
	}
	ev.Description += " " + text
}
