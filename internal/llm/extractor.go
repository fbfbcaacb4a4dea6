// Package llm provides the location-extraction collaborator used by the
// workflow orchestrator. Natural-language understanding is swappable
// infrastructure: the default extractor is rule-based, with an optional
// Anthropic-backed implementation behind the same interface.
package llm

import (
	"context"
	"regexp"
	"strings"
)

// Location is a city/country pair extracted from user text.
type Location struct {
	City    string
	Country string
}

// Extractor pulls a location out of free-form user text. A nil Location
// with a nil error means the text carried no location.
type Extractor interface {
	ExtractLocation(ctx context.Context, text string) (*Location, error)
}

// "City, Country" with optional lead-in text; both sides must start with a
// letter so numeric selections like "1, 3" never match.
var locPattern = regexp.MustCompile(`([\p{L}][\p{L} .'-]*?)\s*,\s*([\p{L}][\p{L} .'-]*)`)

var trailingStopWords = map[string]bool{
	"please": true,
	"thanks": true,
	"thank":  true,
	"now":    true,
	"today":  true,
}

// RuleExtractor recognizes "City, Country" forms without any model call.
type RuleExtractor struct{}

// ExtractLocation parses the last "City, Country" pair in the text.
func (RuleExtractor) ExtractLocation(ctx context.Context, text string) (*Location, error) {
	matches := locPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	m := matches[len(matches)-1]
	city := trimCityLeadIn(m[1])
	country := trimCountryTail(m[2])
	if city == "" || country == "" {
		return nil, nil
	}

	return &Location{City: city, Country: country}, nil
}

// trimCityLeadIn drops conversational lead-ins ("show me events in Antwerp")
// keeping at most the last three words before the comma.
func trimCityLeadIn(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(strings.ToLower(s), " in "); idx >= 0 {
		s = s[idx+4:]
	}
	words := strings.Fields(s)
	if len(words) > 3 {
		words = words[len(words)-3:]
	}
	return strings.Join(words, " ")
}

// trimCountryTail drops trailing pleasantries and keeps at most three words.
func trimCountryTail(s string) string {
	words := strings.Fields(strings.TrimRight(strings.TrimSpace(s), ".!?"))
	for len(words) > 0 && trailingStopWords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
