package model

// Event is one event parsed from a search result. Ordinal is the 1-based
// position in the presented list; user selections reference it.
type Event struct {
	Ordinal     int    `json:"ordinal"`
	Name        string `json:"name"`
	Date        string `json:"date,omitempty"`
	Venue       string `json:"venue,omitempty"`
	Description string `json:"description,omitempty"`
}
