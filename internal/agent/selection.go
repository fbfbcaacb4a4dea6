package agent

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidSelection means the user's reply contained no usable ordinal.
// Not a hard failure: the orchestrator re-prompts without a state change.
var ErrInvalidSelection = errors.New("agent: no valid selection")

// ParseSelection parses a user reply into 1-based ordinals referencing the
// last presented event list. Accepts comma- or space-separated numbers
// ("1, 3", "2 and 4"). References outside 1..max are dropped silently and
// reported separately so the caller can add a note. Duplicates collapse to
// the first occurrence. An input with no numbers at all is ErrInvalidSelection.
func ParseSelection(input string, max int) (picked []int, dropped []int, err error) {
	seen := make(map[int]bool)

	for _, token := range strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	}) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return r == '.' || r == ')' || r == '#'
		})
		n, convErr := strconv.Atoi(token)
		if convErr != nil {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		if n < 1 || n > max {
			dropped = append(dropped, n)
			continue
		}
		picked = append(picked, n)
	}

	if len(picked) == 0 && len(dropped) == 0 {
		return nil, nil, ErrInvalidSelection
	}
	return picked, dropped, nil
}
