package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int
		picked  []int
		dropped []int
	}{
		{"comma separated", "1, 3", 5, []int{1, 3}, nil},
		{"space separated", "2 4", 5, []int{2, 4}, nil},
		{"with and", "1 and 3", 5, []int{1, 3}, nil},
		{"trailing period", "2.", 5, []int{2}, nil},
		{"numbered style", "1) 2)", 5, []int{1, 2}, nil},
		{"duplicates collapse", "3, 3, 3", 5, []int{3}, nil},
		{"out of range dropped", "1, 9", 5, []int{1}, []int{9}},
		{"zero dropped", "0, 2", 5, []int{2}, []int{0}},
		{"all out of range", "8, 9", 5, nil, []int{8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picked, dropped, err := ParseSelection(tt.input, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.picked, picked)
			assert.Equal(t, tt.dropped, dropped)
		})
	}
}

func TestParseSelection_NoNumbers(t *testing.T) {
	for _, input := range []string{"", "none", "the first one please"} {
		_, _, err := ParseSelection(input, 5)
		assert.ErrorIs(t, err, ErrInvalidSelection, "input %q", input)
	}
}
