package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWantsImage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"show request", "show me a kitchen cabinet design", true},
		{"generate request", "Generate a walnut wall bed", true},
		{"render request", "could you RENDER that in oak?", true},
		{"plain question", "what wood is best for a desk?", false},
		{"empty", "", false},
		// Known misfire of the substring heuristic, accepted behavior.
		{"make sure misfire", "make sure the hinges are brass", true},
		{"greeting", "hello there", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WantsImage(tt.message))
		})
	}
}
