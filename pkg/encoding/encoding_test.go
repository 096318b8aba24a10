package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "gbk read as latin1",
			input:    "ÈýÌå",
			expected: "三体",
		},
		{
			name:     "ascii unchanged",
			input:    "Snow Crash",
			expected: "Snow Crash",
		},
		{
			name:     "correct cjk unchanged",
			input:    "三体",
			expected: "三体",
		},
		{
			name:     "genuine latin1 text unchanged",
			input:    "Café",
			expected: "Café",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "mixed ascii and cjk unchanged",
			input:    "三体 (The Three-Body Problem)",
			expected: "三体 (The Three-Body Problem)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("ÈýÌå")
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}
