package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases and collapses whitespace",
			input: "What   Does\tThe Regulator Do",
			want:  "what does the regulator do",
		},
		{
			name:  "dehyphenates",
			input: "anti-money laundering checks",
			want:  "anti money laundering checks",
		},
		{
			name:  "expands acronym in place",
			input: "what is the FSCS limit",
			want:  "what is the fscs financial services compensation scheme limit",
		},
		{
			name:  "acronym with punctuation",
			input: "who runs the FCA?",
			want:  "who runs the fca? financial conduct authority",
		},
		{
			name:  "no expansion when phrase already present",
			input: "the fca financial conduct authority handbook",
			want:  "the fca financial conduct authority handbook",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"What is the FSCS deposit limit of £85,000?",
		"AML and SMCR obligations for senior managers",
		"plain question with no acronyms",
	}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}
