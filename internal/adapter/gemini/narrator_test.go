package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNarration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "clean json",
			input: `{"why_matters": "Fast-growing Rust CLI with a cohesive founding team."}`,
			want:  "Fast-growing Rust CLI with a cohesive founding team.",
		},
		{
			name:  "markdown fenced",
			input: "```json\n{\"why_matters\": \"Strong early traction.\"}\n```",
			want:  "Strong early traction.",
		},
		{
			name:  "surrounding prose",
			input: "Here is the analysis:\n{\"why_matters\": \"Notable momentum.\"}\nHope that helps!",
			want:  "Notable momentum.",
		},
		{
			name:  "whitespace trimmed",
			input: `{"why_matters": "  padded  "}`,
			want:  "padded",
		},
		{
			name:    "no json at all",
			input:   "I cannot produce JSON for this request.",
			wantErr: true,
		},
		{
			name:    "malformed json",
			input:   `{"why_matters": "unterminated`,
			wantErr: true,
		},
		{
			name:    "empty narrative",
			input:   `{"why_matters": "   "}`,
			wantErr: true,
		},
		{
			name:    "wrong field",
			input:   `{"summary": "text"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNarration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
