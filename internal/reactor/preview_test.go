package reactor

import (
	"strings"
	"testing"

	"github.com/Pranavsr23/PetalPost/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBuildPreview(t *testing.T) {
	longText := strings.Repeat("x", 90)

	tests := []struct {
		name string
		note models.Note
		want string
	}{
		{
			name: "long text truncated to 80 with marker",
			note: models.Note{Type: "text", Text: longText},
			want: strings.Repeat("x", 80) + "...",
		},
		{
			name: "short text verbatim",
			note: models.Note{Type: "text", Text: strings.Repeat("y", 40)},
			want: strings.Repeat("y", 40),
		},
		{
			name: "exactly 80 characters has no marker",
			note: models.Note{Type: "text", Text: strings.Repeat("z", 80)},
			want: strings.Repeat("z", 80),
		},
		{
			name: "voice note ignores text",
			note: models.Note{Type: "voice", Text: "should not appear"},
			want: "Voice note",
		},
		{
			name: "handwriting label",
			note: models.Note{Type: "handwriting"},
			want: "Handwritten note",
		},
		{
			name: "text type with empty text falls through",
			note: models.Note{Type: "text"},
			want: "New note",
		},
		{
			name: "missing type",
			note: models.Note{Text: "hello"},
			want: "New note",
		},
		{
			name: "unknown type",
			note: models.Note{Type: "hologram"},
			want: "New note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPreview(tt.note))
		})
	}
}
