package reactor

import "github.com/Pranavsr23/PetalPost/internal/models"

const previewMaxRunes = 80

// BuildPreview derives the short summary string shown on the space card and
// the home-screen widget. Text notes are truncated to 80 characters with an
// ellipsis marker; non-text notes map to fixed labels.
func BuildPreview(note models.Note) string {
	if note.Type == models.NoteTypeText && note.Text != "" {
		runes := []rune(note.Text)
		if len(runes) > previewMaxRunes {
			return string(runes[:previewMaxRunes]) + "..."
		}
		return note.Text
	}
	switch note.Type {
	case models.NoteTypeHandwriting:
		return "Handwritten note"
	case models.NoteTypeVoice:
		return "Voice note"
	}
	return "New note"
}
