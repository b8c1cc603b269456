package models

import (
	"time"

	"github.com/Pranavsr23/PetalPost/internal/store"
)

// Note content types
const (
	NoteTypeText        = "text"
	NoteTypeHandwriting = "handwriting"
	NoteTypeVoice       = "voice"
)

// Note is a single note inside a space (`spaces/{spaceId}/notes/{noteId}`).
// Created once by its sender; the three maps are mutated by any space
// participant, and unlockNotified is flipped exactly once by the sweep.
type Note struct {
	SenderUID      string                 `json:"senderUid"`
	Type           string                 `json:"type"`
	Text           string                 `json:"text,omitempty"`
	Surprise       bool                   `json:"surprise,omitempty"`
	TimeCapsule    bool                   `json:"timeCapsule,omitempty"`
	UnlockAt       *time.Time             `json:"unlockAt,omitempty"`
	UnlockNotified bool                   `json:"unlockNotified,omitempty"`
	ReadBy         map[string]interface{} `json:"readBy,omitempty"`
	Reactions      map[string]string      `json:"reactions,omitempty"`
	IsFavoriteBy   map[string]bool        `json:"isFavoriteBy,omitempty"`
}

// TypeOrDefault returns the content type, defaulting to text for legacy notes
// written before the type field existed.
func (n Note) TypeOrDefault() string {
	if n.Type == "" {
		return NoteTypeText
	}
	return n.Type
}

// NoteFromDoc decodes the note fields the pipeline reads from a store
// snapshot. Map fields are left out; the sweep never diffs them.
func NoteFromDoc(d store.Doc) Note {
	return Note{
		SenderUID:      d.String("senderUid"),
		Type:           d.String("type"),
		Text:           d.String("text"),
		Surprise:       d.Bool("surprise"),
		TimeCapsule:    d.Bool("timeCapsule"),
		UnlockNotified: d.Bool("unlockNotified"),
	}
}
