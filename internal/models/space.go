package models

import "github.com/Pranavsr23/PetalPost/internal/store"

// Space is the shared container a couple exchanges notes in. Participants are
// two or more user identities; the lastNote* summary fields are what the home
// screen widget renders.
type Space struct {
	ParticipantUIDs []string `json:"participantUids"`
	LastNoteID      string   `json:"lastNoteId,omitempty"`
	LastNotePreview string   `json:"lastNotePreview,omitempty"`
}

func SpaceFromDoc(d store.Doc) Space {
	return Space{
		ParticipantUIDs: d.Strings("participantUids"),
		LastNoteID:      d.String("lastNoteId"),
		LastNotePreview: d.String("lastNotePreview"),
	}
}

// RecipientsExcluding returns the participants minus one user, preserving
// participant order.
func (s Space) RecipientsExcluding(uid string) []string {
	out := make([]string, 0, len(s.ParticipantUIDs))
	for _, p := range s.ParticipantUIDs {
		if p != uid {
			out = append(out, p)
		}
	}
	return out
}
