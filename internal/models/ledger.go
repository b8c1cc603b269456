package models

import (
	"time"

	"github.com/Pranavsr23/PetalPost/internal/store"
)

// UserLedger is the engagement state kept on `users/{uid}`. Points never
// decrease and badges are never removed once granted.
type UserLedger struct {
	Points      int       `json:"points"`
	Badges      []string  `json:"badges"`
	LastSentAt  time.Time `json:"lastSentAt"`
	HasSent     bool      `json:"-"`
	StreakCount int       `json:"streakCount"`
}

func LedgerFromDoc(d store.Doc) UserLedger {
	lastSent, hasSent := d.Time("lastSentAt")
	return UserLedger{
		Points:      d.Int("points"),
		Badges:      d.Strings("badges"),
		LastSentAt:  lastSent,
		HasSent:     hasSent,
		StreakCount: d.Int("streakCount"),
	}
}
