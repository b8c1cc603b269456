package engagement

import (
	"context"
	"sort"
	"time"

	"github.com/Pranavsr23/PetalPost/internal/models"
	"github.com/Pranavsr23/PetalPost/internal/store"
)

// Ledger mutates per-user engagement state on `users/{uid}`. Every mutation
// is a store transaction, so concurrent awards to the same user (a send and a
// react landing together) are serialized by the store's conflict retry and
// never lose an increment.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// NewLedgerWithClock is used by tests to pin the streak window.
func NewLedgerWithClock(s store.Store, now func() time.Time) *Ledger {
	return &Ledger{store: s, now: now}
}

func userPath(uid string) string {
	return "users/" + uid
}

// AwardPoints adds delta to the user's point total and grants every badge
// whose threshold the new total meets. A zero delta returns before touching
// the store at all.
func (l *Ledger) AwardPoints(ctx context.Context, uid string, delta int) error {
	if delta == 0 {
		return nil
	}
	path := userPath(uid)
	return l.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(path)
		if err != nil {
			return err
		}
		ledger := models.LedgerFromDoc(doc)
		newPoints := ledger.Points + delta

		granted := make(map[string]bool, len(ledger.Badges))
		for _, id := range ledger.Badges {
			granted[id] = true
		}
		for _, badge := range Badges {
			if newPoints >= badge.Threshold {
				granted[badge.ID] = true
			}
		}
		badges := make([]string, 0, len(granted))
		for id := range granted {
			badges = append(badges, id)
		}
		// Badge order carries no meaning; sorting keeps repeat awards from
		// churning the document.
		sort.Strings(badges)

		return tx.Merge(path, map[string]interface{}{
			"points": newPoints,
			"badges": badges,
		})
	})
}

// UpdateStreak records a send and returns the resulting streak count. A send
// within 36 hours of the previous one extends the streak; anything later, or
// a first-ever send, starts over at 1. A streak that reaches 2 or more earns
// the streak bonus as a separate award after the streak write commits.
func (l *Ledger) UpdateStreak(ctx context.Context, uid string) (int, error) {
	path := userPath(uid)
	streak := 0
	err := l.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(path)
		if err != nil {
			return err
		}
		ledger := models.LedgerFromDoc(doc)
		now := l.now()
		if !ledger.HasSent {
			streak = 1
		} else if now.Sub(ledger.LastSentAt) <= 36*time.Hour {
			streak = ledger.StreakCount + 1
		} else {
			streak = 1
		}
		return tx.Merge(path, map[string]interface{}{
			"lastSentAt":  now,
			"streakCount": streak,
		})
	})
	if err != nil {
		return 0, err
	}
	if streak > 1 {
		if err := l.AwardPoints(ctx, uid, PointsStreakBonus); err != nil {
			return streak, err
		}
	}
	return streak, nil
}
