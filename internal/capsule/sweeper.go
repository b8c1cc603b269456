// Package capsule implements the periodic unlock sweep for time-capsule
// notes: locked notes whose unlock time has passed get their participants
// notified once, then are marked so the next sweep skips them.
package capsule

import (
	"context"
	"log"
	"time"

	"github.com/Pranavsr23/PetalPost/internal/models"
	"github.com/Pranavsr23/PetalPost/internal/notify"
	"github.com/Pranavsr23/PetalPost/internal/store"
)

// DefaultBatchLimit caps how many due notes one sweep run handles, keeping a
// single invocation inside the scheduler's deadline. Overflow is picked up by
// the next 15-minute run.
const DefaultBatchLimit = 50

type Sweeper struct {
	store  store.Store
	fanout *notify.Fanout
	now    func() time.Time
	limit  int
}

func NewSweeper(s store.Store, fanout *notify.Fanout) *Sweeper {
	return &Sweeper{store: s, fanout: fanout, now: time.Now, limit: DefaultBatchLimit}
}

// NewSweeperWithOptions lets tests pin the clock and shrink the batch cap.
func NewSweeperWithOptions(s store.Store, fanout *notify.Fanout, now func() time.Time, limit int) *Sweeper {
	return &Sweeper{store: s, fanout: fanout, now: now, limit: limit}
}

// Run performs one sweep: query due, not-yet-notified capsules, notify each
// note's participants (minus the sender), and commit every unlockNotified
// mark in a single batch at the end. A crash between sending and committing
// re-notifies on the next run; duplicates are accepted as the price of
// at-least-once delivery.
func (s *Sweeper) Run(ctx context.Context) error {
	docs, err := s.store.RunQuery(ctx, store.Query{
		CollectionGroup: "notes",
		Filters: []store.Filter{
			{Field: "timeCapsule", Op: store.FilterOpEqual, Value: true},
			{Field: "unlockAt", Op: store.FilterOpLessEq, Value: s.now()},
			{Field: "unlockNotified", Op: store.FilterOpNotEqual, Value: true},
		},
		Limit: s.limit,
	})
	if err != nil {
		return err
	}

	batch := s.store.NewBatch()
	for _, doc := range docs {
		note := models.NoteFromDoc(doc)
		spacePath := store.ParentDocPath(doc.Path)
		if spacePath == "" {
			log.Printf("capsule: note %s has no parent space path, skipping", doc.Path)
			continue
		}
		spaceDoc, err := s.store.Get(ctx, spacePath)
		if err != nil {
			return err
		}
		space := models.SpaceFromDoc(spaceDoc)

		err = s.fanout.Notify(ctx, space.RecipientsExcluding(note.SenderUID), notify.Payload{
			Title: "Time capsule opened",
			Body:  "Tap to reveal your note.",
			Data: map[string]string{
				"spaceId": store.DocID(spacePath),
				"noteId":  doc.ID,
				"type":    note.TypeOrDefault(),
			},
		})
		if err != nil {
			return err
		}
		batch.Merge(doc.Path, map[string]interface{}{"unlockNotified": true})
	}
	return batch.Commit(ctx)
}
