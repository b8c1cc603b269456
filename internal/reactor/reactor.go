package reactor

import (
	"context"
	"log"
	"strconv"

	"github.com/Pranavsr23/PetalPost/internal/engagement"
	"github.com/Pranavsr23/PetalPost/internal/models"
	"github.com/Pranavsr23/PetalPost/internal/notify"
	"github.com/Pranavsr23/PetalPost/internal/store"
)

// NoteCreatedEvent carries a new note snapshot and its path parameters.
type NoteCreatedEvent struct {
	SpaceID string
	NoteID  string
	Note    models.Note
}

// NoteUpdatedEvent carries before/after snapshots of an existing note.
type NoteUpdatedEvent struct {
	SpaceID string
	NoteID  string
	Before  models.Note
	After   models.Note
}

// Reactor orchestrates the engagement side effects of note change events.
// Each invocation is stateless and independent; ordering only holds within
// one invocation (the space summary merge lands before the notification is
// attempted).
type Reactor struct {
	store  store.Store
	ledger *engagement.Ledger
	fanout *notify.Fanout
}

func New(s store.Store, ledger *engagement.Ledger, fanout *notify.Fanout) *Reactor {
	return &Reactor{store: s, ledger: ledger, fanout: fanout}
}

// OnNoteCreated updates the parent space summary, awards send points and the
// streak to the sender, and notifies the other participants. The steps are
// independent and best-effort: an error stops the pipeline but never rolls
// back what already committed; the invoker's redelivery covers the rest.
func (r *Reactor) OnNoteCreated(ctx context.Context, evt NoteCreatedEvent) error {
	spacePath := "spaces/" + evt.SpaceID
	spaceDoc, err := r.store.Get(ctx, spacePath)
	if err != nil {
		return err
	}
	if !spaceDoc.Exists {
		// A note without its space is a read racing the space create; the
		// pipeline must not fail on it.
		log.Printf("reactor: space %s missing for note %s, skipping", evt.SpaceID, evt.NoteID)
		return nil
	}
	space := models.SpaceFromDoc(spaceDoc)

	preview := BuildPreview(evt.Note)
	err = r.store.Merge(ctx, spacePath, map[string]interface{}{
		"lastNoteId":      evt.NoteID,
		"lastNotePreview": preview,
		"lastNoteAt":      store.ServerTimestamp,
	})
	if err != nil {
		return err
	}

	if err := r.ledger.AwardPoints(ctx, evt.Note.SenderUID, engagement.PointsSend); err != nil {
		return err
	}
	if _, err := r.ledger.UpdateStreak(ctx, evt.Note.SenderUID); err != nil {
		return err
	}

	return r.fanout.Notify(ctx, space.RecipientsExcluding(evt.Note.SenderUID), notify.Payload{
		Title: "New PetalPost",
		Body:  preview,
		Data: map[string]string{
			"spaceId":  evt.SpaceID,
			"noteId":   evt.NoteID,
			"type":     evt.Note.TypeOrDefault(),
			"surprise": strconv.FormatBool(evt.Note.Surprise),
		},
	})
}

// OnNoteUpdated diffs the read-receipt, reaction and favorite maps and awards
// points for each newly appearing participant. Re-saving an unchanged note
// awards nothing, and no transition ever deducts points.
func (r *Reactor) OnNoteUpdated(ctx context.Context, evt NoteUpdatedEvent) error {
	for uid := range evt.After.ReadBy {
		if _, seen := evt.Before.ReadBy[uid]; seen {
			continue
		}
		if err := r.ledger.AwardPoints(ctx, uid, engagement.PointsRead); err != nil {
			return err
		}
	}
	for uid := range evt.After.Reactions {
		if _, seen := evt.Before.Reactions[uid]; seen {
			continue
		}
		if err := r.ledger.AwardPoints(ctx, uid, engagement.PointsReact); err != nil {
			return err
		}
	}
	for uid, favorited := range evt.After.IsFavoriteBy {
		if !favorited || evt.Before.IsFavoriteBy[uid] {
			continue
		}
		if err := r.ledger.AwardPoints(ctx, uid, engagement.PointsFavorite); err != nil {
			return err
		}
	}
	return nil
}
