package reactor

import (
	"context"
	"testing"

	"github.com/Pranavsr23/PetalPost/internal/engagement"
	"github.com/Pranavsr23/PetalPost/internal/models"
	"github.com/Pranavsr23/PetalPost/internal/notify"
	"github.com/Pranavsr23/PetalPost/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sendCall struct {
	tokens  []string
	payload notify.Payload
}

type fakeSender struct {
	calls []sendCall
}

func (f *fakeSender) SendMulticast(ctx context.Context, tokens []string, p notify.Payload) (notify.SendReport, error) {
	f.calls = append(f.calls, sendCall{tokens: tokens, payload: p})
	return notify.SendReport{SuccessCount: len(tokens)}, nil
}

func newTestReactor(st *store.MemoryStore) (*Reactor, *fakeSender) {
	sender := &fakeSender{}
	ledger := engagement.NewLedger(st)
	fanout := notify.NewFanout(st, sender)
	return New(st, ledger, fanout), sender
}

func seedSpace(t *testing.T, st *store.MemoryStore, spaceID string, participants []string) {
	t.Helper()
	err := st.Merge(context.Background(), "spaces/"+spaceID, map[string]interface{}{
		"participantUids": participants,
	})
	require.NoError(t, err)
}

func seedDevice(t *testing.T, st *store.MemoryStore, uid, token string) {
	t.Helper()
	err := st.Merge(context.Background(), "users/"+uid+"/devices/main", map[string]interface{}{
		"fcmToken": token,
	})
	require.NoError(t, err)
}

func TestOnNoteCreated_FullPipeline(t *testing.T) {
	st := store.NewMemoryStore()
	r, sender := newTestReactor(st)
	ctx := context.Background()

	seedSpace(t, st, "s1", []string{"alice", "bob"})
	seedDevice(t, st, "bob", "tok-bob")
	seedDevice(t, st, "alice", "tok-alice")

	err := r.OnNoteCreated(ctx, NoteCreatedEvent{
		SpaceID: "s1",
		NoteID:  "n1",
		Note:    models.Note{SenderUID: "alice", Type: "text", Text: "good morning", Surprise: true},
	})
	require.NoError(t, err)

	// Space summary merged.
	space, err := st.Get(ctx, "spaces/s1")
	require.NoError(t, err)
	assert.Equal(t, "n1", space.String("lastNoteId"))
	assert.Equal(t, "good morning", space.String("lastNotePreview"))
	_, hasTimestamp := space.Time("lastNoteAt")
	assert.True(t, hasTimestamp, "lastNoteAt is server-assigned on create")
	assert.Equal(t, []string{"alice", "bob"}, space.Strings("participantUids"), "merge must not clobber participants")

	// Sender earned send points and a streak of 1 (no bonus yet).
	alice, err := st.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.Equal(t, engagement.PointsSend, alice.Int("points"))
	assert.Equal(t, 1, alice.Int("streakCount"))

	// Only the partner was notified.
	require.Len(t, sender.calls, 1)
	assert.Equal(t, []string{"tok-bob"}, sender.calls[0].tokens)
	assert.Equal(t, "New PetalPost", sender.calls[0].payload.Title)
	assert.Equal(t, "good morning", sender.calls[0].payload.Body)
	assert.Equal(t, map[string]string{
		"spaceId":  "s1",
		"noteId":   "n1",
		"type":     "text",
		"surprise": "true",
	}, sender.calls[0].payload.Data)
}

func TestOnNoteCreated_MissingSpaceIsSilentNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	r, sender := newTestReactor(st)
	ctx := context.Background()

	err := r.OnNoteCreated(ctx, NoteCreatedEvent{
		SpaceID: "ghost",
		NoteID:  "n1",
		Note:    models.Note{SenderUID: "alice", Type: "text", Text: "hello"},
	})
	require.NoError(t, err)

	assert.Empty(t, sender.calls)
	alice, err := st.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.False(t, alice.Exists, "no points awarded when the space is missing")
}

func TestOnNoteCreated_UntypedNoteDefaultsToTextInMetadata(t *testing.T) {
	st := store.NewMemoryStore()
	r, sender := newTestReactor(st)

	seedSpace(t, st, "s1", []string{"alice", "bob"})
	seedDevice(t, st, "bob", "tok-bob")

	err := r.OnNoteCreated(context.Background(), NoteCreatedEvent{
		SpaceID: "s1",
		NoteID:  "n1",
		Note:    models.Note{SenderUID: "alice"},
	})
	require.NoError(t, err)

	require.Len(t, sender.calls, 1)
	assert.Equal(t, "text", sender.calls[0].payload.Data["type"])
	assert.Equal(t, "false", sender.calls[0].payload.Data["surprise"])
	assert.Equal(t, "New note", sender.calls[0].payload.Body)
}

func TestOnNoteUpdated_NewKeysEarnPoints(t *testing.T) {
	st := store.NewMemoryStore()
	r, _ := newTestReactor(st)
	ctx := context.Background()

	err := r.OnNoteUpdated(ctx, NoteUpdatedEvent{
		SpaceID: "s1",
		NoteID:  "n1",
		Before: models.Note{
			ReadBy: map[string]interface{}{"alice": true},
		},
		After: models.Note{
			ReadBy:       map[string]interface{}{"alice": true, "bob": true},
			Reactions:    map[string]string{"bob": "❤️"},
			IsFavoriteBy: map[string]bool{"bob": true},
		},
	})
	require.NoError(t, err)

	bob, err := st.Get(ctx, "users/bob")
	require.NoError(t, err)
	assert.Equal(t, engagement.PointsRead+engagement.PointsReact+engagement.PointsFavorite, bob.Int("points"))

	// alice's read receipt predates this update; nothing new for her.
	alice, err := st.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.False(t, alice.Exists)
}

func TestOnNoteUpdated_UnchangedMapsAwardNothing(t *testing.T) {
	st := store.NewMemoryStore()
	r, _ := newTestReactor(st)
	ctx := context.Background()

	same := models.Note{
		ReadBy:       map[string]interface{}{"alice": true, "bob": true},
		Reactions:    map[string]string{"bob": "🌸"},
		IsFavoriteBy: map[string]bool{"alice": true},
	}
	err := r.OnNoteUpdated(ctx, NoteUpdatedEvent{SpaceID: "s1", NoteID: "n1", Before: same, After: same})
	require.NoError(t, err)

	for _, uid := range []string{"alice", "bob"} {
		doc, err := st.Get(ctx, "users/"+uid)
		require.NoError(t, err)
		assert.False(t, doc.Exists, "re-saving identical maps must award nothing")
	}
}

func TestOnNoteUpdated_UnfavoritingNeverDeducts(t *testing.T) {
	st := store.NewMemoryStore()
	r, _ := newTestReactor(st)
	ctx := context.Background()

	err := r.OnNoteUpdated(ctx, NoteUpdatedEvent{
		SpaceID: "s1",
		NoteID:  "n1",
		Before:  models.Note{IsFavoriteBy: map[string]bool{"alice": true}},
		After:   models.Note{IsFavoriteBy: map[string]bool{"alice": false}},
	})
	require.NoError(t, err)

	alice, err := st.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.False(t, alice.Exists)
}

func TestOnNoteUpdated_RefavoritingAwardsAgainOnlyAfterRemoval(t *testing.T) {
	st := store.NewMemoryStore()
	r, _ := newTestReactor(st)
	ctx := context.Background()

	// false -> true transition awards; true -> true does not.
	err := r.OnNoteUpdated(ctx, NoteUpdatedEvent{
		Before: models.Note{IsFavoriteBy: map[string]bool{"alice": false}},
		After:  models.Note{IsFavoriteBy: map[string]bool{"alice": true}},
	})
	require.NoError(t, err)
	err = r.OnNoteUpdated(ctx, NoteUpdatedEvent{
		Before: models.Note{IsFavoriteBy: map[string]bool{"alice": true}},
		After:  models.Note{IsFavoriteBy: map[string]bool{"alice": true}},
	})
	require.NoError(t, err)

	alice, err := st.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.Equal(t, engagement.PointsFavorite, alice.Int("points"))
}
