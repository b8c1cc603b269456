package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Pranavsr23/PetalPost/internal/capsule"
	"github.com/Pranavsr23/PetalPost/internal/engagement"
	"github.com/Pranavsr23/PetalPost/internal/notify"
	"github.com/Pranavsr23/PetalPost/internal/reactor"
	"github.com/Pranavsr23/PetalPost/internal/store"
	"github.com/Pranavsr23/PetalPost/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	calls int
}

func (f *fakeSender) SendMulticast(ctx context.Context, tokens []string, p notify.Payload) (notify.SendReport, error) {
	f.calls++
	return notify.SendReport{SuccessCount: len(tokens)}, nil
}

func newTestServer(st *store.MemoryStore) (*echo.Echo, *fakeSender) {
	sender := &fakeSender{}
	ledger := engagement.NewLedger(st)
	fanout := notify.NewFanout(st, sender)
	r := reactor.New(st, ledger, fanout)
	sweeper := capsule.NewSweeper(st, fanout)

	e := echo.New()
	e.Validator = validators.NewValidator()
	handler := NewEventHandler(r, sweeper)
	handler.RegisterEventRoutes(e.Group("/hooks"))
	return e, sender
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNoteCreated_EndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	e, sender := newTestServer(st)
	ctx := context.Background()

	require.NoError(t, st.Merge(ctx, "spaces/s1", map[string]interface{}{
		"participantUids": []string{"alice", "bob"},
	}))
	require.NoError(t, st.Merge(ctx, "users/bob/devices/main", map[string]interface{}{
		"fcmToken": "tok-bob",
	}))

	rec := postJSON(e, "/hooks/events/note-created", `{
		"spaceId": "s1",
		"noteId": "n1",
		"note": {"senderUid": "alice", "type": "text", "text": "hello love"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Equal(t, 1, sender.calls)

	space, err := st.Get(ctx, "spaces/s1")
	require.NoError(t, err)
	assert.Equal(t, "hello love", space.String("lastNotePreview"))

	alice, err := st.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.Equal(t, engagement.PointsSend, alice.Int("points"))
}

func TestNoteCreated_MissingFieldsRejected(t *testing.T) {
	st := store.NewMemoryStore()
	e, sender := newTestServer(st)

	rec := postJSON(e, "/hooks/events/note-created", `{"noteId": "n1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, sender.calls)
}

func TestNoteCreated_MalformedBodyRejected(t *testing.T) {
	st := store.NewMemoryStore()
	e, _ := newTestServer(st)

	rec := postJSON(e, "/hooks/events/note-created", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoteUpdated_EndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	e, _ := newTestServer(st)
	ctx := context.Background()

	rec := postJSON(e, "/hooks/events/note-updated", `{
		"spaceId": "s1",
		"noteId": "n1",
		"before": {"senderUid": "alice", "readBy": {}},
		"after": {"senderUid": "alice", "readBy": {"bob": true}}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	bob, err := st.Get(ctx, "users/bob")
	require.NoError(t, err)
	assert.Equal(t, engagement.PointsRead, bob.Int("points"))
}

func TestTimeCapsuleSweep_Endpoint(t *testing.T) {
	st := store.NewMemoryStore()
	e, sender := newTestServer(st)
	ctx := context.Background()

	require.NoError(t, st.Merge(ctx, "spaces/s1", map[string]interface{}{
		"participantUids": []string{"alice", "bob"},
	}))
	require.NoError(t, st.Merge(ctx, "users/bob/devices/main", map[string]interface{}{
		"fcmToken": "tok-bob",
	}))
	require.NoError(t, st.Merge(ctx, "spaces/s1/notes/n1", map[string]interface{}{
		"senderUid":   "alice",
		"timeCapsule": true,
		"unlockAt":    time.Now().Add(-time.Hour),
	}))

	rec := postJSON(e, "/hooks/jobs/time-capsule-sweep", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sender.calls)

	note, err := st.Get(ctx, "spaces/s1/notes/n1")
	require.NoError(t, err)
	assert.True(t, note.Bool("unlockNotified"))
}
