package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medichat/internal/modules/chat"
)

func view(id string, msgCount int) chat.SessionView {
	msgs := make([]chat.FlatMessage, msgCount)
	for i := range msgs {
		msgs[i] = chat.FlatMessage{Text: "m", Timestamp: time.Now()}
	}
	return chat.SessionView{ID: id, Title: id, Messages: msgs, Timestamp: time.Now()}
}

func TestSubmitAndComplete(t *testing.T) {
	r := NewReconciler()

	r.Submit("hello")
	r.Complete("hi there")

	msgs := r.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsUser)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.False(t, msgs[1].IsUser)
	assert.Equal(t, "hi there", msgs[1].Text)
}

func TestRollbackKeepsPrompt(t *testing.T) {
	r := NewReconciler()

	r.Submit("keep me")
	p := r.Submit("failed prompt")
	r.Complete("a response that must also go")

	r.Rollback(p)

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "keep me", msgs[0].Text)
	// The handle still carries the prompt for a retry.
	assert.Equal(t, "failed prompt", p.Prompt)
}

func TestRollbackLeavesLaterSubmitIntact(t *testing.T) {
	r := NewReconciler()

	p1 := r.Submit("first attempt")
	r.Submit("second attempt")

	// Rolling back the first in-flight submit must not drop the second.
	r.Rollback(p1)

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "second attempt", msgs[0].Text)
}

func TestRollbackAfterViewReset(t *testing.T) {
	r := NewReconciler()

	p := r.Submit("stale prompt")
	r.NewChat()
	r.Submit("fresh prompt")

	// The handle points at a view that no longer exists; nothing to undo.
	r.Rollback(p)

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "fresh prompt", msgs[0].Text)
}

func TestConfirmSaveBindsNewSession(t *testing.T) {
	r := NewReconciler()

	r.Submit("first message")
	r.ConfirmSave("server-id", true)

	assert.Equal(t, "server-id", r.ActiveSessionID())
}

func TestConfirmSaveKeepsExistingID(t *testing.T) {
	r := NewReconciler()
	r.OpenSession(view("open-id", 2))

	r.ConfirmSave("open-id", false)

	assert.Equal(t, "open-id", r.ActiveSessionID())
}

func TestApplyEventSuppressedForActiveSession(t *testing.T) {
	r := NewReconciler()
	r.OpenSession(view("active", 2))
	before := r.Messages()

	// The echo of our own save must not touch local state.
	r.ApplyEvent(chat.Event{
		Action:  chat.ActionUpdate,
		Session: &chat.SessionView{ID: "active", Messages: []chat.FlatMessage{{Text: "echo"}}},
	})

	assert.Equal(t, before, r.Messages())
	assert.Empty(t, r.Sessions())
}

func TestApplyEventUpsertsOtherSession(t *testing.T) {
	r := NewReconciler()
	r.OpenSession(view("active", 2))

	other := view("other", 2)
	r.ApplyEvent(chat.Event{Action: chat.ActionNew, Session: &other})

	sessions := r.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "other", sessions[0].ID)

	// A later UPDATE replaces the summary rather than duplicating it.
	updated := view("other", 4)
	r.ApplyEvent(chat.Event{Action: chat.ActionUpdate, Session: &updated})

	sessions = r.Sessions()
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Messages, 4)
}

func TestApplyEventNewGoesToFront(t *testing.T) {
	r := NewReconciler()
	r.SetSessions([]chat.SessionView{view("older", 2)})

	newest := view("newest", 2)
	r.ApplyEvent(chat.Event{Action: chat.ActionNew, Session: &newest})

	sessions := r.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "newest", sessions[0].ID)
	assert.Equal(t, "older", sessions[1].ID)
}

func TestApplyEventIgnoresEmptySessions(t *testing.T) {
	r := NewReconciler()

	empty := view("empty", 0)
	r.ApplyEvent(chat.Event{Action: chat.ActionNew, Session: &empty})

	assert.Empty(t, r.Sessions())
}

func TestApplyEventNilSession(t *testing.T) {
	r := NewReconciler()

	r.ApplyEvent(chat.Event{Action: chat.ActionUpdate})

	assert.Empty(t, r.Sessions())
}

func TestApplyEventDeleteRemovesSummary(t *testing.T) {
	r := NewReconciler()
	r.SetSessions([]chat.SessionView{view("a", 2), view("b", 2)})

	r.ApplyEvent(chat.Event{Action: chat.ActionDelete, SessionID: "a"})

	sessions := r.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "b", sessions[0].ID)
}

func TestApplyEventDeleteActiveClearsView(t *testing.T) {
	r := NewReconciler()
	r.SetSessions([]chat.SessionView{view("active", 2)})
	r.OpenSession(view("active", 2))

	// Deleted from another tab while open here.
	r.ApplyEvent(chat.Event{Action: chat.ActionDelete, SessionID: "active"})

	assert.Empty(t, r.ActiveSessionID())
	assert.Empty(t, r.Messages())
	assert.Empty(t, r.Sessions())
}

func TestApplyEventDeleteIsIdempotent(t *testing.T) {
	r := NewReconciler()
	r.SetSessions([]chat.SessionView{view("a", 2)})

	r.ApplyEvent(chat.Event{Action: chat.ActionDelete, SessionID: "a"})
	r.ApplyEvent(chat.Event{Action: chat.ActionDelete, SessionID: "a"})

	assert.Empty(t, r.Sessions())
}

func TestSetSessionsFiltersEmpty(t *testing.T) {
	r := NewReconciler()

	r.SetSessions([]chat.SessionView{view("full", 2), view("empty", 0)})

	sessions := r.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "full", sessions[0].ID)
}

func TestSetSessionsReplacesEverything(t *testing.T) {
	r := NewReconciler()
	r.SetSessions([]chat.SessionView{view("stale", 2)})

	// A resync after reconnect is authoritative for the summary list.
	r.SetSessions([]chat.SessionView{view("fresh-1", 2), view("fresh-2", 2)})

	sessions := r.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "fresh-1", sessions[0].ID)
}

func TestNewChatClearsActiveState(t *testing.T) {
	r := NewReconciler()
	r.OpenSession(view("active", 2))

	r.NewChat()

	assert.Empty(t, r.ActiveSessionID())
	assert.Empty(t, r.Messages())
}

func TestOpenSessionCopiesMessages(t *testing.T) {
	r := NewReconciler()
	v := view("s", 2)

	r.OpenSession(v)
	r.Submit("local addition")

	// The source view must not see local appends.
	assert.Len(t, v.Messages, 2)
	assert.Len(t, r.Messages(), 3)
}
