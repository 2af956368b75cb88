// Package client implements the client half of the chat protocol: a pure
// reconciliation engine that merges optimistic local state, save
// confirmations and broadcast events into one consistent view, plus a
// websocket stream that feeds it and reconnects with backoff.
package client

import (
	"sync"
	"time"

	"medichat/internal/modules/chat"
)

// Pending is the handle for an optimistic submit, used to roll the local
// state back when the request fails so the prompt can be retried.
type Pending struct {
	Prompt string
	index  int
}

// Reconciler holds the local view: the optimistic message list of the active
// session and the summary list of all sessions. It is a pure state machine
// over three inputs — local submits, REST confirmations and broadcast
// events — and is idempotent with respect to event/fetch ordering.
//
// Suppression rule: while a session is open locally, its own state is
// authoritative; NEW/UPDATE events for that session are ignored so a write's
// echo can never clobber or duplicate in-flight local edits.
type Reconciler struct {
	mu sync.Mutex

	activeSessionID string
	messages        []chat.FlatMessage
	summaries       []chat.SessionView
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Submit optimistically appends the user's prompt to the active message list.
func (r *Reconciler) Submit(prompt string) Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, chat.FlatMessage{
		Text:      prompt,
		IsUser:    true,
		Timestamp: time.Now(),
	})
	return Pending{Prompt: prompt, index: len(r.messages) - 1}
}

// Complete appends the assistant's response for an earlier submit.
func (r *Reconciler) Complete(response string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, chat.FlatMessage{
		Text:      response,
		IsUser:    false,
		Timestamp: time.Now(),
	})
}

// Rollback drops the optimistic lines of a failed submit: the prompt and any
// response lines that followed it, leaving later submits untouched. The prompt
// stays in the returned handle so the caller can re-try instead of losing it.
func (r *Reconciler) Rollback(p Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.index >= len(r.messages) {
		return
	}
	m := r.messages[p.index]
	if !m.IsUser || m.Text != p.Prompt {
		// The view was reset since the submit; nothing left to undo.
		return
	}

	end := p.index + 1
	for end < len(r.messages) && !r.messages[end].IsUser {
		end++
	}
	r.messages = append(r.messages[:p.index], r.messages[end:]...)
}

// ConfirmSave records the server-issued session id after a successful save.
// For a new session this binds the active state to the fresh identifier.
func (r *Reconciler) ConfirmSave(sessionID string, isNew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isNew || r.activeSessionID == "" {
		r.activeSessionID = sessionID
	}
}

// ApplyEvent merges one broadcast event into the view.
func (r *Reconciler) ApplyEvent(ev chat.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Action {
	case chat.ActionNew, chat.ActionUpdate:
		if ev.Session == nil {
			return
		}
		// Active-session rule: local state is authoritative while the
		// session is open here.
		if ev.Session.ID == r.activeSessionID {
			return
		}
		if len(ev.Session.Messages) == 0 {
			return
		}
		r.upsertSummary(*ev.Session)

	case chat.ActionDelete:
		r.removeSummary(ev.SessionID)
		if ev.SessionID == r.activeSessionID {
			// Delete-while-active: back to a fresh chat.
			r.activeSessionID = ""
			r.messages = nil
		}
	}
}

// SetSessions replaces the summary list from a fresh history fetch — the
// resync mechanism after a reconnect.
func (r *Reconciler) SetSessions(sessions []chat.SessionView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summaries = r.summaries[:0]
	for _, s := range sessions {
		if len(s.Messages) == 0 {
			continue
		}
		r.summaries = append(r.summaries, s)
	}
}

// OpenSession makes a summarized session the active one.
func (r *Reconciler) OpenSession(s chat.SessionView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activeSessionID = s.ID
	r.messages = append([]chat.FlatMessage(nil), s.Messages...)
}

// NewChat clears the active state.
func (r *Reconciler) NewChat() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activeSessionID = ""
	r.messages = nil
}

func (r *Reconciler) ActiveSessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeSessionID
}

func (r *Reconciler) Messages() []chat.FlatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.FlatMessage(nil), r.messages...)
}

func (r *Reconciler) Sessions() []chat.SessionView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.SessionView(nil), r.summaries...)
}

// upsertSummary replaces an existing summary in place; new sessions go to the
// front (the list is newest-first).
func (r *Reconciler) upsertSummary(s chat.SessionView) {
	for i := range r.summaries {
		if r.summaries[i].ID == s.ID {
			r.summaries[i] = s
			return
		}
	}
	r.summaries = append([]chat.SessionView{s}, r.summaries...)
}

func (r *Reconciler) removeSummary(sessionID string) {
	for i := range r.summaries {
		if r.summaries[i].ID == sessionID {
			r.summaries = append(r.summaries[:i], r.summaries[i+1:]...)
			return
		}
	}
}
