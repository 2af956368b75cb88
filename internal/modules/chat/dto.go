package chat

import (
	"time"

	"medichat/internal/domain"
)

type SaveRequest struct {
	Prompt     string             `json:"prompt" binding:"required"`
	Response   string             `json:"response" binding:"required"`
	SessionID  string             `json:"sessionId"`
	IsMedical  bool               `json:"isMedical"`
	References []domain.Reference `json:"references"`
}

type DeleteRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// FlatMessage is one line of the display timeline: a prompt line (IsUser) or
// a response line carrying any medical metadata.
type FlatMessage struct {
	Text       string             `json:"text"`
	IsUser     bool               `json:"isUser"`
	Timestamp  time.Time          `json:"timestamp"`
	IsMedical  bool               `json:"isMedical,omitempty"`
	References []domain.Reference `json:"references,omitempty"`
}

// SessionView is the flattened, client-facing shape of a session.
type SessionView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	IsMedical bool          `json:"isMedical"`
	Messages  []FlatMessage `json:"messages"`
	Timestamp time.Time     `json:"timestamp"`
}

// Event actions.
const (
	ActionNew    = "NEW"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Event describes one session mutation. OwnerID is the explicit recipient
// scope: the hub delivers the event only to that user's connections.
type Event struct {
	Action    string       `json:"action"`
	OwnerID   int64        `json:"ownerId"`
	Session   *SessionView `json:"session,omitempty"`
	SessionID string       `json:"sessionId,omitempty"`
}

// Envelope is the wire frame pushed to websocket clients.
type Envelope struct {
	Type      string    `json:"type"`
	Data      Event     `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

const EnvelopeTypeChatUpdate = "CHAT_UPDATE"

// ToSessionView flattens a stored session into the alternating
// prompt/response timeline.
func ToSessionView(s *domain.ChatSession) *SessionView {
	view := &SessionView{
		ID:        s.SessionID,
		Title:     s.Title,
		IsMedical: s.IsMedical,
		Messages:  make([]FlatMessage, 0, len(s.Messages)*2),
		Timestamp: s.UpdatedAt,
	}
	for _, m := range s.Messages {
		view.Messages = append(view.Messages,
			FlatMessage{
				Text:      m.Prompt,
				IsUser:    true,
				Timestamp: m.Timestamp,
				IsMedical: m.IsMedical,
			},
			FlatMessage{
				Text:       m.Response,
				IsUser:     false,
				Timestamp:  m.Timestamp,
				IsMedical:  m.IsMedical,
				References: m.References,
			},
		)
	}
	return view
}
