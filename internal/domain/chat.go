package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Reference points at a literature article backing a medical answer.
type Reference struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
	Journal string   `json:"journal,omitempty"`
	PubDate string   `json:"pubdate,omitempty"`
	PMID    string   `json:"pmid,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// Message is one prompt/response exchange inside a session. Messages are
// insertion-ordered and never mutated after append.
type Message struct {
	Prompt     string      `json:"prompt"`
	Response   string      `json:"response"`
	IsMedical  bool        `json:"isMedical,omitempty"`
	References []Reference `json:"references,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ChatSession is a conversation thread owned by exactly one user.
// SessionID is the opaque identifier handed to clients; ownership is
// immutable after creation.
type ChatSession struct {
	ID        int64  `json:"-" gorm:"primaryKey"`
	SessionID string `json:"sessionId" gorm:"column:session_id;uniqueIndex;uniqueIndex:idx_session_owner;not null"`
	UserID    int64  `json:"ownerId" gorm:"column:user_id;uniqueIndex:idx_session_owner;index;not null"`

	Title     string `json:"title"`
	IsMedical bool   `json:"isMedical" gorm:"column:is_medical"`

	Messages datatypes.JSONSlice[Message] `json:"messages" gorm:"column:messages"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"index"`
}

func (ChatSession) TableName() string { return "chat_sessions" }
