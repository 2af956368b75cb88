package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medichat/internal/domain"
	"medichat/internal/repository"
)

const (
	titleMaxLen        = 30
	medicalTitleMaxLen = 20
)

// ChatRepositoryInterface — only the store operations the service uses.
type ChatRepositoryInterface interface {
	AppendToSession(ctx context.Context, userID int64, sessionID string, msg domain.Message, title string) (*domain.ChatSession, error)
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	DeleteSession(ctx context.Context, userID int64, sessionID string) error
	ListByUser(ctx context.Context, userID int64) ([]domain.ChatSession, error)
}

// Broadcaster pushes session mutations to live connections.
type Broadcaster interface {
	Broadcast(ev Event)
}

type Service struct {
	repo ChatRepositoryInterface
	hub  Broadcaster
	log  zerolog.Logger
}

func NewService(repo ChatRepositoryInterface, hub Broadcaster, log zerolog.Logger) *Service {
	return &Service{repo: repo, hub: hub, log: log}
}

// SaveMessage appends one prompt/response exchange and returns the
// authoritative post-mutation snapshot.
//
// With a session id, the append is an atomic scoped update on
// (session_id, owner). "Not found under this owner" is not an error — a
// foreign or unknown id simply starts a new session with a fresh identifier.
// A duplicate-key loss on the create path is retried once as an update.
//
// On success the mutation is fanned out to the owner's other connections.
func (s *Service) SaveMessage(ctx context.Context, userID int64, req SaveRequest) (*domain.ChatSession, bool, error) {
	msg := domain.Message{
		Prompt:     req.Prompt,
		Response:   req.Response,
		IsMedical:  req.IsMedical,
		References: req.References,
		Timestamp:  time.Now(),
	}
	title := makeTitle(req.Prompt, req.IsMedical)

	if req.SessionID != "" {
		session, err := s.repo.AppendToSession(ctx, userID, req.SessionID, msg, title)
		if err == nil {
			s.broadcast(ActionUpdate, session)
			return session, false, nil
		}
		if !errors.Is(err, repository.ErrSessionNotFound) {
			return nil, false, fmt.Errorf("append message: %w", err)
		}
	}

	now := time.Now()
	session := &domain.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Title:     title,
		IsMedical: msg.IsMedical,
		Messages:  []domain.Message{msg},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		if !repository.IsDuplicateKey(err) {
			return nil, false, fmt.Errorf("create session: %w", err)
		}
		// Lost a creation race: the session exists now, append instead.
		existing, retryErr := s.repo.AppendToSession(ctx, userID, session.SessionID, msg, title)
		if retryErr != nil {
			return nil, false, fmt.Errorf("create session retry: %w", retryErr)
		}
		s.broadcast(ActionUpdate, existing)
		return existing, false, nil
	}

	s.broadcast(ActionNew, session)
	return session, true, nil
}

func (s *Service) DeleteSession(ctx context.Context, userID int64, sessionID string) error {
	if err := s.repo.DeleteSession(ctx, userID, sessionID); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Action:    ActionDelete,
			OwnerID:   userID,
			SessionID: sessionID,
		})
	}
	return nil
}

// ListSessions returns the owner's sessions, most recently updated first,
// flattened for display.
func (s *Service) ListSessions(ctx context.Context, userID int64) ([]*SessionView, error) {
	sessions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	views := make([]*SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, ToSessionView(&sessions[i]))
	}
	return views, nil
}

func (s *Service) broadcast(action string, session *domain.ChatSession) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(Event{
		Action:  action,
		OwnerID: session.UserID,
		Session: ToSessionView(session),
	})
}

// makeTitle derives the display title from the triggering prompt. Deliberate
// most-recent-prompt policy: recomputed on every append, not only the first.
func makeTitle(prompt string, isMedical bool) string {
	prompt = strings.TrimSpace(prompt)
	if isMedical {
		return "Medical: " + truncate(prompt, medicalTitleMaxLen) + "..."
	}
	if prompt == "" {
		return "New Chat"
	}
	return truncate(prompt, titleMaxLen)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
