package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medichat/internal/domain"
)

// ErrSessionNotFound signals "no session with this id under this owner".
// Callers decide whether that means 404 (delete) or create-new (append).
var ErrSessionNotFound = errors.New("chat session not found")

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// AppendToSession runs the atomic scoped update: lock the (session_id, user_id)
// row, push the message, bump updated_at, recompute the title and OR the
// medical flag. ErrSessionNotFound when no row matches the owner scope, which
// the service treats as "create a new session" rather than an error.
//
// This is the only mutation path into an existing session document, so two
// concurrent appends to one session serialize on the row lock.
func (r *ChatRepository) AppendToSession(
	ctx context.Context,
	userID int64,
	sessionID string,
	msg domain.Message,
	title string,
) (*domain.ChatSession, error) {
	var session domain.ChatSession

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("session_id = ? AND user_id = ?", sessionID, userID)
		// Row lock on postgres; sqlite serializes writers on its own.
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := q.First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		session.Messages = append(session.Messages, msg)
		session.Title = title
		session.IsMedical = session.IsMedical || msg.IsMedical
		session.UpdatedAt = time.Now()

		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ChatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// DeleteSession is scoped to the owner. Deleting a missing session or another
// owner's session returns ErrSessionNotFound, never silent success.
func (r *ChatRepository) DeleteSession(ctx context.Context, userID int64, sessionID string) error {
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Delete(&domain.ChatSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *ChatRepository) ListByUser(ctx context.Context, userID int64) ([]domain.ChatSession, error) {
	var sessions []domain.ChatSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *ChatRepository) GetBySessionID(ctx context.Context, userID int64, sessionID string) (*domain.ChatSession, error) {
	var session domain.ChatSession
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// IsDuplicateKey reports whether err is a unique-constraint violation, the
// loser's outcome when two creates race on the same session id.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}
