package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medichat/internal/database"
	"medichat/internal/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect("file::memory:?cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		db.Exec("DELETE FROM chat_sessions")
		db.Exec("DELETE FROM users")
	})
	return db
}

func seedSession(t *testing.T, repo *ChatRepository, userID int64, sessionID string) *domain.ChatSession {
	t.Helper()
	now := time.Now()
	session := &domain.ChatSession{
		SessionID: sessionID,
		UserID:    userID,
		Title:     "seed",
		Messages: []domain.Message{
			{Prompt: "hello", Response: "hi there", Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateSession(context.Background(), session))
	return session
}

func TestAppendToSessionGrowsByOne(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	seedSession(t, repo, 1, "s-1")

	msg := domain.Message{Prompt: "second question", Response: "second answer", Timestamp: time.Now()}
	session, err := repo.AppendToSession(ctx, 1, "s-1", msg, "second question")
	require.NoError(t, err)

	assert.Len(t, session.Messages, 2)
	assert.Equal(t, "second question", session.Messages[1].Prompt)
	assert.Equal(t, "second question", session.Title)

	// The append is visible to a fresh read.
	reread, err := repo.GetBySessionID(ctx, 1, "s-1")
	require.NoError(t, err)
	assert.Len(t, reread.Messages, 2)
}

func TestAppendToSessionBumpsUpdatedAt(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	before := seedSession(t, repo, 1, "s-1")
	time.Sleep(10 * time.Millisecond)

	msg := domain.Message{Prompt: "p", Response: "r", Timestamp: time.Now()}
	after, err := repo.AppendToSession(ctx, 1, "s-1", msg, "p")
	require.NoError(t, err)

	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestAppendToSessionSetsMedicalFlagSticky(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	seedSession(t, repo, 1, "s-1")

	medical := domain.Message{Prompt: "what is diabetes", Response: "…", IsMedical: true, Timestamp: time.Now()}
	session, err := repo.AppendToSession(ctx, 1, "s-1", medical, "Medical: what is diabetes...")
	require.NoError(t, err)
	assert.True(t, session.IsMedical)

	// A later plain message does not clear the flag.
	plain := domain.Message{Prompt: "thanks", Response: "welcome", Timestamp: time.Now()}
	session, err = repo.AppendToSession(ctx, 1, "s-1", plain, "thanks")
	require.NoError(t, err)
	assert.True(t, session.IsMedical)
}

func TestAppendToUnknownSession(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))

	msg := domain.Message{Prompt: "p", Response: "r", Timestamp: time.Now()}
	_, err := repo.AppendToSession(context.Background(), 1, "no-such-id", msg, "p")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAppendToForeignSession(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	seedSession(t, repo, 1, "s-1")

	// User 2 cannot touch user 1's session even with the right id.
	msg := domain.Message{Prompt: "p", Response: "r", Timestamp: time.Now()}
	_, err := repo.AppendToSession(ctx, 2, "s-1", msg, "p")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	original, err := repo.GetBySessionID(ctx, 1, "s-1")
	require.NoError(t, err)
	assert.Len(t, original.Messages, 1)
}

func TestDeleteSession(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	seedSession(t, repo, 1, "s-1")

	require.NoError(t, repo.DeleteSession(ctx, 1, "s-1"))

	_, err := repo.GetBySessionID(ctx, 1, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again reports not-found, not silent success.
	assert.ErrorIs(t, repo.DeleteSession(ctx, 1, "s-1"), ErrSessionNotFound)
}

func TestDeleteForeignSession(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	seedSession(t, repo, 1, "s-1")

	assert.ErrorIs(t, repo.DeleteSession(ctx, 2, "s-1"), ErrSessionNotFound)

	_, err := repo.GetBySessionID(ctx, 1, "s-1")
	assert.NoError(t, err)
}

func TestListByUserScopedAndOrdered(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	seedSession(t, repo, 1, "old")
	time.Sleep(10 * time.Millisecond)
	seedSession(t, repo, 1, "new")
	seedSession(t, repo, 2, "other-user")

	sessions, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].SessionID)
	assert.Equal(t, "old", sessions[1].SessionID)
}

func TestCreateSessionDuplicateKey(t *testing.T) {
	repo := NewChatRepository(setupTestDB(t))
	ctx := context.Background()

	seedSession(t, repo, 1, "s-1")

	dup := &domain.ChatSession{
		SessionID: "s-1",
		UserID:    1,
		Messages:  []domain.Message{{Prompt: "p", Response: "r", Timestamp: time.Now()}},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := repo.CreateSession(ctx, dup)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}
