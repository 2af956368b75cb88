package medical

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medichat/internal/domain"
	"medichat/internal/modules/chat"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, term string) ([]Article, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Article), args.Error(1)
}

type MockSaver struct {
	mock.Mock
}

func (m *MockSaver) SaveMessage(ctx context.Context, userID int64, req chat.SaveRequest) (*domain.ChatSession, bool, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.ChatSession), args.Bool(1), args.Error(2)
}

func TestAnswerFormatsAndSaves(t *testing.T) {
	search := new(MockSearcher)
	saver := new(MockSaver)
	svc := NewService(search, saver, zerolog.Nop())

	search.On("Search", mock.Anything, "what causes migraines").Return([]Article{
		{
			UID:     "12345",
			Title:   "Migraine pathophysiology",
			Authors: []string{"Smith J", "Doe A"},
			Journal: "Lancet Neurol",
			PubDate: "2024 Mar",
		},
	}, nil)

	var captured chat.SaveRequest
	saver.On("SaveMessage", mock.Anything, int64(1), mock.AnythingOfType("chat.SaveRequest")).
		Return(&domain.ChatSession{SessionID: "s-1"}, true, nil).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(chat.SaveRequest)
		})

	resp, err := svc.Answer(context.Background(), 1, QueryRequest{Prompt: "what causes migraines"})
	require.NoError(t, err)

	assert.True(t, resp.IsMedical)
	assert.Equal(t, "s-1", resp.SessionID)
	require.Len(t, resp.References, 1)
	assert.Equal(t, "12345", resp.References[0].PMID)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/12345", resp.References[0].URL)

	assert.Contains(t, resp.Text, "Here's what I found from medical research:")
	assert.Contains(t, resp.Text, "**1. Migraine pathophysiology**")
	assert.Contains(t, resp.Text, "Authors: Smith J, Doe A")
	assert.Contains(t, resp.Text, "Published: 2024 Mar")
	assert.Contains(t, resp.Text, "Journal: Lancet Neurol")
	assert.Contains(t, resp.Text, "should not replace professional medical advice")

	// The exchange is persisted through the normal chat flow, flagged medical.
	assert.True(t, captured.IsMedical)
	assert.Equal(t, "what causes migraines", captured.Prompt)
	assert.Equal(t, resp.Text, captured.Response)
	assert.Len(t, captured.References, 1)
}

func TestAnswerPassesSessionIDThrough(t *testing.T) {
	search := new(MockSearcher)
	saver := new(MockSaver)
	svc := NewService(search, saver, zerolog.Nop())

	search.On("Search", mock.Anything, mock.Anything).Return([]Article{{UID: "1", Title: "T"}}, nil)
	saver.On("SaveMessage", mock.Anything, int64(7), mock.MatchedBy(func(req chat.SaveRequest) bool {
		return req.SessionID == "existing-session"
	})).Return(&domain.ChatSession{SessionID: "existing-session"}, false, nil)

	resp, err := svc.Answer(context.Background(), 7, QueryRequest{
		Prompt:    "flu symptoms",
		SessionID: "existing-session",
	})

	require.NoError(t, err)
	assert.Equal(t, "existing-session", resp.SessionID)
	saver.AssertExpectations(t)
}

func TestAnswerNoResultsPropagates(t *testing.T) {
	search := new(MockSearcher)
	saver := new(MockSaver)
	svc := NewService(search, saver, zerolog.Nop())

	search.On("Search", mock.Anything, mock.Anything).Return(nil, ErrNoResults)

	_, err := svc.Answer(context.Background(), 1, QueryRequest{Prompt: "xyzzy"})

	assert.ErrorIs(t, err, ErrNoResults)
	saver.AssertNotCalled(t, "SaveMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswerUnavailablePropagates(t *testing.T) {
	search := new(MockSearcher)
	svc := NewService(search, new(MockSaver), zerolog.Nop())

	search.On("Search", mock.Anything, mock.Anything).Return(nil, ErrUnavailable)

	_, err := svc.Answer(context.Background(), 1, QueryRequest{Prompt: "anything"})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFormatDigestOmitsEmptyFields(t *testing.T) {
	text := formatDigest([]Article{{UID: "1", Title: "Bare title"}})

	assert.Contains(t, text, "**1. Bare title**")
	assert.NotContains(t, text, "Authors:")
	assert.NotContains(t, text, "Published:")
	assert.NotContains(t, text, "Journal:")
}
