package medical

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"medichat/internal/domain"
	"medichat/internal/modules/chat"
)

// Searcher is the literature lookup boundary.
type Searcher interface {
	Search(ctx context.Context, term string) ([]Article, error)
}

// Saver persists the exchange through the regular chat flow, which also
// handles the broadcast fan-out.
type Saver interface {
	SaveMessage(ctx context.Context, userID int64, req chat.SaveRequest) (*domain.ChatSession, bool, error)
}

type Service struct {
	search Searcher
	chats  Saver
	log    zerolog.Logger
}

func NewService(search Searcher, chats Saver, log zerolog.Logger) *Service {
	return &Service{search: search, chats: chats, log: log}
}

// Answer looks up literature for the prompt, formats the digest and appends
// the exchange to the caller's session (creating one when needed). Lookup
// failures propagate so the handler can signal the fallback contract; they
// are never retried here.
func (s *Service) Answer(ctx context.Context, userID int64, req QueryRequest) (*QueryResponse, error) {
	articles, err := s.search.Search(ctx, req.Prompt)
	if err != nil {
		return nil, err
	}

	text := formatDigest(articles)
	references := make([]domain.Reference, 0, len(articles))
	for _, a := range articles {
		references = append(references, domain.Reference{
			Title:   a.Title,
			Authors: a.Authors,
			Journal: a.Journal,
			PubDate: a.PubDate,
			PMID:    a.UID,
			URL:     "https://pubmed.ncbi.nlm.nih.gov/" + a.UID,
		})
	}

	session, _, err := s.chats.SaveMessage(ctx, userID, chat.SaveRequest{
		Prompt:     req.Prompt,
		Response:   text,
		SessionID:  req.SessionID,
		IsMedical:  true,
		References: references,
	})
	if err != nil {
		return nil, fmt.Errorf("save medical exchange: %w", err)
	}

	return &QueryResponse{
		Text:       text,
		IsMedical:  true,
		SessionID:  session.SessionID,
		References: references,
	}, nil
}

func formatDigest(articles []Article) string {
	var b strings.Builder
	b.WriteString("Here's what I found from medical research:\n\n")

	for i, a := range articles {
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, a.Title)
		if len(a.Authors) > 0 {
			fmt.Fprintf(&b, "Authors: %s\n", strings.Join(a.Authors, ", "))
		}
		if a.PubDate != "" {
			fmt.Fprintf(&b, "Published: %s\n", a.PubDate)
		}
		if a.Journal != "" {
			fmt.Fprintf(&b, "Journal: %s\n", a.Journal)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n*This information is from PubMed and should not replace professional medical advice.*")
	return b.String()
}
