package medical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxResults = 3

	// Upstream calls fail hard after this; the caller falls back, never
	// retries.
	requestTimeout = 10 * time.Second
)

var (
	// ErrNoResults — the lookup worked but found nothing usable.
	ErrNoResults = errors.New("no relevant medical articles found")
	// ErrUnavailable — transport or decode failure talking to PubMed.
	ErrUnavailable = errors.New("medical service unavailable")
)

// Article is one PubMed summary record.
type Article struct {
	UID     string
	Title   string
	Authors []string
	Journal string
	PubDate string
}

// Client talks to the PubMed E-utilities API (esearch + esummary).
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryRecord struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

// Search runs relevance-ranked esearch then esummary and returns up to
// maxResults titled articles in the order PubMed listed them.
func (c *Client) Search(ctx context.Context, term string) ([]Article, error) {
	ids, err := c.search(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoResults
	}

	articles, err := c.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNoResults
	}
	return articles, nil
}

func (c *Client) search(ctx context.Context, term string) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmode": {"json"},
		"retmax":  {fmt.Sprint(maxResults)},
		"sort":    {"relevance"},
		"field":   {"title,abstract"},
	}

	var out esearchResponse
	if err := c.getJSON(ctx, "/esearch.fcgi", params, &out); err != nil {
		return nil, err
	}
	return out.ESearchResult.IDList, nil
}

func (c *Client) summaries(ctx context.Context, ids []string) ([]Article, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}

	var out esummaryResponse
	if err := c.getJSON(ctx, "/esummary.fcgi", params, &out); err != nil {
		return nil, err
	}

	// Preserve esearch order; skip untitled records and the "uids" index key.
	articles := make([]Article, 0, len(ids))
	for _, id := range ids {
		raw, ok := out.Result[id]
		if !ok {
			continue
		}
		var rec esummaryRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Title == "" {
			continue
		}
		a := Article{
			UID:     rec.UID,
			Title:   rec.Title,
			Journal: rec.Source,
			PubDate: rec.PubDate,
		}
		if a.UID == "" {
			a.UID = id
		}
		for _, author := range rec.Authors {
			a.Authors = append(a.Authors, author.Name)
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
