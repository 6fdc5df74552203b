package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"ragbot/internal/domain"
	"ragbot/internal/retry"
)

var _ domain.Retriever = (*Retriever)(nil)

// Retriever queries the DuckDuckGo instant answer API and turns each related
// topic into a document. Topics without a Text field become empty documents;
// filtering them is the assembler's job.
type Retriever struct {
	endpoint   string
	userAgent  string
	maxRetries int
	maxResults int
	client     *http.Client
}

// Config configures the search client. MaxRetries 0 performs a single request.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	MaxResults int
	UserAgent  string
}

type searchResponse struct {
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

func New(cfg Config) *Retriever {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.duckduckgo.com/"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Retriever{
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		maxResults: cfg.MaxResults,
		client:     &http.Client{Timeout: t},
	}
}

func (r *Retriever) Name() string { return "duckduckgo" }

// Retrieve returns one document per related topic, in API order. Any failure
// to obtain a decodable 200 response is reported as a *domain.RetrievalError.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.Document, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return nil, r.fail(0, fmt.Errorf("endpoint: %w", err))
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("format", "json")
	u.RawQuery = params.Encode()

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, r.fail(0, err)
		}
		req.Header.Set("Accept", "application/json")
		if r.userAgent != "" {
			req.Header.Set("User-Agent", r.userAgent)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			if attempt < r.maxRetries && ctx.Err() == nil {
				log.WithError(err).WithField("attempt", attempt).Debug("duckduckgo: request failed, retrying")
				if err := retry.Sleep(ctx, retry.Delay(attempt)); err != nil {
					return nil, r.fail(0, err)
				}
				continue
			}
			return nil, r.fail(0, err)
		}

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if retry.Retryable(resp.StatusCode) && attempt < r.maxRetries {
				if err := retry.Sleep(ctx, retry.After(resp, attempt)); err != nil {
					return nil, r.fail(resp.StatusCode, err)
				}
				continue
			}
			return nil, r.fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
		}

		var out searchResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		_ = resp.Body.Close()
		if err != nil {
			return nil, r.fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
		}
		return r.documents(out.RelatedTopics), nil
	}
}

func (r *Retriever) documents(topics []relatedTopic) []domain.Document {
	if r.maxResults > 0 && len(topics) > r.maxResults {
		topics = topics[:r.maxResults]
	}
	docs := make([]domain.Document, 0, len(topics))
	for _, t := range topics {
		docs = append(docs, domain.Document{Text: t.Text, Source: t.FirstURL})
	}
	return docs
}

func (r *Retriever) fail(status int, err error) error {
	return &domain.RetrievalError{Retriever: r.Name(), StatusCode: status, Err: err}
}
