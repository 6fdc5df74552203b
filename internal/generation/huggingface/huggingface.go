// Package huggingface generates text with the Hugging Face inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"ragbot/internal/domain"
	"ragbot/internal/generation/decode"
	"ragbot/internal/retry"
)

var _ domain.Generator = (*Client)(nil)

// Client calls a hosted text-generation model. 503 answers (model still
// loading) and other retryable statuses are retried with backoff.
type Client struct {
	url        string
	apiKey     string
	model      string
	params     decode.Params
	echo       bool
	maxRetries int
	client     *http.Client
}

// Config configures the inference API client. The API key is optional.
type Config struct {
	BaseURL    string
	Model      string
	APIKeyEnv  string
	Timeout    time.Duration
	MaxRetries int
	Params     decode.Params
	Echo       bool
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
	Options    options    `json:"options"`
}

type parameters struct {
	MaxLength          int  `json:"max_length"`
	NumReturnSequences int  `json:"num_return_sequences"`
	NoRepeatNGramSize  int  `json:"no_repeat_ngram_size,omitempty"`
	ReturnFullText     bool `json:"return_full_text"`
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt2"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &Client{
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/models/" + cfg.Model,
		apiKey:     key,
		model:      cfg.Model,
		params:     cfg.Params,
		echo:       cfg.Echo,
		maxRetries: max(cfg.MaxRetries, 0),
		client:     &http.Client{Timeout: t},
	}
}

func (c *Client) Name() string { return "huggingface" }

// Generate returns the first generated sequence.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	seqs, err := c.GenerateAll(ctx, prompt)
	if err != nil {
		return "", err
	}
	if len(seqs) == 0 {
		return "", fmt.Errorf("%s returned no sequences", c.model)
	}
	return seqs[0], nil
}

// GenerateAll returns every sequence the model produced.
func (c *Client) GenerateAll(ctx context.Context, prompt string) ([]string, error) {
	data, err := json.Marshal(request{
		Inputs: prompt,
		Parameters: parameters{
			MaxLength:          c.params.MaxLength,
			NumReturnSequences: max(c.params.NumSequences, 1),
			NoRepeatNGramSize:  max(c.params.NoRepeatNGram, 0),
			ReturnFullText:     c.echo,
		},
		Options: options{WaitForModel: true},
	})
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				if err := retry.Sleep(ctx, retry.Delay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			if retry.Retryable(resp.StatusCode) && attempt < c.maxRetries {
				log.WithFields(log.Fields{"model": c.model, "status": resp.StatusCode, "attempt": attempt}).
					Debug("huggingface: retrying")
				if err := retry.Sleep(ctx, retry.After(resp, attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("inference %s failed: %s: %s", c.model, resp.Status, apiError(payload))
		}

		var out []generation
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("decode inference response: %w", err)
		}
		seqs := make([]string, len(out))
		for i, g := range out {
			text := g.GeneratedText
			if !c.echo {
				text = strings.TrimPrefix(text, prompt)
			}
			seqs[i] = strings.TrimSpace(text)
		}
		return seqs, nil
	}
}

func apiError(payload []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(payload))
}
