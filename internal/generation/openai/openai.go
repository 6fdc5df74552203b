// Package openai generates text with an OpenAI-compatible completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ragbot/internal/domain"
	"ragbot/internal/generation/decode"
	"ragbot/internal/tokenizer"
)

var _ domain.Generator = (*Client)(nil)

// Client requests completions and enforces the decoding parameters the API
// lacks: the total length budget and the no-repeat-n-gram rule are applied to
// the returned text.
type Client struct {
	model  string
	params decode.Params
	echo   bool
	client openai.Client
}

type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	Params    decode.Params
	Echo      bool
}

// NewClient fails when the API key variable is unset.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo-instruct"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		model:  cfg.Model,
		params: cfg.Params,
		echo:   cfg.Echo,
		client: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
			option.WithRequestTimeout(t),
			option.WithMaxRetries(3),
		),
	}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	seqs, err := c.GenerateAll(ctx, prompt)
	if err != nil {
		return "", err
	}
	if len(seqs) == 0 {
		return "", errors.New("no completion returned")
	}
	return seqs[0], nil
}

// GenerateAll returns one text per requested choice, in choice order.
func (c *Client) GenerateAll(ctx context.Context, prompt string) ([]string, error) {
	promptTokens := tokenizer.Tokenize(prompt)
	budget := c.params.MaxLength - len(promptTokens)
	if budget < 1 {
		budget = 1
	}
	n := max(c.params.NumSequences, 1)

	resp, err := c.client.Completions.New(ctx, openai.CompletionNewParams{
		Model:     openai.CompletionNewParamsModel(c.model),
		Prompt:    openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		MaxTokens: openai.Int(int64(budget)),
		N:         openai.Int(int64(n)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai completions failed: status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("openai completions failed: %w", err)
	}

	seqs := make([]string, len(resp.Choices))
	for _, ch := range resp.Choices {
		if ch.Index < 0 || int(ch.Index) >= len(seqs) {
			continue
		}
		toks := tokenizer.Tokenize(ch.Text)
		toks = decode.TrimRepeated(promptTokens, toks, c.params.NoRepeatNGram)
		if c.params.MaxLength > 0 {
			toks = toks[:min(len(toks), max(c.params.MaxLength-len(promptTokens), 0))]
		}
		text := tokenizer.Join(toks)
		if c.echo {
			text = strings.TrimSpace(prompt + " " + text)
		}
		seqs[ch.Index] = text
	}
	return seqs, nil
}
