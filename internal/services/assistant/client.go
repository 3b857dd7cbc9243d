// Package assistant talks to an OpenAI-compatible chat completions API
// (Groq by default) through uniai. Every call is stateless: one system turn,
// one user turn, one answer.
package assistant

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	uniaiapi "github.com/quailyquaily/uniai"

	"evara/internal/services/callout"
)

const service = "assistant"

// Completer answers a single question.
type Completer interface {
	Ask(ctx context.Context, question string) (string, error)
}

type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

type message struct {
	Role    string
	Content string
}

// chatFunc sends one conversation and returns the answer text.
type chatFunc func(ctx context.Context, msgs []message) (string, error)

type Client struct {
	cfg  Config
	chat chatFunc
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	c := uniaiapi.New(uniaiapi.Config{
		Provider:      "openai",
		OpenAIAPIKey:  strings.TrimSpace(cfg.APIKey),
		OpenAIAPIBase: cfg.BaseURL,
		OpenAIModel:   strings.TrimSpace(cfg.Model),
	})
	model := strings.TrimSpace(cfg.Model)
	return &Client{cfg: cfg, chat: func(ctx context.Context, msgs []message) (string, error) {
		um := make([]uniaiapi.Message, len(msgs))
		for i, m := range msgs {
			um[i] = uniaiapi.Message{Role: m.Role, Content: m.Content}
		}
		opts := []uniaiapi.ChatOption{
			uniaiapi.WithReplaceMessages(um...),
			uniaiapi.WithProvider("openai"),
		}
		if model != "" {
			opts = append(opts, uniaiapi.WithModel(model))
		}
		resp, err := c.Chat(ctx, opts...)
		if err != nil {
			return "", err
		}
		if resp == nil {
			return "", nil
		}
		return resp.Text, nil
	}}
}

// Ask sends question with the configured persona. Errors are
// *callout.Failure.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	answer, err := c.chat(ctx, []message{
		{Role: "system", Content: c.cfg.SystemPrompt},
		{Role: "user", Content: question},
	})
	if err != nil {
		return "", classify(ctx, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", callout.EmptyResult(service, "empty answer")
	}
	return answer, nil
}

var statusPattern = regexp.MustCompile(`(?i)(?:status(?:\s*code)?|http)\D{0,3}([1-5]\d\d)\b`)

// classify maps a uniai error onto a callout category. uniai reports upstream
// HTTP failures in the error text, so the status is read from there.
func classify(ctx context.Context, err error) *callout.Failure {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &callout.Failure{Service: service, Kind: callout.Canceled, Err: err}
	}
	msg := err.Error()
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil && code >= 400 {
			return callout.Status(service, code, msg)
		}
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") {
		return callout.Status(service, 429, msg)
	}
	return callout.Transport(ctx, service, err)
}
