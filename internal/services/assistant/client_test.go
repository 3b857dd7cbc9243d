package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"evara/internal/services/callout"
)

func withChat(cfg Config, fn chatFunc) *Client {
	c := New(cfg)
	c.chat = fn
	return c
}

func TestAskSendsPersonaAndQuestion(t *testing.T) {
	t.Parallel()

	var sent []message
	c := withChat(Config{Model: "llama-3.3-70b-versatile", SystemPrompt: "be nice"}, func(ctx context.Context, msgs []message) (string, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("no deadline on the call")
		}
		sent = msgs
		return "Rayleigh scattering.", nil
	})

	got, err := c.Ask(context.Background(), "why is the sky blue?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "Rayleigh scattering." {
		t.Fatalf("got %q", got)
	}
	if len(sent) != 2 || sent[0] != (message{Role: "system", Content: "be nice"}) ||
		sent[1] != (message{Role: "user", Content: "why is the sky blue?"}) {
		t.Fatalf("sent %+v", sent)
	}
}

func TestAskCategorisesFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		answer string
		err    error
		want   callout.Kind
	}{
		{name: "rate limited", err: errors.New("openai: status code 429: slow down"), want: callout.RateLimited},
		{name: "rate limit text", err: errors.New("Rate limit reached for model"), want: callout.RateLimited},
		{name: "bad key", err: errors.New(`POST "https://api.groq.com/openai/v1/chat/completions": 401 Unauthorized (status 401)`), want: callout.Rejected},
		{name: "server", err: errors.New("http 502: bad gateway"), want: callout.Unavailable},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: callout.Unavailable},
		{name: "wrapped cancel", err: fmt.Errorf("chat: %w", context.Canceled), want: callout.Canceled},
		{name: "blank answer", answer: "  \n", want: callout.Empty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := withChat(Config{}, func(context.Context, []message) (string, error) {
				return tc.answer, tc.err
			})
			_, err := c.Ask(context.Background(), "q")
			if got := callout.KindOf(err); got != tc.want {
				t.Fatalf("kind=%s want %s (err=%v)", got, tc.want, err)
			}
		})
	}
}

func TestAskTimesOut(t *testing.T) {
	t.Parallel()

	c := withChat(Config{Timeout: 20 * time.Millisecond}, func(ctx context.Context, _ []message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := c.Ask(context.Background(), "q")
	if callout.KindOf(err) != callout.Canceled {
		t.Fatalf("err=%v", err)
	}
}

func TestNewTrimsBaseURL(t *testing.T) {
	t.Parallel()

	c := New(Config{BaseURL: " https://api.groq.com/openai/v1/ "})
	if c.cfg.BaseURL != "https://api.groq.com/openai/v1" || c.cfg.Timeout != 60*time.Second {
		t.Fatalf("cfg=%+v", c.cfg)
	}
}
