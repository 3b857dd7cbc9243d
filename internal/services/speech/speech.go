// Package speech turns text into MP3 audio through the Google Translate
// text-to-speech endpoint.
package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"evara/internal/services/callout"
)

const (
	service = "speech"

	DefaultEndpoint = "https://translate.google.com/translate_tts"
	// MaxChunkRunes is the longest text the endpoint accepts per request.
	MaxChunkRunes = 200
)

// Synthesizer writes the spoken form of text to w as MP3.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}

type Config struct {
	Endpoint string
	Language string
	Timeout  time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Synthesize fetches one MP3 segment per chunk and concatenates them into w.
// Nothing is written when the first segment fails.
func (c *Client) Synthesize(ctx context.Context, text string, w io.Writer) error {
	parts := Split(text, MaxChunkRunes)
	if len(parts) == 0 {
		return callout.EmptyResult(service, "nothing to speak")
	}
	for i, p := range parts {
		if err := c.segment(ctx, p, i, len(parts), w); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) segment(ctx context.Context, text string, idx, total int, w io.Writer) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", c.cfg.Language)
	q.Set("client", "tw-ob")
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := c.http.Do(req)
	if err != nil {
		return callout.Transport(ctx, service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return callout.Status(service, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return callout.Transport(ctx, service, err)
	}
	if n == 0 {
		return callout.EmptyResult(service, fmt.Sprintf("segment %d/%d has no audio", idx+1, total))
	}
	return nil
}

// Split breaks text into pieces of at most max runes, preferring to cut at
// whitespace. Words longer than max are hard-cut. Pieces are trimmed and
// never empty.
func Split(text string, max int) []string {
	if max <= 0 {
		max = MaxChunkRunes
	}
	var out []string
	rs := []rune(strings.TrimSpace(text))
	for len(rs) > 0 {
		if len(rs) <= max {
			out = appendTrimmed(out, rs)
			break
		}
		cut := -1
		for i := max; i > 0; i-- {
			if unicode.IsSpace(rs[i]) {
				cut = i
				break
			}
		}
		if cut <= 0 {
			cut = max
		}
		out = appendTrimmed(out, rs[:cut])
		rs = []rune(strings.TrimLeftFunc(string(rs[cut:]), unicode.IsSpace))
	}
	return out
}

func appendTrimmed(out []string, rs []rune) []string {
	s := strings.TrimSpace(string(rs))
	if s == "" {
		return out
	}
	return append(out, s)
}
