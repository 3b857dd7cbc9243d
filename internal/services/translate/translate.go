// Package translate machine-translates text through the Google Translate
// mobile page.
package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"evara/internal/services/callout"
)

const (
	service = "translate"

	DefaultEndpoint = "https://translate.google.com/m"
	// MaxInputRunes is the longest text the page translates in one request.
	MaxInputRunes = 5000
)

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type Config struct {
	Endpoint string
	Source   string
	Target   string
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
	if cfg.Source == "" {
		cfg.Source = "auto"
	}
	if cfg.Target == "" {
		cfg.Target = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Target is the configured output language code.
func (c *Client) Target() string { return c.cfg.Target }

func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", callout.EmptyResult(service, "nothing to translate")
	}
	if n := utf8.RuneCountInString(text); n > MaxInputRunes {
		return "", &callout.Failure{Service: service, Kind: callout.Rejected,
			Err: fmt.Errorf("text is %d characters, limit is %d", n, MaxInputRunes)}
	}

	q := url.Values{}
	q.Set("sl", c.cfg.Source)
	q.Set("tl", c.cfg.Target)
	q.Set("hl", c.cfg.Target)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", callout.Transport(ctx, service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", callout.Transport(ctx, service, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", callout.Status(service, resp.StatusCode, "")
	}

	out, err := parseResult(body)
	if err != nil {
		return "", &callout.Failure{Service: service, Kind: callout.Unavailable, Err: err}
	}
	if out == "" {
		return "", callout.EmptyResult(service, "no translation in page")
	}
	return out, nil
}

var errNoResult = errors.New("result container not found")

// parseResult extracts the text of the first div.result-container.
func parseResult(page []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	n := find(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result-container")
	})
	if n == nil {
		return "", errNoResult
	}
	return strings.TrimSpace(textContent(n)), nil
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if got := find(c, match); got != nil {
			return got
		}
	}
	return nil
}

func hasClass(n *html.Node, want string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, part := range strings.Fields(a.Val) {
			if part == want {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		switch {
		case x.Type == html.TextNode:
			b.WriteString(x.Data)
		case x.Type == html.ElementNode && x.Data == "br":
			b.WriteByte('\n')
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
