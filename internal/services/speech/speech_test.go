package speech

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"evara/internal/services/callout"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		max  int
		want []string
	}{
		{name: "short", in: "hello world", max: 200, want: []string{"hello world"}},
		{name: "blank", in: "   ", max: 200, want: nil},
		{name: "word boundary", in: "aaa bbb ccc", max: 7, want: []string{"aaa bbb", "ccc"}},
		{name: "hard cut", in: "abcdefghij", max: 4, want: []string{"abcd", "efgh", "ij"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Split(tc.in, tc.max)
			if len(got) != len(tc.want) {
				t.Fatalf("got %q want %q", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("piece %d: got %q want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestSplitRespectsLimit(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("пример текста ", 60)
	for _, p := range Split(text, MaxChunkRunes) {
		if n := utf8.RuneCountInString(p); n > MaxChunkRunes {
			t.Fatalf("piece has %d runes", n)
		}
	}
}

func TestSynthesizeConcatenatesSegments(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("tl") != "en" || q.Get("client") != "tw-ob" {
			t.Errorf("query=%v", q)
		}
		_, _ = w.Write([]byte("[" + q.Get("idx") + "]"))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL})
	var buf bytes.Buffer
	text := strings.Repeat("word ", 100)
	if err := c.Synthesize(context.Background(), text, &buf); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want 3", calls.Load())
	}
	if buf.String() != "[0][1][2]" {
		t.Fatalf("audio=%q", buf.String())
	}
}

func TestSynthesizeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := New(Config{Endpoint: srv.URL}).Synthesize(context.Background(), "hi", &bytes.Buffer{})
	if callout.KindOf(err) != callout.RateLimited {
		t.Fatalf("err=%v", err)
	}
}

func TestSynthesizeStopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var buf bytes.Buffer
	err := New(Config{Endpoint: srv.URL, Timeout: time.Minute}).Synthesize(ctx, "hello", &buf)
	if callout.KindOf(err) != callout.Canceled {
		t.Fatalf("err=%v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %d bytes after cancel", buf.Len())
	}
}

func TestSynthesizeWritesNothingOnErrorPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("<html>text too long</html>"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := New(Config{Endpoint: srv.URL}).Synthesize(context.Background(), "hi", &buf)
	if callout.KindOf(err) != callout.Rejected || buf.Len() != 0 {
		t.Fatalf("err=%v audio=%q", err, buf.String())
	}
}
