package tgui

import (
	"html"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkRunes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    string
		size  int
		parts int
	}{
		{name: "empty", in: "", size: 4000, parts: 1},
		{name: "under", in: strings.Repeat("a", 3999), size: 4000, parts: 1},
		{name: "exact", in: strings.Repeat("a", 4000), size: 4000, parts: 1},
		{name: "one over", in: strings.Repeat("a", 4001), size: 4000, parts: 2},
		{name: "many", in: strings.Repeat("b", 12345), size: 4000, parts: 4},
		{name: "multibyte", in: strings.Repeat("é", 9), size: 4, parts: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ChunkRunes(tc.in, tc.size)
			if len(got) != tc.parts {
				t.Fatalf("parts=%d want %d", len(got), tc.parts)
			}
			for i, p := range got {
				if n := utf8.RuneCountInString(p); n > tc.size {
					t.Fatalf("part %d has %d runes (limit %d)", i, n, tc.size)
				}
			}
			if strings.Join(got, "") != tc.in {
				t.Fatalf("chunks do not rebuild the input")
			}
		})
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()

	if got := TruncRunes("héllo world", 5); got != "héllo" {
		t.Fatalf("got %q", got)
	}
	if got := TruncRunes("hi", 50); got != "hi" {
		t.Fatalf("got %q", got)
	}
	if got := TruncRunes("hi", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestHTMLHelpers(t *testing.T) {
	t.Parallel()

	if got := B("a<b").String(); got != "<b>a&lt;b</b>" {
		t.Fatalf("B=%q", got)
	}
	if got := Mention("Ann", 7).String(); got != `<a href="tg://user?id=7">Ann</a>` {
		t.Fatalf("Mention=%q", got)
	}
}

func TestEscChunks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    string
		size  int
		lead  int
		parts int
	}{
		{name: "empty", in: "", size: 10, parts: 1},
		{name: "fits", in: "it's", size: 10, parts: 1},
		{name: "entity at edge", in: "abcd'e", size: 8, parts: 2},
		{name: "lead shrinks first", in: strings.Repeat("a", 10), size: 10, lead: 4, parts: 2},
		{name: "all entities", in: strings.Repeat("&", 9), size: 12, parts: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := EscChunks(tc.in, tc.size, tc.lead)
			if len(got) != tc.parts {
				t.Fatalf("parts=%d want %d (%q)", len(got), tc.parts, got)
			}
			var joined strings.Builder
			for i, p := range got {
				limit := tc.size
				if i == 0 {
					limit -= tc.lead
				}
				if n := utf8.RuneCountInString(p.String()); n > limit {
					t.Fatalf("part %d has %d runes (limit %d)", i, n, limit)
				}
				// a cut entity would not survive the round trip
				if Esc(html.UnescapeString(p.String())) != p {
					t.Fatalf("part %d splits an entity: %q", i, p)
				}
				joined.WriteString(p.String())
			}
			if joined.String() != Esc(tc.in).String() {
				t.Fatalf("chunks do not rebuild the escaped input")
			}
		})
	}
}
