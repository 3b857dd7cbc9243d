package tgui

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// H is HTML that is already safe for ParseMode="HTML".
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for Telegram HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

// EscChunks escapes s and cuts the result into pieces of at most size runes.
// Entities are never split. The first piece is lead runes shorter, leaving
// room for a heading.
func EscChunks(s string, size, lead int) []H {
	var (
		out    []H
		b      strings.Builder
		n      int
		budget = size - lead
	)
	for _, r := range s {
		e := html.EscapeString(string(r))
		w := utf8.RuneCountInString(e)
		if n > 0 && n+w > budget {
			out = append(out, H(b.String()))
			b.Reset()
			n, budget = 0, size
		}
		b.WriteString(e)
		n += w
	}
	return append(out, H(b.String()))
}

func wrap(tag string, inner H) H { return H("<" + tag + ">" + inner.String() + "</" + tag + ">") }

func B(s string) H    { return wrap("b", Esc(s)) }
func I(s string) H    { return wrap("i", Esc(s)) }
func Code(s string) H { return wrap("code", Esc(s)) }

func Link(text, url string) H {
	return H(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text)))
}

// Mention links name to the Telegram profile of userID.
func Mention(name string, userID int64) H {
	return Link(name, UserURL(userID))
}
