package media

import (
	"context"
	"strings"
	"unicode/utf8"

	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	"evara/pkg/tgui"
)

const (
	trUsage  = "Rᴇᴘʟʏ ᴀ ᴍᴇssᴀɢᴇ ᴛᴏ ᴛʀᴀɴsʟᴀᴛᴇ ɪᴛ."
	trStatus = "ᴛʀᴀɴsʟᴀᴛɪɴɢ..."

	// pageRunes bounds each page after escaping so the adapter never has
	// to re-split HTML.
	pageRunes = tgui.TextLimit
)

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"hi": "Hindi",
	"ru": "Russian",
	"id": "Indonesian",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}

func (p *Plugin) handleTranslate(ctx context.Context, req *router.Request) error {
	source := trimmed(req.ReplyTo().Body())
	if source == "" {
		_, err := req.Reply(ctx, trUsage, nil)
		return err
	}

	status, err := req.Reply(ctx, trStatus, nil)
	if err != nil {
		return err
	}
	out, err := p.tr.Translate(ctx, source)
	if err != nil {
		return failStatus(ctx, req, status, err)
	}

	pages := translationPages(source, out, languageName(p.cfg.Target))
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}
	if err := req.Adapter.EditText(ctx, status, pages[0], opt); err != nil {
		return err
	}
	for _, page := range pages[1:] {
		if _, err := req.Reply(ctx, page, opt); err != nil {
			return err
		}
	}
	return nil
}

// translationPages renders the result as HTML. It is one message when it
// fits; otherwise each section is paged on its own. No page exceeds
// pageRunes.
func translationPages(source, translated, lang string) []string {
	origHead := tgui.B("ᴏʀɪɢɪɴᴀʟ→:").String() + " "
	trHead := tgui.B("Tʀᴀɴsʟᴀᴛᴇᴅ→ ("+lang+"):").String() + " "

	whole := origHead + tgui.Esc(source).String() + "\n\n" + trHead + tgui.Esc(translated).String()
	if utf8.RuneCountInString(whole) <= pageRunes {
		return []string{whole}
	}

	var pages []string
	for _, sec := range []struct{ head, body string }{{origHead, source}, {trHead, translated}} {
		lead := utf8.RuneCountInString(sec.head)
		for i, part := range tgui.EscChunks(sec.body, pageRunes, lead) {
			page := part.String()
			if i == 0 {
				page = sec.head + page
			}
			pages = append(pages, page)
		}
	}
	return pages
}
