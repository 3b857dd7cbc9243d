package adapter

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "evara/internal/transport"
)

func toUser(u *tele.User) kit.User {
	if u == nil {
		return kit.User{}
	}
	return kit.User{ID: u.ID, FirstName: u.FirstName, Username: u.Username, IsBot: u.IsBot}
}

func toMessage(m *tele.Message) *kit.Message {
	if m == nil {
		return nil
	}
	out := &kit.Message{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		From:     toUser(m.Sender),
		Text:     m.Text,
		Caption:  m.Caption,
	}
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
		out.ChatType = kit.ChatType(m.Chat.Type)
	}
	if m.SenderChat != nil {
		out.SenderChat = &kit.SenderChat{ID: m.SenderChat.ID, Title: m.SenderChat.Title}
	}
	if m.ReplyTo != nil {
		out.ReplyTo = toMessage(m.ReplyTo)
	}
	if m.UserJoined != nil {
		out.NewMembers = append(out.NewMembers, toUser(m.UserJoined))
	}
	for i := range m.UsersJoined {
		u := m.UsersJoined[i]
		if m.UserJoined != nil && u.ID == m.UserJoined.ID {
			continue
		}
		out.NewMembers = append(out.NewMembers, toUser(&u))
	}
	return out
}

func toCallback(cb *tele.Callback) *kit.Callback {
	out := &kit.Callback{ID: cb.ID, From: toUser(cb.Sender), Data: cb.Data}
	if m := cb.Message; m != nil {
		out.MessageID = m.ID
		out.ThreadID = m.ThreadID
		if m.Chat != nil {
			out.ChatID = m.Chat.ID
		}
	}
	return out
}

func parseUserID(q string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(q), 10, 64)
	return id, err == nil
}

func chatName(c *tele.Chat) string {
	if c.FirstName != "" {
		return c.FirstName
	}
	return c.Title
}
