package adapter

import (
	"errors"
	"fmt"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "evara/internal/transport"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		err   error
		kind  kit.DeliveryKind
		after time.Duration
	}{
		{name: "flood", err: tele.FloodError{RetryAfter: 7}, kind: kit.DeliveryRateLimited, after: 7 * time.Second},
		{name: "blocked", err: tele.ErrBlockedByUser, kind: kit.DeliveryUnreachable},
		{name: "deactivated wrapped", err: fmt.Errorf("forward: %w", tele.ErrUserIsDeactivated), kind: kit.DeliveryUnreachable},
		{name: "chat not found", err: tele.ErrChatNotFound, kind: kit.DeliveryUnreachable},
		{name: "peer invalid text", err: errors.New("telegram: Bad Request: PEER_ID_INVALID (400)"), kind: kit.DeliveryUnreachable},
		{name: "other", err: errors.New("telegram: Bad Request: message to forward not found (400)"), kind: kit.DeliveryFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			kind, after := kit.ClassifyDelivery(classify(tc.err))
			if kind != tc.kind || after != tc.after {
				t.Fatalf("got (%v, %v) want (%v, %v)", kind, after, tc.kind, tc.after)
			}
		})
	}

	if classify(nil) != nil {
		t.Fatalf("classify(nil) should stay nil")
	}
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	joined := tele.User{ID: 99, FirstName: "Evara", IsBot: true}
	m := &tele.Message{
		ID:      10,
		Chat:    &tele.Chat{ID: -100, Type: tele.ChatSuperGroup},
		Sender:  &tele.User{ID: 5, FirstName: "Ann", Username: "ann"},
		Caption: "/tts hi",
		ReplyTo: &tele.Message{
			ID:     9,
			Chat:   &tele.Chat{ID: -100, Type: tele.ChatSuperGroup},
			Sender: &tele.User{ID: 6, FirstName: "Bob"},
			Text:   "hola",
		},
		SenderChat:  &tele.Chat{ID: -100, Title: "Lounge"},
		UserJoined:  &joined,
		UsersJoined: []tele.User{joined, {ID: 7, FirstName: "Cy"}},
	}

	got := toMessage(m)
	if got.ChatID != -100 || got.ChatType != kit.ChatSuperGroup || got.IsPrivate() {
		t.Fatalf("chat mapping wrong: %+v", got)
	}
	if got.Body() != "/tts hi" {
		t.Fatalf("Body()=%q", got.Body())
	}
	if got.ReplyTo == nil || got.ReplyTo.From.ID != 6 || got.ReplyTo.Body() != "hola" {
		t.Fatalf("reply mapping wrong: %+v", got.ReplyTo)
	}
	if got.SenderChat == nil || got.SenderChat.ID != -100 || got.SenderChat.Title != "Lounge" || got.ReplyTo.SenderChat != nil {
		t.Fatalf("sender chat=%+v", got.SenderChat)
	}
	if len(got.NewMembers) != 2 || got.NewMembers[0].ID != 99 || got.NewMembers[1].ID != 7 {
		t.Fatalf("members=%+v", got.NewMembers)
	}
}

func TestParseUserID(t *testing.T) {
	t.Parallel()

	if id, ok := parseUserID(" 12345 "); !ok || id != 12345 {
		t.Fatalf("parseUserID numeric = %d %v", id, ok)
	}
	if _, ok := parseUserID("@someone"); ok {
		t.Fatalf("username must not parse as id")
	}
}
