package adapter

import (
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "evara/internal/transport"
)

var unreachable = []error{
	tele.ErrBlockedByUser,
	tele.ErrUserIsDeactivated,
	tele.ErrNotStartedByUser,
	tele.ErrChatNotFound,
}

// Descriptions that mean the same as the errors above, for API texts
// telebot does not map to a sentinel.
var unreachableText = []string{
	"bot was blocked by the user",
	"user is deactivated",
	"chat not found",
	"peer_id_invalid",
	"bot can't initiate conversation",
}

// classify wraps a telebot error in a *kit.DeliveryError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var fe tele.FloodError
	if errors.As(err, &fe) {
		return &kit.DeliveryError{Kind: kit.DeliveryRateLimited, RetryAfter: time.Duration(fe.RetryAfter) * time.Second, Err: err}
	}
	var fp *tele.FloodError
	if errors.As(err, &fp) && fp != nil {
		return &kit.DeliveryError{Kind: kit.DeliveryRateLimited, RetryAfter: time.Duration(fp.RetryAfter) * time.Second, Err: err}
	}
	for _, target := range unreachable {
		if errors.Is(err, target) {
			return &kit.DeliveryError{Kind: kit.DeliveryUnreachable, Err: err}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, s := range unreachableText {
		if strings.Contains(msg, s) {
			return &kit.DeliveryError{Kind: kit.DeliveryUnreachable, Err: err}
		}
	}
	return &kit.DeliveryError{Kind: kit.DeliveryFailed, Err: err}
}

// isLookupMiss reports whether a getChat error means "no such chat".
func isLookupMiss(err error) bool {
	var te *tele.Error
	if errors.As(err, &te) && te.Code == 400 {
		return true
	}
	return errors.Is(err, tele.ErrChatNotFound) ||
		strings.Contains(strings.ToLower(err.Error()), "not found")
}
