package transport

import (
	"errors"
	"fmt"
	"time"
)

// DeliveryKind categorises a failed delivery.
type DeliveryKind int

const (
	DeliveryFailed DeliveryKind = iota
	// DeliveryRateLimited carries a mandated wait in RetryAfter.
	DeliveryRateLimited
	// DeliveryUnreachable means the target will not accept messages again:
	// blocked the bot, deactivated, or an invalid peer.
	DeliveryUnreachable
)

func (k DeliveryKind) String() string {
	switch k {
	case DeliveryRateLimited:
		return "rate_limited"
	case DeliveryUnreachable:
		return "unreachable"
	default:
		return "failed"
	}
}

// DeliveryError is returned by adapters for failed sends and forwards.
type DeliveryError struct {
	Kind       DeliveryKind
	RetryAfter time.Duration
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Kind == DeliveryRateLimited {
		return fmt.Sprintf("delivery %s (retry after %s): %v", e.Kind, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("delivery %s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ClassifyDelivery returns the category of err. Errors that are not a
// *DeliveryError count as DeliveryFailed.
func ClassifyDelivery(err error) (DeliveryKind, time.Duration) {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind, de.RetryAfter
	}
	return DeliveryFailed, 0
}
