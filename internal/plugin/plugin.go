// Package plugin collects the bot's feature plugins into one routing table
// and runs their optional lifecycle hooks.
package plugin

import (
	"context"

	"evara/internal/transport/telegram/router"
)

type Plugin interface {
	Name() string
	Commands() []router.Command
}

type CallbackProvider interface {
	Callbacks() []router.CallbackRoute
}

// Events are the non-command handlers. Only one plugin may claim each.
type Events struct {
	Join     router.HandlerFunc
	Fallback router.HandlerFunc
}

type EventProvider interface {
	Events() Events
}

// Lifecycle is implemented by plugins that own background work.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
