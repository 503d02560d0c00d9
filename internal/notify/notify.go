// Package notify delivers human-facing status messages. Delivery is
// best effort on every implementation: a dead notifier must never
// slow down or fail a trade.
package notify

import "context"

// Notifier sends one text message to an out-of-band channel.
type Notifier interface {
	Send(ctx context.Context, text string)
}

// Nop discards every message. Used when no channel is configured.
type Nop struct{}

func (Nop) Send(context.Context, string) {}
