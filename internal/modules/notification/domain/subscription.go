package domain

import (
	"context"

	"github.com/google/uuid"
)

// Subscription is a live handle on a user's insert stream. It must be
// closed on every exit path of its consumer; an unclosed subscription
// leaks a standing connection to the event source.
type Subscription interface {
	Close() error
}

// Subscriber opens a per-user stream of newly inserted notifications.
// handler is invoked once per insert, in delivery order.
type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID, handler func(Notification)) (Subscription, error)
}
