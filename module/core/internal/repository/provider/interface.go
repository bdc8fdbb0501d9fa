package provider

import (
	"context"

	"github.com/nandanugg/gird/module/core/domain"
)

// PositionProvider accepts subscription requests. Requests are fire-and-forget:
// fixes arrive asynchronously through a separate delivery path.
type PositionProvider interface {
	RequestUpdates(ctx context.Context, sub domain.Subscription) error
	RemoveUpdates(ctx context.Context, subscriptionID string) error
}
