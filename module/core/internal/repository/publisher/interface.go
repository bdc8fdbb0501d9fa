package publisher

import (
	"context"

	"github.com/nandanugg/gird/module/core/domain"
)

// Notifier delivers a user-visible transition notification. It is called once per
// committed transition and never retried.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}
