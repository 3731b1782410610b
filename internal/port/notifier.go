package port

import (
	"context"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

// Notifier receives cart outcomes for display. Implementations must not block
// the caller for long and report delivery problems on their own.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}
