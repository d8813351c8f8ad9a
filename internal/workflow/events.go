package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frostline-scm/frostline/internal/order"
)

// TransitionEvent is emitted once per successful transition for delivery to
// interested parties. Delivery is fire-and-forget; the transition's own
// success never depends on it.
type TransitionEvent struct {
	OrderID   uuid.UUID    `json:"order_id"`
	OldStatus order.Status `json:"old_status"`
	NewStatus order.Status `json:"new_status"`
	Trigger   Trigger      `json:"trigger"`
	At        time.Time    `json:"at"`
}

// Notifier dispatches transition events to the notification sink. Errors are
// handled (logged) by implementations; the service never sees them.
type Notifier interface {
	OrderTransitioned(ctx context.Context, ev TransitionEvent)
}
