// Package notify fans out workflow transition events to the background job
// queue. Delivery is fire-and-forget: an enqueue failure is logged and never
// surfaces to the transition that produced the event.
package notify

import (
	"context"
	"log/slog"

	"github.com/frostline-scm/frostline/internal/workflow"
	"github.com/frostline-scm/frostline/jobs"
)

// AsynqNotifier enqueues transition events as background tasks.
type AsynqNotifier struct {
	client *jobs.Client
	logger *slog.Logger
}

// NewAsynqNotifier creates a notifier backed by the jobs client.
func NewAsynqNotifier(client *jobs.Client, logger *slog.Logger) *AsynqNotifier {
	return &AsynqNotifier{client: client, logger: logger}
}

// OrderTransitioned enqueues the event. Failures are logged only.
func (n *AsynqNotifier) OrderTransitioned(ctx context.Context, ev workflow.TransitionEvent) {
	if n.client == nil {
		return
	}
	_, err := n.client.EnqueueOrderTransition(ctx, jobs.OrderTransitionPayload{
		OrderID:   ev.OrderID.String(),
		OldStatus: string(ev.OldStatus),
		NewStatus: string(ev.NewStatus),
		Trigger:   string(ev.Trigger),
		At:        ev.At,
	})
	if err != nil {
		n.logger.Warn("transition notification enqueue failed",
			slog.String("order_id", ev.OrderID.String()),
			slog.Any("error", err))
	}
}
