// Package notify pushes state-change alerts to live subscribers after a
// moderation mutation commits. Delivery is at-most-once and strictly
// best-effort: the persisted state and audit trail are already correct by the
// time this package runs, and nothing here may undo that.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pressroom/internal/moderation/models"
	"pressroom/internal/notify/metrics"
	"pressroom/internal/notify/registry"
	"pressroom/pkg/requestcontext"
)

// Counter recomputes the authoritative unread count for a user.
type Counter interface {
	CountAssignedActive(ctx context.Context, userID string) (int, error)
}

// Notifier fans one mutation out to the interested parties.
type Notifier struct {
	registry registry.Registry
	counts   Counter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewNotifier(reg registry.Registry, counts Counter, m *metrics.Metrics, logger *slog.Logger) *Notifier {
	return &Notifier{
		registry: reg,
		counts:   counts,
		metrics:  m,
		logger:   logger,
	}
}

// EventMutated pushes alerts for one successfully mutated event.
//
// Assignee leg: notification:new plus a recomputed notification:count -
// assignees own work, so their counter follows every mutation. Author leg:
// a retyped notification:new only; authors are informed, not task owners.
//
// The returned error exists for the caller to log and discard. Partial
// delivery is normal operation, not a failure of the mutation.
func (n *Notifier) EventMutated(ctx context.Context, ev *models.ModerationEvent, action models.Action) error {
	payload := NewPayload(ev, action, requestcontext.Now(ctx))

	// Legs run concurrently but independently: no shared context
	// cancellation, one leg's failure must not cut the other short.
	var g errgroup.Group

	if ev.AssignedTo != nil && *ev.AssignedTo != "" {
		assignee := *ev.AssignedTo
		g.Go(func() error {
			return n.pushAssignee(ctx, assignee, payload)
		})
	}

	if ev.AuthorID != nil && *ev.AuthorID != "" {
		author := *ev.AuthorID
		g.Go(func() error {
			return n.push(ctx, registry.UserChannel(author), EventNew, payload.ForAuthor())
		})
	}

	return g.Wait()
}

// pushAssignee delivers the alert and then the refreshed counter. The count
// is recomputed from the store after the mutation and pushed as an absolute
// replacement value.
func (n *Notifier) pushAssignee(ctx context.Context, assignee string, payload Payload) error {
	channel := registry.UserChannel(assignee)

	pushErr := n.push(ctx, channel, EventNew, payload)

	count, err := n.counts.CountAssignedActive(ctx, assignee)
	if err != nil {
		n.metrics.IncrementPush(EventCount, "failed")
		n.logger.WarnContext(ctx, "unread count recompute failed",
			"user_id", assignee,
			"error", err,
		)
		return errors.Join(pushErr, fmt.Errorf("recompute unread count: %w", err))
	}

	return errors.Join(pushErr, n.push(ctx, channel, EventCount, CountPayload{Count: count}))
}

func (n *Notifier) push(ctx context.Context, channel, event string, payload any) error {
	delivered, err := n.registry.Publish(ctx, channel, event, payload)
	switch {
	case err != nil:
		n.metrics.IncrementPush(event, "failed")
		return fmt.Errorf("push %s to %s: %w", event, channel, err)
	case delivered == 0:
		n.metrics.IncrementPush(event, "no_subscriber")
	default:
		n.metrics.IncrementPush(event, "delivered")
	}
	return nil
}
