// Package notify publishes quotation lifecycle events to the job queue.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/vantage-crm/vantage-crm/jobs"
)

// Enqueuer is the slice of the asynq client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier enqueues status-change events, fire-and-forget: enqueue
// failures are logged and swallowed so they can never fail the
// business transaction that produced the event.
type Notifier struct {
	client Enqueuer
	logger *slog.Logger
	now    func() time.Time
}

// NewNotifier builds a Notifier. A nil client disables publishing.
func NewNotifier(client Enqueuer, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger, now: time.Now}
}

// QuotationEvent publishes one event for the given quotation.
func (n *Notifier) QuotationEvent(ctx context.Context, event string, quotationID int64) {
	if n == nil || n.client == nil {
		return
	}
	payload := jobs.QuotationNotifyPayload{
		EventID:     uuid.NewString(),
		Event:       event,
		QuotationID: quotationID,
		OccurredAt:  n.now(),
	}
	task, err := jobs.NewQuotationNotifyTask(payload)
	if err != nil {
		n.warn(event, quotationID, err)
		return
	}
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(5)); err != nil {
		n.warn(event, quotationID, err)
	}
}

func (n *Notifier) warn(event string, quotationID int64, err error) {
	if n.logger == nil {
		return
	}
	n.logger.Warn("quotation event dropped",
		slog.String("event", event),
		slog.Int64("quotation_id", quotationID),
		slog.Any("error", err),
	)
}
