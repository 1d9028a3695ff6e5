package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// QuotationNotifyJob delivers status-change events. The actual delivery
// transport (mail, webhooks) is an external collaborator; this handler
// is the seam where it plugs in.
type QuotationNotifyJob struct {
	Logger *slog.Logger
}

// NewQuotationNotifyJob initialises the notify handler.
func NewQuotationNotifyJob(logger *slog.Logger) *QuotationNotifyJob {
	return &QuotationNotifyJob{Logger: logger}
}

// Handle processes TaskQuotationNotify tasks.
func (j *QuotationNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("quotation notify: handler not configured")
	}
	var payload QuotationNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	j.logger().Info("quotation event delivered",
		slog.String("event_id", payload.EventID),
		slog.String("event", payload.Event),
		slog.Int64("quotation_id", payload.QuotationID),
		slog.Time("occurred_at", payload.OccurredAt),
	)
	return nil
}

func (j *QuotationNotifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
