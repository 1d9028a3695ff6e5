package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotationNotify carries one quotation status-change event to
	// the notification dispatcher.
	TaskQuotationNotify = "crm:quotation:notify"
	// TaskQuotationExpire sweeps overdue quotations into EXPIRED.
	TaskQuotationExpire = "crm:quotation:expire"
)

// QuotationNotifyPayload describes a status-change event. EventID is
// stable per enqueue so downstream dispatchers can deduplicate.
type QuotationNotifyPayload struct {
	EventID     string    `json:"event_id"`
	Event       string    `json:"event"`
	QuotationID int64     `json:"quotation_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewQuotationNotifyTask constructs an Asynq task for one event.
func NewQuotationNotifyTask(payload QuotationNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationNotify, data), nil
}

// QuotationExpirePayload parameterizes the expiry sweep.
type QuotationExpirePayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewQuotationExpireTask constructs the sweep task. A zero AsOf means
// "now" at processing time.
func NewQuotationExpireTask(asOf time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(QuotationExpirePayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationExpire, data), nil
}
