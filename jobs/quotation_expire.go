package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vantage-crm/vantage-crm/internal/crm/quotations"
)

// QuotationExpireJob moves overdue quotations into EXPIRED.
type QuotationExpireJob struct {
	Service *quotations.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewQuotationExpireJob initialises the expiry sweep handler.
func NewQuotationExpireJob(service *quotations.Service, logger *slog.Logger) *QuotationExpireJob {
	return &QuotationExpireJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one expiry sweep.
func (j *QuotationExpireJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("quotation expire: handler not configured")
	}
	var payload QuotationExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.clock()
	}

	start := j.clock()
	expired, err := j.Service.ExpireOverdue(ctx, asOf)
	if err != nil {
		j.logger().Error("expiry sweep failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("expiry sweep completed",
		slog.Int("expired", expired),
		slog.Duration("duration", j.clock().Sub(start)),
	)
	return nil
}

func (j *QuotationExpireJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
