package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/vantage-crm/vantage-crm/jobs"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestQuotationEventEnqueues(t *testing.T) {
	client := &fakeEnqueuer{}
	n := NewNotifier(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n.QuotationEvent(context.Background(), "quotation.accepted", 42)

	require.Len(t, client.tasks, 1)
	task := client.tasks[0]
	require.Equal(t, jobs.TaskQuotationNotify, task.Type())

	var payload jobs.QuotationNotifyPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "quotation.accepted", payload.Event)
	require.Equal(t, int64(42), payload.QuotationID)
	require.NotEmpty(t, payload.EventID)
	require.False(t, payload.OccurredAt.IsZero())
}

func TestQuotationEventDistinctEventIDs(t *testing.T) {
	client := &fakeEnqueuer{}
	n := NewNotifier(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n.QuotationEvent(context.Background(), "quotation.sent", 1)
	n.QuotationEvent(context.Background(), "quotation.sent", 1)
	require.Len(t, client.tasks, 2)

	var first, second jobs.QuotationNotifyPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &first))
	require.NoError(t, json.Unmarshal(client.tasks[1].Payload(), &second))
	require.NotEqual(t, first.EventID, second.EventID)
}

func TestQuotationEventSwallowsEnqueueFailure(t *testing.T) {
	client := &fakeEnqueuer{err: errors.New("redis down")}
	n := NewNotifier(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NotPanics(t, func() {
		n.QuotationEvent(context.Background(), "quotation.sent", 7)
	})
	require.Empty(t, client.tasks)
}

func TestQuotationEventNilClient(t *testing.T) {
	n := NewNotifier(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotPanics(t, func() {
		n.QuotationEvent(context.Background(), "quotation.sent", 7)
	})
}
