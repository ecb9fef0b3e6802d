package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
)

// SQSQueue publishes jobs to an SQS queue consumed by the worker Lambda.
type SQSQueue struct {
	publisher    *aws.Publisher
	delaySeconds int32
}

// NewSQSQueue returns an Enqueuer that sends through publisher.
func NewSQSQueue(publisher *aws.Publisher, delaySeconds int32) *SQSQueue {
	return &SQSQueue{publisher: publisher, delaySeconds: delaySeconds}
}

// Enqueue sends job as a JSON message.
func (q *SQSQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	attrs := map[string]string{
		"order_id":       job.OrderID,
		"reason":         job.Reason,
		"correlation_id": job.CorrelationID,
	}
	if _, err := q.publisher.Send(ctx, string(b), attrs, q.delaySeconds); err != nil {
		return fmt.Errorf("enqueue order %s: %w", job.OrderID, err)
	}
	return nil
}
