// Package queue defers notification work until after the order response.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Reasons a job was enqueued.
const (
	ReasonCreated = "created"
	ReasonResend  = "resend"
)

// Job is the payload sent from the API to the notification worker.
type Job struct {
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Validate reports whether j can be processed.
func (j Job) Validate() error {
	if j.OrderID == "" {
		return errors.New("job: order_id is required")
	}
	switch j.Reason {
	case ReasonCreated, ReasonResend:
		return nil
	default:
		return fmt.Errorf("job: unknown reason %q", j.Reason)
	}
}

// Decode parses a queue message body.
func Decode(body string) (Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(body), &j); err != nil {
		return Job{}, fmt.Errorf("invalid message body: %w", err)
	}
	if j.Reason == "" {
		j.Reason = ReasonCreated
	}
	return j, j.Validate()
}

// Enqueuer hands a job to the background notification pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Handler processes one job.
type Handler interface {
	Process(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

// Process calls f.
func (f HandlerFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }
