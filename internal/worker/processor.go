// Package worker runs the notification dispatcher for queued orders and
// records the outcome on the order.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/queue"
)

// OrderStore is the part of the orders store the worker needs.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	UpdateNotifications(ctx context.Context, orderID string, ns orders.NotificationStatus) error
}

// Dispatcher sends the notifications for one order.
type Dispatcher interface {
	Dispatch(ctx context.Context, o *orders.Order) *notify.Result
}

// MetricsPublisher receives per-dispatch outcome counts.
type MetricsPublisher interface {
	PublishCounts(ctx context.Context, counts map[string]float64, dims map[string]string) error
}

// Processor handles notification jobs from SQS or the local queue.
type Processor struct {
	store      OrderStore
	dispatcher Dispatcher
	metrics    MetricsPublisher
	logger     *zap.Logger
}

// NewProcessor creates a new worker processor. metrics may be nil.
func NewProcessor(store OrderStore, dispatcher Dispatcher, metrics MetricsPublisher, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle receives an SQS batch. Failed records are reported individually so
// Lambda only redelivers those; after the queue's maxReceiveCount they move
// to the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("worker record failed", zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	job, err := queue.Decode(rec.Body)
	if err != nil {
		return err
	}
	return p.Process(ctx, job)
}

// Process runs one job. A missing order is logged and dropped; a failure to
// persist the outcome is returned so the job is retried.
func (p *Processor) Process(ctx context.Context, job queue.Job) error {
	log := p.logger.With(zap.String("order_id", job.OrderID), zap.String("reason", job.Reason), zap.String("correlation_id", job.CorrelationID))
	log.Info("[worker] received job")

	_, err := p.Notify(ctx, job.OrderID, job.Reason == queue.ReasonResend)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, orders.ErrNotFound):
		log.Warn("[worker] order not found, dropping job")
		return nil
	default:
		return err
	}
}

// Notify dispatches notifications for orderID and persists the merged
// status. The returned Result is valid even when persisting fails.
func (p *Processor) Notify(ctx context.Context, orderID string, resend bool) (*notify.Result, error) {
	order, err := p.store.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", orders.ErrNotFound, orderID)
	}

	res := p.dispatcher.Dispatch(ctx, order)
	status := res.Status(order.Notifications, resend)

	p.publishMetrics(ctx, res, resend)

	if err := p.store.UpdateNotifications(ctx, orderID, status); err != nil {
		return res, fmt.Errorf("failed to persist notification status: %w", err)
	}
	p.logger.Info("[worker] notification status saved",
		zap.String("order_id", orderID),
		zap.String("customer_message", string(status.CustomerMessage)),
		zap.String("customer_email", string(status.CustomerEmail)),
		zap.String("business_message", string(status.BusinessMessage)),
		zap.String("business_email", string(status.BusinessEmail)),
		zap.Int("attempt", status.Attempts),
	)
	return res, nil
}

func (p *Processor) publishMetrics(ctx context.Context, res *notify.Result, resend bool) {
	if p.metrics == nil {
		return
	}
	counts := map[string]float64{}
	for outcome, n := range res.Counts() {
		counts[metricName(outcome)] = float64(n)
	}
	reason := queue.ReasonCreated
	if resend {
		reason = queue.ReasonResend
	}
	if err := p.metrics.PublishCounts(ctx, counts, map[string]string{"Reason": reason}); err != nil {
		p.logger.Warn("[worker] publish metrics failed", zap.String("order_id", res.OrderID), zap.Error(err))
	}
}

func metricName(o notify.Outcome) string {
	switch o {
	case notify.OutcomeSent:
		return "NotificationsSent"
	case notify.OutcomeFailed:
		return "NotificationsFailed"
	default:
		return "NotificationsSkipped"
	}
}
