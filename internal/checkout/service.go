// Package checkout turns a canonical order request into a persisted order
// and hands notification work to the background pipeline.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/catalog"
	"github.com/imrishuroy/go-bakery-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/pricing"
	"github.com/imrishuroy/go-bakery-orderflow/internal/queue"
	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

// NotificationProcessing is the notification state reported at creation.
const NotificationProcessing = "processing"

// OrderRepository is the orders persistence used by checkout.
type OrderRepository interface {
	Create(ctx context.Context, order orders.Order) error
	CreateWithIdempotency(ctx context.Context, key string, order orders.Order) error
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	List(ctx context.Context, filter orders.ListFilter) ([]orders.Order, error)
	Update(ctx context.Context, orderID string, u orders.Update) (*orders.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// IdempotencyStore looks up and completes Idempotency-Key records.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
}

// Notifier dispatches notifications synchronously and persists the outcome.
type Notifier interface {
	Notify(ctx context.Context, orderID string, resend bool) (*notify.Result, error)
}

// Deps are the collaborators of a Service. Catalog and Idempotency are optional.
type Deps struct {
	Orders      OrderRepository
	Idempotency IdempotencyStore
	Catalog     catalog.Reader
	Queue       queue.Enqueuer
	Notifier    Notifier
	Calculator  *pricing.Calculator
	Validator   *validatorv10.Validate
	Logger      *zap.Logger
}

// Service implements order intake and the admin order operations.
type Service struct {
	orders      OrderRepository
	idempotency IdempotencyStore
	catalog     catalog.Reader
	queue       queue.Enqueuer
	notifier    Notifier
	calc        *pricing.Calculator
	validate    *validatorv10.Validate
	logger      *zap.Logger

	newID     func() string
	newNumber func() string
	now       func() time.Time
}

// NewService validates deps and builds a Service.
func NewService(d Deps) (*Service, error) {
	if d.Orders == nil {
		return nil, errors.New("checkout: orders repository is required")
	}
	if d.Queue == nil {
		return nil, errors.New("checkout: queue is required")
	}
	if d.Calculator == nil {
		calc, err := pricing.NewCalculator(pricing.DefaultRates)
		if err != nil {
			return nil, err
		}
		d.Calculator = calc
	}
	if d.Validator == nil {
		d.Validator = validation.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		orders:      d.Orders,
		idempotency: d.Idempotency,
		catalog:     d.Catalog,
		queue:       d.Queue,
		notifier:    d.Notifier,
		calc:        d.Calculator,
		validate:    d.Validator,
		logger:      d.Logger,
		newID:       uuid.NewString,
		newNumber:   NewOrderNumber,
		now:         time.Now,
	}, nil
}

// Created is the result of CreateOrder.
type Created struct {
	Order             *orders.Order
	NotificationState string
	// Replayed is set when an Idempotency-Key matched an earlier order.
	Replayed bool
}

// Quote is a priced cart.
type Quote struct {
	pricing.Breakdown
	Items             []orders.LineItem `json:"items"`
	EstimatedDelivery string            `json:"estimatedDelivery"`
}

func (s *Service) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return &ValidationError{Fields: validation.Fields(err)}
	}
	return nil
}

// snapshot copies catalog data into line items. Without a catalog the
// submitted items are the snapshot.
func (s *Service) snapshot(ctx context.Context, items []validation.Item) ([]orders.LineItem, error) {
	out := make([]orders.LineItem, 0, len(items))
	fields := map[string]string{}
	for i, it := range items {
		li := orders.LineItem{
			ProductRef:  it.ProductRef,
			Name:        it.Name,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			ImageRef:    it.ImageRef,
			WeightLabel: it.WeightLabel,
		}
		if s.catalog != nil {
			p, err := s.catalog.Get(ctx, it.ProductRef)
			switch {
			case errors.Is(err, catalog.ErrProductNotFound):
				fields[fmt.Sprintf("items[%d].productRef", i)] = "is not a known product"
				continue
			case err != nil:
				return nil, fmt.Errorf("catalog lookup %s: %w", it.ProductRef, err)
			case !p.IsAvailable:
				fields[fmt.Sprintf("items[%d].productRef", i)] = "is currently unavailable"
				continue
			}
			li.Name = p.Name
			li.UnitPrice = p.Price
			if p.Image != "" {
				li.ImageRef = p.Image
			}
		}
		out = append(out, li)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return out, nil
}

func (s *Service) price(items []orders.LineItem, deliveryType string) (pricing.Breakdown, error) {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	b, err := s.calc.Compute(lines, deliveryType, nil)
	if err != nil {
		return pricing.Breakdown{}, &ValidationError{Fields: map[string]string{"items": err.Error()}}
	}
	return b, nil
}

// Quote prices a cart with the same calculator order creation uses.
func (s *Service) Quote(ctx context.Context, req validation.QuoteRequest) (*Quote, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	items, err := s.snapshot(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	b, err := s.price(items, req.DeliveryType)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Items:             items,
		Breakdown:         b,
		EstimatedDelivery: pricing.EstimateDelivery(orders.TotalUnits(items), req.DeliveryType),
	}, nil
}

// CreateOrder validates req, prices it server side, persists a pending order
// and enqueues its notifications. The caller never waits on delivery.
func (s *Service) CreateOrder(ctx context.Context, req validation.CreateOrderRequest, idempotencyKey string) (*Created, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if s.idempotency == nil {
			return nil, errors.New("checkout: idempotency store not configured")
		}
		if c, err := s.replay(ctx, idempotencyKey); c != nil || err != nil {
			return c, err
		}
	}

	items, err := s.snapshot(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	b, err := s.price(items, req.Customer.DeliveryType)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("idempotency_key", idempotencyKey))
	if req.ClientTotal != nil && !pricing.SameAmount(*req.ClientTotal, b.Total) {
		log.Warn("client total differs from server total; using server total",
			zap.Float64("client_total", *req.ClientTotal),
			zap.Float64("server_total", b.Total),
		)
	}

	now := s.now().UTC()
	order := orders.Order{
		OrderID:     s.newID(),
		OrderNumber: s.newNumber(),
		Items:       items,
		Customer: orders.CustomerInfo{
			Name:                 req.Customer.Name,
			Mobile:               req.Customer.Mobile,
			Email:                req.Customer.Email,
			Address:              req.Customer.Address,
			Landmark:             req.Customer.Landmark,
			DeliveryInstructions: req.Customer.DeliveryInstructions,
			DeliveryType:         req.Customer.DeliveryType,
		},
		Subtotal:          b.Subtotal,
		DeliveryFee:       b.DeliveryFee,
		Tax:               b.Tax,
		Total:             b.Total,
		PaymentMethod:     orders.PaymentMethod(req.PaymentMethod),
		Status:            orders.StatusPending,
		EstimatedDelivery: pricing.EstimateDelivery(orders.TotalUnits(items), req.Customer.DeliveryType),
		Notifications:     orders.PendingNotifications(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	log = log.With(zap.String("order_id", order.OrderID))

	if idempotencyKey != "" {
		err = s.orders.CreateWithIdempotency(ctx, idempotencyKey, order)
		if errors.Is(err, orders.ErrIdempotencyConflict) {
			// lost a race with a concurrent request using the same key
			if c, rerr := s.replay(ctx, idempotencyKey); c != nil || rerr != nil {
				return c, rerr
			}
			return nil, ErrRequestInProgress
		}
	} else {
		err = s.orders.Create(ctx, order)
	}
	if err != nil {
		log.Error("failed to persist order", zap.Error(err))
		return nil, fmt.Errorf("persist order: %w", err)
	}
	log.Info("order created", zap.String("order_number", order.OrderNumber), zap.Float64("total", order.Total))

	correlationID := idempotencyKey
	if correlationID == "" {
		correlationID = order.OrderID
	}
	if err := s.queue.Enqueue(ctx, queue.Job{OrderID: order.OrderID, Reason: queue.ReasonCreated, CorrelationID: correlationID}); err != nil {
		// the order stands; notifications can be resent by an admin
		log.Error("failed to enqueue notifications", zap.Error(err))
	}

	if idempotencyKey != "" {
		body, _ := json.Marshal(map[string]string{"orderId": order.OrderID, "orderNumber": order.OrderNumber})
		if err := s.idempotency.MarkDone(ctx, idempotencyKey, string(body), http.StatusCreated); err != nil {
			log.Warn("failed to mark idempotency key done", zap.Error(err))
		}
	}

	return &Created{Order: &order, NotificationState: NotificationProcessing}, nil
}

// replay returns the order an idempotency key already created, nil when the
// key is unknown, or ErrRequestInProgress when the order is not readable.
func (s *Service) replay(ctx context.Context, key string) (*Created, error) {
	rec, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	o, err := s.orders.Get(ctx, rec.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get replayed order: %w", err)
	}
	if o == nil {
		return nil, ErrRequestInProgress
	}
	s.logger.Info("idempotent replay", zap.String("idempotency_key", key), zap.String("order_id", o.OrderID))
	return &Created{Order: o, NotificationState: NotificationProcessing, Replayed: true}, nil
}

// Get returns an order or orders.ErrNotFound.
func (s *Service) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string, limit int) ([]orders.Order, error) {
	filter := orders.ListFilter{Limit: limit}
	if status != "" {
		st, err := orders.ParseStatus(status)
		if err != nil {
			return nil, fieldError("status", "must be one of the order statuses")
		}
		filter.Status = st
	}
	out, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []orders.Order{}
	}
	return out, nil
}

// Update applies admin edits. Items and totals cannot be changed.
func (s *Service) Update(ctx context.Context, orderID string, u orders.Update) (*orders.Order, error) {
	if u.Empty() {
		return nil, fieldError("body", "must change status, landmark or deliveryInstructions")
	}
	if u.Status != nil {
		if _, err := orders.ParseStatus(string(*u.Status)); err != nil {
			return nil, fieldError("status", "must be one of the order statuses")
		}
	}
	o, err := s.orders.Update(ctx, orderID, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order updated", zap.String("order_id", orderID))
	return o, nil
}

// UpdateStatus moves an order to status. Any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*orders.Order, error) {
	st, err := orders.ParseStatus(status)
	if err != nil {
		return nil, fieldError("status", "must be one of the order statuses")
	}
	return s.Update(ctx, orderID, orders.Update{Status: &st})
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.String("order_id", orderID))
	return nil
}

// ResendNotifications dispatches every channel again and waits for the
// result. Each call sends again.
func (s *Service) ResendNotifications(ctx context.Context, orderID string) (*notify.Result, error) {
	if s.notifier == nil {
		return nil, errors.New("checkout: notifier not configured")
	}
	return s.notifier.Notify(ctx, orderID, true)
}

// NotificationStatus returns the persisted notification state of an order.
func (s *Service) NotificationStatus(ctx context.Context, orderID string) (orders.NotificationStatus, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return orders.NotificationStatus{}, err
	}
	return o.Notifications, nil
}
