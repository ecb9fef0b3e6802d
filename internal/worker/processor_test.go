package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsDynamo "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/queue"
)

// --- mock implementations ---

// mockDynamo keeps one orders table and applies notification_status updates.
type mockDynamo struct {
	mu        sync.Mutex
	items     map[string]map[string]types.AttributeValue
	updateErr error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) seed(t *testing.T, o orders.Order) {
	t.Helper()
	item, err := attributevalue.MarshalMap(o)
	require.NoError(t, err)
	m.items[o.OrderID] = item
}

func (m *mockDynamo) order(t *testing.T, id string) orders.Order {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var o orders.Order
	require.NoError(t, attributevalue.UnmarshalMap(m.items[id], &o))
	return o
}

func (m *mockDynamo) PutItem(ctx context.Context, in *awsDynamo.PutItemInput, optFns ...func(*awsDynamo.Options)) (*awsDynamo.PutItemOutput, error) {
	return &awsDynamo.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *awsDynamo.GetItemInput, optFns ...func(*awsDynamo.Options)) (*awsDynamo.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := in.Key["order_id"].(*types.AttributeValueMemberS).Value
	item, ok := m.items[k]
	if !ok {
		return &awsDynamo.GetItemOutput{}, nil
	}
	return &awsDynamo.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *awsDynamo.UpdateItemInput, optFns ...func(*awsDynamo.Options)) (*awsDynamo.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	k := in.Key["order_id"].(*types.AttributeValueMemberS).Value
	item, ok := m.items[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	item["notification_status"] = in.ExpressionAttributeValues[":ns"]
	item["updated_at"] = in.ExpressionAttributeValues[":ua"]
	return &awsDynamo.UpdateItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, in *awsDynamo.DeleteItemInput, optFns ...func(*awsDynamo.Options)) (*awsDynamo.DeleteItemOutput, error) {
	return &awsDynamo.DeleteItemOutput{}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, in *awsDynamo.ScanInput, optFns ...func(*awsDynamo.Options)) (*awsDynamo.ScanOutput, error) {
	return &awsDynamo.ScanOutput{}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, in *awsDynamo.TransactWriteItemsInput, optFns ...func(*awsDynamo.Options)) (*awsDynamo.TransactWriteItemsOutput, error) {
	return &awsDynamo.TransactWriteItemsOutput{}, nil
}

type stubMessenger struct {
	mu  sync.Mutex
	n   int
	err error
}

func (s *stubMessenger) SendMessage(ctx context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	if s.err != nil {
		return "", s.err
	}
	return "sms-1", nil
}

type recordingMetrics struct {
	counts map[string]float64
	dims   map[string]string
	err    error
}

func (r *recordingMetrics) PublishCounts(ctx context.Context, counts map[string]float64, dims map[string]string) error {
	r.counts = counts
	r.dims = dims
	return r.err
}

func pendingOrder(id string) orders.Order {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return orders.Order{
		OrderID:     id,
		OrderNumber: "ABCD2345",
		Items:       []orders.LineItem{{ProductRef: "p-1", Name: "Bun", UnitPrice: 20, Quantity: 5}},
		Customer: orders.CustomerInfo{
			Name:         "Ravi",
			Mobile:       "9123456789",
			Address:      "4 Park St",
			DeliveryType: orders.DeliveryTypeDelivery,
		},
		Subtotal:      100,
		DeliveryFee:   49,
		Tax:           5,
		Total:         154,
		PaymentMethod: orders.PaymentCOD,
		Status:        orders.StatusPending,
		Notifications: orders.PendingNotifications(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newTestProcessor(mock *mockDynamo, m notify.Messenger, metrics MetricsPublisher) *Processor {
	store := orders.NewStore(mock, "orders")
	d := notify.NewDispatcher(notify.Config{BusinessPhone: "7373042268", ChannelTimeout: time.Second}, nil, m, nil, zap.NewNop())
	return NewProcessor(store, d, metrics, zap.NewNop())
}

// --- test cases ---

func TestWorkerProcess_PersistsChannelOutcomes(t *testing.T) {
	mock := newMockDynamo()
	mock.seed(t, pendingOrder("o1"))
	metrics := &recordingMetrics{}
	p := newTestProcessor(mock, &stubMessenger{}, metrics)

	err := p.Process(context.Background(), queue.Job{OrderID: "o1", Reason: queue.ReasonCreated})
	require.NoError(t, err)

	ns := mock.order(t, "o1").Notifications
	assert.Equal(t, orders.ChannelSent, ns.CustomerMessage)
	assert.Equal(t, orders.ChannelSkipped, ns.CustomerEmail)
	assert.Equal(t, orders.ChannelSent, ns.BusinessMessage)
	assert.Equal(t, orders.ChannelSkipped, ns.BusinessEmail)
	assert.Equal(t, 1, ns.Attempts)
	assert.NotNil(t, ns.CompletedAt)

	assert.Equal(t, map[string]float64{"NotificationsSent": 2, "NotificationsSkipped": 2}, metrics.counts)
	assert.Equal(t, map[string]string{"Reason": queue.ReasonCreated}, metrics.dims)
}

func TestWorkerProcess_ResendMarksResent(t *testing.T) {
	mock := newMockDynamo()
	mock.seed(t, pendingOrder("o1"))
	m := &stubMessenger{}
	p := newTestProcessor(mock, m, nil)

	_, err := p.Notify(context.Background(), "o1", false)
	require.NoError(t, err)
	res, err := p.Notify(context.Background(), "o1", true)
	require.NoError(t, err)
	assert.True(t, res.CustomerMessageSent)

	ns := mock.order(t, "o1").Notifications
	assert.Equal(t, orders.ChannelResent, ns.CustomerMessage)
	assert.Equal(t, orders.ChannelResent, ns.BusinessMessage)
	assert.Equal(t, 2, ns.Attempts)
	assert.Equal(t, 4, m.n)
}

func TestWorkerProcess_FailedChannelsRecorded(t *testing.T) {
	mock := newMockDynamo()
	mock.seed(t, pendingOrder("o1"))
	p := newTestProcessor(mock, &stubMessenger{err: errors.New("sns throttled")}, nil)

	res, err := p.Notify(context.Background(), "o1", false)
	require.NoError(t, err)
	assert.False(t, res.CustomerMessageSent)

	ns := mock.order(t, "o1").Notifications
	assert.Equal(t, orders.ChannelFailed, ns.CustomerMessage)
	assert.Equal(t, orders.ChannelFailed, ns.BusinessMessage)
	assert.Contains(t, ns.LastError, "sns throttled")
}

func TestWorkerProcess_MissingOrderIsDropped(t *testing.T) {
	p := newTestProcessor(newMockDynamo(), &stubMessenger{}, nil)

	err := p.Process(context.Background(), queue.Job{OrderID: "missing", Reason: queue.ReasonCreated})
	assert.NoError(t, err)

	_, err = p.Notify(context.Background(), "missing", true)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestWorkerProcess_PersistFailureIsReturned(t *testing.T) {
	mock := newMockDynamo()
	mock.seed(t, pendingOrder("o1"))
	mock.updateErr = errors.New("dynamo unavailable")
	p := newTestProcessor(mock, &stubMessenger{}, nil)

	err := p.Process(context.Background(), queue.Job{OrderID: "o1", Reason: queue.ReasonCreated})
	assert.Error(t, err)
}

func TestWorkerProcess_MetricsFailureIsIgnored(t *testing.T) {
	mock := newMockDynamo()
	mock.seed(t, pendingOrder("o1"))
	p := newTestProcessor(mock, &stubMessenger{}, &recordingMetrics{err: errors.New("cw down")})

	require.NoError(t, p.Process(context.Background(), queue.Job{OrderID: "o1", Reason: queue.ReasonCreated}))
}

func TestWorkerHandle_ReportsBatchItemFailures(t *testing.T) {
	mock := newMockDynamo()
	mock.seed(t, pendingOrder("o1"))
	p := newTestProcessor(mock, &stubMessenger{}, nil)

	ev := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `{"order_id":"o1","reason":"created"}`},
		{MessageId: "m2", Body: `not json`},
		{MessageId: "m3", Body: `{"order_id":"gone","reason":"created"}`},
	}}

	resp, err := p.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m2", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, orders.ChannelSent, mock.order(t, "o1").Notifications.CustomerMessage)
}
