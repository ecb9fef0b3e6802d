package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory mock for GetItem/UpdateItem.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	getCalls    int
	updateCalls int
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	return nil, errors.New("not used")
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	return nil, errors.New("not used")
}

func (m *simpleMock) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	return nil, errors.New("not used")
}

func (m *simpleMock) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	return nil, errors.New("not used")
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	keyAttr := params.Key["idempotency_key"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	keyAttr := params.Key["idempotency_key"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	if !ok {
		return nil, errors.New("item not found")
	}
	if v, ok := params.ExpressionAttributeValues[":rb"]; ok {
		item["response_body"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":rs"]; ok {
		item["response_status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":done"]; ok {
		item["status"] = v
	}
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *simpleMock) seed(t *testing.T, rec Record) {
	t.Helper()
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m.table[rec.IdempotencyKey] = item
}

func TestGet_MarkDone(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table")
	ctx := context.Background()

	now := time.Now()
	mock.seed(t, NewRecord("test-key-1", "order-123", now, 48*time.Hour))

	rec, err := s.Get(ctx, "test-key-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.OrderID != "order-123" {
		t.Fatalf("order id mismatch")
	}

	if err := s.MarkDone(ctx, "test-key-1", `{"id":"order-123"}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	item := mock.table["test-key-1"]
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusDone {
		t.Fatalf("status not updated to DONE, got %+v", item["status"])
	}
	if rb, ok := item["response_body"].(*types.AttributeValueMemberS); !ok || rb.Value != `{"id":"order-123"}` {
		t.Fatalf("response_body not set correctly: %+v", item["response_body"])
	}

	rec, err = s.Get(ctx, "test-key-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.ResponseStatus != 201 {
		t.Fatalf("expected response status 201, got %d", rec.ResponseStatus)
	}
}

func TestGet_MissingKey(t *testing.T) {
	s := NewStore(newSimpleMock(), "idempotency-table")

	rec, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestGet_ExpiredRecordIsIgnored(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table")
	mock.seed(t, NewRecord("old", "order-1", time.Now().Add(-72*time.Hour), 48*time.Hour))

	rec, err := s.Get(context.Background(), "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected expired record to be ignored")
	}
}

func TestRecordExpired_Boundary(t *testing.T) {
	created := time.Unix(1_700_000_000, 0)
	rec := NewRecord("k", "order-1", created, time.Hour)

	if rec.Expired(created.Add(time.Hour - time.Second)) {
		t.Fatalf("record must be live before expires_at")
	}
	// the orders store replaces records with expires_at <= now, so the same
	// second counts as expired here
	if !rec.Expired(created.Add(time.Hour)) {
		t.Fatalf("record must be expired at expires_at")
	}
}
