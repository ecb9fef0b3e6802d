package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/idempotency"
)

var (
	// ErrNotFound is returned by mutations on a missing order.
	ErrNotFound = errors.New("order not found")
	// ErrIdempotencyConflict means the idempotency key was already used.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	// ErrAlreadyExists means an order with the same id exists.
	ErrAlreadyExists = errors.New("order already exists")
	// ErrInvalidStatus is returned for values outside the status enum.
	ErrInvalidStatus = errors.New("invalid order status")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client           aws.DynamoDBAPI
	tableName        string
	idempotencyTable string
	idempotencyTTL   time.Duration
	nowFunc          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIdempotency enables CreateWithIdempotency against table, with records expiring after ttl.
func WithIdempotency(table string, ttl time.Duration) Option {
	return func(s *Store) {
		s.idempotencyTable = table
		s.idempotencyTTL = ttl
	}
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string, opts ...Option) *Store {
	s := &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stamp(order *Order) {
	now := s.nowFunc().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
}

// Create writes a new order. It never overwrites an existing order_id.
func (s *Store) Create(ctx context.Context, order Order) error {
	s.stamp(&order)
	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		if conditionFailed(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// CreateWithIdempotency atomically creates:
//   - an IN_PROGRESS idempotency record for key, unless a live record exists
//   - the order record in the orders table
//
// It returns ErrIdempotencyConflict when the key is already present.
func (s *Store) CreateWithIdempotency(ctx context.Context, key string, order Order) error {
	if s.idempotencyTable == "" {
		return errors.New("idempotency table not configured")
	}
	s.stamp(&order)

	rec := idempotency.NewRecord(key, order.OrderID, order.CreatedAt, s.idempotencyTTL)
	idempMap, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency item: %w", err)
	}

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName: &s.idempotencyTable,
				Item:      idempMap,
				// expired records may linger until DynamoDB TTL removes them
				ConditionExpression: awsString("attribute_not_exists(idempotency_key) OR expires_at <= :now"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(order.CreatedAt.Unix(), 10)},
				},
			},
		},
		{
			Put: &types.Put{
				TableName:           &s.tableName,
				Item:                orderMap,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		if transactionCanceled(err) {
			return fmt.Errorf("%w: %v", ErrIdempotencyConflict, err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	key := map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            key,
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// List scans the table and returns orders newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	input := &dyn.ScanInput{TableName: &s.tableName}
	if filter.Status != "" {
		input.FilterExpression = awsString("#s = :st")
		input.ExpressionAttributeNames = map[string]string{"#s": "status"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: string(filter.Status)},
		}
	}

	var out []Order
	for {
		page, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateStatus sets the order status unconditionally (any status to any status).
// Returns ErrNotFound if the order does not exist.
func (s *Store) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	return s.Update(ctx, orderID, Update{Status: &status})
}

// Update applies the non-nil fields of u and returns the updated order.
func (s *Store) Update(ctx context.Context, orderID string, u Update) (*Order, error) {
	if u.Status != nil {
		if _, err := ParseStatus(string(*u.Status)); err != nil {
			return nil, err
		}
	}

	sets := []string{"updated_at = :ua"}
	names := map[string]string{}
	values := map[string]types.AttributeValue{
		":ua": &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
	}
	if u.Status != nil {
		sets = append(sets, "#s = :st")
		names["#s"] = "status"
		values[":st"] = &types.AttributeValueMemberS{Value: string(*u.Status)}
	}
	if u.Landmark != nil {
		sets = append(sets, "customer_info.landmark = :lm")
		values[":lm"] = &types.AttributeValueMemberS{Value: *u.Landmark}
	}
	if u.DeliveryInstructions != nil {
		sets = append(sets, "customer_info.delivery_instructions = :di")
		values[":di"] = &types.AttributeValueMemberS{Value: *u.DeliveryInstructions}
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          awsString("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("attribute_exists(order_id)"),
		ReturnValues:              types.ReturnValueAllNew,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	return s.applyUpdate(ctx, input)
}

// UpdateNotifications replaces the notification status of an order.
func (s *Store) UpdateNotifications(ctx context.Context, orderID string, ns NotificationStatus) error {
	nsAttr, err := attributevalue.Marshal(ns)
	if err != nil {
		return fmt.Errorf("marshal notification status: %w", err)
	}
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET notification_status = :ns, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ns": nsAttr,
			":ua": &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
	}
	_, err = s.applyUpdate(ctx, input)
	return err
}

func (s *Store) applyUpdate(ctx context.Context, input *dyn.UpdateItemInput) (*Order, error) {
	out, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if conditionFailed(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	if len(out.Attributes) == 0 || input.ReturnValues != types.ReturnValueAllNew {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// Delete removes an order. Returns ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, orderID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
	})
	if err != nil {
		if conditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
