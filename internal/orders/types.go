package orders

import (
	"fmt"
	"time"
)

// Status is the order lifecycle state. Orders start at StatusPending; every
// other transition is admin driven and unconstrained.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out for delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

// ParseStatus validates s against the status enum.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Terminal reports whether s is conventionally final. Not enforced.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

// Label is the customer-facing payment description.
func (p PaymentMethod) Label() string {
	if p == PaymentCOD {
		return "Cash on Delivery"
	}
	return "Online Payment"
}

// Delivery types.
const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "self-pickup"
)

// LineItem is a snapshot of a product at order time. Later catalog changes
// never touch it.
type LineItem struct {
	ProductRef  string  `dynamodbav:"product_ref" json:"productRef"`
	Name        string  `dynamodbav:"name" json:"name"`
	UnitPrice   float64 `dynamodbav:"unit_price" json:"unitPrice"`
	Quantity    int     `dynamodbav:"quantity" json:"quantity"`
	ImageRef    string  `dynamodbav:"image_ref,omitempty" json:"imageRef,omitempty"`
	WeightLabel string  `dynamodbav:"weight_label,omitempty" json:"weightLabel,omitempty"`
}

// CustomerInfo is the canonical customer contact shape.
type CustomerInfo struct {
	Name                 string `dynamodbav:"name" json:"name"`
	Mobile               string `dynamodbav:"mobile" json:"mobile"`
	Email                string `dynamodbav:"email,omitempty" json:"email,omitempty"`
	Address              string `dynamodbav:"address,omitempty" json:"address,omitempty"`
	Landmark             string `dynamodbav:"landmark,omitempty" json:"landmark,omitempty"`
	DeliveryInstructions string `dynamodbav:"delivery_instructions,omitempty" json:"deliveryInstructions,omitempty"`
	DeliveryType         string `dynamodbav:"delivery_type" json:"deliveryType"`
}

// IsPickup reports whether the customer collects the order in store.
func (c CustomerInfo) IsPickup() bool {
	return c.DeliveryType == DeliveryTypePickup
}

// ChannelStatus is the per-channel notification outcome.
type ChannelStatus string

const (
	ChannelPending ChannelStatus = "pending"
	ChannelSent    ChannelStatus = "sent"
	ChannelFailed  ChannelStatus = "failed"
	ChannelResent  ChannelStatus = "resent"
	// ChannelSkipped means the channel had no recipient or no provider.
	ChannelSkipped ChannelStatus = "skipped"
)

// NotificationStatus tracks delivery of the four order notifications.
type NotificationStatus struct {
	CustomerMessage ChannelStatus `dynamodbav:"customer_message" json:"customerMessage"`
	CustomerEmail   ChannelStatus `dynamodbav:"customer_email" json:"customerEmail"`
	BusinessMessage ChannelStatus `dynamodbav:"business_message" json:"businessMessage"`
	BusinessEmail   ChannelStatus `dynamodbav:"business_email" json:"businessEmail"`
	Attempts        int           `dynamodbav:"attempts" json:"attempts"`
	LastAttempt     *time.Time    `dynamodbav:"last_attempt,omitempty" json:"lastAttempt,omitempty"`
	CompletedAt     *time.Time    `dynamodbav:"completed_at,omitempty" json:"completedAt,omitempty"`
	LastError       string        `dynamodbav:"last_error,omitempty" json:"lastError,omitempty"`
}

// PendingNotifications is the state of a freshly created order.
func PendingNotifications() NotificationStatus {
	return NotificationStatus{
		CustomerMessage: ChannelPending,
		CustomerEmail:   ChannelPending,
		BusinessMessage: ChannelPending,
		BusinessEmail:   ChannelPending,
	}
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID           string             `dynamodbav:"order_id" json:"id"` // PK
	OrderNumber       string             `dynamodbav:"order_number" json:"orderNumber"`
	Items             []LineItem         `dynamodbav:"items" json:"items"`
	Customer          CustomerInfo       `dynamodbav:"customer_info" json:"customerInfo"`
	Subtotal          float64            `dynamodbav:"subtotal" json:"subtotal"`
	DeliveryFee       float64            `dynamodbav:"delivery_fee" json:"deliveryFee"`
	Tax               float64            `dynamodbav:"tax" json:"tax"`
	Total             float64            `dynamodbav:"total" json:"total"`
	PaymentMethod     PaymentMethod      `dynamodbav:"payment_method" json:"paymentMethod"`
	Status            Status             `dynamodbav:"status" json:"status"`
	EstimatedDelivery string             `dynamodbav:"estimated_delivery,omitempty" json:"estimatedDelivery,omitempty"`
	Notifications     NotificationStatus `dynamodbav:"notification_status" json:"notificationStatus"`
	CreatedAt         time.Time          `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `dynamodbav:"updated_at" json:"updatedAt"`
}

// TotalUnits is the total quantity across items.
func TotalUnits(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Update holds the admin-editable fields of an order. Nil fields are left unchanged.
// Items and totals are immutable after creation.
type Update struct {
	Status               *Status
	Landmark             *string
	DeliveryInstructions *string
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Status == nil && u.Landmark == nil && u.DeliveryInstructions == nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status Status
	Limit  int
}
