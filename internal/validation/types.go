package validation

// Item is a canonical order line item.
type Item struct {
	ProductRef  string  `json:"productRef" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"min=1"` // must be >= 1
	ImageRef    string  `json:"imageRef,omitempty"`
	WeightLabel string  `json:"weightLabel,omitempty"`
}

// Customer is the canonical customer contact block.
type Customer struct {
	Name                 string `json:"name" validate:"required"`
	Mobile               string `json:"mobile" validate:"required,mobile"`
	Email                string `json:"email,omitempty" validate:"omitempty,email"`
	Address              string `json:"address,omitempty"`
	Landmark             string `json:"landmark,omitempty"`
	DeliveryInstructions string `json:"deliveryInstructions,omitempty"`
	DeliveryType         string `json:"deliveryType" validate:"required,oneof=delivery self-pickup"`
}

// CreateOrderRequest is the canonical POST /orders payload, produced by
// RawOrderRequest.Normalize. Client totals are informational only.
type CreateOrderRequest struct {
	Items         []Item   `json:"items" validate:"required,min=1,dive"`
	Customer      Customer `json:"customerInfo"`
	PaymentMethod string   `json:"paymentMethod" validate:"oneof=COD Online"`
	ClientTotal   *float64 `json:"total,omitempty" validate:"omitempty,gte=0"`
}

// QuoteRequest is the POST /checkout/quote payload.
type QuoteRequest struct {
	Items        []Item `json:"items" validate:"required,min=1,dive"`
	DeliveryType string `json:"deliveryType" validate:"required,oneof=delivery self-pickup"`
}
