package validation

import "strings"

// RawItem accepts every line-item shape the storefront has sent.
type RawItem struct {
	ProductRef  string   `json:"productRef"`
	Product     string   `json:"product"`
	ProductID   string   `json:"productId"`
	LegacyID    string   `json:"_id"`
	Name        string   `json:"name"`
	UnitPrice   *float64 `json:"unitPrice"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Qty         *int     `json:"qty"`
	ImageRef    string   `json:"imageRef"`
	Image       string   `json:"image"`
	WeightLabel string   `json:"weightLabel"`
	Weight      string   `json:"weight"`
}

// RawCustomer accepts the nested customerInfo block and its aliases.
type RawCustomer struct {
	Name                 string `json:"name"`
	Mobile               string `json:"mobile"`
	Phone                string `json:"phone"`
	Email                string `json:"email"`
	Address              string `json:"address"`
	DeliveryAddress      string `json:"deliveryAddress"`
	Landmark             string `json:"landmark"`
	DeliveryInstructions string `json:"deliveryInstructions"`
	DeliveryType         string `json:"deliveryType"`
	DeliveryOption       string `json:"deliveryOption"`
	PaymentMethod        string `json:"paymentMethod"`
}

// RawOrderRequest is the wire shape of POST /orders. It tolerates the legacy
// top-level customer fields and alternate names for totals and delivery type.
type RawOrderRequest struct {
	Items        []RawItem    `json:"items"`
	CustomerInfo *RawCustomer `json:"customerInfo"`

	CustomerName    string `json:"customerName"`
	Mobile          string `json:"mobile"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	DeliveryAddress string `json:"deliveryAddress"`
	DeliveryType    string `json:"deliveryType"`
	DeliveryOption  string `json:"deliveryOption"`
	PaymentMethod   string `json:"paymentMethod"`

	Total       *float64 `json:"total"`
	TotalAmount *float64 `json:"totalAmount"`
}

// RawQuoteRequest is the wire shape of POST /checkout/quote.
type RawQuoteRequest struct {
	Items          []RawItem `json:"items"`
	DeliveryType   string    `json:"deliveryType"`
	DeliveryOption string    `json:"deliveryOption"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// NormalizeDeliveryType maps the storefront's option names onto the canonical
// values. Unknown values are passed through so validation can reject them.
func NormalizeDeliveryType(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return "delivery"
	case "delivery", "home-delivery":
		return "delivery"
	case "self-pickup", "pickup", "self_pickup", "selfpickup":
		return "self-pickup"
	default:
		return strings.TrimSpace(v)
	}
}

func normalizePayment(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "cod", "cash", "cash on delivery":
		return "COD"
	case "online", "upi":
		return "Online"
	default:
		return strings.TrimSpace(v)
	}
}

// Normalize resolves every alias into the canonical shape.
func (it RawItem) Normalize() Item {
	out := Item{
		ProductRef:  firstNonEmpty(it.ProductRef, it.Product, it.ProductID, it.LegacyID),
		Name:        strings.TrimSpace(it.Name),
		ImageRef:    firstNonEmpty(it.ImageRef, it.Image),
		WeightLabel: firstNonEmpty(it.WeightLabel, it.Weight),
	}
	switch {
	case it.UnitPrice != nil:
		out.UnitPrice = *it.UnitPrice
	case it.Price != nil:
		out.UnitPrice = *it.Price
	}
	switch {
	case it.Quantity != nil:
		out.Quantity = *it.Quantity
	case it.Qty != nil:
		out.Quantity = *it.Qty
	}
	return out
}

func normalizeItems(raw []RawItem) []Item {
	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		items = append(items, it.Normalize())
	}
	return items
}

// Normalize resolves every alias into a CreateOrderRequest. Nested
// customerInfo fields win over top-level legacy fields.
func (r RawOrderRequest) Normalize() CreateOrderRequest {
	ci := RawCustomer{}
	if r.CustomerInfo != nil {
		ci = *r.CustomerInfo
	}

	deliveryType := NormalizeDeliveryType(firstNonEmpty(ci.DeliveryType, ci.DeliveryOption, r.DeliveryType, r.DeliveryOption))

	out := CreateOrderRequest{
		Items: normalizeItems(r.Items),
		Customer: Customer{
			Name:                 firstNonEmpty(ci.Name, r.CustomerName),
			Mobile:               firstNonEmpty(ci.Mobile, ci.Phone, r.Mobile, r.Phone),
			Email:                firstNonEmpty(ci.Email, r.Email),
			Address:              firstNonEmpty(ci.Address, ci.DeliveryAddress, r.DeliveryAddress),
			Landmark:             strings.TrimSpace(ci.Landmark),
			DeliveryInstructions: strings.TrimSpace(ci.DeliveryInstructions),
			DeliveryType:         deliveryType,
		},
		PaymentMethod: normalizePayment(firstNonEmpty(r.PaymentMethod, ci.PaymentMethod)),
	}
	switch {
	case r.Total != nil:
		out.ClientTotal = r.Total
	case r.TotalAmount != nil:
		out.ClientTotal = r.TotalAmount
	}
	return out
}

// Normalize resolves aliases into a QuoteRequest.
func (r RawQuoteRequest) Normalize() QuoteRequest {
	return QuoteRequest{
		Items:        normalizeItems(r.Items),
		DeliveryType: NormalizeDeliveryType(firstNonEmpty(r.DeliveryType, r.DeliveryOption)),
	}
}
