// Package pricing computes checkout totals. The same Calculator backs the
// quote endpoint and order creation so a preview always matches the charge.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Delivery types accepted by the storefront.
const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "self-pickup"
)

// Rates holds the configurable pricing constants.
type Rates struct {
	TaxRate               float64
	FreeDeliveryThreshold float64
	DeliveryFee           float64
}

// DefaultRates mirrors the storefront's published pricing.
var DefaultRates = Rates{
	TaxRate:               0.05,
	FreeDeliveryThreshold: 500,
	DeliveryFee:           49,
}

// Line is the minimal view of a line item needed for pricing.
type Line struct {
	UnitPrice float64
	Quantity  int
}

// Breakdown is the result of a computation. Total == Subtotal + DeliveryFee + Tax.
type Breakdown struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"deliveryFee"`
	Total       float64 `json:"total"`
}

var (
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrNegativePrice       = errors.New("unit price must not be negative")
	ErrUnknownDeliveryType = errors.New("unknown delivery type")
)

// Calculator is safe for concurrent use.
type Calculator struct {
	taxRate   decimal.Decimal
	threshold decimal.Decimal
	flatFee   decimal.Decimal
}

// NewCalculator validates rates and returns a Calculator.
func NewCalculator(r Rates) (*Calculator, error) {
	if r.TaxRate < 0 || r.FreeDeliveryThreshold < 0 || r.DeliveryFee < 0 {
		return nil, fmt.Errorf("pricing rates must be non-negative: %+v", r)
	}
	return &Calculator{
		taxRate:   decimal.NewFromFloat(r.TaxRate),
		threshold: decimal.NewFromFloat(r.FreeDeliveryThreshold),
		flatFee:   decimal.NewFromFloat(r.DeliveryFee),
	}, nil
}

// Compute prices lines for deliveryType. A non-nil subtotalOverride replaces the
// item sum (lines are still validated).
func (c *Calculator) Compute(lines []Line, deliveryType string, subtotalOverride *float64) (Breakdown, error) {
	if deliveryType != DeliveryTypeDelivery && deliveryType != DeliveryTypePickup {
		return Breakdown{}, fmt.Errorf("%w: %q", ErrUnknownDeliveryType, deliveryType)
	}

	sum := decimal.Zero
	for i, l := range lines {
		if l.Quantity < 1 {
			return Breakdown{}, fmt.Errorf("line %d: %w", i, ErrInvalidQuantity)
		}
		if l.UnitPrice < 0 {
			return Breakdown{}, fmt.Errorf("line %d: %w", i, ErrNegativePrice)
		}
		sum = sum.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if subtotalOverride != nil {
		if *subtotalOverride < 0 {
			return Breakdown{}, fmt.Errorf("subtotal override: %w", ErrNegativePrice)
		}
		sum = decimal.NewFromFloat(*subtotalOverride)
	}

	subtotal := sum.Round(2)
	tax := subtotal.Mul(c.taxRate).Round(2)

	fee := decimal.Zero
	if deliveryType == DeliveryTypeDelivery && !subtotal.GreaterThan(c.threshold) {
		fee = c.flatFee.Round(2)
	}

	total := subtotal.Add(fee).Add(tax).Round(2)

	return Breakdown{
		Subtotal:    subtotal.InexactFloat64(),
		Tax:         tax.InexactFloat64(),
		DeliveryFee: fee.InexactFloat64(),
		Total:       total.InexactFloat64(),
	}, nil
}

// LineTotal returns unitPrice x quantity rounded to 2 places.
func LineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// SameAmount compares two monetary values at cent precision.
func SameAmount(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}
