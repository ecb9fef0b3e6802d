package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/pricing"
)

// Email is a rendered email.
type Email struct {
	Subject string
	HTML    string
}

// Renderer turns an order into channel content. Output depends only on the
// order and the brand, so rendering the same order twice yields equal text.
type Renderer struct {
	brand Brand

	customerMessage *template.Template
	businessMessage *template.Template
	customerEmail   *htmltemplate.Template
	businessEmail   *htmltemplate.Template
}

// NewRenderer parses the notification templates.
func NewRenderer(brand Brand) *Renderer {
	return &Renderer{
		brand:           brand.withDefaults(),
		customerMessage: template.Must(template.New("customer_message").Parse(customerMessageTmpl)),
		businessMessage: template.Must(template.New("business_message").Parse(businessMessageTmpl)),
		customerEmail:   htmltemplate.Must(htmltemplate.New("customer_email").Parse(customerEmailTmpl)),
		businessEmail:   htmltemplate.Must(htmltemplate.New("business_email").Parse(businessEmailTmpl)),
	}
}

type itemView struct {
	Index       int
	Name        string
	Quantity    int
	WeightLabel string
	UnitPrice   string
	LineTotal   string
}

type orderView struct {
	Brand Brand

	OrderID      string
	OrderNumber  string
	OrderDate    string
	CustomerName string
	Mobile       string
	Email        string
	Address      string
	Landmark     string
	Instructions string

	Pickup       bool
	Service      string
	ServiceUpper string

	Items       []itemView
	Subtotal    string
	DeliveryFee string
	Tax         string
	Total       string
	Payment     string

	EstimatedDelivery string
}

func (r *Renderer) money(v float64) string {
	return fmt.Sprintf("%s%.2f", r.brand.CurrencySymbol, pricing.Round2(v))
}

func (r *Renderer) view(o *orders.Order) orderView {
	c := o.Customer
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = "Customer"
	}
	service := "Delivery"
	if c.IsPickup() {
		service = "Self Pickup"
	}
	number := o.OrderNumber
	if number == "" {
		number = o.OrderID
	}

	v := orderView{
		Brand:             r.brand,
		OrderID:           o.OrderID,
		OrderNumber:       number,
		OrderDate:         o.CreatedAt.In(r.brand.Location).Format("02 Jan 2006, 03:04 PM"),
		CustomerName:      name,
		Mobile:            c.Mobile,
		Email:             c.Email,
		Address:           c.Address,
		Landmark:          c.Landmark,
		Instructions:      c.DeliveryInstructions,
		Pickup:            c.IsPickup(),
		Service:           service,
		ServiceUpper:      strings.ToUpper(service),
		Subtotal:          r.money(o.Subtotal),
		DeliveryFee:       r.money(o.DeliveryFee),
		Tax:               r.money(o.Tax),
		Total:             r.money(o.Total),
		Payment:           o.PaymentMethod.Label(),
		EstimatedDelivery: o.EstimatedDelivery,
	}
	for i, it := range o.Items {
		v.Items = append(v.Items, itemView{
			Index:       i + 1,
			Name:        it.Name,
			Quantity:    it.Quantity,
			WeightLabel: it.WeightLabel,
			UnitPrice:   r.money(it.UnitPrice),
			LineTotal:   r.money(pricing.LineTotal(it.UnitPrice, it.Quantity)),
		})
	}
	return v
}

// CustomerMessage renders the customer text message.
func (r *Renderer) CustomerMessage(o *orders.Order) (string, error) {
	var buf bytes.Buffer
	if err := r.customerMessage.Execute(&buf, r.view(o)); err != nil {
		return "", fmt.Errorf("render customer message: %w", err)
	}
	return buf.String(), nil
}

// BusinessMessage renders the text alert sent to the business.
func (r *Renderer) BusinessMessage(o *orders.Order) (string, error) {
	var buf bytes.Buffer
	if err := r.businessMessage.Execute(&buf, r.view(o)); err != nil {
		return "", fmt.Errorf("render business message: %w", err)
	}
	return buf.String(), nil
}

// CustomerEmail renders the order confirmation email.
func (r *Renderer) CustomerEmail(o *orders.Order) (Email, error) {
	var buf bytes.Buffer
	if err := r.customerEmail.Execute(&buf, r.view(o)); err != nil {
		return Email{}, fmt.Errorf("render customer email: %w", err)
	}
	return Email{
		Subject: fmt.Sprintf("Order Confirmed - We'll contact you within %s - %s", r.brand.ContactWindow, r.brand.BusinessName),
		HTML:    buf.String(),
	}, nil
}

// BusinessEmail renders the new-order email sent to the business.
func (r *Renderer) BusinessEmail(o *orders.Order) (Email, error) {
	v := r.view(o)
	var buf bytes.Buffer
	if err := r.businessEmail.Execute(&buf, v); err != nil {
		return Email{}, fmt.Errorf("render business email: %w", err)
	}
	return Email{
		Subject: fmt.Sprintf("New %s Order - %s - %s", v.Service, v.OrderNumber, r.brand.BusinessName),
		HTML:    buf.String(),
	}, nil
}
