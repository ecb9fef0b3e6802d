package notify

import "time"

// Brand is the storefront identity embedded in every notification.
type Brand struct {
	BusinessName   string
	UPIID          string
	SupportNumber  string
	ContactWindow  string
	AdminURL       string
	StoreAddress   string
	StoreHours     string
	CurrencySymbol string
	// Location is used to print order dates. Defaults to UTC.
	Location *time.Location
}

// DefaultBrand is used for any field left empty.
var DefaultBrand = Brand{
	BusinessName:   "Ding Dong Cake & Bake",
	ContactWindow:  "10 minutes",
	CurrencySymbol: "₹",
}

func (b Brand) withDefaults() Brand {
	if b.BusinessName == "" {
		b.BusinessName = DefaultBrand.BusinessName
	}
	if b.ContactWindow == "" {
		b.ContactWindow = DefaultBrand.ContactWindow
	}
	if b.CurrencySymbol == "" {
		b.CurrencySymbol = DefaultBrand.CurrencySymbol
	}
	if b.Location == nil {
		b.Location = time.UTC
	}
	return b
}
