package pricing

// EstimateDelivery returns the delivery window shown to the customer, based on
// the number of units in the cart.
func EstimateDelivery(units int, deliveryType string) string {
	if deliveryType == DeliveryTypePickup {
		return "Ready for pickup"
	}
	switch {
	case units > 10:
		return "60-75 min"
	case units > 5:
		return "45-60 min"
	default:
		return "30-45 min"
	}
}
