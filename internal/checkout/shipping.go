package checkout

import "github.com/shopspring/decimal"

// Flat shipping rates in whole taka. No distance or weight model, just a
// 2x2 lookup on delivery zone and shipping speed.
var shippingRates = map[DeliveryLocation]map[ShippingSpeed]int64{
	DeliveryInside: {
		ShippingStandard: 60,
		ShippingExpress:  120,
	},
	DeliveryOutside: {
		ShippingStandard: 120,
		ShippingExpress:  200,
	},
}

// ShippingCost returns the flat rate for the given zone and speed. An absent
// or unrecognized speed falls back to standard; an unrecognized zone is
// charged at the outside rate.
func ShippingCost(loc DeliveryLocation, speed ShippingSpeed) decimal.Decimal {
	zone, ok := shippingRates[loc]
	if !ok {
		zone = shippingRates[DeliveryOutside]
	}
	rate, ok := zone[speed]
	if !ok {
		rate = zone[ShippingStandard]
	}
	return decimal.NewFromInt(rate)
}
