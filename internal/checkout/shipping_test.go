package checkout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shopnobari/checkout-service/internal/checkout"
)

func TestShippingCost(t *testing.T) {
	tests := []struct {
		name  string
		loc   checkout.DeliveryLocation
		speed checkout.ShippingSpeed
		want  int64
	}{
		{name: "inside_standard", loc: checkout.DeliveryInside, speed: checkout.ShippingStandard, want: 60},
		{name: "inside_express", loc: checkout.DeliveryInside, speed: checkout.ShippingExpress, want: 120},
		{name: "outside_standard", loc: checkout.DeliveryOutside, speed: checkout.ShippingStandard, want: 120},
		{name: "outside_express", loc: checkout.DeliveryOutside, speed: checkout.ShippingExpress, want: 200},
		{name: "unknown_speed_defaults_to_standard", loc: checkout.DeliveryInside, speed: "overnight", want: 60},
		{name: "empty_speed_defaults_to_standard", loc: checkout.DeliveryOutside, speed: "", want: 120},
		{name: "unknown_zone_charged_as_outside", loc: "mars", speed: checkout.ShippingStandard, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkout.ShippingCost(tt.loc, tt.speed)
			assert.Equal(t, tt.want, got.IntPart())
			assert.True(t, got.Equal(got.Round(0)), "shipping is always a whole amount")
		})
	}
}
