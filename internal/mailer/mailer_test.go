package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopnobari/checkout-service/internal/checkout"
)

func sampleOrder() *checkout.Order {
	return &checkout.Order{
		OrderNumber:     "ORD-20250309-1234",
		CustomerName:    "Karim Chowdhury",
		ShippingAddress: "Banani, Dhaka",
		Subtotal:        decimal.NewFromInt(1000),
		DiscountAmount:  decimal.NewFromInt(100),
		ShippingCost:    decimal.NewFromInt(60),
		Total:           decimal.NewFromInt(960),
		PaymentMethod:   checkout.PaymentCOD,
		PaymentStatus:   checkout.PaymentPending,
		Items: []checkout.OrderItem{
			{ProductName: "Ceramic Dinner Set", Quantity: 2, UnitPrice: decimal.NewFromInt(500), TotalPrice: decimal.NewFromInt(1000)},
		},
	}
}

func TestSendInvoice(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageId":"<202503091234.567@smtp-relay>"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", Sender{Name: "Shopnobari", Email: "orders@shopnobari.example"})

	err := c.SendInvoice(context.Background(), sampleOrder(), "Karim Chowdhury", "karim@example.com")
	require.NoError(t, err)

	assert.Equal(t, "/v3/smtp/email", gotPath)
	assert.Equal(t, "key-123", gotKey)

	sender := gotPayload["sender"].(map[string]any)
	assert.Equal(t, "orders@shopnobari.example", sender["email"])

	to := gotPayload["to"].([]any)
	require.Len(t, to, 1)
	assert.Equal(t, "karim@example.com", to[0].(map[string]any)["email"])

	assert.Contains(t, gotPayload["subject"], "ORD-20250309-1234")

	html := gotPayload["htmlContent"].(string)
	assert.Contains(t, html, "Ceramic Dinner Set")
	assert.Contains(t, html, "960")
	assert.Contains(t, html, "Discount")
}

func TestSendInvoice_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", Sender{Name: "Shopnobari", Email: "orders@shopnobari.example"})

	err := c.SendInvoice(context.Background(), sampleOrder(), "Karim", "karim@example.com")
	assert.Error(t, err)
}

func TestRenderInvoice_SkipsDiscountLineWhenZero(t *testing.T) {
	order := sampleOrder()
	order.DiscountAmount = decimal.Zero

	html, err := renderInvoice(order)
	require.NoError(t, err)
	assert.NotContains(t, html, "Discount")
	assert.Contains(t, html, "Shipping")
}
