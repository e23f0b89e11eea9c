// Package mailer is a thin client for the transactional email API used to
// send order invoices.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopnobari/checkout-service/internal/checkout"
)

type Sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// sendRequest is the payload shape the email API accepts.
type sendRequest struct {
	Sender      Sender      `json:"sender"`
	To          []Recipient `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

type Client struct {
	baseURL string
	apiKey  string
	sender  Sender
	http    *http.Client
}

func NewClient(baseURL, apiKey string, sender Sender) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SendInvoice renders the order invoice and posts it to the email API. The
// caller treats failures as best-effort: the order has already committed.
func (c *Client) SendInvoice(ctx context.Context, order *checkout.Order, toName, toEmail string) error {
	html, err := renderInvoice(order)
	if err != nil {
		return fmt.Errorf("mailer: failed to render invoice: %w", err)
	}

	payload := sendRequest{
		Sender:      c.sender,
		To:          []Recipient{{Name: toName, Email: toEmail}},
		Subject:     fmt.Sprintf("Your order %s is confirmed", order.OrderNumber),
		HTMLContent: html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mailer: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mailer: email API returned status %d", resp.StatusCode)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("mailer: failed to decode response: %w", err)
	}

	log.Info().Str("order_number", order.OrderNumber).Str("message_id", out.MessageID).Msg("mailer: invoice sent")
	return nil
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<html>
<body>
  <h2>Order {{.OrderNumber}}</h2>
  <p>Thank you, {{.CustomerName}}. Your order has been placed.</p>
  <table>
    {{range .Items}}
    <tr>
      <td>{{.ProductName}}</td>
      <td>{{.Quantity}} x {{.UnitPrice}}</td>
      <td>{{.TotalPrice}}</td>
    </tr>
    {{end}}
  </table>
  <p>Subtotal: {{.Subtotal}}</p>
  {{if not .DiscountAmount.IsZero}}<p>Discount: -{{.DiscountAmount}}</p>{{end}}
  <p>Shipping: {{.ShippingCost}}</p>
  <p><strong>Total: {{.Total}}</strong></p>
  <p>Payment: {{.PaymentMethod}} ({{.PaymentStatus}})</p>
  <p>Delivery to: {{.ShippingAddress}}</p>
</body>
</html>`))

func renderInvoice(order *checkout.Order) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, order); err != nil {
		return "", err
	}
	return buf.String(), nil
}
