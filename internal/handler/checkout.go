package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopnobari/checkout-service/internal/checkout"
	"github.com/shopnobari/checkout-service/internal/middleware"
)

// CheckoutHandler handles HTTP requests for the checkout pipeline and order
// tracking.
type CheckoutHandler struct {
	svc checkout.Service
}

func NewCheckoutHandler(svc checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Post("/checkout", h.handleCheckout)
	router.Get("/orders/{orderNumber}", h.handleTrackOrder)
	router.Patch("/orders/{orderNumber}/status", h.handleUpdateStatus)
}

type checkoutRequest struct {
	Items            []checkoutItem         `json:"items"`
	DeliveryLocation string                 `json:"deliveryLocation"`
	ShippingSpeed    string                 `json:"shippingSpeed"`
	DiscountCode     string                 `json:"discountCode"`
	PaymentMethod    string                 `json:"paymentMethod"`
	TrxID            string                 `json:"trxId"`
	Guest            *checkout.GuestDetails `json:"guest"`
}

// checkoutItem accepts the quantity as a float so fractional values from the
// client are floored instead of failing the whole decode.
type checkoutItem struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

type checkoutResponse struct {
	OK          bool   `json:"ok"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Contact     string `json:"contact"`
}

type errorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func (h *CheckoutHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]checkout.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, checkout.CartLine{
			ProductID: item.ProductID,
			Quantity:  checkout.NormalizeQuantity(item.Quantity),
		})
	}

	input := checkout.CheckoutInput{
		ClientKey:        clientKey(r),
		BearerToken:      bearerToken(r),
		Guest:            req.Guest,
		Lines:            lines,
		DeliveryLocation: checkout.DeliveryLocation(req.DeliveryLocation),
		ShippingSpeed:    checkout.ShippingSpeed(req.ShippingSpeed),
		DiscountCode:     req.DiscountCode,
		PaymentMethod:    checkout.PaymentMethod(strings.ToLower(req.PaymentMethod)),
		TrxID:            req.TrxID,
	}

	result, err := h.svc.Checkout(r.Context(), input)
	if err != nil {
		h.respondCheckoutError(w, err)
		middleware.RecordCheckout(false)
		return
	}
	middleware.RecordCheckout(true)

	respondJSON(w, http.StatusOK, checkoutResponse{
		OK:          true,
		OrderID:     result.Order.ID.String(),
		OrderNumber: result.Order.OrderNumber,
		Contact:     result.Order.ContactNumber,
	})
}

func (h *CheckoutHandler) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	phone := r.URL.Query().Get("phone")

	order, err := h.svc.TrackOrder(r.Context(), orderNumber, phone)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, checkout.ErrInvalidPhone):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("order_number", orderNumber).Msg("handler: failed to track order")
			respondError(w, http.StatusInternalServerError, "something went wrong, please try again")
		}
		return
	}

	respondJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *CheckoutHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.UpdateOrderStatus(r.Context(), orderNumber, checkout.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, checkout.ErrInvalidStatusTransition):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("order_number", orderNumber).Msg("handler: failed to update order status")
			respondError(w, http.StatusInternalServerError, "something went wrong, please try again")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// respondCheckoutError maps pipeline failures to the response contract:
// validation failures surface their specific message with a 400, the rate
// limiter gets a 429 with Retry-After, infrastructure failures are logged in
// full and surfaced as a generic 500.
func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, err error) {
	var rateErr *checkout.RateLimitError
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds()))
		respondError(w, http.StatusTooManyRequests, rateErr.Error())
		return
	}

	for _, sentinel := range []error{
		checkout.ErrInvalidPhone,
		checkout.ErrInvalidGuestDetails,
		checkout.ErrIncompleteProfile,
		checkout.ErrUnauthorized,
		checkout.ErrEmptyOrder,
		checkout.ErrProductUnavailable,
		checkout.ErrInsufficientStock,
		checkout.ErrMissingTrxID,
		checkout.ErrUnsupportedPayment,
		checkout.ErrInvalidVoucher,
		checkout.ErrVoucherInactive,
		checkout.ErrVoucherNotYetActive,
		checkout.ErrVoucherExpired,
		checkout.ErrMinPurchaseNotMet,
		checkout.ErrVoucherExhausted,
		checkout.ErrVoucherMisconfigured,
	} {
		if errors.Is(err, sentinel) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	log.Error().Err(err).Msg("handler: checkout failed")
	respondError(w, http.StatusInternalServerError, "something went wrong, please try again")
}

// clientKey derives the rate-limit bucket from the forwarded-for header,
// falling back to the peer address, then to a shared sentinel bucket.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return "unknown"
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("handler: failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{OK: false, Message: message})
}
