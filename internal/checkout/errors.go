package checkout

import (
	"errors"
	"fmt"
	"time"
)

// Validation failures. Each surfaces to the client verbatim with a 400.
var (
	ErrInvalidPhone        = errors.New("invalid phone number, expected a valid BD number like 01XXXXXXXXX")
	ErrInvalidGuestDetails = errors.New("guest details are incomplete or invalid")
	ErrIncompleteProfile   = errors.New("profile is missing name, phone or address")
	ErrUnauthorized        = errors.New("could not verify your session, please sign in again")
	ErrEmptyOrder          = errors.New("order must contain at least one item")
	ErrProductUnavailable  = errors.New("product is no longer available")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrMissingTrxID        = errors.New("bKash payment requires a transaction id")
	ErrUnsupportedPayment  = errors.New("unsupported payment method")

	ErrInvalidVoucher       = errors.New("invalid discount code")
	ErrVoucherInactive      = errors.New("discount code is no longer active")
	ErrVoucherNotYetActive  = errors.New("discount code is not active yet")
	ErrVoucherExpired       = errors.New("discount code has expired")
	ErrMinPurchaseNotMet    = errors.New("minimum purchase not met")
	ErrVoucherExhausted     = errors.New("discount code has reached its usage limit")
	ErrVoucherMisconfigured = errors.New("discount code is misconfigured")
)

// Infrastructure failures. Logged with detail server-side, surfaced as a
// generic 500 message.
var (
	ErrCatalogUnavailable = errors.New("catalog is unavailable")
	ErrOrderPersist       = errors.New("failed to save order")
	ErrOrderItemsPersist  = errors.New("failed to save order items")

	ErrVoucherNotFound = errors.New("voucher not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// RateLimitError rejects a checkout attempt before any other validation and
// tells the client how long to wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many checkout attempts, retry in %d seconds", e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds the wait up to whole seconds for the Retry-After
// header. Always at least 1 so the client never retries immediately.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
