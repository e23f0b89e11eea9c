package checkout

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EvaluateVoucher runs the validation chain for a voucher against the order
// subtotal and returns the discount amount. Checks run in a fixed order and
// the first failure wins.
//
// The returned discount is rounded to the nearest whole currency unit and
// then clamped to [0, subtotal]. Clamping last keeps the discount from ever
// exceeding a fractional subtotal after rounding; it never goes negative and
// never applies to shipping.
func EvaluateVoucher(v *Voucher, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !v.IsActive {
		return decimal.Zero, ErrVoucherInactive
	}
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return decimal.Zero, ErrVoucherNotYetActive
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return decimal.Zero, ErrVoucherExpired
	}
	if v.MinPurchase.IsPositive() && subtotal.LessThan(v.MinPurchase) {
		return decimal.Zero, fmt.Errorf("%w: spend at least %s to use this code", ErrMinPurchaseNotMet, v.MinPurchase.StringFixed(0))
	}
	if v.MaxUses != nil && v.CurrentUses >= *v.MaxUses {
		return decimal.Zero, ErrVoucherExhausted
	}
	if !v.DiscountValue.IsPositive() {
		return decimal.Zero, ErrVoucherMisconfigured
	}

	var discount decimal.Decimal
	switch v.DiscountType {
	case VoucherPercentage:
		discount = subtotal.Mul(v.DiscountValue).Div(decimal.NewFromInt(100))
	case VoucherFixed:
		discount = v.DiscountValue
	default:
		return decimal.Zero, ErrVoucherMisconfigured
	}

	discount = discount.Round(0)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
