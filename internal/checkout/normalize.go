package checkout

import (
	"math"
	"regexp"
	"strings"
)

var (
	localPhoneRe = regexp.MustCompile(`^01\d{9}$`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// NormalizePhone strips formatting from a BD mobile number and collapses the
// international prefix to the local 01XXXXXXXXX form. Accepted inputs are
// +8801XXXXXXXXX, 8801XXXXXXXXX and 01XXXXXXXXX; everything else fails with
// ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigitRe.ReplaceAllString(raw, "")

	if strings.HasPrefix(digits, "880") && len(digits) == 13 {
		digits = "0" + digits[3:]
	}

	if !localPhoneRe.MatchString(digits) {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// NormalizeQuantity floors any client-supplied quantity to a non-negative
// integer so fractional or negative quantities cannot reach the line builder.
// The handler runs every cart line through it before the pipeline; a zero
// result drops the line.
func NormalizeQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0
	}
	return int(math.Floor(q))
}
