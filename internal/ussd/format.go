package ussd

import (
	"regexp"
	"strconv"
	"strings"
)

// maxAmountDecimals is the precision of the smallest on-chain unit.
const maxAmountDecimals = 18

var (
	amountPattern  = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	pinPattern     = regexp.MustCompile(`^\d{4}$`)
)

func validPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// ParseAmount accepts a plain decimal typed on a keypad and reports whether
// it is a positive finite number with at most 18 significant decimals.
func ParseAmount(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if !amountPattern.MatchString(raw) {
		return 0, false
	}
	if _, frac, ok := strings.Cut(raw, "."); ok && len(strings.TrimRight(frac, "0")) > maxAmountDecimals {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ValidAddress reports whether addr is a 0x-prefixed 20-byte hex address.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// ShortAddress keeps the first 8 and last 6 characters of addr.
func ShortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-6:]
}

// RefTail keeps the last 8 characters of a gateway reference.
func RefTail(ref string) string {
	if len(ref) <= 8 {
		return ref
	}
	return ref[len(ref)-8:]
}

// FiatPayout converts a token amount to NGN with two decimals.
func FiatPayout(amount, fiatPerUnit float64) string {
	return strconv.FormatFloat(amount*fiatPerUnit, 'f', 2, 64)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
