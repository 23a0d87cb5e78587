// Package sequence hands out voucher and bill numbers scoped to a firm,
// financial year, and voucher type.
package sequence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Prefixes maps well-known voucher types to their document prefix.
var prefixes = map[string]string{
	"SALES":    "SI",
	"PURCHASE": "PI",
	"JOURNAL":  "JV",
	"PAYMENT":  "PV",
	"RECEIPT":  "RV",
}

// ErrUnknownType indicates an empty voucher type.
var ErrUnknownType = errors.New("sequence: voucher type required")

// FinancialYear returns the Indian financial-year label for the given date.
// The cycle runs April through March: 2025-07-01 -> "2025-26",
// 2026-02-01 -> "2025-26".
func FinancialYear(at time.Time) string {
	year := at.Year()
	if int(at.Month()) < 4 {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// Prefix resolves the document prefix for a voucher type. Unknown types fall
// back to their first two letters uppercased.
func Prefix(voucherType string) (string, error) {
	vt := strings.ToUpper(strings.TrimSpace(voucherType))
	if vt == "" {
		return "", ErrUnknownType
	}
	if p, ok := prefixes[vt]; ok {
		return p, nil
	}
	if len(vt) < 2 {
		return vt, nil
	}
	return vt[:2], nil
}

// Format renders a voucher number: "SI/2025-26/0042".
func Format(prefix, fy string, n int64) string {
	return fmt.Sprintf("%s/%s/%04d", prefix, fy, n)
}
