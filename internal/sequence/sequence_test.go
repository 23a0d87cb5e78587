package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinancialYear(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2025-04-01", "2025-26"},
		{"2025-07-15", "2025-26"},
		{"2026-03-31", "2025-26"},
		{"2026-04-01", "2026-27"},
		{"2025-01-10", "2024-25"},
		{"2099-12-31", "2099-00"},
	}
	for _, tc := range cases {
		at, err := time.Parse("2006-01-02", tc.date)
		require.NoError(t, err)
		assert.Equal(t, tc.want, FinancialYear(at), "date %s", tc.date)
	}
}

func TestPrefix(t *testing.T) {
	cases := map[string]string{
		"SALES":    "SI",
		"PURCHASE": "PI",
		"JOURNAL":  "JV",
		"PAYMENT":  "PV",
		"RECEIPT":  "RV",
		"payment":  "PV",
		"CONTRA":   "CO",
		"X":        "X",
	}
	for in, want := range cases {
		got, err := Prefix(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "type %s", in)
	}

	_, err := Prefix("  ")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestFormatPadsToFourDigits(t *testing.T) {
	assert.Equal(t, "SI/2025-26/0001", Format("SI", "2025-26", 1))
	assert.Equal(t, "RV/2025-26/0042", Format("RV", "2025-26", 42))
	assert.Equal(t, "JV/2025-26/12345", Format("JV", "2025-26", 12345))
}
