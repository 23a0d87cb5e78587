package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotalsIntraState(t *testing.T) {
	// 2 x 100 @ 18%, intra-state.
	got := ComputeTotals([]CartLine{{Qty: 2, Rate: 100, GSTRate: 18}}, nil, true, SupplyIntraState, false)

	assert.InDelta(t, 200, got.Gross, 1e-9)
	assert.InDelta(t, 200, got.Taxable, 1e-9)
	assert.InDelta(t, 18, got.CGST, 1e-9)
	assert.InDelta(t, 18, got.SGST, 1e-9)
	assert.Zero(t, got.IGST)
	assert.InDelta(t, 236, got.Net, 1e-9)
	assert.Zero(t, got.RoundOff)
}

func TestComputeTotalsRoundsNetUp(t *testing.T) {
	// 2 x 99.5 @ 18%: raw 234.82 -> net 235, round-off +0.18.
	got := ComputeTotals([]CartLine{{Qty: 2, Rate: 99.5, GSTRate: 18}}, nil, true, SupplyIntraState, false)

	assert.InDelta(t, 199, got.Taxable, 1e-9)
	assert.InDelta(t, 17.91, got.CGST, 1e-9)
	assert.InDelta(t, 17.91, got.SGST, 1e-9)
	assert.InDelta(t, 235, got.Net, 1e-9)
	assert.InDelta(t, 0.18, got.RoundOff, 1e-9)
}

func TestComputeTotalsRoundsNetDown(t *testing.T) {
	got := ComputeTotals([]CartLine{{Qty: 1, Rate: 100.30, GSTRate: 0}}, nil, true, SupplyIntraState, false)

	assert.InDelta(t, 100, got.Net, 1e-9)
	assert.InDelta(t, -0.30, got.RoundOff, 1e-9)
}

func TestComputeTotalsInterState(t *testing.T) {
	got := ComputeTotals([]CartLine{{Qty: 2, Rate: 100, GSTRate: 18}}, nil, true, SupplyInterState, false)

	assert.Zero(t, got.CGST)
	assert.Zero(t, got.SGST)
	assert.InDelta(t, 36, got.IGST, 1e-9)
	assert.InDelta(t, 236, got.Net, 1e-9)
}

func TestComputeTotalsDiscount(t *testing.T) {
	// 10 x 50 less 10% = 450, tax 54 @ 12%.
	got := ComputeTotals([]CartLine{{Qty: 10, Rate: 50, GSTRate: 12, Discount: 10}}, nil, true, SupplyIntraState, false)

	assert.InDelta(t, 450, got.Taxable, 1e-9)
	assert.InDelta(t, 27, got.CGST, 1e-9)
	assert.InDelta(t, 504, got.Net, 1e-9)
}

func TestComputeTotalsOtherChargesTaxedSeparately(t *testing.T) {
	got := ComputeTotals(
		[]CartLine{{Qty: 2, Rate: 100, GSTRate: 18}},
		[]OtherCharge{{Type: "Freight", Amount: 50, GSTRate: 5}},
		true, SupplyIntraState, false)

	// Gross includes the charge, taxable does not.
	assert.InDelta(t, 250, got.Gross, 1e-9)
	assert.InDelta(t, 200, got.Taxable, 1e-9)
	// Tax = 36 + 2.50 split evenly.
	assert.InDelta(t, 19.25, got.CGST, 1e-9)
	assert.InDelta(t, 19.25, got.SGST, 1e-9)
	// 250 + 38.50 = 288.50 -> net 289 (rounded up), round-off 0.50.
	assert.InDelta(t, 289, got.Net, 1e-9)
	assert.InDelta(t, 0.50, got.RoundOff, 1e-9)
}

func TestComputeTotalsGSTDisabled(t *testing.T) {
	got := ComputeTotals([]CartLine{{Qty: 2, Rate: 100, GSTRate: 18}}, nil, false, SupplyIntraState, false)

	assert.Zero(t, got.CGST)
	assert.Zero(t, got.SGST)
	assert.Zero(t, got.IGST)
	assert.InDelta(t, 200, got.Net, 1e-9)
}

func TestComputeTotalsReverseChargeExcludesTaxFromNet(t *testing.T) {
	got := ComputeTotals([]CartLine{{Qty: 2, Rate: 100, GSTRate: 18}}, nil, true, SupplyIntraState, true)

	// Tax is still computed and reported, but the party owes only the goods value.
	assert.InDelta(t, 18, got.CGST, 1e-9)
	assert.InDelta(t, 200, got.Net, 1e-9)
}

func TestComputeTotalsDeterministic(t *testing.T) {
	cart := []CartLine{{Qty: 3, Rate: 33.33, GSTRate: 18, Discount: 2.5}}
	charges := []OtherCharge{{Type: "Packing", Amount: 12.75, GSTRate: 18}}

	first := ComputeTotals(cart, charges, true, SupplyInterState, false)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ComputeTotals(cart, charges, true, SupplyInterState, false))
	}
	// Net is always a whole number.
	assert.Zero(t, first.Net-float64(int64(first.Net)))
}
