package billing

import (
	"github.com/shopspring/decimal"
)

// Totals is the money summary of a bill. Net is always a whole number;
// RoundOff is the signed difference between Net and the raw pre-rounding
// total, to two decimals.
type Totals struct {
	Gross    float64 `json:"grossTotal"`
	Taxable  float64 `json:"taxable"`
	CGST     float64 `json:"cgst"`
	SGST     float64 `json:"sgst"`
	IGST     float64 `json:"igst"`
	Net      float64 `json:"netTotal"`
	RoundOff float64 `json:"roundOff"`
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals is a pure function from bill content to its money summary.
// Line value is qty * rate less the percentage discount; tax applies per
// line at its GST rate when GST is enabled. Intra-state supply splits the
// tax evenly into CGST and SGST, inter-state books it all as IGST. Under
// reverse charge the tax is computed but not collected, so it stays out of
// the net total. The net is rounded to the nearest rupee and the remainder
// becomes the round-off.
func ComputeTotals(cart []CartLine, charges []OtherCharge, gstEnabled bool, supplyType string, reverseCharge bool) Totals {
	taxable := decimal.Zero
	lineTax := decimal.Zero
	for _, line := range cart {
		qty := decimal.NewFromFloat(line.Qty)
		rate := decimal.NewFromFloat(line.Rate)
		disc := decimal.NewFromFloat(line.Discount)
		value := qty.Mul(rate).Mul(hundred.Sub(disc)).Div(hundred)
		taxable = taxable.Add(value)
		if gstEnabled {
			lineTax = lineTax.Add(value.Mul(decimal.NewFromFloat(line.GSTRate)).Div(hundred))
		}
	}

	gross := taxable
	chargeTax := decimal.Zero
	for _, c := range charges {
		amount := decimal.NewFromFloat(c.Amount)
		gross = gross.Add(amount)
		if gstEnabled {
			chargeTax = chargeTax.Add(amount.Mul(decimal.NewFromFloat(c.GSTRate)).Div(hundred))
		}
	}

	totalTax := lineTax.Add(chargeTax)
	var cgst, sgst, igst decimal.Decimal
	if supplyType == SupplyInterState {
		igst = totalTax
	} else {
		cgst = totalTax.Div(decimal.NewFromInt(2))
		sgst = cgst
	}

	raw := gross
	if !reverseCharge {
		raw = raw.Add(totalTax)
	}
	net := raw.Round(0)
	roundOff := net.Sub(raw.Round(2)).Round(2)

	return Totals{
		Gross:    toMoney(gross),
		Taxable:  toMoney(taxable),
		CGST:     toMoney(cgst),
		SGST:     toMoney(sgst),
		IGST:     toMoney(igst),
		Net:      toMoney(net),
		RoundOff: toMoney(roundOff),
	}
}

func toMoney(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
