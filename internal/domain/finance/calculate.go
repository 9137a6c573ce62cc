// Package finance computes job quote totals, tax and margin.
package finance

import (
	"math"

	"github.com/scanops/oms/internal/domain/entity"
)

// Round rounds a money amount to cents, mapping NaN and infinities to 0
func Round(v float64) float64 {
	v = sanitize(v)
	return math.Round(v*100) / 100
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Calculate recomputes line amounts, totals, costs and margin on the job in place
func Calculate(job *entity.Job) {
	var subtotal float64
	for i := range job.LineItems {
		item := &job.LineItems[i]
		item.Quantity = sanitize(item.Quantity)
		item.UnitPrice = sanitize(item.UnitPrice)
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		item.Amount = Round(qty * item.UnitPrice)
		subtotal += item.Amount
	}
	subtotal = Round(subtotal)

	var discount float64
	if job.Discount != nil {
		job.Discount.Value = sanitize(job.Discount.Value)
		switch job.Discount.Type {
		case entity.DiscountPercent:
			discount = subtotal * job.Discount.Value / 100
		case entity.DiscountFixed:
			discount = job.Discount.Value
		}
		// a discount never exceeds the subtotal
		discount = Round(math.Max(math.Min(discount, subtotal), 0))
		job.Discount.Amount = discount
	}

	base := Round(subtotal - discount)
	job.TaxRate = sanitize(job.TaxRate)
	tax := Round(base * job.TaxRate / 100)

	var costs float64
	for i := range job.ExternalExpenses {
		job.ExternalExpenses[i].Amount = Round(job.ExternalExpenses[i].Amount)
		costs += job.ExternalExpenses[i].Amount
	}
	costs = Round(costs)

	margin := Round(base - costs)
	var marginPct float64
	if base != 0 {
		marginPct = Round(margin / base * 100)
	}

	job.Subtotal = subtotal
	job.DiscountAmount = discount
	job.TaxAmount = tax
	job.TotalWithTax = Round(base + tax)
	job.TotalCosts = costs
	job.Margin = margin
	job.MarginPercent = marginPct
	job.VendorPrice = Round(job.VendorPrice)
	job.TravelPayout = Round(job.TravelPayout)
	job.OffHoursPayout = Round(job.OffHoursPayout)
}
