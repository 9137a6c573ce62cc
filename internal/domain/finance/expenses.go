package finance

import "github.com/scanops/oms/internal/domain/entity"

type payoutSource struct {
	category    string
	description string
	amount      func(*entity.Job) float64
}

var payoutSources = []payoutSource{
	{entity.ExpenseCategoryVendor, "Vendor price", func(j *entity.Job) float64 { return j.VendorPrice }},
	{entity.ExpenseCategoryTravel, "Travel payout", func(j *entity.Job) float64 { return j.TravelPayout }},
	{entity.ExpenseCategoryOffHours, "Off-hours payout", func(j *entity.Job) float64 { return j.OffHoursPayout }},
}

// SyncAutoExpenses mirrors the payout fields into auto-generated expenses.
// Existing auto entries are updated in place, dropped when the payout is 0;
// manual expenses are never touched.
func SyncAutoExpenses(job *entity.Job) {
	wanted := make(map[string]float64, len(payoutSources))
	for _, src := range payoutSources {
		if v := Round(src.amount(job)); v > 0 {
			wanted[src.category] = v
		}
	}

	seen := make(map[string]bool, len(wanted))
	kept := job.ExternalExpenses[:0:0]
	for _, exp := range job.ExternalExpenses {
		if !exp.AutoGenerated {
			kept = append(kept, exp)
			continue
		}
		amount, ok := wanted[exp.Category]
		if !ok || seen[exp.Category] {
			continue
		}
		exp.Amount = amount
		seen[exp.Category] = true
		kept = append(kept, exp)
	}

	for _, src := range payoutSources {
		amount, ok := wanted[src.category]
		if !ok || seen[src.category] {
			continue
		}
		kept = append(kept, entity.Expense{
			Description:   src.description,
			Category:      src.category,
			Amount:        amount,
			AutoGenerated: true,
		})
	}

	job.ExternalExpenses = kept
}
