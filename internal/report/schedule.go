package report

import "time"

// OrderAmountScale converts CRM order amounts, kept in millions, to currency.
const OrderAmountScale = 1_000_000

// MaxBillingCount bounds the number of installments in one schedule.
const MaxBillingCount = 1200

type Installment struct {
	Month  time.Time
	Amount float64
}

// DefaultBillingCount is the inclusive number of calendar months between
// start and end; used when a contract has no installment count.
func DefaultBillingCount(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
}

// AmortizationSchedule spreads total evenly over billingCount consecutive
// months starting at the contract start month. A nil or zero count falls back
// to DefaultBillingCount. A zero total, a missing date or a count outside
// 1..MaxBillingCount gives no schedule.
func AmortizationSchedule(total float64, billingCount *int, start, end *time.Time) []Installment {
	if total == 0 || start == nil || end == nil {
		return nil
	}
	count := 0
	if billingCount != nil {
		count = *billingCount
	}
	if count == 0 {
		count = DefaultBillingCount(*start, *end)
	}
	if count <= 0 || count > MaxBillingCount {
		return nil
	}

	perMonth := total / float64(count)
	month := firstOfMonth(*start)
	schedule := make([]Installment, 0, count)
	for i := 0; i < count; i++ {
		schedule = append(schedule, Installment{Month: month, Amount: perMonth})
		month = month.AddDate(0, 1, 0)
	}
	return schedule
}
