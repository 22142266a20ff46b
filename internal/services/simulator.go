// This file implements the repayment simulator: month-by-month amortization
// of a debt set under a debt-targeting order, with an optional extra monthly
// payment directed at the first eligible debt.
package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"induswealth/internal/core"
)

// MaxPayoffMonths caps every simulation at 50 years so pathological inputs
// (minimum payment below monthly interest) still terminate.
const MaxPayoffMonths = 600

const (
	// OrderAPRDescending targets the highest-rate debt first (avalanche).
	OrderAPRDescending Ordering = "apr_desc"
	// OrderBalanceAscending targets the smallest balance first (snowball).
	OrderBalanceAscending Ordering = "balance_asc"
)

type (
	// Ordering selects which debt receives the extra payment each month.
	Ordering string

	// PayoffEvent records the month a debt first reaches zero balance.
	PayoffEvent struct {
		DebtID string `json:"debt_id"`
		Name   string `json:"name"`
		Month  int    `json:"month"`
	}

	// SimulationResult is the outcome of one strategy run. TotalInterest is
	// exact; rounding happens at the reporting edge.
	SimulationResult struct {
		TotalInterest  decimal.Decimal
		MonthsToPayoff int
		PayoffOrder    []PayoffEvent
	}

	// Simulator runs amortization over a private copy of its input; callers
	// can reuse the same debt slice across runs.
	Simulator struct {
		// rolloverExtra applies leftover extra payment to the next eligible
		// debt within the same month. Off by default: the baseline behavior
		// targets exactly one debt per month.
		rolloverExtra bool
	}

	// SimulatorOption configures a Simulator.
	SimulatorOption func(*Simulator)
)

// WithExtraRollover makes leftover extra payment flow to the next debt in
// order within the same month instead of being forfeited.
func WithExtraRollover() SimulatorOption {
	return func(s *Simulator) { s.rolloverExtra = true }
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate amortizes the debt set month by month until every balance reaches
// zero or the safety ceiling is hit. Negative extra payments are treated as
// zero. The input slice is never modified.
func (s *Simulator) Simulate(debts []core.DebtRecord, extra decimal.Decimal, order Ordering) SimulationResult {
	if extra.IsNegative() {
		extra = decimal.Zero
	}

	work := make([]core.DebtRecord, 0, len(debts))
	for _, d := range core.CloneDebts(debts) {
		if d.Balance.IsPositive() {
			work = append(work, d)
		}
	}

	result := SimulationResult{
		TotalInterest: decimal.Zero,
		PayoffOrder:   []PayoffEvent{},
	}
	if len(work) == 0 {
		return result
	}

	paidOff := make(map[string]bool, len(work))

	for month := 1; month <= MaxPayoffMonths; month++ {
		// Balances change every month, so the extra-payment target must be
		// re-chosen every month.
		sortByOrdering(work, order)

		for i := range work {
			d := &work[i]
			if !d.Balance.IsPositive() {
				continue
			}

			interest := d.MonthlyInterest()
			d.Balance = d.Balance.Add(interest)
			result.TotalInterest = result.TotalInterest.Add(interest)

			payment := d.MinimumPayment
			if payment.GreaterThan(d.Balance) {
				payment = d.Balance
			}
			d.Balance = d.Balance.Sub(payment)

			if !d.Balance.IsPositive() && !paidOff[d.ID] {
				paidOff[d.ID] = true
				result.PayoffOrder = append(result.PayoffOrder, PayoffEvent{DebtID: d.ID, Name: d.Name, Month: month})
			}
		}

		remaining := extra
		for i := range work {
			d := &work[i]
			if !d.Balance.IsPositive() || !remaining.IsPositive() {
				continue
			}

			payment := remaining
			if payment.GreaterThan(d.Balance) {
				payment = d.Balance
			}
			d.Balance = d.Balance.Sub(payment)
			remaining = remaining.Sub(payment)

			if !d.Balance.IsPositive() && !paidOff[d.ID] {
				paidOff[d.ID] = true
				result.PayoffOrder = append(result.PayoffOrder, PayoffEvent{DebtID: d.ID, Name: d.Name, Month: month})
			}
			if !s.rolloverExtra {
				break
			}
		}

		result.MonthsToPayoff = month
		if allPaid(work) {
			return result
		}
	}

	// Ceiling reached with balances outstanding; callers read 600 months as
	// "never pays off".
	return result
}

func sortByOrdering(debts []core.DebtRecord, order Ordering) {
	switch order {
	case OrderBalanceAscending:
		sort.SliceStable(debts, func(i, j int) bool {
			return debts[i].Balance.LessThan(debts[j].Balance)
		})
	default:
		sort.SliceStable(debts, func(i, j int) bool {
			return debts[i].APR.GreaterThan(debts[j].APR)
		})
	}
}

func allPaid(debts []core.DebtRecord) bool {
	for i := range debts {
		if debts[i].Balance.IsPositive() {
			return false
		}
	}
	return true
}

// PayoffDate converts a month count into the year-month the final payment
// lands on, relative to now.
func PayoffDate(now time.Time, months int) time.Time {
	return now.AddDate(0, months, 0)
}
