package services

import "induswealth/internal/core"

// soloNonConvergenceGrace is how many months the solo estimator amortizes
// before declaring that a minimum payment which still does not cover the
// monthly interest will never retire the debt.
const soloNonConvergenceGrace = 12

// SoloPayoff is the horizon of a single debt paid with only its own minimum
// payment. Converges is false when the debt never reaches zero under the
// current minimum payment; Months is meaningless in that case.
type SoloPayoff struct {
	Months    int
	Converges bool
}

// EstimateSoloPayoff amortizes one debt in isolation. Unlike the full
// simulator, it reports non-convergence explicitly instead of silently
// running into the month ceiling.
func EstimateSoloPayoff(debt core.DebtRecord) SoloPayoff {
	if !debt.Balance.IsPositive() {
		return SoloPayoff{Months: 0, Converges: true}
	}

	d := debt
	for month := 1; month <= MaxPayoffMonths; month++ {
		interest := d.MonthlyInterest()
		if month > soloNonConvergenceGrace && !d.MinimumPayment.GreaterThan(interest) {
			return SoloPayoff{Converges: false}
		}

		d.Balance = d.Balance.Add(interest)
		payment := d.MinimumPayment
		if payment.GreaterThan(d.Balance) {
			payment = d.Balance
		}
		d.Balance = d.Balance.Sub(payment)

		if !d.Balance.IsPositive() {
			return SoloPayoff{Months: month, Converges: true}
		}
	}
	return SoloPayoff{Converges: false}
}
