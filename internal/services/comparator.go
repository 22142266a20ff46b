// This file implements the strategy comparator: it normalizes the debt
// sources once, runs the simulator under each repayment strategy, and
// assembles the comparison report the mobile client renders.
package services

import (
	"time"

	"github.com/shopspring/decimal"

	"induswealth/internal/core"
)

const (
	StrategyStatusQuo = "status_quo"
	StrategyAvalanche = "avalanche"
	StrategySnowball  = "snowball"
)

// payoffDateLayout renders payoff dates as a year-month value.
const payoffDateLayout = "2006-01"

type (
	// DebtDetail is the per-debt display entry of a comparison report.
	DebtDetail struct {
		ID               string  `json:"id"`
		Name             string  `json:"name"`
		Balance          float64 `json:"balance"`
		APR              float64 `json:"apr"`
		MinimumPayment   float64 `json:"minimum_payment"`
		DebtType         string  `json:"debt_type"`
		IsCustom         bool    `json:"is_custom"`
		SoloPayoffMonths *int    `json:"solo_payoff_months"`
		NeverPaysOff     bool    `json:"never_pays_off"`
	}

	// StrategyOutcome is one simulated strategy, rounded for display.
	StrategyOutcome struct {
		TotalInterest  float64       `json:"total_interest"`
		MonthsToPayoff int           `json:"months_to_payoff"`
		PayoffDate     string        `json:"payoff_date"`
		PayoffOrder    []PayoffEvent `json:"payoff_order"`
	}

	// Strategies holds the three simulated outcomes.
	Strategies struct {
		StatusQuo StrategyOutcome `json:"status_quo"`
		Avalanche StrategyOutcome `json:"avalanche"`
		Snowball  StrategyOutcome `json:"snowball"`
	}

	// Savings compares each accelerated strategy against status quo.
	Savings struct {
		InterestSavedAvalanche float64 `json:"interest_saved_avalanche"`
		MonthsSavedAvalanche   int     `json:"months_saved_avalanche"`
		InterestSavedSnowball  float64 `json:"interest_saved_snowball"`
		MonthsSavedSnowball    int     `json:"months_saved_snowball"`
	}

	// StrategyComparisonReport is the top-level payoff comparison output.
	StrategyComparisonReport struct {
		TotalDebt           float64      `json:"total_debt"`
		TotalMinimumPayment float64      `json:"total_minimum_payment"`
		ExtraPayment        float64      `json:"extra_payment"`
		DebtCount           int          `json:"debt_count"`
		Debts               []DebtDetail `json:"debts"`
		Strategies          Strategies   `json:"strategies"`
		Savings             Savings      `json:"savings"`
	}

	// StrategyComparator wires the normalizer and simulator together.
	StrategyComparator struct {
		normalizer *Normalizer
		simulator  *Simulator
		now        func() time.Time
	}

	// ComparatorOption configures a StrategyComparator.
	ComparatorOption func(*StrategyComparator)
)

// WithClock overrides the comparator's notion of the current time; payoff
// dates are derived from it.
func WithClock(now func() time.Time) ComparatorOption {
	return func(c *StrategyComparator) { c.now = now }
}

func NewStrategyComparator(normalizer *Normalizer, simulator *Simulator, opts ...ComparatorOption) *StrategyComparator {
	c := &StrategyComparator{
		normalizer: normalizer,
		simulator:  simulator,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare normalizes the debt sources once and simulates the three
// strategies against the same normalized set. Status quo always runs with
// zero extra payment; avalanche and snowball receive the caller's extra.
func (c *StrategyComparator) Compare(
	liabilities []core.AggregatedLiability,
	custom []core.CustomDebt,
	overrides map[string]decimal.Decimal,
	extra decimal.Decimal,
) (StrategyComparisonReport, error) {
	if extra.IsNegative() {
		extra = decimal.Zero
	}

	debts, err := c.normalizer.Normalize(liabilities, custom, overrides)
	if err != nil {
		return StrategyComparisonReport{}, err
	}

	statusQuo := c.simulator.Simulate(debts, decimal.Zero, OrderAPRDescending)
	avalanche := c.simulator.Simulate(debts, extra, OrderAPRDescending)
	snowball := c.simulator.Simulate(debts, extra, OrderBalanceAscending)

	now := c.now()
	report := StrategyComparisonReport{
		ExtraPayment: roundCurrency(extra),
		DebtCount:    len(debts),
		Debts:        make([]DebtDetail, 0, len(debts)),
		Strategies: Strategies{
			StatusQuo: c.outcome(statusQuo, now),
			Avalanche: c.outcome(avalanche, now),
			Snowball:  c.outcome(snowball, now),
		},
		Savings: Savings{
			InterestSavedAvalanche: roundCurrency(clampZero(statusQuo.TotalInterest.Sub(avalanche.TotalInterest))),
			MonthsSavedAvalanche:   clampZeroInt(statusQuo.MonthsToPayoff - avalanche.MonthsToPayoff),
			InterestSavedSnowball:  roundCurrency(clampZero(statusQuo.TotalInterest.Sub(snowball.TotalInterest))),
			MonthsSavedSnowball:    clampZeroInt(statusQuo.MonthsToPayoff - snowball.MonthsToPayoff),
		},
	}

	totalDebt := decimal.Zero
	totalMinimum := decimal.Zero
	for _, d := range debts {
		totalDebt = totalDebt.Add(d.Balance)
		totalMinimum = totalMinimum.Add(d.MinimumPayment)
		report.Debts = append(report.Debts, debtDetail(d))
	}
	report.TotalDebt = roundCurrency(totalDebt)
	report.TotalMinimumPayment = roundCurrency(totalMinimum)

	return report, nil
}

func (c *StrategyComparator) outcome(sim SimulationResult, now time.Time) StrategyOutcome {
	return StrategyOutcome{
		TotalInterest:  roundCurrency(sim.TotalInterest),
		MonthsToPayoff: sim.MonthsToPayoff,
		PayoffDate:     PayoffDate(now, sim.MonthsToPayoff).Format(payoffDateLayout),
		PayoffOrder:    sim.PayoffOrder,
	}
}

func debtDetail(d core.DebtRecord) DebtDetail {
	detail := DebtDetail{
		ID:             d.ID,
		Name:           d.Name,
		Balance:        roundCurrency(d.Balance),
		APR:            roundCurrency(d.APR),
		MinimumPayment: roundCurrency(d.MinimumPayment),
		DebtType:       string(d.Type),
		IsCustom:       d.IsCustom,
	}
	solo := EstimateSoloPayoff(d)
	if solo.Converges {
		months := solo.Months
		detail.SoloPayoffMonths = &months
	} else {
		detail.NeverPaysOff = true
	}
	return detail
}

func roundCurrency(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampZeroInt(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
