package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"induswealth/internal/core"
)

func newTestComparator(t *testing.T) *StrategyComparator {
	t.Helper()
	fixed := func() time.Time {
		return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return NewStrategyComparator(newTestNormalizer(t), NewSimulator(), WithClock(fixed))
}

func TestCompareEmptyDebtSet(t *testing.T) {
	c := newTestComparator(t)

	report, err := c.Compare(nil, nil, nil, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if report.TotalDebt != 0 || report.DebtCount != 0 {
		t.Errorf("totals = %+v, want zero", report)
	}
	for name, outcome := range map[string]StrategyOutcome{
		"status_quo": report.Strategies.StatusQuo,
		"avalanche":  report.Strategies.Avalanche,
		"snowball":   report.Strategies.Snowball,
	} {
		if outcome.MonthsToPayoff != 0 || outcome.TotalInterest != 0 {
			t.Errorf("%s outcome = %+v, want zero", name, outcome)
		}
	}
	if report.Savings != (Savings{}) {
		t.Errorf("savings = %+v, want zero", report.Savings)
	}
}

func TestCompareTwoCards(t *testing.T) {
	c := newTestComparator(t)

	custom := []core.CustomDebt{
		{ID: "high", Name: "High APR card", Balance: decimal.NewFromInt(5000), APR: decimal.NewFromInt(24), MinimumPayment: decimal.NewFromInt(150), Type: core.TypeCreditCard},
		{ID: "low", Name: "Low balance card", Balance: decimal.NewFromInt(1000), APR: decimal.NewFromInt(12), MinimumPayment: decimal.NewFromInt(50), Type: core.TypeCreditCard},
	}

	report, err := c.Compare(nil, custom, nil, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if report.DebtCount != 2 || len(report.Debts) != 2 {
		t.Fatalf("debt count = %d (%d details), want 2", report.DebtCount, len(report.Debts))
	}
	if report.TotalDebt != 6000 {
		t.Errorf("total debt = %v, want 6000", report.TotalDebt)
	}
	if report.TotalMinimumPayment != 200 {
		t.Errorf("total minimum = %v, want 200", report.TotalMinimumPayment)
	}
	if report.ExtraPayment != 100 {
		t.Errorf("extra = %v, want 100", report.ExtraPayment)
	}

	st := report.Strategies
	if st.Avalanche.TotalInterest > st.Snowball.TotalInterest {
		t.Errorf("avalanche interest %v > snowball %v", st.Avalanche.TotalInterest, st.Snowball.TotalInterest)
	}
	if st.Snowball.TotalInterest > st.StatusQuo.TotalInterest {
		t.Errorf("snowball interest %v > status quo %v", st.Snowball.TotalInterest, st.StatusQuo.TotalInterest)
	}
	if st.Avalanche.MonthsToPayoff > st.StatusQuo.MonthsToPayoff {
		t.Errorf("avalanche months %d > status quo %d", st.Avalanche.MonthsToPayoff, st.StatusQuo.MonthsToPayoff)
	}

	sv := report.Savings
	if sv.InterestSavedAvalanche < 0 || sv.InterestSavedSnowball < 0 || sv.MonthsSavedAvalanche < 0 || sv.MonthsSavedSnowball < 0 {
		t.Errorf("savings went negative: %+v", sv)
	}
	if sv.InterestSavedAvalanche < sv.InterestSavedSnowball {
		t.Errorf("avalanche saves %v, less than snowball %v", sv.InterestSavedAvalanche, sv.InterestSavedSnowball)
	}

	// Every converging debt carries a solo horizon.
	for _, d := range report.Debts {
		if d.NeverPaysOff {
			t.Errorf("debt %s flagged as never paying off", d.ID)
		}
		if d.SoloPayoffMonths == nil || *d.SoloPayoffMonths < 1 {
			t.Errorf("debt %s has no solo payoff months", d.ID)
		}
	}
}

func TestCompareNegativeExtraTreatedAsZero(t *testing.T) {
	c := newTestComparator(t)

	custom := []core.CustomDebt{
		{ID: "c1", Name: "Card", Balance: decimal.NewFromInt(1000), APR: decimal.NewFromInt(18), MinimumPayment: decimal.NewFromInt(50), Type: core.TypeCreditCard},
	}

	report, err := c.Compare(nil, custom, nil, decimal.NewFromInt(-100))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if report.ExtraPayment != 0 {
		t.Fatalf("extra = %v, want 0", report.ExtraPayment)
	}
	if report.Strategies.Avalanche.MonthsToPayoff != report.Strategies.StatusQuo.MonthsToPayoff {
		t.Fatalf("zero extra should equal status quo: %d vs %d",
			report.Strategies.Avalanche.MonthsToPayoff, report.Strategies.StatusQuo.MonthsToPayoff)
	}
}

func TestCompareNonConvergentDebt(t *testing.T) {
	c := newTestComparator(t)

	custom := []core.CustomDebt{
		{ID: "stuck", Name: "Stuck card", Balance: decimal.NewFromInt(5000), APR: decimal.NewFromFloat(29.99), MinimumPayment: decimal.NewFromInt(10), Type: core.TypeCreditCard},
	}

	report, err := c.Compare(nil, custom, nil, decimal.Zero)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(report.Debts) != 1 {
		t.Fatalf("got %d debts, want 1", len(report.Debts))
	}
	d := report.Debts[0]
	if !d.NeverPaysOff {
		t.Error("expected never_pays_off")
	}
	if d.SoloPayoffMonths != nil {
		t.Errorf("solo months = %d, want nil", *d.SoloPayoffMonths)
	}
	if report.Strategies.StatusQuo.MonthsToPayoff != MaxPayoffMonths {
		t.Errorf("status quo months = %d, want %d", report.Strategies.StatusQuo.MonthsToPayoff, MaxPayoffMonths)
	}
}

func TestCompareReportJSONShape(t *testing.T) {
	c := newTestComparator(t)

	custom := []core.CustomDebt{
		{ID: "c1", Name: "Card", Balance: decimal.NewFromInt(1000), APR: decimal.NewFromInt(18), MinimumPayment: decimal.NewFromInt(50), Type: core.TypeCreditCard},
	}
	report, err := c.Compare(nil, custom, nil, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"total_debt", "total_minimum_payment", "extra_payment", "debt_count", "debts", "strategies", "savings"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("report is missing %q", key)
		}
	}
	strategies, ok := decoded["strategies"].(map[string]any)
	if !ok {
		t.Fatal("strategies is not an object")
	}
	for _, key := range []string{"status_quo", "avalanche", "snowball"} {
		if _, ok := strategies[key]; !ok {
			t.Errorf("strategies is missing %q", key)
		}
	}
	savings, ok := decoded["savings"].(map[string]any)
	if !ok {
		t.Fatal("savings is not an object")
	}
	for _, key := range []string{"interest_saved_avalanche", "months_saved_avalanche", "interest_saved_snowball", "months_saved_snowball"} {
		if _, ok := savings[key]; !ok {
			t.Errorf("savings is missing %q", key)
		}
	}

	// Payoff dates render as year-month.
	if got := report.Strategies.StatusQuo.PayoffDate; len(got) != 7 || got[4] != '-' {
		t.Errorf("payoff date = %q, want YYYY-MM", got)
	}
}
