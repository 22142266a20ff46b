// This file implements AI-generated debt insight text. The LLM call is best
// effort: a deterministic summary is returned whenever the model is
// unavailable, and successful answers are cached.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"induswealth/internal/cache"
)

const insightCacheTTL = 24 * time.Hour

// InsightService produces a short narrative about a user's debt situation
// and the recommended payoff strategy.
type InsightService struct {
	llm   Completer
	cache cache.TextCache
}

func NewInsightService(llm Completer, textCache cache.TextCache) *InsightService {
	return &InsightService{llm: llm, cache: textCache}
}

// DebtInsight returns insight text for the comparison report. The cache key
// incorporates the report's totals and the status-quo interest so a changed
// debt picture regenerates the text; totals alone would collide for two
// pictures with the same balances but different APR mixes.
func (s *InsightService) DebtInsight(ctx context.Context, userID int64, report StrategyComparisonReport) (string, error) {
	key := fmt.Sprintf("insight:debt:%d:%.2f:%.2f:%d:%.2f",
		userID, report.TotalDebt, report.ExtraPayment, report.DebtCount,
		report.Strategies.StatusQuo.TotalInterest)

	if s.cache != nil {
		if text, ok, err := s.cache.Get(ctx, key); err != nil {
			slog.WarnContext(ctx, "Insight cache read failed", "error", err)
		} else if ok {
			return text, nil
		}
	}

	text := s.generate(ctx, report)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text, insightCacheTTL); err != nil {
			slog.WarnContext(ctx, "Insight cache write failed", "error", err)
		}
	}
	return text, nil
}

func (s *InsightService) generate(ctx context.Context, report StrategyComparisonReport) string {
	if s.llm == nil || !s.llm.Enabled() {
		return fallbackInsight(report)
	}

	text, err := s.llm.Complete(ctx, insightPrompt(report))
	if err != nil {
		slog.WarnContext(ctx, "LLM insight generation failed, using fallback", "error", err)
		return fallbackInsight(report)
	}
	return text
}

func insightPrompt(report StrategyComparisonReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a personal-finance assistant. A user has %d debts totaling $%.2f with combined minimum payments of $%.2f/month",
		report.DebtCount, report.TotalDebt, report.TotalMinimumPayment)
	if report.ExtraPayment > 0 {
		fmt.Fprintf(&b, " and $%.2f/month available above the minimums", report.ExtraPayment)
	}
	b.WriteString(".\n\nDebts:\n")
	for _, d := range report.Debts {
		fmt.Fprintf(&b, "- %s: $%.2f at %.2f%% APR, minimum $%.2f/month\n", d.Name, d.Balance, d.APR, d.MinimumPayment)
	}
	fmt.Fprintf(&b, "\nSimulated outcomes:\n- minimum payments only: %d months, $%.2f interest\n- avalanche: %d months, $%.2f interest\n- snowball: %d months, $%.2f interest\n",
		report.Strategies.StatusQuo.MonthsToPayoff, report.Strategies.StatusQuo.TotalInterest,
		report.Strategies.Avalanche.MonthsToPayoff, report.Strategies.Avalanche.TotalInterest,
		report.Strategies.Snowball.MonthsToPayoff, report.Strategies.Snowball.TotalInterest)
	b.WriteString("\nIn 3-4 plain sentences, explain which strategy fits this user and why, naming the dollar and month savings. Be encouraging but realistic. Do not give regulated financial advice disclaimers.")
	return b.String()
}

// fallbackInsight is the deterministic text used when no LLM is configured
// or the call fails.
func fallbackInsight(report StrategyComparisonReport) string {
	if report.DebtCount == 0 {
		return "You have no outstanding debts right now. Any extra cash can go straight to savings or investments."
	}

	s := report.Savings
	if report.ExtraPayment <= 0 || (s.InterestSavedAvalanche <= 0 && s.MonthsSavedAvalanche <= 0) {
		return fmt.Sprintf(
			"Paying only the minimums, your %d debts totaling $%.2f will take %d months to clear and cost $%.2f in interest. Adding even a small extra monthly payment would shorten that meaningfully.",
			report.DebtCount, report.TotalDebt, report.Strategies.StatusQuo.MonthsToPayoff, report.Strategies.StatusQuo.TotalInterest)
	}

	return fmt.Sprintf(
		"With $%.2f extra per month, the avalanche strategy (highest APR first) clears your $%.2f of debt %d months sooner and saves $%.2f in interest versus minimum payments. The snowball strategy saves $%.2f; choose it if early wins keep you motivated.",
		report.ExtraPayment, report.TotalDebt, s.MonthsSavedAvalanche, s.InterestSavedAvalanche, s.InterestSavedSnowball)
}
