// Package services provides business logic and orchestration services.
//
// This file implements the debt normalizer: it converts aggregator-sourced
// liabilities and user-entered custom debts into the uniform DebtRecord
// shape, resolving APR and minimum payment through a fixed fallback chain.
package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"induswealth/internal/core"
)

// NormalizerConfig controls minimum-payment estimation and APR fallback.
type NormalizerConfig struct {
	// CardMinimumRate estimates a missing credit-card minimum payment as a
	// fraction of the balance.
	CardMinimumRate decimal.Decimal
	// LoanMinimumRate does the same for aggregated loans.
	LoanMinimumRate decimal.Decimal
	// CustomMinimumRate applies to user-entered debts.
	CustomMinimumRate decimal.Decimal
	// MinimumFloor is the lowest estimated minimum payment.
	MinimumFloor decimal.Decimal
	// DefaultAPRs supplies the per-type fallback rates.
	DefaultAPRs core.DefaultAPRTable
}

// DefaultNormalizerConfig returns the standard resolution policy.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		CardMinimumRate:   decimal.NewFromFloat(0.03),
		LoanMinimumRate:   decimal.NewFromFloat(0.02),
		CustomMinimumRate: decimal.NewFromFloat(0.02),
		MinimumFloor:      decimal.NewFromInt(25),
		DefaultAPRs:       core.DefaultAPRs(),
	}
}

// Normalizer flattens heterogeneous debt sources into DebtRecords ready for
// simulation. Records with non-positive balances are dropped; every record
// that survives has a resolved, positive minimum payment.
type Normalizer struct {
	cfg NormalizerConfig
}

func NewNormalizer(cfg NormalizerConfig) (*Normalizer, error) {
	if !cfg.MinimumFloor.IsPositive() {
		return nil, fmt.Errorf("minimum payment floor must be positive")
	}
	if !cfg.CardMinimumRate.IsPositive() || !cfg.LoanMinimumRate.IsPositive() || !cfg.CustomMinimumRate.IsPositive() {
		return nil, fmt.Errorf("minimum payment rates must be positive")
	}
	if len(cfg.DefaultAPRs) == 0 {
		return nil, fmt.Errorf("default APR table is empty")
	}
	if _, ok := cfg.DefaultAPRs[core.TypeOther]; !ok {
		return nil, fmt.Errorf("default APR table has no %q entry", core.TypeOther)
	}
	return &Normalizer{cfg: cfg}, nil
}

// Normalize resolves every source record into a DebtRecord. The overrides
// map carries user-corrected APRs keyed by account (or custom debt) ID and
// wins over any other APR source.
func (n *Normalizer) Normalize(
	liabilities []core.AggregatedLiability,
	custom []core.CustomDebt,
	overrides map[string]decimal.Decimal,
) ([]core.DebtRecord, error) {
	for id, apr := range overrides {
		if apr.IsNegative() {
			return nil, fmt.Errorf("apr override for %s: %w", id, core.ErrNegativeAPR)
		}
	}

	debts := make([]core.DebtRecord, 0, len(liabilities)+len(custom))
	for _, l := range liabilities {
		rec, keep, err := n.normalizeLiability(l, overrides)
		if err != nil {
			return nil, err
		}
		if keep {
			debts = append(debts, rec)
		}
	}
	for _, c := range custom {
		rec, keep, err := n.normalizeCustom(c, overrides)
		if err != nil {
			return nil, err
		}
		if keep {
			debts = append(debts, rec)
		}
	}
	return debts, nil
}

func (n *Normalizer) normalizeLiability(l core.AggregatedLiability, overrides map[string]decimal.Decimal) (core.DebtRecord, bool, error) {
	if !l.Balance.IsPositive() {
		return core.DebtRecord{}, false, nil
	}

	debtType := l.DebtTypeFor()

	apr, ok := overrides[l.AccountID]
	if !ok {
		switch {
		case l.APR != nil:
			apr = *l.APR
		default:
			apr = n.defaultAPR(debtType)
		}
	}
	if apr.IsNegative() {
		return core.DebtRecord{}, false, fmt.Errorf("liability %s: %w", l.AccountID, core.ErrNegativeAPR)
	}

	var minimum decimal.Decimal
	if l.MinimumPayment != nil && l.MinimumPayment.IsPositive() {
		minimum = *l.MinimumPayment
	} else {
		rate := n.cfg.CardMinimumRate
		if l.Kind == core.LiabilityLoan {
			rate = n.cfg.LoanMinimumRate
		}
		minimum = n.estimateMinimum(l.Balance, rate)
	}

	rec := core.DebtRecord{
		ID:             l.AccountID,
		Name:           l.Name,
		Balance:        l.Balance,
		APR:            apr,
		MinimumPayment: minimum,
		Type:           debtType,
		IsCustom:       false,
	}
	if err := rec.Validate(); err != nil {
		return core.DebtRecord{}, false, fmt.Errorf("liability %s: %w", l.AccountID, err)
	}
	return rec, true, nil
}

func (n *Normalizer) normalizeCustom(c core.CustomDebt, overrides map[string]decimal.Decimal) (core.DebtRecord, bool, error) {
	if !c.Balance.IsPositive() {
		return core.DebtRecord{}, false, nil
	}

	debtType := core.NormalizeDebtType(string(c.Type))

	apr, ok := overrides[c.ID]
	if !ok {
		apr = c.APR
		if apr.IsZero() {
			apr = n.defaultAPR(debtType)
		}
	}
	if apr.IsNegative() {
		return core.DebtRecord{}, false, fmt.Errorf("custom debt %s: %w", c.ID, core.ErrNegativeAPR)
	}

	minimum := c.MinimumPayment
	if !minimum.IsPositive() {
		minimum = n.estimateMinimum(c.Balance, n.cfg.CustomMinimumRate)
	}

	rec := core.DebtRecord{
		ID:             c.ID,
		Name:           c.Name,
		Balance:        c.Balance,
		APR:            apr,
		MinimumPayment: minimum,
		Type:           debtType,
		IsCustom:       true,
	}
	if err := rec.Validate(); err != nil {
		return core.DebtRecord{}, false, fmt.Errorf("custom debt %s: %w", c.ID, err)
	}
	return rec, true, nil
}

func (n *Normalizer) defaultAPR(t core.DebtType) decimal.Decimal {
	if apr, ok := n.cfg.DefaultAPRs[t]; ok {
		return apr
	}
	return n.cfg.DefaultAPRs[core.TypeOther]
}

// estimateMinimum returns max(balance*rate, floor). The floor keeps the
// estimate above zero for any positive balance so the simulator always
// terminates.
func (n *Normalizer) estimateMinimum(balance, rate decimal.Decimal) decimal.Decimal {
	est := balance.Mul(rate)
	if est.LessThan(n.cfg.MinimumFloor) {
		return n.cfg.MinimumFloor
	}
	return est
}
