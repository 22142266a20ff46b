package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	LiabilityCredit LiabilityKind = "credit"
	LiabilityLoan   LiabilityKind = "loan"
)

type (
	// LiabilityKind distinguishes the two aggregator liability families.
	LiabilityKind string

	// AggregatedLiability is a debt account as reported by the bank
	// aggregation API, before APR and minimum-payment resolution. Pointer
	// fields are nil when the aggregator omits the value.
	AggregatedLiability struct {
		AccountID      string
		Name           string
		Balance        decimal.Decimal
		APR            *decimal.Decimal // explicit rate, e.g. a purchase APR
		MinimumPayment *decimal.Decimal
		Kind           LiabilityKind
		Subtype        string // raw aggregator subtype, e.g. "student", "mortgage"
	}

	// CustomDebt is a debt the user entered by hand. APR and minimum payment
	// may still be zero when the user skipped them, in which case the
	// normalizer fills them in.
	CustomDebt struct {
		ID             string
		Name           string
		Balance        decimal.Decimal
		APR            decimal.Decimal
		MinimumPayment decimal.Decimal
		Type           DebtType
	}
)

// DebtTypeFor resolves the normalized debt type of an aggregated liability:
// credit accounts are credit cards, loans are classified by their subtype.
func (l AggregatedLiability) DebtTypeFor() DebtType {
	if l.Kind == LiabilityCredit {
		return TypeCreditCard
	}
	switch canonicalTypeString(l.Subtype) {
	case "student", "student_loan":
		return TypeStudentLoan
	case "mortgage", "home", "home_equity":
		return TypeMortgage
	case "personal", "consumer", "auto", "personal_loan":
		return TypePersonalLoan
	case "line_of_credit":
		return TypeLineOfCredit
	default:
		return TypeOther
	}
}

// canonicalTypeString lower-cases a raw type string and collapses whitespace
// runs to underscores.
func canonicalTypeString(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(s), "_")
}
