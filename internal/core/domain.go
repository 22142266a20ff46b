package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TypeCreditCard   DebtType = "credit_card"
	TypeStudentLoan  DebtType = "student_loan"
	TypeMortgage     DebtType = "mortgage"
	TypePersonalLoan DebtType = "personal_loan"
	TypeLineOfCredit DebtType = "line_of_credit"
	TypeOther        DebtType = "other"
)

type (
	// DebtType tags a debt for default-APR lookup. It never influences
	// simulation math.
	DebtType string

	// DebtRecord is the uniform debt shape every source normalizes into.
	// Balance, APR and MinimumPayment are always resolved and non-negative
	// by the time a record reaches the simulator.
	DebtRecord struct {
		ID             string
		Name           string
		Balance        decimal.Decimal
		APR            decimal.Decimal // annual rate as a percentage, e.g. 19.99
		MinimumPayment decimal.Decimal
		Type           DebtType
		IsCustom       bool
	}

	// DefaultAPRTable maps a normalized debt type to the APR assumed when
	// neither the user nor the data source supplies one.
	DefaultAPRTable map[DebtType]decimal.Decimal
)

var (
	ErrNegativeAPR        = errors.New("apr cannot be negative")
	ErrNegativeBalance    = errors.New("balance cannot be negative")
	ErrZeroMinimumPayment = errors.New("minimum payment must be positive for a positive balance")
	ErrEmptyName          = errors.New("empty debt name")
)

var (
	monthsPerYear = decimal.NewFromInt(12)
	hundred       = decimal.NewFromInt(100)
)

// NormalizeDebtType maps a raw source string to a known DebtType.
// Lower-cases, converts whitespace runs to underscores; unknown values
// become TypeOther.
func NormalizeDebtType(raw string) DebtType {
	switch t := DebtType(canonicalTypeString(raw)); t {
	case TypeCreditCard, TypeStudentLoan, TypeMortgage, TypePersonalLoan, TypeLineOfCredit, TypeOther:
		return t
	default:
		return TypeOther
	}
}

// DefaultAPRs builds the fallback APR table. Callers receive a fresh map so
// nothing shared is ever mutated.
func DefaultAPRs() DefaultAPRTable {
	return DefaultAPRTable{
		TypeCreditCard:   decimal.NewFromFloat(22.0),
		TypeLineOfCredit: decimal.NewFromFloat(11.0),
		TypePersonalLoan: decimal.NewFromFloat(10.0),
		TypeStudentLoan:  decimal.NewFromFloat(6.0),
		TypeMortgage:     decimal.NewFromFloat(5.0),
		TypeOther:        decimal.NewFromFloat(15.0),
	}
}

// MonthlyRate converts the annual percentage rate to a simple nominal
// monthly rate: apr / 100 / 12.
func (d DebtRecord) MonthlyRate() decimal.Decimal {
	return d.APR.Div(hundred).Div(monthsPerYear)
}

// MonthlyInterest is the interest the debt accrues in one month at its
// current balance.
func (d DebtRecord) MonthlyInterest() decimal.Decimal {
	return d.Balance.Mul(d.MonthlyRate())
}

func (d DebtRecord) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if d.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if d.APR.IsNegative() {
		return ErrNegativeAPR
	}
	if d.Balance.IsPositive() && !d.MinimumPayment.IsPositive() {
		return ErrZeroMinimumPayment
	}
	return nil
}

// CloneDebts returns an independent copy of the debt slice. decimal.Decimal
// has value semantics, so copying the structs is a deep copy.
func CloneDebts(debts []DebtRecord) []DebtRecord {
	out := make([]DebtRecord, len(debts))
	copy(out, debts)
	return out
}
