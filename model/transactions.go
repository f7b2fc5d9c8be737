package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the two transaction variants.
type Kind string

const (
	KindExpense Kind = "expense"
	KindDeposit Kind = "deposit"
)

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindDeposit
}

// Transaction is a posted expense or deposit. InvestmentID is only ever set on
// deposits produced by an investment return.
type Transaction struct {
	ID           int64
	OwnerID      int64
	Kind         Kind
	Concept      string
	Amount       decimal.Decimal
	Date         Date
	Category     Category
	InvestmentID *int64
	CreatedAt    time.Time
}

func (t Transaction) IsExpense() bool { return t.Kind == KindExpense }

// View renders the transaction for API consumers.
func (t Transaction) View() TransactionView {
	v := TransactionView{
		ID:       t.ID,
		Concept:  t.Concept,
		Amount:   t.Amount,
		Date:     t.Date,
		Category: t.Category.Ref(),
		Kind:     t.Kind,
	}
	if t.Kind == KindDeposit {
		v.InvestmentID = t.InvestmentID
	}
	return v
}

type TransactionView struct {
	ID           int64           `json:"id"`
	Concept      string          `json:"concept"`
	Amount       decimal.Decimal `json:"amount"`
	Date         Date            `json:"date"`
	Category     CategoryRef     `json:"category"`
	Kind         Kind            `json:"kind"`
	InvestmentID *int64          `json:"investmentId,omitempty"`
}

// TransactionRequest is the body of expense/deposit add and edit calls.
type TransactionRequest struct {
	Concept  string           `json:"concept" validate:"required,max=255"`
	Amount   *decimal.Decimal `json:"amount" validate:"required,money"`
	Date     Date             `json:"date" validate:"required"`
	Category string           `json:"category" validate:"required,categoryname"`
}

// CategoryTotal is the per-category aggregate of a filtered transaction set.
type CategoryTotal struct {
	Category CategoryRef     `json:"category"`
	Expenses decimal.Decimal `json:"expenses"`
	Deposits decimal.Decimal `json:"deposits"`
	Net      decimal.Decimal `json:"net"`
	Count    int             `json:"count"`
}
