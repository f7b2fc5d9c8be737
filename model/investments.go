package model

import (
	"github.com/shopspring/decimal"
)

type Investment struct {
	ID                 int64           `json:"id"`
	OwnerID            int64           `json:"-"`
	Name               string          `json:"name"`
	InitialAmount      decimal.Decimal `json:"initialAmount"`
	ReturnAmount       decimal.Decimal `json:"returnAmount"`
	ReturnIntervalDays int             `json:"returnIntervalDays"`
	StartDate          Date            `json:"startDate"`
	EndDate            *Date           `json:"endDate,omitempty"`
	NextReturnDate     Date            `json:"nextReturnDate"`
	Category           Category        `json:"-"`
}

// Due reports whether a return is owed on or before today.
func (i Investment) Due(today Date) bool {
	if i.NextReturnDate.After(today) {
		return false
	}
	return i.EndDate == nil || !i.NextReturnDate.After(*i.EndDate)
}

type InvestmentView struct {
	Investment
	Category CategoryRef `json:"category"`
}

func (i Investment) View() InvestmentView {
	return InvestmentView{Investment: i, Category: i.Category.Ref()}
}

type InvestmentRequest struct {
	Name               string           `json:"name" validate:"required,max=50"`
	InitialAmount      *decimal.Decimal `json:"initialAmount" validate:"required,positive,money"`
	ReturnAmount       *decimal.Decimal `json:"returnAmount" validate:"required,positive,money"`
	ReturnIntervalDays int              `json:"returnIntervalDays" validate:"required,min=1,max=365"`
	StartDate          *Date            `json:"startDate" validate:"required"`
	EndDate            *Date            `json:"endDate"`
	Category           string           `json:"category" validate:"required,categoryname"`
}

func (r InvestmentRequest) DateBounds() (*Date, *Date, string, string) {
	return r.StartDate, r.EndDate, "startDate", "endDate"
}
