package model

import "github.com/shopspring/decimal"

type Budget struct {
	ID            int64           `json:"id"`
	OwnerID       int64           `json:"-"`
	Name          string          `json:"name"`
	LimitAmount   decimal.Decimal `json:"limitAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	CreationDate  Date            `json:"creationDate"`
	LimitDate     Date            `json:"limitDate"`
	Category      Category        `json:"-"`
}

// Active reports whether a transaction dated d counts against the budget.
func (b Budget) Active(d Date) bool {
	return d.Between(&b.CreationDate, &b.LimitDate)
}

type BudgetView struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	LimitAmount   decimal.Decimal `json:"limitAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	CreationDate  Date            `json:"creationDate"`
	LimitDate     Date            `json:"limitDate"`
	Category      CategoryRef     `json:"category"`
}

func (b Budget) View() BudgetView {
	return BudgetView{
		ID:            b.ID,
		Name:          b.Name,
		LimitAmount:   b.LimitAmount,
		CurrentAmount: b.CurrentAmount,
		CreationDate:  b.CreationDate,
		LimitDate:     b.LimitDate,
		Category:      b.Category.Ref(),
	}
}

type BudgetRequest struct {
	Name         string           `json:"name" validate:"required,max=50"`
	LimitAmount  *decimal.Decimal `json:"limitAmount" validate:"required,positive,money"`
	CreationDate *Date            `json:"creationDate" validate:"required"`
	LimitDate    *Date            `json:"limitDate" validate:"required"`
	Category     string           `json:"category" validate:"required,categoryname"`
}

func (b BudgetRequest) DateBounds() (*Date, *Date, string, string) {
	return b.CreationDate, b.LimitDate, "creationDate", "limitDate"
}
