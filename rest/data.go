package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tomasagata/extra-api-sub001/model"
	"github.com/tomasagata/extra-api-sub001/service"
)

// DemoUsername and DemoPassword log into the account created by AddData.
const (
	DemoUsername = "peter"
	DemoPassword = "correct horse"
)

var demoCategories = []model.CategoryRequest{
	{Name: "Food", IconID: intPtr(1)},
	{Name: "Travel", IconID: intPtr(2)},
	{Name: "Salary", IconID: intPtr(3)},
	{Name: "Savings", IconID: intPtr(4)},
}

func intPtr(i int) *int { return &i }

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// AddData fills an empty store with a demo account holding a month of
// activity around today. It is a no-op when the demo user already exists.
func (a *App) AddData(ctx context.Context, today model.Date) error {
	user, err := a.Users.Register(ctx, model.UserRegister{
		Username: DemoUsername,
		Email:    "peter@example.com",
		Password: DemoPassword,
	})
	if errors.Is(err, service.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("demo user: %w", err)
	}

	for _, c := range demoCategories {
		if _, err := a.Categories.Create(ctx, user.ID, c); err != nil {
			return fmt.Errorf("demo category %s: %w", c.Name, err)
		}
	}

	monthStart := model.NewDate(today.Year(), today.Month(), 1)
	monthEnd := monthStart.AddDays(31)
	monthEnd = model.NewDate(monthEnd.Year(), monthEnd.Month(), 1).AddDays(-1)
	_, err = a.Budgets.Create(ctx, user.ID, model.BudgetRequest{
		Name:         "Groceries",
		LimitAmount:  money("300"),
		CreationDate: &monthStart,
		LimitDate:    &monthEnd,
		Category:     "Food",
	})
	if err != nil {
		return fmt.Errorf("demo budget: %w", err)
	}

	if _, err := a.Transactions.AddDeposit(ctx, user.ID, model.TransactionRequest{
		Concept:  "Salary",
		Amount:   money("2500"),
		Date:     monthStart,
		Category: "Salary",
	}); err != nil {
		return fmt.Errorf("demo deposit: %w", err)
	}

	expenses := []model.TransactionRequest{
		{Concept: "Lunch", Amount: money("10.00"), Date: monthStart, Category: "Food"},
		{Concept: "Groceries", Amount: money("64.30"), Date: monthStart.AddDays(2), Category: "Food"},
		{Concept: "Flight", Amount: money("500.00"), Date: monthStart.AddDays(9), Category: "Travel"},
	}
	for _, e := range expenses {
		if _, err := a.Transactions.AddExpense(ctx, user.ID, e); err != nil {
			return fmt.Errorf("demo expense %s: %w", e.Concept, err)
		}
	}

	_, err = a.Investments.Create(ctx, user.ID, model.InvestmentRequest{
		Name:               "Bond",
		InitialAmount:      money("1000"),
		ReturnAmount:       money("12.50"),
		ReturnIntervalDays: 7,
		StartDate:          &monthStart,
		Category:           "Savings",
	})
	if err != nil {
		return fmt.Errorf("demo investment: %w", err)
	}
	return nil
}
