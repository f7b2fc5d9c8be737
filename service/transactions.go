package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/model"
)

type TransactionService struct {
	categories   contract.CategoryRepo
	transactions contract.TransactionRepo
}

func NewTransactionService(categories contract.CategoryRepo, transactions contract.TransactionRepo) *TransactionService {
	return &TransactionService{categories: categories, transactions: transactions}
}

// Filter returns the owner's transactions matching c, ordered by date then id.
// Category names the owner does not have match nothing.
func (s *TransactionService) Filter(ctx context.Context, ownerID int64, c model.FilterCriteria) ([]model.TransactionView, error) {
	transactions, err := s.find(ctx, ownerID, c)
	if err != nil {
		return nil, err
	}
	views := make([]model.TransactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, t.View())
	}
	return views, nil
}

// Totals aggregates the filtered transactions per category, ordered by category name.
func (s *TransactionService) Totals(ctx context.Context, ownerID int64, c model.FilterCriteria) ([]model.CategoryTotal, error) {
	transactions, err := s.find(ctx, ownerID, c)
	if err != nil {
		return nil, err
	}

	byCategory := map[int64]*model.CategoryTotal{}
	for _, t := range transactions {
		total, ok := byCategory[t.Category.ID]
		if !ok {
			total = &model.CategoryTotal{
				Category: t.Category.Ref(),
				Expenses: decimal.Zero,
				Deposits: decimal.Zero,
			}
			byCategory[t.Category.ID] = total
		}
		if t.IsExpense() {
			total.Expenses = total.Expenses.Add(t.Amount)
		} else {
			total.Deposits = total.Deposits.Add(t.Amount)
		}
		total.Count++
	}

	totals := make([]model.CategoryTotal, 0, len(byCategory))
	for _, total := range byCategory {
		total.Net = total.Deposits.Sub(total.Expenses)
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Category.Name < totals[j].Category.Name
	})
	return totals, nil
}

func (s *TransactionService) find(ctx context.Context, ownerID int64, c model.FilterCriteria) ([]model.Transaction, error) {
	q := model.TransactionQuery{OwnerID: ownerID, From: c.From, Until: c.Until}

	if c.HasCategories() {
		categories, err := s.categories.FindByNames(ctx, ownerID, c.Categories)
		if err != nil {
			return nil, fmt.Errorf("resolve categories: %w", err)
		}
		if len(categories) == 0 {
			return []model.Transaction{}, nil
		}
		for _, category := range categories {
			q.CategoryIDs = append(q.CategoryIDs, category.ID)
		}
	}

	transactions, err := s.transactions.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		a, b := transactions[i], transactions[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	return transactions, nil
}

func (s *TransactionService) build(ctx context.Context, ownerID int64, kind model.Kind, req model.TransactionRequest) (*model.Transaction, error) {
	category, err := s.categories.FindByName(ctx, ownerID, req.Category)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", req.Category, err)
	}
	return &model.Transaction{
		OwnerID:  ownerID,
		Kind:     kind,
		Concept:  req.Concept,
		Amount:   *req.Amount,
		Date:     req.Date,
		Category: *category,
	}, nil
}

// AddExpense posts an expense; every budget of its category active on its date grows by its amount.
func (s *TransactionService) AddExpense(ctx context.Context, ownerID int64, req model.TransactionRequest) (*model.TransactionView, error) {
	t, err := s.build(ctx, ownerID, model.KindExpense, req)
	if err != nil {
		return nil, err
	}
	created, err := s.transactions.CreateExpense(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("user_id", ownerID).Int64("transaction_id", created.ID).
		Str("category", created.Category.Name).Msg("expense added")
	view := created.View()
	return &view, nil
}

// AddDeposit posts a deposit. Deposits never change budgets.
func (s *TransactionService) AddDeposit(ctx context.Context, ownerID int64, req model.TransactionRequest) (*model.TransactionView, error) {
	t, err := s.build(ctx, ownerID, model.KindDeposit, req)
	if err != nil {
		return nil, err
	}
	created, err := s.transactions.CreateDeposit(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("user_id", ownerID).Int64("transaction_id", created.ID).Msg("deposit added")
	view := created.View()
	return &view, nil
}

func (s *TransactionService) expense(ctx context.Context, ownerID, id int64) (*model.Transaction, error) {
	t, err := s.transactions.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("expense %d: %w", id, err)
	}
	if !t.IsExpense() {
		return nil, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// UpdateExpense replaces an expense. The old amount leaves the budgets it was
// counted in before the new amount is counted against the new category and date.
func (s *TransactionService) UpdateExpense(ctx context.Context, ownerID, id int64, req model.TransactionRequest) (*model.TransactionView, error) {
	old, err := s.expense(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	t, err := s.build(ctx, ownerID, model.KindExpense, req)
	if err != nil {
		return nil, err
	}
	t.ID = old.ID
	t.CreatedAt = old.CreatedAt
	if err := s.transactions.UpdateExpense(ctx, old, t); err != nil {
		return nil, fmt.Errorf("update expense %d: %w", id, err)
	}
	view := t.View()
	return &view, nil
}

// DeleteExpense removes an expense and takes its amount back out of the budgets it counted in.
func (s *TransactionService) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	t, err := s.expense(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.transactions.DeleteExpense(ctx, t); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}
