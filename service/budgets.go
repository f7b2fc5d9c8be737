package service

import (
	"context"
	"fmt"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/model"
)

type BudgetService struct {
	categories contract.CategoryRepo
	budgets    contract.BudgetRepo
}

func NewBudgetService(categories contract.CategoryRepo, budgets contract.BudgetRepo) *BudgetService {
	return &BudgetService{categories: categories, budgets: budgets}
}

func (s *BudgetService) List(ctx context.Context, ownerID int64) ([]model.BudgetView, error) {
	budgets, err := s.budgets.Find(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]model.BudgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, b.View())
	}
	return views, nil
}

func (s *BudgetService) Get(ctx context.Context, ownerID, id int64) (*model.BudgetView, error) {
	b, err := s.budgets.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("budget %d: %w", id, err)
	}
	view := b.View()
	return &view, nil
}

// fill copies req into b. The repository recomputes the current amount from
// the expenses inside the window as part of the write.
func (s *BudgetService) fill(ctx context.Context, b *model.Budget, req model.BudgetRequest) error {
	category, err := s.categories.FindByName(ctx, b.OwnerID, req.Category)
	if err != nil {
		return fmt.Errorf("category %q: %w", req.Category, err)
	}
	b.Name = req.Name
	b.LimitAmount = *req.LimitAmount
	b.CreationDate = *req.CreationDate
	b.LimitDate = *req.LimitDate
	b.Category = *category
	return nil
}

func (s *BudgetService) Create(ctx context.Context, ownerID int64, req model.BudgetRequest) (*model.BudgetView, error) {
	b := &model.Budget{OwnerID: ownerID}
	if err := s.fill(ctx, b, req); err != nil {
		return nil, err
	}
	created, err := s.budgets.Create(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	view := created.View()
	return &view, nil
}

func (s *BudgetService) Update(ctx context.Context, ownerID, id int64, req model.BudgetRequest) (*model.BudgetView, error) {
	b, err := s.budgets.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("budget %d: %w", id, err)
	}
	if err := s.fill(ctx, b, req); err != nil {
		return nil, err
	}
	updated, err := s.budgets.Update(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("update budget %d: %w", id, err)
	}
	view := updated.View()
	return &view, nil
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.budgets.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("budget %d: %w", id, err)
	}
	return nil
}
