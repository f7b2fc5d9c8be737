package service

import (
	"context"
	"fmt"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/model"
)

type InvestmentService struct {
	categories  contract.CategoryRepo
	investments contract.InvestmentRepo
}

func NewInvestmentService(categories contract.CategoryRepo, investments contract.InvestmentRepo) *InvestmentService {
	return &InvestmentService{categories: categories, investments: investments}
}

func (s *InvestmentService) List(ctx context.Context, ownerID int64) ([]model.InvestmentView, error) {
	investments, err := s.investments.Find(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]model.InvestmentView, 0, len(investments))
	for _, i := range investments {
		views = append(views, i.View())
	}
	return views, nil
}

// Create stores the investment and posts its initial amount as an expense on
// the start date. The first return falls one interval after the start.
func (s *InvestmentService) Create(ctx context.Context, ownerID int64, req model.InvestmentRequest) (*model.InvestmentView, error) {
	category, err := s.categories.FindByName(ctx, ownerID, req.Category)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", req.Category, err)
	}
	i := &model.Investment{
		OwnerID:            ownerID,
		Name:               req.Name,
		InitialAmount:      *req.InitialAmount,
		ReturnAmount:       *req.ReturnAmount,
		ReturnIntervalDays: req.ReturnIntervalDays,
		StartDate:          *req.StartDate,
		NextReturnDate:     req.StartDate.AddDays(req.ReturnIntervalDays),
		Category:           *category,
	}
	if req.EndDate != nil && !req.EndDate.IsZero() {
		end := *req.EndDate
		i.EndDate = &end
	}

	initial := &model.Transaction{
		OwnerID:  ownerID,
		Kind:     model.KindExpense,
		Concept:  "Investment: " + i.Name,
		Amount:   i.InitialAmount,
		Date:     i.StartDate,
		Category: i.Category,
	}
	created, err := s.investments.Create(ctx, i, initial)
	if err != nil {
		return nil, fmt.Errorf("create investment: %w", err)
	}
	view := created.View()
	return &view, nil
}

// Delete stops future returns. Transactions already posted stay.
func (s *InvestmentService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.investments.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("investment %d: %w", id, err)
	}
	return nil
}
