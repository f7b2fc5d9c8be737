package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/model"
)

type CategoryService struct {
	categories contract.CategoryRepo
}

func NewCategoryService(categories contract.CategoryRepo) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) List(ctx context.Context, ownerID int64) ([]model.Category, error) {
	return s.categories.Find(ctx, ownerID)
}

func (s *CategoryService) Create(ctx context.Context, ownerID int64, req model.CategoryRequest) (*model.Category, error) {
	category, err := s.categories.Create(ctx, &model.Category{
		OwnerID: ownerID,
		Name:    req.Name,
		IconID:  *req.IconID,
	})
	if err != nil {
		if errors.Is(err, contract.ErrDuplicate) {
			return nil, fmt.Errorf("category %q: %w", req.Name, ErrConflict)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// Delete refuses categories still referenced by a transaction, budget or investment.
func (s *CategoryService) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.categories.FindByID(ctx, ownerID, id); err != nil {
		return fmt.Errorf("category %d: %w", id, err)
	}
	inUse, err := s.categories.InUse(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("category %d usage: %w", id, err)
	}
	if inUse {
		return ErrCategoryInUse
	}
	return s.categories.Delete(ctx, ownerID, id)
}
