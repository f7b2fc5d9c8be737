package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tomasagata/extra-api-sub001/model"
)

type CategoryRepoMysql struct {
	db *sql.DB
}

func NewCategoryRepoMysql(db *sql.DB) *CategoryRepoMysql {
	return &CategoryRepoMysql{db: db}
}

const selectCategory = `SELECT id, owner_id, name, icon_id FROM categories`

func (c *CategoryRepoMysql) query(ctx context.Context, statement string, args ...interface{}) ([]model.Category, error) {
	rows, err := c.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var category model.Category
		err := rows.Scan(&category.ID, &category.OwnerID, &category.Name, &category.IconID)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *CategoryRepoMysql) Find(ctx context.Context, ownerID int64) ([]model.Category, error) {
	return c.query(ctx, selectCategory+" WHERE owner_id = ? ORDER BY id", ownerID)
}

func (c *CategoryRepoMysql) FindByID(ctx context.Context, ownerID, id int64) (*model.Category, error) {
	var category model.Category
	err := c.db.QueryRowContext(ctx, selectCategory+" WHERE id = ? AND owner_id = ?", id, ownerID).
		Scan(&category.ID, &category.OwnerID, &category.Name, &category.IconID)
	if err != nil {
		return nil, mapError(err)
	}
	return &category, nil
}

func (c *CategoryRepoMysql) FindByName(ctx context.Context, ownerID int64, name string) (*model.Category, error) {
	var category model.Category
	err := c.db.QueryRowContext(ctx, selectCategory+" WHERE owner_id = ? AND name = ?", ownerID, name).
		Scan(&category.ID, &category.OwnerID, &category.Name, &category.IconID)
	if err != nil {
		return nil, mapError(err)
	}
	return &category, nil
}

func (c *CategoryRepoMysql) FindByNames(ctx context.Context, ownerID int64, names []string) ([]model.Category, error) {
	if len(names) == 0 {
		return []model.Category{}, nil
	}
	args := make([]interface{}, 0, len(names)+1)
	args = append(args, ownerID)
	for _, name := range names {
		args = append(args, name)
	}
	statement := selectCategory + " WHERE owner_id = ? AND name IN (" + placeholders(len(names)) + ") ORDER BY id"
	return c.query(ctx, statement, args...)
}

func (c *CategoryRepoMysql) Create(ctx context.Context, category *model.Category) (*model.Category, error) {
	statement := "INSERT INTO categories(owner_id, name, icon_id) VALUES(?, ?, ?)"
	result, err := c.db.ExecContext(ctx, statement, category.OwnerID, category.Name, category.IconID)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	created := *category
	created.ID = id
	return &created, nil
}

func (c *CategoryRepoMysql) Delete(ctx context.Context, ownerID, id int64) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return mapError(err)
	}
	return expectOne(result)
}

func (c *CategoryRepoMysql) InUse(ctx context.Context, ownerID, id int64) (bool, error) {
	statement := `SELECT
		EXISTS(SELECT 1 FROM transactions WHERE owner_id = ? AND category_id = ?) OR
		EXISTS(SELECT 1 FROM budgets WHERE owner_id = ? AND category_id = ?) OR
		EXISTS(SELECT 1 FROM investments WHERE owner_id = ? AND category_id = ?)`
	var inUse bool
	err := c.db.QueryRowContext(ctx, statement, ownerID, id, ownerID, id, ownerID, id).Scan(&inUse)
	if err != nil {
		return false, err
	}
	return inUse, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
