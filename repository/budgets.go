package repository

import (
	"context"
	"database/sql"

	"github.com/tomasagata/extra-api-sub001/model"
)

type BudgetRepoMysql struct {
	db *sql.DB
}

func NewBudgetRepoMysql(db *sql.DB) *BudgetRepoMysql {
	return &BudgetRepoMysql{db: db}
}

const selectBudget = `SELECT b.id, b.owner_id, b.name, b.limit_amount, b.current_amount, b.creation_date, b.limit_date,
	c.id, c.owner_id, c.name, c.icon_id
	FROM budgets b JOIN categories c ON c.id = b.category_id`

func scanBudget(row rowScanner) (model.Budget, error) {
	var b model.Budget
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.LimitAmount, &b.CurrentAmount, &b.CreationDate, &b.LimitDate,
		&b.Category.ID, &b.Category.OwnerID, &b.Category.Name, &b.Category.IconID)
	return b, err
}

func (r *BudgetRepoMysql) Find(ctx context.Context, ownerID int64) ([]model.Budget, error) {
	rows, err := r.db.QueryContext(ctx, selectBudget+" WHERE b.owner_id = ? ORDER BY b.id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []model.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return budgets, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func findBudget(ctx context.Context, q queryer, ownerID, id int64) (*model.Budget, error) {
	b, err := scanBudget(q.QueryRowContext(ctx, selectBudget+" WHERE b.id = ? AND b.owner_id = ?", id, ownerID))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BudgetRepoMysql) FindByID(ctx context.Context, ownerID, id int64) (*model.Budget, error) {
	b, err := findBudget(ctx, r.db, ownerID, id)
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

// Expenses of the category inside the window, summed in the writing statement
// so no expense posted meanwhile is missed.
const sumExpenses = `SELECT COALESCE(SUM(amount), 0) FROM transactions
	WHERE owner_id = ? AND category_id = ? AND kind = ? AND date BETWEEN ? AND ?`

func sumArgs(b *model.Budget) []interface{} {
	return []interface{}{b.OwnerID, b.Category.ID, string(model.KindExpense), b.CreationDate, b.LimitDate}
}

func (r *BudgetRepoMysql) Create(ctx context.Context, budget *model.Budget) (*model.Budget, error) {
	statement := `INSERT INTO budgets(owner_id, category_id, name, limit_amount, creation_date, limit_date, current_amount)
		SELECT ?, ?, ?, ?, ?, ?, (` + sumExpenses + `)`
	args := append([]interface{}{budget.OwnerID, budget.Category.ID, budget.Name,
		budget.LimitAmount, budget.CreationDate, budget.LimitDate}, sumArgs(budget)...)

	var created *model.Budget
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, statement, args...)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		created, err = findBudget(ctx, tx, budget.OwnerID, id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

func (r *BudgetRepoMysql) Update(ctx context.Context, budget *model.Budget) (*model.Budget, error) {
	statement := `UPDATE budgets SET category_id = ?, name = ?, limit_amount = ?, creation_date = ?, limit_date = ?,
		current_amount = (` + sumExpenses + `)
		WHERE id = ? AND owner_id = ?`
	args := append([]interface{}{budget.Category.ID, budget.Name, budget.LimitAmount,
		budget.CreationDate, budget.LimitDate}, sumArgs(budget)...)
	args = append(args, budget.ID, budget.OwnerID)

	var updated *model.Budget
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, statement, args...)
		if err != nil {
			return err
		}
		if err := expectOne(result); err != nil {
			return err
		}
		updated, err = findBudget(ctx, tx, budget.OwnerID, budget.ID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return updated, nil
}

func (r *BudgetRepoMysql) Delete(ctx context.Context, ownerID, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return mapError(err)
	}
	return expectOne(result)
}
