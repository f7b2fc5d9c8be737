package repository

import (
	"context"
	"database/sql"

	"github.com/tomasagata/extra-api-sub001/model"
)

type InvestmentRepoMysql struct {
	db *sql.DB
}

func NewInvestmentRepoMysql(db *sql.DB) *InvestmentRepoMysql {
	return &InvestmentRepoMysql{db: db}
}

const selectInvestment = `SELECT i.id, i.owner_id, i.name, i.initial_amount, i.return_amount, i.return_interval_days,
	i.start_date, i.end_date, i.next_return_date, c.id, c.owner_id, c.name, c.icon_id
	FROM investments i JOIN categories c ON c.id = i.category_id`

func scanInvestment(row rowScanner) (model.Investment, error) {
	var (
		i       model.Investment
		endDate model.Date
	)
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.InitialAmount, &i.ReturnAmount, &i.ReturnIntervalDays,
		&i.StartDate, &endDate, &i.NextReturnDate, &i.Category.ID, &i.Category.OwnerID, &i.Category.Name, &i.Category.IconID)
	if err != nil {
		return i, err
	}
	if !endDate.IsZero() {
		i.EndDate = &endDate
	}
	return i, nil
}

func (r *InvestmentRepoMysql) query(ctx context.Context, statement string, args ...interface{}) ([]model.Investment, error) {
	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	investments := []model.Investment{}
	for rows.Next() {
		i, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, i)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *InvestmentRepoMysql) Find(ctx context.Context, ownerID int64) ([]model.Investment, error) {
	return r.query(ctx, selectInvestment+" WHERE i.owner_id = ? ORDER BY i.id", ownerID)
}

func (r *InvestmentRepoMysql) FindByID(ctx context.Context, ownerID, id int64) (*model.Investment, error) {
	i, err := scanInvestment(r.db.QueryRowContext(ctx, selectInvestment+" WHERE i.id = ? AND i.owner_id = ?", id, ownerID))
	if err != nil {
		return nil, mapError(err)
	}
	return &i, nil
}

func (r *InvestmentRepoMysql) FindDue(ctx context.Context, today model.Date) ([]model.Investment, error) {
	statement := selectInvestment + ` WHERE i.next_return_date <= ?
		AND (i.end_date IS NULL OR i.next_return_date <= i.end_date) ORDER BY i.id`
	return r.query(ctx, statement, today)
}

func (r *InvestmentRepoMysql) Create(ctx context.Context, investment *model.Investment, initial *model.Transaction) (*model.Investment, error) {
	statement := `INSERT INTO investments(owner_id, category_id, name, initial_amount, return_amount, return_interval_days,
		start_date, end_date, next_return_date) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var endDate interface{}
	if investment.EndDate != nil {
		endDate = *investment.EndDate
	}
	created := *investment
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, statement, investment.OwnerID, investment.Category.ID, investment.Name,
			investment.InitialAmount, investment.ReturnAmount, investment.ReturnIntervalDays,
			investment.StartDate, endDate, investment.NextReturnDate)
		if err != nil {
			return err
		}
		if created.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		expense, err := insert(ctx, tx, initial)
		if err != nil {
			return err
		}
		return adjust(ctx, tx, expense, expense.Amount)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

// AdvanceReturn is a compare-and-set on next_return_date.
func (r *InvestmentRepoMysql) AdvanceReturn(ctx context.Context, id int64, from, to model.Date) (bool, error) {
	statement := "UPDATE investments SET next_return_date = ? WHERE id = ? AND next_return_date = ?"
	result, err := r.db.ExecContext(ctx, statement, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *InvestmentRepoMysql) Delete(ctx context.Context, ownerID, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM investments WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return mapError(err)
	}
	return expectOne(result)
}
