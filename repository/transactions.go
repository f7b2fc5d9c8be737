package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomasagata/extra-api-sub001/model"
)

type TransactionRepoMysql struct {
	db *sql.DB
}

func NewTransactionRepoMysql(db *sql.DB) *TransactionRepoMysql {
	return &TransactionRepoMysql{db: db}
}

const selectTransaction = `SELECT t.id, t.owner_id, t.kind, t.concept, t.amount, t.date, t.investment_id, t.created_at,
	c.id, c.owner_id, c.name, c.icon_id
	FROM transactions t JOIN categories c ON c.id = t.category_id`

const (
	insertTransaction = "INSERT INTO transactions(owner_id, category_id, kind, concept, amount, date, investment_id, created_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?)"

	// Adds to every budget of the category whose window contains the date.
	adjustBudgets = `UPDATE budgets SET current_amount = current_amount + ?
		WHERE owner_id = ? AND category_id = ? AND ? BETWEEN creation_date AND limit_date`
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		t            model.Transaction
		investmentID sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Kind, &t.Concept, &t.Amount, &t.Date, &investmentID, &t.CreatedAt,
		&t.Category.ID, &t.Category.OwnerID, &t.Category.Name, &t.Category.IconID)
	if err != nil {
		return t, err
	}
	if investmentID.Valid {
		id := investmentID.Int64
		t.InvestmentID = &id
	}
	return t, nil
}

// Find returns the matching transactions ordered by date and id.
func (r *TransactionRepoMysql) Find(ctx context.Context, q model.TransactionQuery) ([]model.Transaction, error) {
	where := []string{"t.owner_id = ?"}
	args := []interface{}{q.OwnerID}
	if len(q.CategoryIDs) > 0 {
		where = append(where, "t.category_id IN ("+placeholders(len(q.CategoryIDs))+")")
		for _, id := range q.CategoryIDs {
			args = append(args, id)
		}
	}
	if q.From != nil {
		where = append(where, "t.date >= ?")
		args = append(args, *q.From)
	}
	if q.Until != nil {
		where = append(where, "t.date <= ?")
		args = append(args, *q.Until)
	}
	if q.Kind != "" {
		where = append(where, "t.kind = ?")
		args = append(args, string(q.Kind))
	}
	statement := selectTransaction + " WHERE " + strings.Join(where, " AND ") + " ORDER BY t.date, t.id"

	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *TransactionRepoMysql) FindByID(ctx context.Context, ownerID, id int64) (*model.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+" WHERE t.id = ? AND t.owner_id = ?", id, ownerID)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func insert(ctx context.Context, tx *sql.Tx, t *model.Transaction) (*model.Transaction, error) {
	created := *t
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	var investmentID interface{}
	if t.InvestmentID != nil {
		investmentID = *t.InvestmentID
	}
	result, err := tx.ExecContext(ctx, insertTransaction,
		t.OwnerID, t.Category.ID, string(t.Kind), t.Concept, t.Amount, t.Date, investmentID, created.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	created.ID = id
	return &created, nil
}

func adjust(ctx context.Context, tx *sql.Tx, t *model.Transaction, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, adjustBudgets, amount, t.OwnerID, t.Category.ID, t.Date)
	return err
}

func (r *TransactionRepoMysql) CreateExpense(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	var created *model.Transaction
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		if created, err = insert(ctx, tx, t); err != nil {
			return err
		}
		return adjust(ctx, tx, created, created.Amount)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

func (r *TransactionRepoMysql) CreateDeposit(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	var created *model.Transaction
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		created, err = insert(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

// lockExpense reads the stored expense under a row lock so its budget effect
// can be reversed exactly.
func lockExpense(ctx context.Context, tx *sql.Tx, ownerID, id int64) (*model.Transaction, error) {
	statement := "SELECT id, owner_id, category_id, amount, date FROM transactions WHERE id = ? AND owner_id = ? AND kind = ? FOR UPDATE"
	var stored model.Transaction
	err := tx.QueryRowContext(ctx, statement, id, ownerID, string(model.KindExpense)).
		Scan(&stored.ID, &stored.OwnerID, &stored.Category.ID, &stored.Amount, &stored.Date)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *TransactionRepoMysql) UpdateExpense(ctx context.Context, old, t *model.Transaction) error {
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		stored, err := lockExpense(ctx, tx, old.OwnerID, old.ID)
		if err != nil {
			return err
		}
		if err := adjust(ctx, tx, stored, stored.Amount.Neg()); err != nil {
			return err
		}
		statement := "UPDATE transactions SET category_id = ?, concept = ?, amount = ?, date = ? WHERE id = ? AND owner_id = ?"
		if _, err := tx.ExecContext(ctx, statement,
			t.Category.ID, t.Concept, t.Amount, t.Date, stored.ID, stored.OwnerID); err != nil {
			return err
		}
		updated := *t
		updated.OwnerID = stored.OwnerID
		return adjust(ctx, tx, &updated, updated.Amount)
	})
	return mapError(err)
}

func (r *TransactionRepoMysql) DeleteExpense(ctx context.Context, t *model.Transaction) error {
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		stored, err := lockExpense(ctx, tx, t.OwnerID, t.ID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", stored.ID); err != nil {
			return err
		}
		return adjust(ctx, tx, stored, stored.Amount.Neg())
	})
	return mapError(err)
}
