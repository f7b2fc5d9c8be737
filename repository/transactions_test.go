package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/model"
)

var transactionColumns = []string{
	"id", "owner_id", "kind", "concept", "amount", "date", "investment_id", "created_at",
	"c.id", "c.owner_id", "c.name", "c.icon_id",
}

func mustDate(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func expense(amount, day string) *model.Transaction {
	return &model.Transaction{
		OwnerID:  1,
		Kind:     model.KindExpense,
		Concept:  "Groceries",
		Amount:   decimal.RequireFromString(amount),
		Date:     mustDate(day),
		Category: model.Category{ID: 3, OwnerID: 1, Name: "Food"},
	}
}

func TestTransactionRepoMysql_Find(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("all filters", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		from, until := mustDate("2023-09-01"), mustDate("2023-09-10")
		rows := sqlmock.NewRows(transactionColumns).
			AddRow(1, 1, "expense", "Lunch", "10.00", "2023-09-01", nil, created, 3, 1, "Food", 4).
			AddRow(2, 1, "deposit", "Return: Bond", "5.00", "2023-09-08", 7, created, 3, 1, "Food", 4)
		mock.ExpectQuery(`WHERE t.owner_id = \? AND t.category_id IN \(\?, \?\) AND t.date >= \? AND t.date <= \? ORDER BY t.date, t.id`).
			WithArgs(1, 3, 5, "2023-09-01", "2023-09-10").
			WillReturnRows(rows)

		got, err := repo.Find(ctx, model.TransactionQuery{OwnerID: 1, CategoryIDs: []int64{3, 5}, From: &from, Until: &until})
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, model.KindExpense, got[0].Kind)
		assert.Equal(t, "10", got[0].Amount.String())
		assert.Equal(t, "2023-09-01", got[0].Date.String())
		assert.Nil(t, got[0].InvestmentID)
		assert.Equal(t, "Food", got[0].Category.Name)

		assert.Equal(t, model.KindDeposit, got[1].Kind)
		require.NotNil(t, got[1].InvestmentID)
		assert.Equal(t, int64(7), *got[1].InvestmentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner only", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		mock.ExpectQuery(`WHERE t.owner_id = \? ORDER BY`).WithArgs(1).
			WillReturnRows(sqlmock.NewRows(transactionColumns))

		got, err := repo.Find(ctx, model.TransactionQuery{OwnerID: 1})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestTransactionRepoMysql_CreateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("insert and budget increment commit together", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(1, 3, "expense", "Groceries", "25", "2023-09-15", nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec(`UPDATE budgets SET current_amount = current_amount \+ \?`).
			WithArgs("25", 1, 3, "2023-09-15").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		created, err := repo.CreateExpense(ctx, expense("25.00", "2023-09-15"))
		require.NoError(t, err)
		assert.Equal(t, int64(11), created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("budget failure rolls back the insert", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec("UPDATE budgets").WillReturnError(errors.New("lock wait timeout"))
		mock.ExpectRollback()

		_, err := repo.CreateExpense(ctx, expense("25.00", "2023-09-15"))
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepoMysql_CreateDeposit(t *testing.T) {
	db, mock := NewMock()
	defer db.Close()
	repo := NewTransactionRepoMysql(db)

	investmentID := int64(7)
	deposit := expense("5", "2023-09-08")
	deposit.Kind = model.KindDeposit
	deposit.InvestmentID = &investmentID

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(1, 3, "deposit", "Groceries", "5", "2023-09-08", 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	_, err := repo.CreateDeposit(context.Background(), deposit)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var lockedColumns = []string{"id", "owner_id", "category_id", "amount", "date"}

func TestTransactionRepoMysql_UpdateExpense(t *testing.T) {
	t.Run("reverses the stored row", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		// The caller read 10 on 09-05; a concurrent edit already moved it.
		old := expense("10", "2023-09-05")
		old.ID = 4
		updated := expense("15", "2023-09-06")
		updated.ID = 4
		updated.Category = model.Category{ID: 5, OwnerID: 1, Name: "Travel"}

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, owner_id, category_id, amount, date FROM transactions WHERE id = \? AND owner_id = \? AND kind = \? FOR UPDATE`).
			WithArgs(4, 1, "expense").
			WillReturnRows(sqlmock.NewRows(lockedColumns).AddRow(4, 1, 3, "12.00", "2023-09-07"))
		mock.ExpectExec("UPDATE budgets").WithArgs("-12", 1, 3, "2023-09-07").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE transactions").
			WithArgs(5, "Groceries", "15", "2023-09-06", 4, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE budgets").WithArgs("15", 1, 5, "2023-09-06").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.UpdateExpense(context.Background(), old, updated))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		old := expense("10", "2023-09-05")
		old.ID = 4
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WithArgs(4, 1, "expense").WillReturnRows(sqlmock.NewRows(lockedColumns))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.UpdateExpense(context.Background(), old, expense("15", "2023-09-06")), contract.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepoMysql_DeleteExpense(t *testing.T) {
	t.Run("reverses budgets", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		e := expense("10", "2023-09-05")
		e.ID = 4
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WithArgs(4, 1, "expense").
			WillReturnRows(sqlmock.NewRows(lockedColumns).AddRow(4, 1, 3, "10.00", "2023-09-05"))
		mock.ExpectExec(`DELETE FROM transactions WHERE id = \?`).WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE budgets").WithArgs("-10", 1, 3, "2023-09-05").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.DeleteExpense(context.Background(), e))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := NewMock()
		defer db.Close()
		repo := NewTransactionRepoMysql(db)

		e := expense("10", "2023-09-05")
		e.ID = 4
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WithArgs(4, 1, "expense").WillReturnRows(sqlmock.NewRows(lockedColumns))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.DeleteExpense(context.Background(), e), contract.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
