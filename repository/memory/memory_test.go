package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/model"
)

func mustDate(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTransactionRepo_BudgetEffect(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	food, err := s.Categories().Create(ctx, &model.Category{OwnerID: 1, Name: "Food"})
	require.NoError(t, err)
	september, err := s.Budgets().Create(ctx, &model.Budget{
		OwnerID: 1, Name: "September", LimitAmount: decimal.NewFromInt(100),
		CreationDate: mustDate("2023-09-01"), LimitDate: mustDate("2023-09-30"), Category: *food,
	})
	require.NoError(t, err)
	october, err := s.Budgets().Create(ctx, &model.Budget{
		OwnerID: 1, Name: "October", LimitAmount: decimal.NewFromInt(100),
		CreationDate: mustDate("2023-10-01"), LimitDate: mustDate("2023-10-31"), Category: *food,
	})
	require.NoError(t, err)

	current := func(id int64) string {
		b, err := s.Budgets().FindByID(ctx, 1, id)
		require.NoError(t, err)
		return b.CurrentAmount.String()
	}

	expense, err := s.Transactions().CreateExpense(ctx, &model.Transaction{
		OwnerID: 1, Kind: model.KindExpense, Concept: "Groceries",
		Amount: decimal.NewFromInt(25), Date: mustDate("2023-09-30"), Category: *food,
	})
	require.NoError(t, err)
	assert.Equal(t, "25", current(september.ID))
	assert.Equal(t, "0", current(october.ID))

	_, err = s.Transactions().CreateDeposit(ctx, &model.Transaction{
		OwnerID: 1, Kind: model.KindDeposit, Concept: "Refund",
		Amount: decimal.NewFromInt(25), Date: mustDate("2023-09-15"), Category: *food,
	})
	require.NoError(t, err)
	assert.Equal(t, "25", current(september.ID))

	moved := *expense
	moved.Date = mustDate("2023-10-01")
	require.NoError(t, s.Transactions().UpdateExpense(ctx, expense, &moved))
	assert.Equal(t, "0", current(september.ID))
	assert.Equal(t, "25", current(october.ID))

	require.NoError(t, s.Transactions().DeleteExpense(ctx, &moved))
	assert.Equal(t, "0", current(october.ID))
	assert.ErrorIs(t, s.Transactions().DeleteExpense(ctx, &moved), contract.ErrNotFound)
}

func TestCategoryRepo(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	food, err := s.Categories().Create(ctx, &model.Category{OwnerID: 1, Name: "Food"})
	require.NoError(t, err)
	_, err = s.Categories().Create(ctx, &model.Category{OwnerID: 1, Name: "Food"})
	assert.ErrorIs(t, err, contract.ErrDuplicate)
	_, err = s.Categories().Create(ctx, &model.Category{OwnerID: 2, Name: "Food"})
	assert.NoError(t, err)

	found, err := s.Categories().FindByNames(ctx, 1, []string{"Food", "Pets"})
	require.NoError(t, err)
	assert.Equal(t, []model.Category{*food}, found)

	_, err = s.Categories().FindByID(ctx, 2, food.ID)
	assert.ErrorIs(t, err, contract.ErrNotFound)

	inUse, err := s.Categories().InUse(ctx, 1, food.ID)
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestCategoryRepo_NamesIgnoreCase(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	food, err := s.Categories().Create(ctx, &model.Category{OwnerID: 1, Name: "Food"})
	require.NoError(t, err)
	_, err = s.Categories().Create(ctx, &model.Category{OwnerID: 1, Name: "FOOD"})
	assert.ErrorIs(t, err, contract.ErrDuplicate)

	found, err := s.Categories().FindByName(ctx, 1, "food")
	require.NoError(t, err)
	assert.Equal(t, food.ID, found.ID)
}

func TestUserRepo_UsernameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	alice, err := s.Users().Create(ctx, &model.User{Username: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = s.Users().Create(ctx, &model.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, contract.ErrDuplicate)

	found, err := s.Users().FindByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
}

func TestBudgetRepo_RecomputesCurrentAmount(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	food, err := s.Categories().Create(ctx, &model.Category{OwnerID: 1, Name: "Food"})
	require.NoError(t, err)
	_, err = s.Transactions().CreateExpense(ctx, &model.Transaction{
		OwnerID: 1, Kind: model.KindExpense, Concept: "Groceries",
		Amount: decimal.NewFromInt(25), Date: mustDate("2023-09-15"), Category: *food,
	})
	require.NoError(t, err)

	created, err := s.Budgets().Create(ctx, &model.Budget{
		OwnerID: 1, Name: "September", LimitAmount: decimal.NewFromInt(100),
		CurrentAmount: decimal.NewFromInt(999),
		CreationDate:  mustDate("2023-09-01"), LimitDate: mustDate("2023-09-30"), Category: *food,
	})
	require.NoError(t, err)
	assert.Equal(t, "25", created.CurrentAmount.String())

	stale := *created
	stale.CurrentAmount = decimal.Zero
	stale.Name = "Early September"
	stale.LimitDate = mustDate("2023-09-20")
	updated, err := s.Budgets().Update(ctx, &stale)
	require.NoError(t, err)
	assert.Equal(t, "25", updated.CurrentAmount.String())
	assert.Equal(t, "Early September", updated.Name)

	stale.LimitDate = mustDate("2023-09-10")
	updated, err = s.Budgets().Update(ctx, &stale)
	require.NoError(t, err)
	assert.Equal(t, "0", updated.CurrentAmount.String())

	stale.OwnerID = 2
	_, err = s.Budgets().Update(ctx, &stale)
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestInvestmentRepo_CreateChargesInitialExpense(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	savings, err := s.Categories().Create(ctx, &model.Category{OwnerID: 1, Name: "Savings"})
	require.NoError(t, err)
	budget, err := s.Budgets().Create(ctx, &model.Budget{
		OwnerID: 1, Name: "September", LimitAmount: decimal.NewFromInt(1000),
		CreationDate: mustDate("2023-09-01"), LimitDate: mustDate("2023-09-30"), Category: *savings,
	})
	require.NoError(t, err)

	inv, err := s.Investments().Create(ctx, &model.Investment{
		OwnerID: 1, Name: "Bond", InitialAmount: decimal.NewFromInt(500), ReturnIntervalDays: 7,
		StartDate: mustDate("2023-09-01"), NextReturnDate: mustDate("2023-09-08"), Category: *savings,
	}, &model.Transaction{
		OwnerID: 1, Kind: model.KindExpense, Concept: "Investment: Bond",
		Amount: decimal.NewFromInt(500), Date: mustDate("2023-09-01"), Category: *savings,
	})
	require.NoError(t, err)
	assert.NotZero(t, inv.ID)

	b, err := s.Budgets().FindByID(ctx, 1, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", b.CurrentAmount.String())

	expenses, err := s.Transactions().Find(ctx, model.TransactionQuery{OwnerID: 1, Kind: model.KindExpense})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Investment: Bond", expenses[0].Concept)
}

func TestInvestmentRepo_DeleteDetachesDeposits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	inv, err := s.Investments().Create(ctx, &model.Investment{
		OwnerID: 1, Name: "Bond", ReturnIntervalDays: 7,
		StartDate: mustDate("2023-09-01"), NextReturnDate: mustDate("2023-09-08"),
	}, &model.Transaction{OwnerID: 1, Kind: model.KindExpense, Concept: "Investment: Bond", Date: mustDate("2023-09-01")})
	require.NoError(t, err)
	deposit, err := s.Transactions().CreateDeposit(ctx, &model.Transaction{
		OwnerID: 1, Kind: model.KindDeposit, Concept: "Return: Bond",
		Amount: decimal.NewFromInt(10), Date: mustDate("2023-09-08"), InvestmentID: &inv.ID,
	})
	require.NoError(t, err)

	require.NoError(t, s.Investments().Delete(ctx, 1, inv.ID))

	kept, err := s.Transactions().FindByID(ctx, 1, deposit.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.InvestmentID)
}

func TestInvestmentRepo_AdvanceReturn(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	inv, err := s.Investments().Create(ctx, &model.Investment{
		OwnerID: 1, Name: "Bond", ReturnIntervalDays: 7,
		StartDate: mustDate("2023-09-01"), NextReturnDate: mustDate("2023-09-08"),
	}, &model.Transaction{OwnerID: 1, Kind: model.KindExpense, Concept: "Investment: Bond", Date: mustDate("2023-09-01")})
	require.NoError(t, err)

	due, err := s.Investments().FindDue(ctx, mustDate("2023-09-07"))
	require.NoError(t, err)
	assert.Empty(t, due)
	due, err = s.Investments().FindDue(ctx, mustDate("2023-09-08"))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	ok, err := s.Investments().AdvanceReturn(ctx, inv.ID, mustDate("2023-09-08"), mustDate("2023-09-15"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Investments().AdvanceReturn(ctx, inv.ID, mustDate("2023-09-08"), mustDate("2023-09-15"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviceRepo_Register(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.Devices().Register(ctx, &model.Device{OwnerID: 1, Token: "phone", Platform: model.Platform("ios")})
	require.NoError(t, err)
	again, err := s.Devices().Register(ctx, &model.Device{OwnerID: 1, Token: "phone", Platform: model.Platform("android")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, model.Platform("android"), again.Platform)

	_, err = s.Devices().Register(ctx, &model.Device{OwnerID: 2, Token: "phone", Platform: model.Platform("ios")})
	assert.ErrorIs(t, err, contract.ErrDuplicate)

	devices, err := s.Devices().Find(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
	assert.ErrorIs(t, s.Devices().Unregister(ctx, 2, "phone"), contract.ErrNotFound)
	assert.NoError(t, s.Devices().Unregister(ctx, 1, "phone"))
}
