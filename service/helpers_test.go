package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tomasagata/extra-api-sub001/model"
	"github.com/tomasagata/extra-api-sub001/repository/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func fixedClock(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *model.Date {
	d := date(s)
	return &d
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func icon(i int) *int { return &i }

type fixture struct {
	store        *memory.Store
	notifier     *recordingNotifier
	categories   *CategoryService
	transactions *TransactionService
	budgets      *BudgetService
	investments  *InvestmentService
	devices      *DeviceService
	users        *UserService
	returns      *InvestmentReturnProcessor
}

func newFixture() *fixture {
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	clock := fixedClock("2023-09-15T10:00:00Z")
	devices := NewDeviceService(store.Devices(), notifier, clock)
	return &fixture{
		store:        store,
		notifier:     notifier,
		categories:   NewCategoryService(store.Categories()),
		transactions: NewTransactionService(store.Categories(), store.Transactions()),
		budgets:      NewBudgetService(store.Categories(), store.Budgets()),
		investments:  NewInvestmentService(store.Categories(), store.Investments()),
		devices:      devices,
		users:        NewUserService(store.Users(), store.ResetTokens(), devices, clock),
		returns:      NewInvestmentReturnProcessor(store.Investments(), store.Transactions(), devices),
	}
}

func (f *fixture) category(t *testing.T, ownerID int64, name string) *model.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), ownerID, model.CategoryRequest{Name: name, IconID: icon(1)})
	require.NoError(t, err)
	return c
}

func (f *fixture) expense(t *testing.T, ownerID int64, concept, value, day, category string) *model.TransactionView {
	t.Helper()
	v, err := f.transactions.AddExpense(context.Background(), ownerID, model.TransactionRequest{
		Concept:  concept,
		Amount:   amount(value),
		Date:     date(day),
		Category: category,
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) deposit(t *testing.T, ownerID int64, concept, value, day, category string) *model.TransactionView {
	t.Helper()
	v, err := f.transactions.AddDeposit(context.Background(), ownerID, model.TransactionRequest{
		Concept:  concept,
		Amount:   amount(value),
		Date:     date(day),
		Category: category,
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) budget(t *testing.T, ownerID int64, category, from, until string) *model.BudgetView {
	t.Helper()
	b, err := f.budgets.Create(context.Background(), ownerID, model.BudgetRequest{
		Name:         category + " budget",
		LimitAmount:  amount("100"),
		CreationDate: datePtr(from),
		LimitDate:    datePtr(until),
		Category:     category,
	})
	require.NoError(t, err)
	return b
}
