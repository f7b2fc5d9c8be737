// Package memory keeps every repository in process memory. It backs the
// "memory" data backend and the service and REST tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/model"
)

// Store holds all tables behind one lock so that writes touching several of
// them (an expense and its budgets) are atomic. Usernames and category names
// compare case-insensitively, as they do under the MySQL collation.
type Store struct {
	mu sync.Mutex

	nextID int64

	users        map[int64]model.User
	resetTokens  map[string]model.PasswordResetToken
	categories   map[int64]model.Category
	transactions map[int64]model.Transaction
	budgets      map[int64]model.Budget
	investments  map[int64]model.Investment
	devices      map[string]model.Device
}

func NewStore() *Store {
	return &Store{
		users:        map[int64]model.User{},
		resetTokens:  map[string]model.PasswordResetToken{},
		categories:   map[int64]model.Category{},
		transactions: map[int64]model.Transaction{},
		budgets:      map[int64]model.Budget{},
		investments:  map[int64]model.Investment{},
		devices:      map[string]model.Device{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Users() *UserRepo             { return &UserRepo{s} }
func (s *Store) ResetTokens() *ResetTokenRepo { return &ResetTokenRepo{s} }
func (s *Store) Categories() *CategoryRepo    { return &CategoryRepo{s} }
func (s *Store) Transactions() *TransactionRepo {
	return &TransactionRepo{s}
}
func (s *Store) Budgets() *BudgetRepo         { return &BudgetRepo{s} }
func (s *Store) Investments() *InvestmentRepo { return &InvestmentRepo{s} }
func (s *Store) Devices() *DeviceRepo         { return &DeviceRepo{s} }

// Users //

type UserRepo struct{ s *Store }

func (r *UserRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, contract.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, contract.ErrNotFound
}

func (r *UserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepo) Create(_ context.Context, user *model.User) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return nil, contract.ErrDuplicate
		}
	}
	created := *user
	created.ID = r.s.id()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	r.s.users[created.ID] = created
	return &created, nil
}

func (r *UserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return contract.ErrNotFound
	}
	u.Password = hash
	r.s.users[id] = u
	return nil
}

// Password reset tokens //

type ResetTokenRepo struct{ s *Store }

func (r *ResetTokenRepo) Create(_ context.Context, token *model.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.resetTokens[token.Token]; ok {
		return contract.ErrDuplicate
	}
	r.s.resetTokens[token.Token] = *token
	return nil
}

func (r *ResetTokenRepo) Consume(_ context.Context, token string) (*model.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resetTokens[token]
	if !ok || t.Used {
		return nil, contract.ErrNotFound
	}
	t.Used = true
	r.s.resetTokens[token] = t
	return &t, nil
}

// Categories //

type CategoryRepo struct{ s *Store }

func (r *CategoryRepo) Find(_ context.Context, ownerID int64) ([]model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	categories := []model.Category{}
	for _, c := range r.s.categories {
		if c.OwnerID == ownerID {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (r *CategoryRepo) FindByID(_ context.Context, ownerID, id int64) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok || c.OwnerID != ownerID {
		return nil, contract.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepo) FindByName(ctx context.Context, ownerID int64, name string) (*model.Category, error) {
	found, err := r.FindByNames(ctx, ownerID, []string{name})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, contract.ErrNotFound
	}
	return &found[0], nil
}

func (r *CategoryRepo) FindByNames(ctx context.Context, ownerID int64, names []string) ([]model.Category, error) {
	all, err := r.Find(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}
	categories := []model.Category{}
	for _, c := range all {
		if wanted[strings.ToLower(c.Name)] {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

func (r *CategoryRepo) Create(_ context.Context, category *model.Category) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.OwnerID == category.OwnerID && strings.EqualFold(c.Name, category.Name) {
			return nil, contract.ErrDuplicate
		}
	}
	created := *category
	created.ID = r.s.id()
	r.s.categories[created.ID] = created
	return &created, nil
}

func (r *CategoryRepo) Delete(_ context.Context, ownerID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok || c.OwnerID != ownerID {
		return contract.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

func (r *CategoryRepo) InUse(_ context.Context, ownerID, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transactions {
		if t.OwnerID == ownerID && t.Category.ID == id {
			return true, nil
		}
	}
	for _, b := range r.s.budgets {
		if b.OwnerID == ownerID && b.Category.ID == id {
			return true, nil
		}
	}
	for _, i := range r.s.investments {
		if i.OwnerID == ownerID && i.Category.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Transactions //

type TransactionRepo struct{ s *Store }

// Find returns matches in creation order.
func (r *TransactionRepo) Find(_ context.Context, q model.TransactionQuery) ([]model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	transactions := []model.Transaction{}
	for _, t := range r.s.transactions {
		if q.Matches(t) {
			transactions = append(transactions, t)
		}
	}
	sort.Slice(transactions, func(i, j int) bool { return transactions[i].ID < transactions[j].ID })
	return transactions, nil
}

func (r *TransactionRepo) FindByID(_ context.Context, ownerID, id int64) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return nil, contract.ErrNotFound
	}
	return &t, nil
}

func (r *TransactionRepo) insert(t *model.Transaction) *model.Transaction {
	created := *t
	created.ID = r.s.id()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	r.s.transactions[created.ID] = created
	return &created
}

// applyToBudgets must be called with the lock held.
func (r *TransactionRepo) applyToBudgets(t model.Transaction, amount decimal.Decimal) {
	for id, b := range r.s.budgets {
		if b.OwnerID == t.OwnerID && b.Category.ID == t.Category.ID && b.Active(t.Date) {
			b.CurrentAmount = b.CurrentAmount.Add(amount)
			r.s.budgets[id] = b
		}
	}
}

func (r *TransactionRepo) CreateExpense(_ context.Context, t *model.Transaction) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	created := r.insert(t)
	r.applyToBudgets(*created, created.Amount)
	return created, nil
}

func (r *TransactionRepo) CreateDeposit(_ context.Context, t *model.Transaction) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(t), nil
}

func (r *TransactionRepo) UpdateExpense(_ context.Context, old, t *model.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.transactions[old.ID]
	if !ok || stored.OwnerID != old.OwnerID {
		return contract.ErrNotFound
	}
	r.applyToBudgets(stored, stored.Amount.Neg())
	updated := *t
	updated.ID = stored.ID
	updated.CreatedAt = stored.CreatedAt
	r.s.transactions[updated.ID] = updated
	r.applyToBudgets(updated, updated.Amount)
	return nil
}

func (r *TransactionRepo) DeleteExpense(_ context.Context, t *model.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.transactions[t.ID]
	if !ok || stored.OwnerID != t.OwnerID {
		return contract.ErrNotFound
	}
	delete(r.s.transactions, t.ID)
	r.applyToBudgets(stored, stored.Amount.Neg())
	return nil
}

// Budgets //

type BudgetRepo struct{ s *Store }

// spent must be called with the lock held.
func (r *BudgetRepo) spent(b model.Budget) decimal.Decimal {
	q := model.TransactionQuery{
		OwnerID:     b.OwnerID,
		CategoryIDs: []int64{b.Category.ID},
		From:        &b.CreationDate,
		Until:       &b.LimitDate,
		Kind:        model.KindExpense,
	}
	sum := decimal.Zero
	for _, t := range r.s.transactions {
		if q.Matches(t) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

func (r *BudgetRepo) Find(_ context.Context, ownerID int64) ([]model.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	budgets := []model.Budget{}
	for _, b := range r.s.budgets {
		if b.OwnerID == ownerID {
			budgets = append(budgets, b)
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].ID < budgets[j].ID })
	return budgets, nil
}

func (r *BudgetRepo) FindByID(_ context.Context, ownerID, id int64) (*model.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return nil, contract.ErrNotFound
	}
	return &b, nil
}

func (r *BudgetRepo) Create(_ context.Context, budget *model.Budget) (*model.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	created := *budget
	created.ID = r.s.id()
	created.CurrentAmount = r.spent(created)
	r.s.budgets[created.ID] = created
	return &created, nil
}

func (r *BudgetRepo) Update(_ context.Context, budget *model.Budget) (*model.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.budgets[budget.ID]
	if !ok || b.OwnerID != budget.OwnerID {
		return nil, contract.ErrNotFound
	}
	updated := *budget
	updated.CurrentAmount = r.spent(updated)
	r.s.budgets[updated.ID] = updated
	return &updated, nil
}

func (r *BudgetRepo) Delete(_ context.Context, ownerID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return contract.ErrNotFound
	}
	delete(r.s.budgets, id)
	return nil
}

// Investments //

type InvestmentRepo struct{ s *Store }

func (r *InvestmentRepo) Find(_ context.Context, ownerID int64) ([]model.Investment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	investments := []model.Investment{}
	for _, i := range r.s.investments {
		if i.OwnerID == ownerID {
			investments = append(investments, i)
		}
	}
	sort.Slice(investments, func(a, b int) bool { return investments[a].ID < investments[b].ID })
	return investments, nil
}

func (r *InvestmentRepo) FindByID(_ context.Context, ownerID, id int64) (*model.Investment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.investments[id]
	if !ok || i.OwnerID != ownerID {
		return nil, contract.ErrNotFound
	}
	return &i, nil
}

func (r *InvestmentRepo) FindDue(_ context.Context, today model.Date) ([]model.Investment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	investments := []model.Investment{}
	for _, i := range r.s.investments {
		if i.Due(today) {
			investments = append(investments, i)
		}
	}
	sort.Slice(investments, func(a, b int) bool { return investments[a].ID < investments[b].ID })
	return investments, nil
}

func (r *InvestmentRepo) Create(_ context.Context, investment *model.Investment, initial *model.Transaction) (*model.Investment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	created := *investment
	created.ID = r.s.id()
	r.s.investments[created.ID] = created

	transactions := &TransactionRepo{r.s}
	expense := transactions.insert(initial)
	transactions.applyToBudgets(*expense, expense.Amount)
	return &created, nil
}

func (r *InvestmentRepo) AdvanceReturn(_ context.Context, id int64, from, to model.Date) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.investments[id]
	if !ok {
		return false, contract.ErrNotFound
	}
	if !i.NextReturnDate.Equal(from) {
		return false, nil
	}
	i.NextReturnDate = to
	r.s.investments[id] = i
	return true, nil
}

func (r *InvestmentRepo) Delete(_ context.Context, ownerID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.investments[id]
	if !ok || i.OwnerID != ownerID {
		return contract.ErrNotFound
	}
	delete(r.s.investments, id)
	for tid, t := range r.s.transactions {
		if t.InvestmentID != nil && *t.InvestmentID == id {
			t.InvestmentID = nil
			r.s.transactions[tid] = t
		}
	}
	return nil
}

// Devices //

type DeviceRepo struct{ s *Store }

func (r *DeviceRepo) Find(_ context.Context, ownerID int64) ([]model.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	devices := []model.Device{}
	for _, d := range r.s.devices {
		if d.OwnerID == ownerID {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// Register refreshes the platform of a token the owner already registered.
// A token held by another user is ErrDuplicate.
func (r *DeviceRepo) Register(_ context.Context, device *model.Device) (*model.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	registered := *device
	if existing, ok := r.s.devices[device.Token]; ok {
		if existing.OwnerID != device.OwnerID {
			return nil, contract.ErrDuplicate
		}
		registered.ID = existing.ID
		registered.CreatedAt = existing.CreatedAt
	} else {
		registered.ID = r.s.id()
		registered.CreatedAt = time.Now().UTC()
	}
	r.s.devices[registered.Token] = registered
	return &registered, nil
}

func (r *DeviceRepo) Unregister(_ context.Context, ownerID int64, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[token]
	if !ok || d.OwnerID != ownerID {
		return contract.ErrNotFound
	}
	delete(r.s.devices, token)
	return nil
}

var (
	_ contract.UserRepo        = (*UserRepo)(nil)
	_ contract.ResetTokenRepo  = (*ResetTokenRepo)(nil)
	_ contract.CategoryRepo    = (*CategoryRepo)(nil)
	_ contract.TransactionRepo = (*TransactionRepo)(nil)
	_ contract.BudgetRepo      = (*BudgetRepo)(nil)
	_ contract.InvestmentRepo  = (*InvestmentRepo)(nil)
	_ contract.DeviceRepo      = (*DeviceRepo)(nil)
)
