package contract

import (
	"context"
	"errors"
	"time"

	"github.com/tomasagata/extra-api-sub001/model"
)

var (
	// ErrNotFound is returned when a row is absent or owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key would be violated.
	ErrDuplicate = errors.New("duplicate")
)

type UserRepo interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type ResetTokenRepo interface {
	Create(ctx context.Context, token *model.PasswordResetToken) error
	// Consume marks the token used and returns it; a used or unknown token is ErrNotFound.
	Consume(ctx context.Context, token string) (*model.PasswordResetToken, error)
}

type CategoryRepo interface {
	Find(ctx context.Context, ownerID int64) ([]model.Category, error)
	FindByID(ctx context.Context, ownerID, id int64) (*model.Category, error)
	FindByName(ctx context.Context, ownerID int64, name string) (*model.Category, error)
	// FindByNames returns the owner's categories among names; unknown names are skipped.
	FindByNames(ctx context.Context, ownerID int64, names []string) ([]model.Category, error)
	Create(ctx context.Context, category *model.Category) (*model.Category, error)
	Delete(ctx context.Context, ownerID, id int64) error
	InUse(ctx context.Context, ownerID, id int64) (bool, error)
}

type TransactionRepo interface {
	Find(ctx context.Context, q model.TransactionQuery) ([]model.Transaction, error)
	FindByID(ctx context.Context, ownerID, id int64) (*model.Transaction, error)
	// CreateExpense stores an expense and adds its amount to every budget of the
	// category whose window contains the expense date, atomically.
	CreateExpense(ctx context.Context, t *model.Transaction) (*model.Transaction, error)
	CreateDeposit(ctx context.Context, t *model.Transaction) (*model.Transaction, error)
	// UpdateExpense replaces the stored expense old.ID with t and moves the
	// budget effect of the stored row, not of old, accordingly.
	UpdateExpense(ctx context.Context, old, t *model.Transaction) error
	// DeleteExpense removes the expense and reverses its budget effect.
	DeleteExpense(ctx context.Context, t *model.Transaction) error
}

type BudgetRepo interface {
	Find(ctx context.Context, ownerID int64) ([]model.Budget, error)
	FindByID(ctx context.Context, ownerID, id int64) (*model.Budget, error)
	// Create and Update ignore budget.CurrentAmount: the stored amount is the
	// sum of the category's expenses inside the window, computed in the same
	// write. Both return the stored budget.
	Create(ctx context.Context, budget *model.Budget) (*model.Budget, error)
	Update(ctx context.Context, budget *model.Budget) (*model.Budget, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type InvestmentRepo interface {
	Find(ctx context.Context, ownerID int64) ([]model.Investment, error)
	FindByID(ctx context.Context, ownerID, id int64) (*model.Investment, error)
	FindDue(ctx context.Context, today model.Date) ([]model.Investment, error)
	// Create stores the investment together with its initial expense, which
	// counts against budgets like any other expense. Both are written or neither.
	Create(ctx context.Context, investment *model.Investment, initial *model.Transaction) (*model.Investment, error)
	// AdvanceReturn moves next_return_date from `from` to `to`; it reports
	// false when another worker already moved it.
	AdvanceReturn(ctx context.Context, id int64, from, to model.Date) (bool, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type DeviceRepo interface {
	Find(ctx context.Context, ownerID int64) ([]model.Device, error)
	// Register is idempotent for the token's owner; a token registered to
	// another user is ErrDuplicate.
	Register(ctx context.Context, device *model.Device) (*model.Device, error)
	Unregister(ctx context.Context, ownerID int64, token string) error
}

// Notifier hands push messages to whatever delivers them.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Clock lets services and jobs be tested at fixed dates.
type Clock func() time.Time
