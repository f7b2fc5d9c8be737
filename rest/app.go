package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tomasagata/extra-api-sub001/service"
	"github.com/tomasagata/extra-api-sub001/validation"
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Users        *service.UserService
	Categories   *service.CategoryService
	Transactions *service.TransactionService
	Budgets      *service.BudgetService
	Investments  *service.InvestmentService
	Devices      *service.DeviceService
}

type App struct {
	Router    *mux.Router
	Validator *validation.Validator
	Services

	secret     []byte
	sessionTTL time.Duration
	log        zerolog.Logger
}

func (a *App) Init(s Services, secret string, sessionTTL time.Duration, log zerolog.Logger) error {
	v, err := validation.New()
	if err != nil {
		return err
	}
	a.Validator = v
	a.Services = s
	a.secret = []byte(secret)
	a.sessionTTL = sessionTTL
	a.log = log

	a.Router = mux.NewRouter()
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router.Use(RequestID, Logger(a.log), Recovery)

	a.Router.HandleFunc("/health", a.health).Methods(http.MethodGet)

	auth := a.Router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", a.register).Methods(http.MethodPost)
	auth.HandleFunc("/login", a.login).Methods(http.MethodPost)
	auth.HandleFunc("/logout", a.logout).Methods(http.MethodPost)
	auth.HandleFunc("/password-reset", a.requestPasswordReset).Methods(http.MethodPost)
	auth.HandleFunc("/password-reset/confirm", a.confirmPasswordReset).Methods(http.MethodPost)

	// Auth route
	s := a.Router.PathPrefix("/api").Subrouter()
	s.Use(a.JwtVerify)
	s.HandleFunc("/users/me", a.getMe).Methods(http.MethodGet)

	s.HandleFunc("/categories", a.getCategories).Methods(http.MethodGet)
	s.HandleFunc("/categories", a.addCategory).Methods(http.MethodPost)
	s.HandleFunc("/categories/{id:[0-9]+}", a.deleteCategory).Methods(http.MethodDelete)

	s.HandleFunc("/expenses", a.addExpense).Methods(http.MethodPost)
	s.HandleFunc("/expenses/{id:[0-9]+}", a.editExpense).Methods(http.MethodPut)
	s.HandleFunc("/expenses/{id:[0-9]+}", a.deleteExpense).Methods(http.MethodDelete)
	s.HandleFunc("/deposits", a.addDeposit).Methods(http.MethodPost)

	s.HandleFunc("/transactions", a.getTransactions).Methods(http.MethodGet)
	s.HandleFunc("/transactions/filter", a.filterTransactions).Methods(http.MethodPost)
	s.HandleFunc("/transactions/totals", a.getTotals).Methods(http.MethodPost)

	s.HandleFunc("/budgets", a.getBudgets).Methods(http.MethodGet)
	s.HandleFunc("/budgets", a.addBudget).Methods(http.MethodPost)
	s.HandleFunc("/budgets/{id:[0-9]+}", a.getBudget).Methods(http.MethodGet)
	s.HandleFunc("/budgets/{id:[0-9]+}", a.editBudget).Methods(http.MethodPut)
	s.HandleFunc("/budgets/{id:[0-9]+}", a.deleteBudget).Methods(http.MethodDelete)

	s.HandleFunc("/investments", a.getInvestments).Methods(http.MethodGet)
	s.HandleFunc("/investments", a.addInvestment).Methods(http.MethodPost)
	s.HandleFunc("/investments/{id:[0-9]+}", a.deleteInvestment).Methods(http.MethodDelete)

	s.HandleFunc("/notifications/devices", a.registerDevice).Methods(http.MethodPost)
	s.HandleFunc("/notifications/devices/{token}", a.unregisterDevice).Methods(http.MethodDelete)
}
