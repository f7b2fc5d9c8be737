package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tomasagata/extra-api-sub001/model"
	"github.com/tomasagata/extra-api-sub001/validation"
)

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Users //

func (a *App) register(w http.ResponseWriter, r *http.Request) {
	req := &model.UserRegister{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	user, err := a.Users.Register(r.Context(), *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

func (a *App) getMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.Users.Get(r.Context(), currentUser(r).UserID)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// requestPasswordReset always answers 202 so that it cannot be used to probe
// for registered emails.
func (a *App) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	req := &model.PasswordResetRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	if err := a.Users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *App) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	req := &model.PasswordResetConfirm{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	if err := a.Users.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories //

func (a *App) getCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.Categories.List(r.Context(), currentUser(r).UserID)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (a *App) addCategory(w http.ResponseWriter, r *http.Request) {
	req := &model.CategoryRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	category, err := a.Categories.Create(r.Context(), currentUser(r).UserID, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, category)
}

func (a *App) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Categories.Delete(r.Context(), currentUser(r).UserID, id); err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transactions //

func (a *App) addExpense(w http.ResponseWriter, r *http.Request) {
	req := &model.TransactionRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	expense, err := a.Transactions.AddExpense(r.Context(), currentUser(r).UserID, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, expense)
}

func (a *App) editExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req := &model.TransactionRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	expense, err := a.Transactions.UpdateExpense(r.Context(), currentUser(r).UserID, id, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, expense)
}

func (a *App) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Transactions.DeleteExpense(r.Context(), currentUser(r).UserID, id); err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) addDeposit(w http.ResponseWriter, r *http.Request) {
	req := &model.TransactionRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	deposit, err := a.Transactions.AddDeposit(r.Context(), currentUser(r).UserID, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, deposit)
}

func (a *App) filterTransactions(w http.ResponseWriter, r *http.Request) {
	req := &model.FilterRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	a.respondWithFiltered(w, r, req)
}

// getTransactions is the query string flavour of the filter:
// ?category=Food&category=Travel&from=2023-09-01&until=2023-09-30
func (a *App) getTransactions(w http.ResponseWriter, r *http.Request) {
	req, errs := filterFromQuery(r)
	if len(errs) > 0 {
		respondWithValidationError(w, errs)
		return
	}
	if !a.validate(w, r, req) {
		return
	}
	a.respondWithFiltered(w, r, req)
}

func (a *App) respondWithFiltered(w http.ResponseWriter, r *http.Request, req *model.FilterRequest) {
	transactions, err := a.Transactions.Filter(r.Context(), currentUser(r).UserID, req.Criteria())
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, transactions)
}

func filterFromQuery(r *http.Request) (*model.FilterRequest, validation.Errors) {
	query := r.URL.Query()
	req := &model.FilterRequest{Categories: query["category"]}
	var errs validation.Errors
	for _, bound := range []struct {
		name string
		dst  **model.Date
	}{{"from", &req.From}, {"until", &req.Until}} {
		value := strings.TrimSpace(query.Get(bound.name))
		if value == "" {
			continue
		}
		d, err := model.ParseDate(value)
		if err != nil {
			errs = append(errs, validation.FieldError{Field: bound.name, Message: bound.name + " must be a date in YYYY-MM-DD format."})
			continue
		}
		*bound.dst = &d
	}
	return req, errs
}

func (a *App) getTotals(w http.ResponseWriter, r *http.Request) {
	req := &model.FilterRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	totals, err := a.Transactions.Totals(r.Context(), currentUser(r).UserID, req.Criteria())
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, totals)
}

// Budgets //

func (a *App) getBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := a.Budgets.List(r.Context(), currentUser(r).UserID)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, budgets)
}

func (a *App) getBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	budget, err := a.Budgets.Get(r.Context(), currentUser(r).UserID, id)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, budget)
}

func (a *App) addBudget(w http.ResponseWriter, r *http.Request) {
	req := &model.BudgetRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	budget, err := a.Budgets.Create(r.Context(), currentUser(r).UserID, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, budget)
}

func (a *App) editBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req := &model.BudgetRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	budget, err := a.Budgets.Update(r.Context(), currentUser(r).UserID, id, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, budget)
}

func (a *App) deleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Budgets.Delete(r.Context(), currentUser(r).UserID, id); err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Investments //

func (a *App) getInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := a.Investments.List(r.Context(), currentUser(r).UserID)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, investments)
}

func (a *App) addInvestment(w http.ResponseWriter, r *http.Request) {
	req := &model.InvestmentRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	investment, err := a.Investments.Create(r.Context(), currentUser(r).UserID, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, investment)
}

func (a *App) deleteInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Investments.Delete(r.Context(), currentUser(r).UserID, id); err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Devices //

func (a *App) registerDevice(w http.ResponseWriter, r *http.Request) {
	req := &model.DeviceRequest{}
	if !a.decodeAndValidate(w, r, req) {
		return
	}
	device, err := a.Devices.Register(r.Context(), currentUser(r).UserID, *req)
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, device)
}

func (a *App) unregisterDevice(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if err := a.Devices.Unregister(r.Context(), currentUser(r).UserID, token); err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
