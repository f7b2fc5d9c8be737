package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/service"
	"github.com/tomasagata/extra-api-sub001/validation"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithValidationError(w http.ResponseWriter, errs validation.Errors) {
	respondWithJSON(w, http.StatusBadRequest, map[string]validation.Errors{"errors": errs})
}

// respondWithServiceError maps service error kinds to status codes. Anything
// unrecognised is logged and reported as a bare 500.
func (a *App) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		respondWithValidationError(w, verrs)
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		respondWithError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, service.ErrCategoryInUse):
		respondWithError(w, http.StatusConflict, "Category is used by transactions, budgets or investments")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid login credentials. Please try again")
	case errors.Is(err, service.ErrInvalidToken):
		respondWithError(w, http.StatusBadRequest, "Invalid or expired token")
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads the JSON body into dst and answers 400 itself on failure.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// decodeAndValidate is decode followed by the validator; violations are
// answered with the field error list.
func (a *App) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !a.decode(w, r, dst) {
		return false
	}
	return a.validate(w, r, dst)
}

func (a *App) validate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := a.Validator.Struct(dst); err != nil {
		a.respondWithServiceError(w, r, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}
