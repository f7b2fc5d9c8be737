package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/model"
	"github.com/tomasagata/extra-api-sub001/service"
)

const tokenCookie = "token"

type userKey struct{}

// JwtVerify admits requests carrying a valid session cookie or HTTP Basic
// credentials and stores the caller's claims in the request context.
func (a *App) JwtVerify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.authenticate(r)
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Debug().Err(err).Msg("unauthenticated request")
			w.Header().Set("WWW-Authenticate", `Basic realm="money-manager"`)
			respondWithError(w, http.StatusUnauthorized, "Missing or invalid credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, claims)
		log := logger.FromContext(ctx).With().Int64("user_id", claims.UserID).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx, log)))
	})
}

func (a *App) authenticate(r *http.Request) (*model.UserToken, error) {
	if t, err := r.Cookie(tokenCookie); err == nil && t.Value != "" {
		return a.parseToken(t.Value)
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, errors.New("no credentials")
	}
	user, err := a.Users.Authenticate(r.Context(), username, password)
	if err != nil {
		return nil, err
	}
	return &model.UserToken{UserID: user.ID, Username: user.Username}, nil
}

func (a *App) parseToken(token string) (*model.UserToken, error) {
	claims := &model.UserToken{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *App) issueToken(user *model.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(a.sessionTTL)
	claims := &model.UserToken{
		UserID:   user.ID,
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  now.Unix(),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// currentUser is only valid behind JwtVerify.
func currentUser(r *http.Request) *model.UserToken {
	claims, _ := r.Context().Value(userKey{}).(*model.UserToken)
	return claims
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	credentials := &model.UserLogin{}
	if !a.decode(w, r, credentials) {
		return
	}

	user, err := a.Users.Authenticate(r.Context(), credentials.Username, credentials.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid login credentials. Please try again")
			return
		}
		a.respondWithServiceError(w, r, err)
		return
	}

	tokenString, expiresAt, err := a.issueToken(user, time.Now())
	if err != nil {
		a.respondWithServiceError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    tokenString,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	var resp = map[string]string{"token": tokenString, "username": user.Username, "id": strconv.FormatInt(user.ID, 10)}
	respondWithJSON(w, http.StatusOK, resp)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
