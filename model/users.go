package model

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserToken is the claim set carried by the session cookie.
type UserToken struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	jwt.StandardClaims
}

type UserRegister struct {
	Username string `json:"username" validate:"required,min=3,max=32,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UserLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required,uuid4"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type PasswordResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Used      bool
}
