package service

import (
	"errors"

	"github.com/tomasagata/extra-api-sub001/contract"
)

var (
	// ErrNotFound covers both missing rows and rows owned by another user.
	ErrNotFound           = contract.ErrNotFound
	ErrConflict           = contract.ErrDuplicate
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrCategoryInUse      = errors.New("category is in use")
)
