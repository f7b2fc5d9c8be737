package repository

import (
	"context"
	"database/sql"

	"github.com/tomasagata/extra-api-sub001/model"
)

type UserRepoMysql struct {
	db *sql.DB
}

func NewUserRepoMysql(db *sql.DB) *UserRepoMysql {
	return &UserRepoMysql{db: db}
}

const selectUser = `SELECT id, username, email, password, created_at FROM users`

func (u *UserRepoMysql) findOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	var user model.User
	err := u.db.QueryRowContext(ctx, selectUser+" WHERE "+where, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (u *UserRepoMysql) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return u.findOne(ctx, "id = ?", id)
}

func (u *UserRepoMysql) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return u.findOne(ctx, "username = ?", username)
}

func (u *UserRepoMysql) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.findOne(ctx, "email = ?", email)
}

func (u *UserRepoMysql) Create(ctx context.Context, user *model.User) (*model.User, error) {
	statement := "INSERT INTO users(username, email, password, created_at) VALUES(?, ?, ?, ?)"
	result, err := u.db.ExecContext(ctx, statement, user.Username, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	created := *user
	created.ID = id
	return &created, nil
}

func (u *UserRepoMysql) UpdatePassword(ctx context.Context, id int64, hash string) error {
	statement := "UPDATE users SET password = ? WHERE id = ?"
	result, err := u.db.ExecContext(ctx, statement, hash, id)
	if err != nil {
		return mapError(err)
	}
	return expectOne(result)
}

type ResetTokenRepoMysql struct {
	db *sql.DB
}

func NewResetTokenRepoMysql(db *sql.DB) *ResetTokenRepoMysql {
	return &ResetTokenRepoMysql{db: db}
}

func (r *ResetTokenRepoMysql) Create(ctx context.Context, token *model.PasswordResetToken) error {
	statement := "INSERT INTO password_reset_tokens(token, user_id, expires_at) VALUES(?, ?, ?)"
	_, err := r.db.ExecContext(ctx, statement, token.Token, token.UserID, token.ExpiresAt)
	return mapError(err)
}

// Consume flips the used flag first so that two concurrent confirmations
// cannot both succeed.
func (r *ResetTokenRepoMysql) Consume(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE password_reset_tokens SET used = TRUE WHERE token = ? AND used = FALSE", token)
		if err != nil {
			return err
		}
		if err := expectOne(result); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, "SELECT token, user_id, expires_at, used FROM password_reset_tokens WHERE token = ?", token).
			Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Used)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}
