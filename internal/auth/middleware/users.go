package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mindengage-progress/internal/db"
)

type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	CreatedAt    int64  `db:"created_at"`
}

var ErrNoUser = errors.New("user not found")

type UserStore struct{ db *sqlx.DB }

func NewUserStore(db *sqlx.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) FindByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNoUser
	}
	return u, err
}

// EnsureUser inserts the user if the username is free and returns the stored row.
func (s *UserStore) EnsureUser(ctx context.Context, username, passwordHash, role string) (User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (username) DO NOTHING`,
		username, passwordHash, role, time.Now().Unix())
	if err != nil {
		return User{}, err
	}
	return s.FindByUsername(ctx, username)
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNoUser
	}
	return u, err
}

func (s *UserStore) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoUser
	}
	return nil
}

// Upsert inserts or updates users by username in one transaction.
// An empty PasswordHash keeps the stored hash on update.
func (s *UserStore) Upsert(ctx context.Context, users []User) (inserted, updated int, err error) {
	now := time.Now().Unix()
	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, u := range users {
			var id int64
			err := tx.GetContext(ctx, &id, `SELECT id FROM users WHERE username=$1`, u.Username)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO users (username, password_hash, role, created_at) VALUES ($1,$2,$3,$4)`,
					u.Username, u.PasswordHash, u.Role, now); err != nil {
					return err
				}
				inserted++
			case err != nil:
				return err
			case u.PasswordHash != "":
				if _, err := tx.ExecContext(ctx, `UPDATE users SET role=$1, password_hash=$2 WHERE id=$3`,
					u.Role, u.PasswordHash, id); err != nil {
					return err
				}
				updated++
			default:
				if _, err := tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, u.Role, id); err != nil {
					return err
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}
