package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type userRepo struct {
	pool db
}

func (r *userRepo) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	defer observeDB(ctx, "users.create")()

	u := User{Email: normalizeEmail(email), PasswordHash: passwordHash}
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id, created_at`, u.Email, u.PasswordHash)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	defer observeDB(ctx, "users.get_by_id")()
	return r.getOne(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id=$1`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	defer observeDB(ctx, "users.get_by_email")()
	return r.getOne(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email=$1`, normalizeEmail(email))
}

func (r *userRepo) getOne(ctx context.Context, sql string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
