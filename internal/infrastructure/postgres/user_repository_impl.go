package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	"github.com/lottosix/lottery-api/internal/domain/repository"
)

const userColumns = `id, email, password_hash, firstname, lastname, phone, role,
	totp_secret, encryption_key, avatar_url, registered_on, current_login, last_login,
	created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(u *entity.User) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, firstname, lastname, phone, role,
			totp_secret, encryption_key, avatar_url, registered_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Firstname, u.Lastname, u.Phone, u.Role,
		u.TOTPSecret, u.EncryptionKey, u.AvatarURL, u.RegisteredOn)

	return row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(id string) (*entity.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(email string) (*entity.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(query string, arg any) (*entity.User, error) {
	ctx := context.Background()
	u := &entity.User{}

	row := r.pool.QueryRow(ctx, query, arg)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Update(u *entity.User) error {
	ctx := context.Background()
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, firstname = $2, lastname = $3, phone = $4, avatar_url = $5, updated_at = $6
		WHERE id = $7
	`, u.Email, u.Firstname, u.Lastname, u.Phone, u.AvatarURL, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLogins(u *entity.User) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET current_login = $1, last_login = $2, updated_at = now()
		WHERE id = $3
	`, u.CurrentLogin, u.LastLogin, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(id, hash string) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2
	`, hash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListByRole(role string) ([]*entity.User, error) {
	return r.list(`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY registered_on`, role)
}

func (r *UserRepository) ListAll() ([]*entity.User, error) {
	return r.list(`SELECT ` + userColumns + ` FROM users ORDER BY registered_on`)
}

func (r *UserRepository) list(query string, args ...any) ([]*entity.User, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.User
	for rows.Next() {
		u := &entity.User{}
		if err := scanUser(rows, u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row, u *entity.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Password, &u.Firstname, &u.Lastname, &u.Phone,
		&u.Role, &u.TOTPSecret, &u.EncryptionKey, &u.AvatarURL, &u.RegisteredOn,
		&u.CurrentLogin, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
}

var _ repository.UserRepository = (*UserRepository)(nil)
