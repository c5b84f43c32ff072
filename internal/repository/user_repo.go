package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"auth-api/internal/domain"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// StorageError envuelve una falla inesperada del store preservando la causa.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Querier es el contrato mínimo de acceso a datos. Lo satisfacen tanto
// *pgxpool.Pool como pgx.Tx, así el caller decide la unidad de trabajo.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgx.
type PgUserRepository struct {
	q Querier
}

func NewPgUserRepository(q Querier) *PgUserRepository {
	return &PgUserRepository{q: q}
}

// WithQuerier devuelve una copia del repositorio atada a otra unidad de
// trabajo, típicamente una transacción abierta por el caller.
func (r *PgUserRepository) WithQuerier(q Querier) *PgUserRepository {
	return &PgUserRepository{q: q}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (id, email, hashed_password, full_name, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.HashedPassword,
		nullIfEmpty(user.FullName),
		user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrUserAlreadyExists
		}
		return domain.User{}, &StorageError{Op: "create user", Err: err}
	}
	return user, nil
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `
		SELECT id, email, hashed_password, full_name, is_active, created_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.q.QueryRow(ctx, query, email), "get user by email")
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, email, hashed_password, full_name, is_active, created_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.q.QueryRow(ctx, query, id), "get user by id")
}

func (r *PgUserRepository) scanUser(row pgx.Row, op string) (domain.User, error) {
	var (
		u        domain.User
		fullName *string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&fullName,
		&u.IsActive,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, &StorageError{Op: op, Err: err}
	}
	if fullName != nil {
		u.FullName = *fullName
	}
	return u, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation detecta SQLSTATE 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
