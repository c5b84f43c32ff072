package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
)

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	limiter LoginRateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, limiter LoginRateLimiter) *UserService {
	return &UserService{
		logger:  logger,
		users:   users,
		limiter: limiter,
	}
}

type CreateUserInput struct {
	Email    string
	Password string
	FullName string
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrRateLimited        = errors.New("rate limited")
)

// CreateUser hashea la password antes de construir el registro; la password
// en claro nunca se persiste ni se loggea. El prechequeo por email es racy
// frente a inserts concurrentes, por eso el repositorio además traduce la
// violación de unicidad del store al mismo resultado.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (domain.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return domain.User{}, ErrInvalidEmail
	}
	password := strings.TrimSpace(input.Password)
	if password == "" {
		return domain.User{}, ErrInvalidPassword
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return domain.User{}, repository.ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return domain.User{}, err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashed,
		FullName:       strings.TrimSpace(input.FullName),
		IsActive:       true,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	return created, nil
}

// Authenticate valida credenciales y devuelve el usuario autenticado.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	if s.limiter != nil && !s.limiter.Allow(emailAddr) {
		return domain.User{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, user.HashedPassword)
	if err != nil {
		// Digest ilegible en el store: se loggea y se propaga, nunca se
		// disfraza de credenciales inválidas.
		if s.logger != nil {
			s.logger.Error("stored credential unreadable",
				zap.String("operation", "authenticate"),
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByEmail busca un usuario por su email.
func (s *UserService) GetUserByEmail(ctx context.Context, emailAddr string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	return s.users.GetByEmail(ctx, emailAddr)
}

// GetUserByID busca un usuario por su identificador.
func (s *UserService) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
