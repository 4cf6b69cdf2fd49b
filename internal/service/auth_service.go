package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/siswa-admin/internal/models"
	"github.com/noah-isme/siswa-admin/internal/validation"
	appErrors "github.com/noah-isme/siswa-admin/pkg/errors"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// LoginForm carries the submitted login credentials.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// AuthService implements the session-authentication flow.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger}
}

// Login checks the submitted credentials. Field errors and credential
// mismatches come back as FieldError values for the form to display; only
// store failures surface as errors. A blank username or password never
// reaches the store.
func (s *AuthService) Login(ctx context.Context, form LoginForm) (*models.User, []validation.FieldError, error) {
	var errs []validation.FieldError
	if s.validator.Var(form.Username, "required") != nil {
		errs = append(errs, validation.FieldError{Field: "username", Message: "Username harus diisi!"})
	}
	if s.validator.Var(form.Password, "required") != nil {
		errs = append(errs, validation.FieldError{Field: "password", Message: "Password harus diisi!"})
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	user, err := s.repo.FindByUsername(ctx, form.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, []validation.FieldError{{Message: "Username atau password salah!"}}, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		return nil, []validation.FieldError{{Message: "Username atau password salah!"}}, nil
	}

	return user, nil, nil
}

// EnsureDefaultAdmin seeds the admin account when no user with that username
// exists yet. An existing account keeps its current password.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		s.logger.Info("admin account already exists", zap.String("username", username))
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up admin account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash admin password")
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, user); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed admin account")
	}

	s.logger.Info("default admin account created", zap.String("username", username))
	return nil
}
