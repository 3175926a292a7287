package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Repository defines persistence operations for users.
type Repository interface {
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindUserByID(ctx context.Context, id string) (User, error)
	InsertUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context) ([]User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo Repository
	cost int
	now  func() time.Time
}

// NewService constructs a new Service. cost is the bcrypt work factor.
func NewService(repo Repository, cost int) *Service {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost, now: func() time.Time { return time.Now().UTC() }}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.FindUserByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, err
	}
	if !user.Active || user.DeletedAt != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CreateUserInput carries a new account.
type CreateUserInput struct {
	Username string
	Password string
	FullName string
	Role     Role
	Unit     string
}

// CreateUser hashes the password and stores a new active account.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	username := normalizeUsername(input.Username)
	if username == "" {
		return User{}, fmt.Errorf("auth: username required: %w", shared.ErrValidation)
	}
	if !input.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	if len(input.Password) < 8 {
		return User{}, ErrWeakPassword
	}
	if _, err := s.repo.FindUserByUsername(ctx, username); err == nil {
		return User{}, ErrUserExists
	} else if !errors.Is(err, shared.ErrNotFound) {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = AllUnits
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		Unit:         unit,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUserInput carries optional account changes.
type UpdateUserInput struct {
	FullName *string
	Role     *Role
	Unit     *string
	Password *string
	Active   *bool
}

// UpdateUser applies the non-nil fields of input.
func (s *Service) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (User, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.DeletedAt != nil {
		return User{}, ErrUserNotFound
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return User{}, ErrInvalidRole
		}
		user.Role = *input.Role
	}
	if input.Unit != nil {
		user.Unit = strings.TrimSpace(*input.Unit)
	}
	if input.Active != nil {
		user.Active = *input.Active
	}
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return User{}, ErrWeakPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), s.cost)
		if err != nil {
			return User{}, fmt.Errorf("auth: hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// DeleteUser soft-deletes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	user, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.DeletedAt != nil {
		return ErrUserNotFound
	}
	now := s.now()
	user.Active = false
	user.DeletedAt = &now
	user.UpdatedAt = now
	return s.repo.UpdateUser(ctx, user)
}

// ListUsers returns accounts that were not deleted.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	all, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(all))
	for _, u := range all {
		if u.DeletedAt == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

// EnsureAdmin creates the administrator account when username is unused.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (User, bool, error) {
	existing, err := s.repo.FindUserByUsername(ctx, normalizeUsername(username))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return User{}, false, err
	}
	user, err := s.CreateUser(ctx, CreateUserInput{
		Username: username,
		Password: password,
		FullName: "System Administrator",
		Role:     RoleAdmin,
		Unit:     AllUnits,
	})
	return user, err == nil, err
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
