package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/newdim001/biz-pro/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]User)}
}

func (r *memoryRepo) FindUserByUsername(ctx context.Context, username string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memoryRepo) FindUserByID(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *memoryRepo) InsertUser(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepo) UpdateUser(ctx context.Context, user User) error {
	return r.InsertUser(ctx, user)
}

func (r *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMemoryRepo(), bcrypt.MinCost)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{Username: " Clerk@Unit.A ", Password: "password1", Role: RoleUser, Unit: "Unit A"})
	require.NoError(t, err)
	require.Equal(t, "clerk@unit.a", user.Username)
	require.NotEqual(t, "password1", user.PasswordHash)

	got, err := svc.Authenticate(ctx, "CLERK@unit.a", "password1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "clerk@unit.a", "wrong-pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "password1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "clerk@unit.a", Password: "password2", Role: RoleUser})
	require.ErrorIs(t, err, ErrUserExists)
	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "x", Password: "short", Role: RoleUser})
	require.ErrorIs(t, err, ErrWeakPassword)
	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "x", Password: "password1", Role: "root"})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestSoftDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, bcrypt.MinCost)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{Username: "m", Password: "password1", Role: RoleManager})
	require.NoError(t, err)
	require.Equal(t, AllUnits, user.Unit)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	require.ErrorIs(t, svc.DeleteUser(ctx, user.ID), ErrUserNotFound)

	_, err = svc.Authenticate(ctx, "m", "password1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	listed, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, listed)
	require.Len(t, repo.users, 1)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc := NewService(newMemoryRepo(), bcrypt.MinCost)
	ctx := context.Background()

	admin, created, err := svc.EnsureAdmin(ctx, "admin@admin.com", "admin1234")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, RoleAdmin, admin.Role)

	again, created, err := svc.EnsureAdmin(ctx, "admin@admin.com", "other-password")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, admin.ID, again.ID)
}

func TestPermissionsAndScope(t *testing.T) {
	require.True(t, Allowed(RoleAdmin, FeatureDataReset))
	require.False(t, Allowed(RoleManager, FeatureDataReset))
	require.True(t, Allowed(RoleManager, FeaturePartnership))
	require.False(t, Allowed(RoleUser, FeatureInvestments))
	require.True(t, Allowed(RoleUser, FeatureInventory))

	clerk := Principal{Role: RoleUser, Unit: "Unit A"}
	unit, err := clerk.Scope("")
	require.NoError(t, err)
	require.Equal(t, "Unit A", unit)
	_, err = clerk.Scope("Unit B")
	require.ErrorIs(t, err, shared.ErrForbidden)

	manager := Principal{Role: RoleManager, Unit: AllUnits}
	unit, err = manager.Scope("")
	require.NoError(t, err)
	require.Empty(t, unit)
}
