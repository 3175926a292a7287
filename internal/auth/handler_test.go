package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/newdim001/biz-pro/internal/auth"
	_ "github.com/newdim001/biz-pro/testing"
)

type stubRepo struct {
	mu    sync.Mutex
	users map[string]auth.User
}

func (s *stubRepo) FindUserByUsername(ctx context.Context, username string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (s *stubRepo) FindUserByID(ctx context.Context, id string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (s *stubRepo) InsertUser(ctx context.Context, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *stubRepo) UpdateUser(ctx context.Context, user auth.User) error {
	return s.InsertUser(ctx, user)
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func newAuthRouter(t *testing.T) (http.Handler, *auth.Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	service := auth.NewService(&stubRepo{users: map[string]auth.User{}}, bcrypt.MinCost)
	sessions := auth.NewSessionManager(client, time.Hour)
	handler := auth.NewHandler(nil, service, sessions, false)

	r := chi.NewRouter()
	r.Route("/api", handler.MountRoutes)
	return r, service
}

func login(t *testing.T, router http.Handler, username, password string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	var payload struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(res.Body.Bytes(), &payload)
	return res, payload.Token
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, service := newAuthRouter(t)
	_, err := service.CreateUser(context.Background(), auth.CreateUserInput{Username: "user@test.local", Password: "correctpass", Role: auth.RoleUser, Unit: "Unit A"})
	require.NoError(t, err)

	res, token := login(t, router, "user@test.local", "wrongpass")
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, token)
}

func TestLoginSessionAndPermissions(t *testing.T) {
	router, service := newAuthRouter(t)
	ctx := context.Background()
	_, err := service.CreateUser(ctx, auth.CreateUserInput{Username: "clerk", Password: "correctpass", Role: auth.RoleUser, Unit: "Unit A"})
	require.NoError(t, err)

	res, token := login(t, router, "clerk", "correctpass")
	require.Equal(t, http.StatusOK, res.Code)
	require.NotEmpty(t, token)

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.Header.Set("Authorization", "Bearer "+token)
	meRes := httptest.NewRecorder()
	router.ServeHTTP(meRes, me)
	require.Equal(t, http.StatusOK, meRes.Code)
	require.Contains(t, meRes.Body.String(), `"unit":"Unit A"`)

	users := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	users.Header.Set("Authorization", "Bearer "+token)
	usersRes := httptest.NewRecorder()
	router.ServeHTTP(usersRes, users)
	require.Equal(t, http.StatusForbidden, usersRes.Code)

	logout := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	logout.Header.Set("Authorization", "Bearer "+token)
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logout)
	require.Equal(t, http.StatusNoContent, logoutRes.Code)

	again := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	again.Header.Set("Authorization", "Bearer "+token)
	againRes := httptest.NewRecorder()
	router.ServeHTTP(againRes, again)
	require.Equal(t, http.StatusUnauthorized, againRes.Code)
}

func TestAdminManagesUsers(t *testing.T) {
	router, service := newAuthRouter(t)
	_, _, err := service.EnsureAdmin(context.Background(), "admin@admin.com", "admin1234")
	require.NoError(t, err)
	_, token := login(t, router, "admin@admin.com", "admin1234")

	body, _ := json.Marshal(map[string]string{"username": "mgr", "password": "managerpass", "role": "manager", "unit": "Unit B"})
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusCreated, res.Code)
	require.NotContains(t, res.Body.String(), "password")

	var created auth.User
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))

	del := httptest.NewRequest(http.MethodDelete, "/api/users/"+created.ID, nil)
	del.Header.Set("Authorization", "Bearer "+token)
	delRes := httptest.NewRecorder()
	router.ServeHTTP(delRes, del)
	require.Equal(t, http.StatusNoContent, delRes.Code)

	bad, _ := json.Marshal(map[string]string{"username": "x1x", "password": "managerpass", "role": "root"})
	badReq := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(bad))
	badReq.Header.Set("Authorization", "Bearer "+token)
	badRes := httptest.NewRecorder()
	router.ServeHTTP(badRes, badReq)
	require.Equal(t, http.StatusBadRequest, badRes.Code)
}
