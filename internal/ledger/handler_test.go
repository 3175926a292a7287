package ledger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/newdim001/biz-pro/internal/auth"
	"github.com/newdim001/biz-pro/internal/ledger"
	"github.com/newdim001/biz-pro/internal/store/memory"
)

type apiHarness struct {
	router http.Handler
	admin  string
	clerk  string
}

func newAPI(t *testing.T) apiHarness {
	t.Helper()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := memory.New()
	users := auth.NewService(st, bcrypt.MinCost)
	_, err := users.CreateUser(ctx, auth.CreateUserInput{Username: "admin", Password: "adminpass", Role: auth.RoleAdmin, Unit: auth.AllUnits})
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, auth.CreateUserInput{Username: "clerk", Password: "clerkpass", Role: auth.RoleUser, Unit: "Unit A"})
	require.NoError(t, err)

	sessions := auth.NewSessionManager(client, time.Hour)
	authHandler := auth.NewHandler(nil, users, sessions, false)

	cfg := ledger.DefaultConfig()
	cfg.OpeningBalance = dec("1000")
	svc := ledger.NewService(st, nil, nil, cfg)
	_, err = svc.Seed(ctx, ledger.DefaultSeed())
	require.NoError(t, err)
	ledgerHandler := ledger.NewHandler(nil, svc, authHandler.Middleware())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		authHandler.MountRoutes(r)
		ledgerHandler.MountRoutes(r)
	})

	h := apiHarness{router: r}
	h.admin = h.login(t, "admin", "adminpass")
	h.clerk = h.login(t, "clerk", "clerkpass")
	return h
}

func (h apiHarness) login(t *testing.T, username, password string) string {
	t.Helper()
	res := h.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password}, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	return payload.Token
}

func (h apiHarness) do(t *testing.T, token, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	return res
}

func TestPurchaseEndpointAndStatusMapping(t *testing.T) {
	h := newAPI(t)

	res := h.do(t, h.clerk, http.MethodPost, "/api/units/Unit%20A/purchases", map[string]any{"quantity_kg": "10", "unit_price": "20"}, nil)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	require.Contains(t, res.Body.String(), `"total_amount":"200"`)

	res = h.do(t, h.clerk, http.MethodPost, "/api/units/Unit%20A/purchases", map[string]any{"quantity_kg": "100", "unit_price": "20"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))

	res = h.do(t, h.clerk, http.MethodPost, "/api/units/Unit%20A/purchases", map[string]any{"quantity_kg": "-1", "unit_price": "20"}, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = h.do(t, h.clerk, http.MethodPost, "/api/units/Unit%20A/purchases", map[string]any{"quantity_kg": "1", "unit_price": "1", "date": "15/10/2026"}, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = h.do(t, h.clerk, http.MethodPost, "/api/units/Unit%20A/sales", map[string]any{"quantity_kg": "11", "unit_price": "30"}, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = h.do(t, h.clerk, http.MethodGet, "/api/units/Unit%20A/balance", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"balance":"800"`)
}

func TestIdempotencyHeader(t *testing.T) {
	h := newAPI(t)
	header := http.Header{ledger.IdempotencyHeader: []string{"abc"}}
	body := map[string]any{"category": "Utilities", "amount": "12.50", "description": "power"}

	res := h.do(t, h.clerk, http.MethodPost, "/api/units/Unit%20A/expenses", body, header)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	res = h.do(t, h.clerk, http.MethodPost, "/api/units/Unit%20A/expenses", body, header)
	require.Equal(t, http.StatusConflict, res.Code)
}

func TestUnitScopeAndFeatures(t *testing.T) {
	h := newAPI(t)

	res := h.do(t, "", http.MethodGet, "/api/units/Unit%20A/balance", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = h.do(t, h.clerk, http.MethodGet, "/api/units/Unit%20B/balance", nil, nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	res = h.do(t, h.clerk, http.MethodGet, "/api/units/Unit%20A/partners", nil, nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	res = h.do(t, h.clerk, http.MethodPost, "/api/admin/reset", map[string]string{"confirmation": ledger.ResetPhrase}, nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	res = h.do(t, h.clerk, http.MethodGet, "/api/units", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Unit A")
	require.NotContains(t, res.Body.String(), "Unit B")

	res = h.do(t, h.clerk, http.MethodGet, "/api/summary", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"unit":"Unit A"`)
}

func TestPartnerEndpoints(t *testing.T) {
	h := newAPI(t)

	res := h.do(t, h.admin, http.MethodGet, "/api/units/Unit%20B/partners", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var profits []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &profits))
	require.Len(t, profits, 2)

	res = h.do(t, h.admin, http.MethodPost, "/api/units/Unit%20B/partners", map[string]any{"name": "Omar", "share_pct": "1"}, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = h.do(t, h.admin, http.MethodPost, "/api/units/Unit%20B/partners/Ghost/withdrawals", map[string]any{"amount": "1"}, nil)
	require.Equal(t, http.StatusNotFound, res.Code)

	res = h.do(t, h.admin, http.MethodPost, "/api/units/Unit%20B/partners/Ali/withdrawals", map[string]any{"amount": "1"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = h.do(t, h.admin, http.MethodPatch, "/api/units/Unit%20B/partners/Ali", map[string]any{"share_pct": "40"}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = h.do(t, h.admin, http.MethodGet, "/api/units/Unit%20B/reconcile", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"ok":true`)

	res = h.do(t, h.admin, http.MethodDelete, "/api/units/Unit%20B/partners/Mariam?redistribute=maybe", nil, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = h.do(t, h.admin, http.MethodDelete, "/api/units/Unit%20B/partners/Mariam?redistribute=true", nil, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var removal struct {
		FreedShare    string `json:"freed_share_pct"`
		Redistributed []struct {
			Name     string `json:"name"`
			SharePct string `json:"share_pct"`
		} `json:"redistributed"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &removal))
	require.Equal(t, "50", removal.FreedShare)
	require.Len(t, removal.Redistributed, 1)
	require.Equal(t, "Ali", removal.Redistributed[0].Name)
	require.Equal(t, "90", removal.Redistributed[0].SharePct)

	res = h.do(t, h.admin, http.MethodDelete, "/api/units/Unit%20B/partners/Ali", nil, nil)
	require.Equal(t, http.StatusNoContent, res.Code)
}

func TestAdminEndpoints(t *testing.T) {
	h := newAPI(t)

	res := h.do(t, h.admin, http.MethodPost, "/api/units", map[string]any{"name": "Unit C", "opening_balance": "250"}, nil)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	res = h.do(t, h.admin, http.MethodPost, "/api/units", map[string]any{"name": "Unit C"}, nil)
	require.Equal(t, http.StatusConflict, res.Code)

	res = h.do(t, h.admin, http.MethodPost, "/api/admin/reset", map[string]string{"confirmation": "yes"}, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
	res = h.do(t, h.admin, http.MethodPost, "/api/admin/reset", map[string]string{"confirmation": ledger.ResetPhrase}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = h.do(t, h.admin, http.MethodGet, "/api/units/Unit%20C/balance", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"balance":"1000"`)

	res = h.do(t, h.admin, http.MethodGet, "/api/units/Unit%20C/export", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Header().Get("Content-Disposition"), "Unit C.json")

	res = h.do(t, h.admin, http.MethodGet, "/api/audit?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), ledger.OpReset)
}
