package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/newdim001/biz-pro/internal/platform/httpx"
	"github.com/newdim001/biz-pro/internal/shared"
)

// Handler wires HTTP endpoints for authentication and user management.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	sessions   *SessionManager
	middleware Middleware
	validator  *validator.Validate
	secure     bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *SessionManager, secureCookies bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		sessions:   sessions,
		middleware: Middleware{Sessions: sessions, Logger: logger},
		validator:  validator.New(),
		secure:     secureCookies,
	}
}

// Middleware exposes the session middleware bound to this handler.
func (h *Handler) Middleware() Middleware {
	return h.middleware
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.Authenticate)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/me", h.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(h.middleware.RequireAny(FeatureUserManagement))
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Patch("/users/{userID}", h.handleUpdateUser)
			r.Delete("/users/{userID}", h.handleDeleteUser)
		})
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Session
	Permissions []Feature `json:"permissions"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		h.logger.Error("create session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  sess.ExpiresAt,
	})
	h.logger.Info("login", slog.String("username", user.Username), slog.String("role", string(user.Role)))
	httpx.JSON(w, http.StatusOK, loginResponse{Session: sess, Permissions: Permissions(user.Role)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), TokenFromRequest(r)); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"principal":   p,
		"permissions": Permissions(p.Role),
	})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=120"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=200"`
	Role     string `json:"role" validate:"required,oneof=admin manager user"`
	Unit     string `json:"unit" validate:"max=100"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.CreateUser(r.Context(), CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Role:     Role(req.Role),
		Unit:     req.Unit,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin manager user"`
	Unit     *string `json:"unit" validate:"omitempty,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Active   *bool   `json:"active"`
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := UpdateUserInput{FullName: req.FullName, Unit: req.Unit, Password: req.Password, Active: req.Active}
	if req.Role != nil {
		role := Role(*req.Role)
		input.Role = &role
	}
	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "userID"), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if p, _ := PrincipalFromContext(r.Context()); p.UserID == id {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cannot delete the signed-in account")
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
