package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/newdim001/biz-pro/internal/auth"
	"github.com/newdim001/biz-pro/internal/platform/httpx"
	"github.com/newdim001/biz-pro/internal/shared"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware auth.Middleware
	validator  *validator.Validate
}

// NewHandler constructs the ledger HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, middleware auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, middleware: middleware, validator: validator.New()}
}

// MountRoutes registers ledger routes. Every route needs a session.
func (h *Handler) MountRoutes(r chi.Router) {
	mw := h.middleware
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)

		r.With(mw.RequireAny(auth.FeatureDashboard)).Get("/summary", h.handleSystemSummary)
		r.With(mw.RequireAny(auth.FeatureDashboard)).Get("/units", h.handleListUnits)
		r.With(mw.RequireAny(auth.FeatureDashboard)).Get("/market/prices", h.handleListPrices)
		r.With(mw.RequireAny(auth.FeatureInventory)).Post("/market/prices", h.handleRecordPrice)
		r.With(mw.RequireAny(auth.FeatureDataExport)).Get("/audit", h.handleAudit)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAny(auth.FeatureDataReset))
			r.Post("/units", h.handleRegisterUnit)
			r.Post("/admin/reset", h.handleReset)
			r.Post("/admin/seed", h.handleSeed)
		})

		r.Route("/units/{unit}", func(r chi.Router) {
			r.Use(h.unitScope)

			r.With(mw.RequireAny(auth.FeatureDashboard)).Get("/summary", h.handleUnitSummary)
			r.With(mw.RequireAny(auth.FeatureDashboard)).Get("/balance", h.handleBalance)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAny(auth.FeatureInventory))
				r.Get("/inventory", h.handleListInventory)
				r.Get("/inventory/value", h.handleInventoryValue)
				r.Post("/purchases", h.handlePurchase)
				r.Post("/sales", h.handleSale)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAny(auth.FeatureInvestments))
				r.Get("/investments", h.handleListInvestments)
				r.Post("/investments", h.handleInvestment)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAny(auth.FeatureExpenses))
				r.Get("/expenses", h.handleListExpenses)
				r.Post("/expenses", h.handleExpense)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAny(auth.FeatureReports))
				r.Get("/movements", h.handleListMovements)
				r.Get("/profit-loss", h.handleProfitLoss)
				r.Get("/reconcile", h.handleReconcile)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAny(auth.FeaturePartnership))
				r.Get("/partners", h.handlePartnerProfits)
				r.Post("/partners", h.handleAddPartner)
				r.Patch("/partners/{name}", h.handleUpdatePartner)
				r.Delete("/partners/{name}", h.handleRemovePartner)
				r.Post("/partners/{name}/withdrawals", h.handleWithdraw)
			})

			r.With(mw.RequireAny(auth.FeatureDataExport)).Get("/export", h.handleExport)
		})
	})
}

// unitScope rejects principals bound to another unit.
func (h *Handler) unitScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		if !p.CanAccessUnit(chi.URLParam(r, "unit")) {
			httpx.RespondError(w, auth.ErrUnitForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decode reads and validates a request body, writing the problem response
// itself when it fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.Kind(err) == nil || errors.Is(err, shared.ErrPersistence) {
		h.logger.Error("ledger request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) handleSystemSummary(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	unit, err := p.Scope(r.URL.Query().Get("unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if unit != "" {
		summary, err := h.service.UnitSummary(r.Context(), unit)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, summary)
		return
	}
	summary, err := h.service.SystemSummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.Units(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	visible := units[:0:0]
	for _, u := range units {
		if p.CanAccessUnit(u.Name) {
			visible = append(visible, u)
		}
	}
	httpx.JSON(w, http.StatusOK, visible)
}

func (h *Handler) handleRegisterUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if !h.decode(w, r, &req) {
		return
	}
	unit, err := h.service.RegisterUnit(r.Context(), req.Name, req.OpeningBalance)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

func (h *Handler) handleUnitSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.UnitSummary(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.Balance(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) handleListInventory(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.Inventory(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, txs))
}

func (h *Handler) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.InventoryValue(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, value)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, h.service.RecordPurchase)
}

func (h *Handler) handleSale(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, h.service.RecordSale)
}

func (h *Handler) handleTrade(w http.ResponseWriter, r *http.Request, record func(context.Context, TradeInput) (TradeResult, error)) {
	var req tradeRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := record(r.Context(), TradeInput{
		Unit:           chi.URLParam(r, "unit"),
		Date:           date,
		QuantityKg:     req.QuantityKg,
		UnitPrice:      req.UnitPrice,
		Remarks:        req.Remarks,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Investments(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, list))
}

func (h *Handler) handleInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.service.RecordInvestment(r.Context(), InvestmentInput{
		Unit:           chi.URLParam(r, "unit"),
		Date:           date,
		Amount:         req.Amount,
		Investor:       req.Investor,
		Description:    req.Description,
		Distribute:     req.Distribute,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Expenses(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, list))
}

func (h *Handler) handleExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.service.RecordExpense(r.Context(), ExpenseInput{
		Unit:           chi.URLParam(r, "unit"),
		Date:           date,
		Category:       req.Category,
		Amount:         req.Amount,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Movements(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, list))
}

func (h *Handler) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	pl, err := h.service.ProfitLoss(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Reconcile(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": rec.OK(), "reconciliation": rec})
}

func (h *Handler) handlePartnerProfits(w http.ResponseWriter, r *http.Request) {
	profits, err := h.service.PartnerProfits(r.Context(), chi.URLParam(r, "unit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profits)
}

func (h *Handler) handleAddPartner(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if !h.decode(w, r, &req) {
		return
	}
	partner, err := h.service.AddPartner(r.Context(), chi.URLParam(r, "unit"), req.Name, req.SharePct)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, partner)
}

func (h *Handler) handleUpdatePartner(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !h.decode(w, r, &req) {
		return
	}
	partner, err := h.service.UpdatePartnerShare(r.Context(), chi.URLParam(r, "unit"), chi.URLParam(r, "name"), req.SharePct)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, partner)
}

func (h *Handler) handleRemovePartner(w http.ResponseWriter, r *http.Request) {
	redistribute := false
	if raw := r.URL.Query().Get("redistribute"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "redistribute must be a boolean")
			return
		}
		redistribute = v
	}
	removal, err := h.service.RemovePartner(r.Context(), chi.URLParam(r, "unit"), chi.URLParam(r, "name"), redistribute)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !redistribute {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.JSON(w, http.StatusOK, removal)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Withdraw(r.Context(), WithdrawalInput{
		Unit:           chi.URLParam(r, "unit"),
		Partner:        chi.URLParam(r, "name"),
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListPrices(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	prices, err := h.service.Prices(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prices)
}

func (h *Handler) handleRecordPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if !h.decode(w, r, &req) {
		return
	}
	price, err := h.service.RecordPrice(r.Context(), req.Price)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, price)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	logs, err := h.service.Audit(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Reset(r.Context(), req.Confirmation)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Seed(r.Context(), DefaultSeed())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	unit := chi.URLParam(r, "unit")
	summary, err := h.service.UnitSummary(ctx, unit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := exportResponse{Unit: unit, GeneratedAt: time.Now().UTC(), Summary: summary}
	if out.Movements, err = h.service.Movements(ctx, unit); err != nil {
		h.fail(w, r, err)
		return
	}
	if out.Inventory, err = h.service.Inventory(ctx, unit); err != nil {
		h.fail(w, r, err)
		return
	}
	if out.Expenses, err = h.service.Expenses(ctx, unit); err != nil {
		h.fail(w, r, err)
		return
	}
	if out.Investments, err = h.service.Investments(ctx, unit); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+unit+`.json"`)
	httpx.JSON(w, http.StatusOK, out)
}
