package retread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/platform/httpx"
	"github.com/treadstock/treadstock/internal/rbac"
	"github.com/treadstock/treadstock/internal/shared"
)

// Handler manages retread endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers retread routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRetreadView))
		r.Get("/orders", h.list)
		r.Get("/orders/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRetreadEdit))
		r.Post("/orders", h.create)
		r.Post("/orders/{id}/send", h.send)
		r.Post("/orders/{id}/receive", h.receive)
		r.Post("/orders/{id}/cancel", h.cancel)
	})
}

type createRequest struct {
	SupplierID int64           `json:"supplier_id" validate:"required"`
	UnitIDs    []int64         `json:"tire_unit_ids" validate:"required,min=1"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Notes      string          `json:"notes"`
}

type returnItem struct {
	TireUnitID int64               `json:"tire_unit_id" validate:"required"`
	Condition  inventory.Condition `json:"condition" validate:"omitempty,oneof=GOOD DAMAGED DEFECTIVE"`
}

type receiveRequest struct {
	Returns []returnItem `json:"returns"`
}

type listResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	orders, total, err := h.service.List(r.Context(), limit, offset, ListFilters{
		Status:     r.URL.Query().Get("status"),
		SupplierID: supplierID,
	})
	if err != nil {
		h.logger.Error("list retread orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Orders: orders, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get retread order", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.service.CreateOrder(r.Context(), CreateInput{
		SupplierID: req.SupplierID,
		UnitIDs:    req.UnitIDs,
		UnitCost:   req.UnitCost,
		Notes:      req.Notes,
		CreatedBy:  currentUser(r),
	})
	if err != nil {
		h.respondError(w, "create retread order", 0, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "send retread order", h.service.Send)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "cancel retread order", h.service.Cancel)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	returns := make([]ReturnInput, 0, len(req.Returns))
	for _, ret := range req.Returns {
		returns = append(returns, ReturnInput{TireUnitID: ret.TireUnitID, Condition: ret.Condition})
	}
	if err := h.service.Receive(r.Context(), id, returns, currentUser(r)); err != nil {
		h.respondError(w, "receive retread order", id, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "receive retread order", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, orderID, actorID int64) error) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := fn(r.Context(), id, currentUser(r)); err != nil {
		h.respondError(w, op, id, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "retread order not found")
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrUnitUnavailable), errors.Is(err, inventory.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.Int64("id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func currentUser(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
