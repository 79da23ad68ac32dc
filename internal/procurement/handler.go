package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/treadstock/treadstock/internal/platform/httpx"
	"github.com/treadstock/treadstock/internal/rbac"
	"github.com/treadstock/treadstock/internal/shared"
)

// Handler manages procurement endpoints.
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

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProcurementView))
		r.Get("/pos", h.list)
		r.Get("/pos/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProcurementEdit))
		r.Post("/pos", h.create)
		r.Post("/pos/{id}/approve", h.approve)
		r.Post("/pos/{id}/order", h.order)
		r.Post("/pos/{id}/close", h.close)
		r.Post("/pos/{id}/cancel", h.cancel)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	filters := ListFilters{
		Status:     r.URL.Query().Get("status"),
		SupplierID: supplierID,
		Search:     r.URL.Query().Get("search"),
	}
	pos, total, err := h.service.ListPurchaseOrders(r.Context(), limit, offset, filters)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{PurchaseOrders: pos, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	po, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, "get purchase order", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, LineInput{
			Size:       l.Size,
			Brand:      l.Brand,
			Model:      l.Model,
			Type:       l.Type,
			OrderedQty: l.OrderedQty,
			UnitPrice:  l.UnitPrice,
		})
	}
	po, err := h.service.CreatePurchaseOrder(r.Context(), CreatePOInput{
		Number:       req.Number,
		SupplierID:   req.SupplierID,
		OrderDate:    req.OrderDate,
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
		CreatedBy:    currentUser(r),
		Lines:        lines,
	})
	if err != nil {
		h.respondError(w, "create purchase order", 0, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "approve purchase order", h.service.ApprovePurchaseOrder)
}

func (h *Handler) order(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "mark purchase order ordered", h.service.MarkOrdered)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "close purchase order", h.service.ClosePurchaseOrder)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "cancel purchase order", h.service.CancelPurchaseOrder)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, poID, actorID int64) error) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := fn(r.Context(), id, currentUser(r)); err != nil {
		h.respondError(w, op, id, err)
		return
	}
	po, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "purchase order not found")
	case errors.Is(err, ErrInvalidState):
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
