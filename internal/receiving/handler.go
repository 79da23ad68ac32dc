package receiving

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/platform/httpx"
	"github.com/treadstock/treadstock/internal/procurement"
	"github.com/treadstock/treadstock/internal/rbac"
	"github.com/treadstock/treadstock/internal/shared"
)

// idempotencyHeader carries the client-chosen commit key. Retries with the
// same key after a network failure cannot create a second GRN.
const idempotencyHeader = "X-Idempotency-Key"

// Handler manages receiving endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	serials  *Generator
	rbac     rbac.Middleware
	validate *validator.Validate

	// CommitMetric, when set, counts commit outcomes.
	CommitMetric func(outcome string)
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, serials *Generator, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, serials: serials, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers receiving routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReceivingView, shared.PermReceivingEdit))
		r.Get("/pos/{id}", h.snapshot)
		r.Get("/grns", h.list)
		r.Get("/grns/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReceivingEdit))
		r.Post("/pos/{id}/serials", h.suggestSerials)
		r.Post("/pos/{id}/grns", h.commit)
		r.Post("/grns/{id}/invoice", h.linkInvoice)
	})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	draft, err := h.service.Snapshot(r.Context(), id)
	if err != nil {
		h.respondError(w, "receiving snapshot", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

func (h *Handler) suggestSerials(w http.ResponseWriter, r *http.Request) {
	poID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req SuggestSerialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	draft, err := h.service.Snapshot(r.Context(), poID)
	if err != nil {
		h.respondError(w, "suggest serials", poID, err)
		return
	}
	line := draft.LineByID(req.POLineID)
	if line == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown purchase order line")
		return
	}
	line.SetReceiveQuantity(req.Quantity)
	h.serials.GenerateBatch(line)
	httpx.JSON(w, http.StatusOK, SuggestSerialsResponse{
		POLineID:      line.Line.ID,
		SerialNumbers: line.Serials,
		BatchNumber:   line.BatchNumber,
	})
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	poID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req CommitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	lines := make([]CommitLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, CommitLineInput{
			POLineID:    item.POLineID,
			Quantity:    item.Quantity,
			Serials:     item.SerialNumbers,
			BatchNumber: item.BatchNumber,
			Condition:   item.Condition,
			Notes:       item.Notes,
		})
	}
	result, err := h.service.CommitReceipt(r.Context(), CommitInput{
		POID: poID,
		Header: HeaderDraft{
			ReceiptDate:           req.ReceiptDate,
			SupplierInvoiceNumber: req.SupplierInvoiceNumber,
			DeliveryNoteNumber:    req.DeliveryNoteNumber,
			VehicleNumber:         req.VehicleNumber,
			DriverName:            req.DriverName,
			ReceivingNotes:        req.ReceivingNotes,
			InspectionNotes:       req.InspectionNotes,
		},
		Lines:          lines,
		ActorID:        currentUser(r),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.observeCommit(err)
		h.respondError(w, "commit goods receipt", poID, err)
		return
	}
	h.observeCommit(nil)
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	poID, _ := strconv.ParseInt(r.URL.Query().Get("po_id"), 10, 64)
	grns, total, err := h.service.ListGRNs(r.Context(), limit, offset, ListFilters{
		POID:   poID,
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		h.logger.Error("list goods received notes", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{GRNs: grns, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	grn, err := h.service.GetGRN(r.Context(), id)
	if err != nil {
		h.respondError(w, "get goods received note", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grn)
}

func (h *Handler) linkInvoice(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req LinkInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.LinkInvoice(r.Context(), id, req.SupplierInvoiceNumber, req.AccountingTransactionID, currentUser(r)); err != nil {
		h.respondError(w, "link supplier invoice", id, err)
		return
	}
	grn, err := h.service.GetGRN(r.Context(), id)
	if err != nil {
		h.respondError(w, "link supplier invoice", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grn)
}

func (h *Handler) observeCommit(err error) {
	if h.CommitMetric == nil {
		return
	}
	if err == nil {
		h.CommitMetric("success")
		return
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		h.CommitMetric("rejected")
		return
	}
	h.CommitMetric("error")
}

func (h *Handler) respondError(w http.ResponseWriter, op string, id int64, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSON(w, http.StatusUnprocessableEntity, validationProblem{
			Title:    "Receiving Validation Failed",
			Status:   http.StatusUnprocessableEntity,
			Detail:   verr.Error(),
			Code:     string(verr.Kind),
			POLineID: verr.POLineID,
		})
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "goods received note not found")
	case errors.Is(err, procurement.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "purchase order not found")
	case errors.Is(err, ErrUnknownLine):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvoiceAlreadyLinked):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrConcurrentReceipt):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, inventory.ErrDuplicateSerial):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "this receipt was already submitted")
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
