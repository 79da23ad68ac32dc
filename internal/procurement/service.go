package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treadstock/treadstock/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, error)
	ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreatePOInput describes the creation payload.
type CreatePOInput struct {
	Number       string
	SupplierID   int64
	OrderDate    time.Time
	ExpectedDate *time.Time
	Notes        string
	CreatedBy    int64
	Lines        []LineInput
}

// LineInput describes a PO line request.
type LineInput struct {
	Size       string
	Brand      string
	Model      string
	Type       string
	OrderedQty int
	UnitPrice  decimal.Decimal
}

// CreatePurchaseOrder persists the PO header and lines in DRAFT.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePOInput) (PurchaseOrder, error) {
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	if input.SupplierID == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	if input.Number == "" {
		input.Number = generateNumber("PO")
	}
	if input.OrderDate.IsZero() {
		input.OrderDate = time.Now().UTC()
	}
	po := PurchaseOrder{
		Number:       input.Number,
		SupplierID:   input.SupplierID,
		Status:       POStatusDraft,
		OrderDate:    input.OrderDate,
		ExpectedDate: input.ExpectedDate,
		Notes:        input.Notes,
		CreatedBy:    input.CreatedBy,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		poID, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID
		for _, line := range input.Lines {
			if line.OrderedQty <= 0 || line.UnitPrice.IsNegative() {
				return ErrValidation
			}
			created := Line{
				POID:       poID,
				Size:       line.Size,
				Brand:      line.Brand,
				Model:      line.Model,
				Type:       line.Type,
				OrderedQty: line.OrderedQty,
				UnitPrice:  line.UnitPrice,
			}
			lineID, err := tx.InsertLine(ctx, created)
			if err != nil {
				return err
			}
			created.ID = lineID
			po.Lines = append(po.Lines, created)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CREATE", po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// ApprovePurchaseOrder transitions DRAFT to APPROVED.
func (s *Service) ApprovePurchaseOrder(ctx context.Context, poID, actorID int64) error {
	return s.transition(ctx, poID, actorID, "PO_APPROVE", POStatusApproved, POStatusDraft)
}

// MarkOrdered transitions APPROVED (or DRAFT, for suppliers ordered directly) to ORDERED.
func (s *Service) MarkOrdered(ctx context.Context, poID, actorID int64) error {
	return s.transition(ctx, poID, actorID, "PO_ORDER", POStatusOrdered, POStatusDraft, POStatusApproved)
}

// ClosePurchaseOrder transitions FULLY_RECEIVED to CLOSED.
func (s *Service) ClosePurchaseOrder(ctx context.Context, poID, actorID int64) error {
	return s.transition(ctx, poID, actorID, "PO_CLOSE", POStatusClosed, POStatusFullyReceived)
}

// CancelPurchaseOrder cancels an order from any pre-received state.
func (s *Service) CancelPurchaseOrder(ctx context.Context, poID, actorID int64) error {
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	if !po.Status.CanCancel() {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, poID, POStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_CANCEL", poID, map[string]any{"number": po.Number, "actor": actorID})
	return nil
}

// GetPurchaseOrder fetches an order with lines.
func (s *Service) GetPurchaseOrder(ctx context.Context, poID int64) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, poID)
}

// ListPurchaseOrders lists order headers.
func (s *Service) ListPurchaseOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListPOs(ctx, limit, offset, filters)
}

func (s *Service) transition(ctx context.Context, poID, actorID int64, action string, target POStatus, from ...POStatus) error {
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	allowed := false
	for _, st := range from {
		if po.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, poID, target)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, action, poID, map[string]any{"number": po.Number, "actor": actorID, "status": string(target)})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
