package receiving

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/procurement"
	"github.com/treadstock/treadstock/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetGRN(ctx context.Context, id int64) (GRN, error)
	ListGRNs(ctx context.Context, limit, offset int, filters ListFilters) ([]GRN, int, error)
	LinkInvoice(ctx context.Context, grnID int64, invoiceNumber, accountingTxID string) error
}

// TxRepository exposes the operations of one atomic GRN commit.
type TxRepository interface {
	LockPOLines(ctx context.Context, poID int64) ([]procurement.Line, error)
	CreateGRN(ctx context.Context, req GRNRequest) (int64, string, error)
	InsertItem(ctx context.Context, grnID int64, item GRNItemRequest) (int64, error)
	InsertTireUnit(ctx context.Context, unit inventory.TireUnit) (int64, error)
	AddLineReceived(ctx context.Context, poLineID int64, qty int) error
	UpdatePOStatus(ctx context.Context, poID int64, status procurement.POStatus) error
}

// OrderPort exposes the purchase order reads the workflow needs.
type OrderPort interface {
	GetPO(ctx context.Context, id int64) (procurement.PurchaseOrder, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the receiving workflow.
type Service struct {
	repo        RepositoryPort
	orders      OrderPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	locks       *redis.Client
	lockTTL     time.Duration
}

// NewService constructs the receiving service. The redis client is optional;
// without it commits rely on row locks alone.
func NewService(repo RepositoryPort, orders OrderPort, audit AuditPort, idem *shared.IdempotencyStore, locks *redis.Client) *Service {
	return &Service{repo: repo, orders: orders, audit: audit, idempotency: idem, locks: locks, lockTTL: 30 * time.Second}
}

// CommitLineInput is one line of a commit request.
type CommitLineInput struct {
	POLineID    int64
	Quantity    int
	Serials     []string
	BatchNumber string
	Condition   inventory.Condition
	Notes       string
}

// CommitInput is the full commit request for one purchase order.
type CommitInput struct {
	POID           int64
	Header         HeaderDraft
	Lines          []CommitLineInput
	ActorID        int64
	IdempotencyKey string
}

// Snapshot returns a fresh draft seeded from the confirmed purchase order
// state, the starting point for a receiving session.
func (s *Service) Snapshot(ctx context.Context, poID int64) (*Draft, error) {
	po, err := s.orders.GetPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	return NewDraft(po), nil
}

// CommitReceipt validates the submitted draft against the latest confirmed
// order state and, when clean, persists the GRN as one atomic unit: header,
// items, tire units, per-line received increments and the derived order
// status. Any failure leaves the purchase order completely unchanged.
func (s *Service) CommitReceipt(ctx context.Context, input CommitInput) (CommitResult, error) {
	po, err := s.orders.GetPO(ctx, input.POID)
	if err != nil {
		return CommitResult{}, err
	}

	draft := NewDraft(po)
	for _, in := range input.Lines {
		line := draft.LineByID(in.POLineID)
		if line == nil {
			return CommitResult{}, fmt.Errorf("%w: %d", ErrUnknownLine, in.POLineID)
		}
		// Assigned directly rather than clamped: an over-remaining quantity
		// at commit time must fail validation, not shrink silently.
		line.ReceiveQty = in.Quantity
		line.Serials = append([]string(nil), in.Serials...)
		if in.BatchNumber != "" {
			line.BatchNumber = in.BatchNumber
		}
		if in.Condition != "" {
			line.Condition = in.Condition
		}
		line.Notes = in.Notes
	}
	draft.Header = input.Header

	if verr := Validate(draft); verr != nil {
		return CommitResult{}, verr
	}

	req, err := BuildGRN(draft, input.ActorID)
	if err != nil {
		return CommitResult{}, err
	}

	unlock, err := s.acquireLock(ctx, input.POID)
	if err != nil {
		return CommitResult{}, err
	}
	defer unlock()

	if s.idempotency != nil && input.IdempotencyKey != "" {
		key := fmt.Sprintf("RECEIPT:%d:%s", input.POID, input.IdempotencyKey)
		if err := s.idempotency.CheckAndInsert(ctx, key, "receiving.grn"); err != nil {
			return CommitResult{}, err
		}
		defer func() {
			if err != nil {
				_ = s.idempotency.Delete(ctx, key)
			}
		}()
	}

	var result CommitResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockPOLines(ctx, input.POID)
		if err != nil {
			return err
		}
		current := make(map[int64]procurement.Line, len(locked))
		for _, line := range locked {
			current[line.ID] = line
		}

		var totalOrdered, totalReceivedAfter int
		for _, line := range locked {
			totalOrdered += line.OrderedQty
			totalReceivedAfter += line.ReceivedQty
		}
		for _, item := range req.Items {
			line, ok := current[item.POLineID]
			if !ok {
				return fmt.Errorf("%w: %d", ErrUnknownLine, item.POLineID)
			}
			if item.QuantityReceived > line.RemainingQty() {
				return ErrConcurrentReceipt
			}
			totalReceivedAfter += item.QuantityReceived
		}

		grnID, number, err := tx.CreateGRN(ctx, req)
		if err != nil {
			return err
		}
		result = CommitResult{GRNID: grnID, GRNNumber: number}

		for _, item := range req.Items {
			line := current[item.POLineID]
			itemID, err := tx.InsertItem(ctx, grnID, item)
			if err != nil {
				return err
			}
			result.Items = append(result.Items, CommittedItem{
				GRNItemID:        itemID,
				POLineID:         item.POLineID,
				QuantityReceived: item.QuantityReceived,
				SerialNumbers:    item.SerialNumbers,
			})
			for _, serial := range item.SerialNumbers {
				unitID, err := tx.InsertTireUnit(ctx, inventory.TireUnit{
					SerialNumber: serial,
					POID:         input.POID,
					POLineID:     item.POLineID,
					GRNID:        grnID,
					BatchNumber:  item.BatchNumber,
					Size:         line.Size,
					Brand:        line.Brand,
					Model:        line.Model,
					Type:         line.Type,
					Condition:    item.Condition,
					Status:       inventory.UnitStatusInStore,
					ReceivedAt:   req.ReceiptDate,
				})
				if err != nil {
					return err
				}
				result.Tires = append(result.Tires, CommittedTire{ID: unitID, SerialNumber: serial, POLineID: item.POLineID})
			}
			if err := tx.AddLineReceived(ctx, item.POLineID, item.QuantityReceived); err != nil {
				return err
			}
		}

		next, err := procurement.NextStatusAfterReceipt(po.Status, totalOrdered, totalReceivedAfter)
		if err != nil {
			return err
		}
		return tx.UpdatePOStatus(ctx, input.POID, next)
	})
	if err != nil {
		return CommitResult{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "GRN_COMMIT",
			Entity:   "grn",
			EntityID: fmt.Sprintf("%d", result.GRNID),
			Meta:     map[string]any{"number": result.GRNNumber, "po_id": input.POID, "tires": len(result.Tires)},
		})
	}
	return result, nil
}

// GetGRN fetches one goods received note with items.
func (s *Service) GetGRN(ctx context.Context, id int64) (GRN, error) {
	return s.repo.GetGRN(ctx, id)
}

// ListGRNs lists notes matching the filters.
func (s *Service) ListGRNs(ctx context.Context, limit, offset int, filters ListFilters) ([]GRN, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListGRNs(ctx, limit, offset, filters)
}

// LinkInvoice sets the GRN's accounting linkage fields exactly once.
func (s *Service) LinkInvoice(ctx context.Context, grnID int64, invoiceNumber, accountingTxID string, actorID int64) error {
	if invoiceNumber == "" {
		return fmt.Errorf("receiving: invoice number required")
	}
	if err := s.repo.LinkInvoice(ctx, grnID, invoiceNumber, accountingTxID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "GRN_INVOICE_LINK",
			Entity:   "grn",
			EntityID: fmt.Sprintf("%d", grnID),
			Meta:     map[string]any{"invoice_number": invoiceNumber},
		})
	}
	return nil
}

func (s *Service) acquireLock(ctx context.Context, poID int64) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	key := shared.ReceivingLockKey(poID)
	ok, err := s.locks.SetNX(ctx, key, "1", s.lockTTL).Result()
	if err != nil {
		// Redis being down must not block receiving; row locks still apply.
		return func() {}, nil
	}
	if !ok {
		return func() {}, errors.New("receiving: another receipt for this order is in progress")
	}
	return func() { _ = s.locks.Del(context.WithoutCancel(ctx), key) }, nil
}
