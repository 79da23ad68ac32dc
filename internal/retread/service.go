package retread

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Order, int, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the retread workflow.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the retread service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput describes a new retread order.
type CreateInput struct {
	SupplierID int64
	UnitIDs    []int64
	UnitCost   decimal.Decimal
	Notes      string
	CreatedBy  int64
}

// ReturnInput records the grade one unit came back with.
type ReturnInput struct {
	TireUnitID int64
	Condition  inventory.Condition
}

// CreateOrder opens a PENDING order for units currently in store.
func (s *Service) CreateOrder(ctx context.Context, input CreateInput) (Order, error) {
	if input.SupplierID <= 0 {
		return Order{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	if len(input.UnitIDs) == 0 {
		return Order{}, fmt.Errorf("%w: at least one tire unit required", ErrValidation)
	}
	if input.UnitCost.IsNegative() {
		return Order{}, fmt.Errorf("%w: unit cost cannot be negative", ErrValidation)
	}

	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		units, err := tx.LockUnits(ctx, input.UnitIDs)
		if err != nil {
			return err
		}
		if len(units) != len(input.UnitIDs) {
			return fmt.Errorf("%w: unknown tire unit in selection", ErrValidation)
		}
		for _, unit := range units {
			if unit.Status != inventory.UnitStatusInStore {
				return fmt.Errorf("%w: %s is %s", ErrUnitUnavailable, unit.SerialNumber, unit.Status)
			}
		}

		id, _, err := tx.CreateOrder(ctx, Order{
			SupplierID: input.SupplierID,
			Status:     StatusPending,
			UnitCost:   input.UnitCost,
			Notes:      input.Notes,
			CreatedBy:  input.CreatedBy,
		})
		if err != nil {
			return err
		}
		orderID = id
		for _, unit := range units {
			if _, err := tx.InsertItem(ctx, Item{OrderID: id, TireUnitID: unit.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.recordAudit(ctx, input.CreatedBy, "RETREAD_CREATE", orderID, map[string]any{"units": len(input.UnitIDs)})
	return s.repo.Get(ctx, orderID)
}

// Send dispatches a PENDING order, moving every unit to SENT_FOR_RETREAD.
func (s *Service) Send(ctx context.Context, orderID, actorID int64) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanSend() {
		return fmt.Errorf("%w: cannot send order in status %s", ErrInvalidState, order.Status)
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.moveUnits(ctx, tx, order, inventory.UnitStatusSentForRetread, nil); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, orderID, StatusSent, &now, nil)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "RETREAD_SEND", orderID, nil)
	return nil
}

// Receive books a SENT order back into stock, grading every unit.
func (s *Service) Receive(ctx context.Context, orderID int64, returns []ReturnInput, actorID int64) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanReceive() {
		return fmt.Errorf("%w: cannot receive order in status %s", ErrInvalidState, order.Status)
	}

	grades := make(map[int64]inventory.Condition, len(returns))
	for _, ret := range returns {
		if ret.Condition != "" && !ret.Condition.IsValid() {
			return fmt.Errorf("%w: unknown condition %s", ErrValidation, ret.Condition)
		}
		grades[ret.TireUnitID] = ret.Condition
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.moveUnits(ctx, tx, order, inventory.UnitStatusInStore, grades); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, orderID, StatusReceived, nil, &now)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "RETREAD_RECEIVE", orderID, nil)
	return nil
}

// Cancel aborts an order. Units already sent return to IN_STORE.
func (s *Service) Cancel(ctx context.Context, orderID, actorID int64) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanCancel() {
		return fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidState, order.Status)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if order.Status == StatusSent {
			if err := s.moveUnits(ctx, tx, order, inventory.UnitStatusInStore, nil); err != nil {
				return err
			}
		}
		return tx.UpdateOrderStatus(ctx, orderID, StatusCancelled, nil, nil)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "RETREAD_CANCEL", orderID, nil)
	return nil
}

// Get fetches one order.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List lists orders matching the filters.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Order, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset, filters)
}

func (s *Service) moveUnits(ctx context.Context, tx TxRepository, order Order, target inventory.UnitStatus, grades map[int64]inventory.Condition) error {
	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.TireUnitID)
	}
	units, err := tx.LockUnits(ctx, ids)
	if err != nil {
		return err
	}
	for _, unit := range units {
		if !unit.Status.CanMoveTo(target) {
			return fmt.Errorf("%w: %s cannot move %s -> %s", inventory.ErrInvalidTransition, unit.SerialNumber, unit.Status, target)
		}
		condition := grades[unit.ID]
		if err := tx.UpdateUnitStatus(ctx, unit.ID, target, condition); err != nil {
			return err
		}
		if condition != "" {
			if err := tx.SetItemReturnCondition(ctx, order.ID, unit.ID, condition); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "retread_order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
	})
}
