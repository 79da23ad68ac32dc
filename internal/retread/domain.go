// Package retread manages sending worn tire units to a retread supplier and
// booking them back into stock.
package retread

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treadstock/treadstock/internal/inventory"
)

// Status enumerates the retread order lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusReceived, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanSend reports whether the order can be dispatched to the supplier.
func (s Status) CanSend() bool { return s == StatusPending }

// CanReceive reports whether the order can be booked back into stock.
func (s Status) CanReceive() bool { return s == StatusSent }

// CanCancel reports whether the order can still be cancelled. Orders already
// received are history and stay as they are.
func (s Status) CanCancel() bool { return s == StatusPending || s == StatusSent }

// Order is one batch of tire units sent for retreading.
type Order struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	SupplierID int64           `json:"supplier_id"`
	Status     Status          `json:"status"`
	SentAt     *time.Time      `json:"sent_at,omitempty"`
	ReceivedAt *time.Time      `json:"received_at,omitempty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Notes      string          `json:"notes,omitempty"`
	CreatedBy  int64           `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Items      []Item          `json:"items,omitempty"`
}

// Item links one tire unit to a retread order.
type Item struct {
	ID              int64               `json:"id"`
	OrderID         int64               `json:"order_id"`
	TireUnitID      int64               `json:"tire_unit_id"`
	SerialNumber    string              `json:"serial_number"`
	ReturnCondition inventory.Condition `json:"return_condition,omitempty"`
}

// TotalCost is unit cost times the number of items.
func (o Order) TotalCost() decimal.Decimal {
	return o.UnitCost.Mul(decimal.NewFromInt(int64(len(o.Items))))
}

var (
	// ErrNotFound indicates the retread order does not exist.
	ErrNotFound = errors.New("retread: order not found")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("retread: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("retread: invalid input")
	// ErrUnitUnavailable occurs when a tire unit cannot leave its current status.
	ErrUnitUnavailable = errors.New("retread: tire unit not available for retreading")
)
