package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// POStatus enumerates the purchase order lifecycle.
type POStatus string

const (
	POStatusDraft             POStatus = "DRAFT"
	POStatusApproved          POStatus = "APPROVED"
	POStatusOrdered           POStatus = "ORDERED"
	POStatusPartiallyReceived POStatus = "PARTIALLY_RECEIVED"
	POStatusFullyReceived     POStatus = "FULLY_RECEIVED"
	POStatusClosed            POStatus = "CLOSED"
	POStatusCancelled         POStatus = "CANCELLED"
)

// IsValid checks whether the status is a known lifecycle state.
func (s POStatus) IsValid() bool {
	switch s {
	case POStatusDraft, POStatusApproved, POStatusOrdered, POStatusPartiallyReceived,
		POStatusFullyReceived, POStatusClosed, POStatusCancelled:
		return true
	default:
		return false
	}
}

// Receivable reports whether new goods receipts may be recorded against the order.
func (s POStatus) Receivable() bool {
	switch s {
	case POStatusDraft, POStatusApproved, POStatusOrdered, POStatusPartiallyReceived:
		return true
	default:
		return false
	}
}

// CanCancel reports whether the order may still be cancelled.
func (s POStatus) CanCancel() bool {
	switch s {
	case POStatusFullyReceived, POStatusClosed, POStatusCancelled:
		return false
	default:
		return true
	}
}

// PurchaseOrder is the aggregate root for procurement.
type PurchaseOrder struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number"`
	SupplierID   int64      `json:"supplier_id"`
	Status       POStatus   `json:"status"`
	OrderDate    time.Time  `json:"order_date"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedBy    int64      `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Lines        []Line     `json:"lines,omitempty"`
}

// Line is a single ordered row: one tire size/brand with quantity and price.
// OrderedQty is fixed at creation; ReceivedQty only grows through GRN commits.
type Line struct {
	ID          int64           `json:"id"`
	POID        int64           `json:"po_id"`
	Size        string          `json:"size"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Type        string          `json:"type"`
	OrderedQty  int             `json:"ordered_quantity"`
	ReceivedQty int             `json:"previously_received_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// RemainingQty is ordered minus already-received quantity, never negative.
func (l Line) RemainingQty() int {
	remaining := l.OrderedQty - l.ReceivedQty
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TotalOrdered sums ordered quantities across lines.
func (po PurchaseOrder) TotalOrdered() int {
	var total int
	for _, line := range po.Lines {
		total += line.OrderedQty
	}
	return total
}

// TotalReceived sums received quantities across lines.
func (po PurchaseOrder) TotalReceived() int {
	var total int
	for _, line := range po.Lines {
		total += line.ReceivedQty
	}
	return total
}

var (
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
)
