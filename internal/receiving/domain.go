package receiving

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treadstock/treadstock/internal/inventory"
)

// GRN is the immutable goods received note. Only the accounting linkage
// fields may be set after creation, exactly once.
type GRN struct {
	ID                      int64      `json:"id"`
	Number                  string     `json:"grn_number"`
	POID                    int64      `json:"po_id"`
	ReceiptDate             time.Time  `json:"receipt_date"`
	SupplierInvoiceNumber   string     `json:"supplier_invoice_number,omitempty"`
	DeliveryNoteNumber      string     `json:"delivery_note_number,omitempty"`
	VehicleNumber           string     `json:"vehicle_number,omitempty"`
	DriverName              string     `json:"driver_name,omitempty"`
	ReceivingNotes          string     `json:"receiving_notes,omitempty"`
	InspectionNotes         string     `json:"inspection_notes,omitempty"`
	AccountingTransactionID string     `json:"accounting_transaction_id,omitempty"`
	InvoiceLinkedAt         *time.Time `json:"invoice_linked_at,omitempty"`
	CreatedBy               int64      `json:"created_by"`
	CreatedAt               time.Time  `json:"created_at"`
	Items                   []GRNItem  `json:"items,omitempty"`
}

// GRNItem records the received portion of one purchase order line.
type GRNItem struct {
	ID               int64           `json:"id"`
	GRNID            int64           `json:"grn_id"`
	POLineID         int64           `json:"po_item_id"`
	QuantityReceived int             `json:"quantity_received"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	BatchNumber      string          `json:"batch_number"`
	SerialNumbers    []string        `json:"serial_numbers"`
	Notes            string          `json:"notes,omitempty"`
}

// GRNRequest is the atomic persistence payload produced by the builder. It
// describes the intended mutation; the repository applies it in one
// transaction or not at all.
type GRNRequest struct {
	POID            int64
	ReceiptDate     time.Time
	Header          HeaderDraft
	ProposedStatus  POStatusProposal
	Items           []GRNItemRequest
	CreatedBy       int64
}

// POStatusProposal carries the status the builder derived from post-receipt
// totals. The repository recomputes it under lock before applying.
type POStatusProposal struct {
	Status        string
	TotalOrdered  int
	TotalReceived int
}

// GRNItemRequest is one qualifying line of the payload.
type GRNItemRequest struct {
	POLineID         int64
	QuantityReceived int
	NewReceivedTotal int
	UnitCost         decimal.Decimal
	BatchNumber      string
	SerialNumbers    []string
	Condition        inventory.Condition
	Notes            string
}

// CommitResult mirrors the persistence layer's confirmation of a GRN commit.
type CommitResult struct {
	GRNNumber string          `json:"grn_number"`
	GRNID     int64           `json:"grn_id"`
	Items     []CommittedItem `json:"items"`
	Tires     []CommittedTire `json:"tires"`
}

// CommittedItem confirms one persisted GRN line.
type CommittedItem struct {
	GRNItemID        int64    `json:"grn_item_id"`
	POLineID         int64    `json:"po_item_id"`
	QuantityReceived int      `json:"quantity_received"`
	SerialNumbers    []string `json:"serial_numbers"`
}

// CommittedTire confirms one created tire unit.
type CommittedTire struct {
	ID           int64  `json:"id"`
	SerialNumber string `json:"serial_number"`
	POLineID     int64  `json:"po_item_id"`
}

var (
	// ErrNotFound indicates the GRN does not exist.
	ErrNotFound = errors.New("receiving: grn not found")
	// ErrUnknownLine occurs when a draft references a line the order does not have.
	ErrUnknownLine = errors.New("receiving: unknown purchase order line")
	// ErrInvoiceAlreadyLinked occurs when the set-once accounting linkage is repeated.
	ErrInvoiceAlreadyLinked = errors.New("receiving: supplier invoice already linked")
	// ErrConcurrentReceipt occurs when another receipt consumed the remaining
	// quantity between draft validation and commit.
	ErrConcurrentReceipt = errors.New("receiving: remaining quantity changed, refresh and retry")
)
