package receiving

import (
	"time"

	"github.com/treadstock/treadstock/internal/inventory"
)

// CommitRequest is the JSON body posted to commit a goods receipt.
type CommitRequest struct {
	ReceiptDate           time.Time           `json:"receipt_date"`
	SupplierInvoiceNumber string              `json:"supplier_invoice_number"`
	DeliveryNoteNumber    string              `json:"delivery_note_number"`
	VehicleNumber         string              `json:"vehicle_number"`
	DriverName            string              `json:"driver_name"`
	ReceivingNotes        string              `json:"receiving_notes"`
	InspectionNotes       string              `json:"inspection_notes"`
	Items                 []CommitItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CommitItemRequest is one line of the commit body.
type CommitItemRequest struct {
	POLineID      int64               `json:"po_item_id" validate:"required"`
	Quantity      int                 `json:"quantity" validate:"min=0"`
	SerialNumbers []string            `json:"serial_numbers"`
	BatchNumber   string              `json:"batch_number"`
	Condition     inventory.Condition `json:"condition" validate:"omitempty,oneof=GOOD DAMAGED DEFECTIVE"`
	Notes         string              `json:"notes"`
}

// SuggestSerialsRequest asks for a generated serial batch for one line.
type SuggestSerialsRequest struct {
	POLineID int64 `json:"po_item_id" validate:"required"`
	Quantity int   `json:"quantity" validate:"required,min=1"`
}

// SuggestSerialsResponse carries the generated batch.
type SuggestSerialsResponse struct {
	POLineID      int64    `json:"po_item_id"`
	SerialNumbers []string `json:"serial_numbers"`
	BatchNumber   string   `json:"batch_number"`
}

// LinkInvoiceRequest sets the GRN accounting linkage.
type LinkInvoiceRequest struct {
	SupplierInvoiceNumber   string `json:"supplier_invoice_number" validate:"required"`
	AccountingTransactionID string `json:"accounting_transaction_id"`
}

// ListResponse is a paginated GRN listing.
type ListResponse struct {
	GRNs   []GRN `json:"grns"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// validationProblem is the RFC7807 payload for receiving validation failures,
// extended with the stable error code and the offending line.
type validationProblem struct {
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Code     string `json:"error_code"`
	POLineID int64  `json:"po_item_id,omitempty"`
}
