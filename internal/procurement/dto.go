package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRequest is the JSON payload for creating a purchase order.
type CreateRequest struct {
	Number       string           `json:"number,omitempty" validate:"omitempty,max=50"`
	SupplierID   int64            `json:"supplier_id" validate:"required,gt=0"`
	OrderDate    time.Time        `json:"order_date"`
	ExpectedDate *time.Time       `json:"expected_date,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Lines        []CreateLineReq  `json:"lines" validate:"required,min=1,dive"`
}

// CreateLineReq is a line item in the create request.
type CreateLineReq struct {
	Size       string          `json:"size" validate:"required,max=50"`
	Brand      string          `json:"brand" validate:"required,max=100"`
	Model      string          `json:"model" validate:"omitempty,max=100"`
	Type       string          `json:"type" validate:"omitempty,max=50"`
	OrderedQty int             `json:"ordered_quantity" validate:"required,gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// ListResponse wraps a PO listing.
type ListResponse struct {
	PurchaseOrders []PurchaseOrder `json:"purchase_orders"`
	Total          int             `json:"total"`
	Limit          int             `json:"limit"`
	Offset         int             `json:"offset"`
}
