// Package receiving implements the goods receiving workflow: turning a
// purchase order's remaining quantities into a goods received note with one
// serialised tire unit per physical tire.
package receiving

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/procurement"
)

// HeaderDraft holds the receipt header fields collected before commit.
type HeaderDraft struct {
	ReceiptDate           time.Time `json:"receipt_date"`
	SupplierInvoiceNumber string    `json:"supplier_invoice_number,omitempty"`
	DeliveryNoteNumber    string    `json:"delivery_note_number,omitempty"`
	VehicleNumber         string    `json:"vehicle_number,omitempty"`
	DriverName            string    `json:"driver_name,omitempty"`
	ReceivingNotes        string    `json:"receiving_notes,omitempty"`
	InspectionNotes       string    `json:"inspection_notes,omitempty"`
}

// LineDraft is the session-scoped working copy of one purchase order line.
// The embedded Line is the last confirmed snapshot and is never mutated here;
// only ReceiveQty, Serials and the free-text fields change while editing.
type LineDraft struct {
	Line        procurement.Line    `json:"line"`
	ReceiveQty  int                 `json:"current_receive_quantity"`
	Serials     []string            `json:"serial_numbers"`
	BatchNumber string              `json:"batch_number"`
	Condition   inventory.Condition `json:"condition"`
	Notes       string              `json:"notes,omitempty"`
}

// Draft is the full receiving session state for one purchase order.
type Draft struct {
	PO     procurement.PurchaseOrder `json:"purchase_order"`
	Header HeaderDraft               `json:"header"`
	Lines  []LineDraft               `json:"lines"`
}

// NewDraft builds a fresh draft from a confirmed purchase order snapshot.
// Every line starts at zero quantity with a deterministic default batch number.
func NewDraft(po procurement.PurchaseOrder) *Draft {
	draft := &Draft{PO: po}
	for _, line := range po.Lines {
		draft.Lines = append(draft.Lines, LineDraft{
			Line:        line,
			BatchNumber: DefaultBatchNumber(po.Number, line.ID),
			Condition:   inventory.ConditionGood,
		})
	}
	return draft
}

// SetReceiveQuantity clamps the requested quantity into [0, remaining] and
// resizes the serial slots to match. Out-of-range input is silently clamped,
// not rejected.
func (l *LineDraft) SetReceiveQuantity(requested int) int {
	qty := requested
	if qty < 0 {
		qty = 0
	}
	if remaining := l.Line.RemainingQty(); qty > remaining {
		qty = remaining
	}
	l.ReceiveQty = qty
	l.ResizeSerialSlots(qty)
	return qty
}

// ResizeSerialSlots grows the serial slice with empty slots or truncates it
// from the end. Values already entered in retained slots are preserved.
func (l *LineDraft) ResizeSerialSlots(newQty int) {
	if newQty < 0 {
		newQty = 0
	}
	switch {
	case newQty > len(l.Serials):
		grown := make([]string, newQty)
		copy(grown, l.Serials)
		l.Serials = grown
	case newQty < len(l.Serials):
		l.Serials = l.Serials[:newQty]
	}
}

// LineByID finds the draft line for a purchase order line.
func (d *Draft) LineByID(poLineID int64) *LineDraft {
	for i := range d.Lines {
		if d.Lines[i].Line.ID == poLineID {
			return &d.Lines[i]
		}
	}
	return nil
}

// TotalReceived sums the quantities currently being received.
func (d *Draft) TotalReceived() int {
	var total int
	for _, line := range d.Lines {
		total += line.ReceiveQty
	}
	return total
}

// TotalValue sums quantity x unit price across the draft.
func (d *Draft) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.Line.UnitPrice.Mul(decimal.NewFromInt(int64(line.ReceiveQty))))
	}
	return total
}

// ProgressPercent reports overall completion including the in-flight draft
// quantities, rounded to the nearest whole percent. An order with nothing
// ordered reports 0.
func (d *Draft) ProgressPercent() int {
	var ordered, received int
	for _, line := range d.Lines {
		ordered += line.Line.OrderedQty
		received += line.Line.ReceivedQty + line.ReceiveQty
	}
	if ordered == 0 {
		return 0
	}
	return int(math.Round(100 * float64(received) / float64(ordered)))
}
