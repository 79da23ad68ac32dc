package receiving

import "fmt"

// ErrorKind classifies validation failures detected before any commit attempt.
type ErrorKind string

const (
	KindOrderNotReceivable       ErrorKind = "ORDER_NOT_RECEIVABLE"
	KindNoItemsSelected          ErrorKind = "NO_ITEMS_SELECTED"
	KindQuantityExceedsRemaining ErrorKind = "QUANTITY_EXCEEDS_REMAINING"
	KindMissingReceiptDate       ErrorKind = "MISSING_RECEIPT_DATE"
	KindSerialCountMismatch      ErrorKind = "SERIAL_COUNT_MISMATCH"
	KindDuplicateSerial          ErrorKind = "DUPLICATE_SERIAL"
)

// ValidationError reports why a draft cannot be committed. POLineID is set
// for line-scoped failures so callers can point the user at the offending row.
type ValidationError struct {
	Kind     ErrorKind
	POLineID int64
}

func (e *ValidationError) Error() string {
	if e.POLineID != 0 {
		return fmt.Sprintf("receiving: %s (line %d)", e.Kind, e.POLineID)
	}
	return fmt.Sprintf("receiving: %s", e.Kind)
}

// Validate gates a draft against commit. It is a pure read-only check: the
// order status is inspected first, then line rules in a fixed order,
// short-circuiting on the first failure. Callers must run it immediately
// before submission.
func Validate(d *Draft) *ValidationError {
	if !d.PO.Status.Receivable() {
		return &ValidationError{Kind: KindOrderNotReceivable}
	}

	selected := false
	for _, line := range d.Lines {
		if line.ReceiveQty > 0 {
			selected = true
			break
		}
	}
	if !selected {
		return &ValidationError{Kind: KindNoItemsSelected}
	}

	for _, line := range d.Lines {
		if line.ReceiveQty > line.Line.RemainingQty() {
			return &ValidationError{Kind: KindQuantityExceedsRemaining, POLineID: line.Line.ID}
		}
	}

	if d.Header.ReceiptDate.IsZero() {
		return &ValidationError{Kind: KindMissingReceiptDate}
	}

	for _, line := range d.Lines {
		if line.ReceiveQty == 0 {
			continue
		}
		if len(CleanSerials(line.Serials)) != line.ReceiveQty {
			return &ValidationError{Kind: KindSerialCountMismatch, POLineID: line.Line.ID}
		}
	}

	for _, line := range d.Lines {
		if line.ReceiveQty == 0 {
			continue
		}
		seen := make(map[string]struct{}, line.ReceiveQty)
		for _, serial := range CleanSerials(line.Serials) {
			if _, dup := seen[serial]; dup {
				return &ValidationError{Kind: KindDuplicateSerial, POLineID: line.Line.ID}
			}
			seen[serial] = struct{}{}
		}
	}

	return nil
}
