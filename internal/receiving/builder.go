package receiving

import (
	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/procurement"
)

// BuildGRN transforms a validated draft into the atomic persistence payload.
// It is pure: the source purchase order lines are never mutated, and the
// post-receipt totals it computes are a proposal the persistence layer must
// confirm. Callers run Validate first; BuildGRN only re-derives the status
// and surfaces the defensive received-exceeds-ordered check.
func BuildGRN(d *Draft, createdBy int64) (GRNRequest, error) {
	req := GRNRequest{
		POID:        d.PO.ID,
		ReceiptDate: d.Header.ReceiptDate,
		Header:      d.Header,
		CreatedBy:   createdBy,
	}

	var totalOrdered, totalReceivedAfter int
	for _, line := range d.Lines {
		totalOrdered += line.Line.OrderedQty
		totalReceivedAfter += line.Line.ReceivedQty + line.ReceiveQty

		if line.ReceiveQty <= 0 {
			continue
		}
		condition := line.Condition
		if condition == "" {
			condition = inventory.ConditionGood
		}
		batch := line.BatchNumber
		if batch == "" {
			batch = DefaultBatchNumber(d.PO.Number, line.Line.ID)
		}
		req.Items = append(req.Items, GRNItemRequest{
			POLineID:         line.Line.ID,
			QuantityReceived: line.ReceiveQty,
			NewReceivedTotal: line.Line.ReceivedQty + line.ReceiveQty,
			UnitCost:         line.Line.UnitPrice,
			BatchNumber:      batch,
			SerialNumbers:    CleanSerials(line.Serials),
			Condition:        condition,
			Notes:            line.Notes,
		})
	}

	next, err := procurement.NextStatusAfterReceipt(d.PO.Status, totalOrdered, totalReceivedAfter)
	if err != nil {
		return GRNRequest{}, err
	}
	req.ProposedStatus = POStatusProposal{
		Status:        string(next),
		TotalOrdered:  totalOrdered,
		TotalReceived: totalReceivedAfter,
	}
	return req, nil
}
