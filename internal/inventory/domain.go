package inventory

import (
	"errors"
	"time"
)

// Condition grades a tire unit at receipt or inspection.
type Condition string

const (
	ConditionGood      Condition = "GOOD"
	ConditionDamaged   Condition = "DAMAGED"
	ConditionDefective Condition = "DEFECTIVE"
)

// IsValid checks whether the condition is a known grade.
func (c Condition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionDefective:
		return true
	default:
		return false
	}
}

// UnitStatus enumerates where a tire unit currently is.
type UnitStatus string

const (
	// UnitStatusInStore is the fixed status of every unit at GRN creation.
	UnitStatusInStore        UnitStatus = "IN_STORE"
	UnitStatusFitted         UnitStatus = "FITTED"
	UnitStatusSentForRetread UnitStatus = "SENT_FOR_RETREAD"
	UnitStatusScrapped       UnitStatus = "SCRAPPED"
)

// IsValid checks whether the status is known.
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStatusInStore, UnitStatusFitted, UnitStatusSentForRetread, UnitStatusScrapped:
		return true
	default:
		return false
	}
}

// allowedMoves is the closed transition table for unit statuses.
var allowedMoves = map[UnitStatus][]UnitStatus{
	UnitStatusInStore:        {UnitStatusFitted, UnitStatusSentForRetread, UnitStatusScrapped},
	UnitStatusFitted:         {UnitStatusInStore, UnitStatusScrapped},
	UnitStatusSentForRetread: {UnitStatusInStore, UnitStatusScrapped},
}

// CanMoveTo reports whether a transition is permitted.
func (s UnitStatus) CanMoveTo(target UnitStatus) bool {
	for _, allowed := range allowedMoves[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TireUnit is one physical tire tracked by serial number.
type TireUnit struct {
	ID           int64      `json:"id"`
	SerialNumber string     `json:"serial_number"`
	POID         int64      `json:"po_id"`
	POLineID     int64      `json:"po_item_id"`
	GRNID        int64      `json:"grn_id"`
	BatchNumber  string     `json:"batch_number,omitempty"`
	Size         string     `json:"size"`
	Brand        string     `json:"brand"`
	Model        string     `json:"model,omitempty"`
	Type         string     `json:"type,omitempty"`
	Condition    Condition  `json:"condition"`
	Status       UnitStatus `json:"status"`
	ReceivedAt   time.Time  `json:"received_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

var (
	// ErrNotFound indicates the tire unit does not exist.
	ErrNotFound = errors.New("inventory: tire unit not found")
	// ErrInvalidTransition occurs when a status move is not in the transition table.
	ErrInvalidTransition = errors.New("inventory: invalid status transition")
	// ErrDuplicateSerial occurs when a serial number is already issued for the same purchase order.
	ErrDuplicateSerial = errors.New("inventory: serial number already issued")
)
