package receiving

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/treadstock/treadstock/internal/procurement"
)

func receiptDate() time.Time {
	return time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
}

func TestValidateOrderNotReceivable(t *testing.T) {
	for _, status := range []procurement.POStatus{
		procurement.POStatusFullyReceived,
		procurement.POStatusClosed,
		procurement.POStatusCancelled,
	} {
		po := testPO()
		po.Status = status
		draft := NewDraft(po)
		draft.Header.ReceiptDate = receiptDate()
		draft.LineByID(101).SetReceiveQuantity(1)

		verr := Validate(draft)
		require.NotNil(t, verr, "status %s", status)
		require.Equal(t, KindOrderNotReceivable, verr.Kind)
		require.Zero(t, verr.POLineID)
	}
}

func TestValidateNoItemsSelected(t *testing.T) {
	draft := NewDraft(testPO())
	draft.Header.ReceiptDate = receiptDate()

	verr := Validate(draft)
	require.NotNil(t, verr)
	require.Equal(t, KindNoItemsSelected, verr.Kind)
}

func TestValidateQuantityExceedsRemaining(t *testing.T) {
	draft := NewDraft(testPO())
	draft.Header.ReceiptDate = receiptDate()
	// Bypass the clamp the way a stale client submission would.
	line := draft.LineByID(101)
	line.ReceiveQty = 7 // remaining is 6

	verr := Validate(draft)
	require.NotNil(t, verr)
	require.Equal(t, KindQuantityExceedsRemaining, verr.Kind)
	require.Equal(t, int64(101), verr.POLineID)
}

func TestValidateMissingReceiptDate(t *testing.T) {
	draft := NewDraft(testPO())
	line := draft.LineByID(102)
	line.SetReceiveQuantity(1)
	line.Serials[0] = "BRI-1"

	verr := Validate(draft)
	require.NotNil(t, verr)
	require.Equal(t, KindMissingReceiptDate, verr.Kind)
}

func TestValidateSerialCountMismatch(t *testing.T) {
	draft := NewDraft(testPO())
	draft.Header.ReceiptDate = receiptDate()
	line := draft.LineByID(102)
	line.SetReceiveQuantity(3)
	line.Serials[0] = "BRI-1"
	line.Serials[1] = "   " // blank entries do not count
	line.Serials[2] = "BRI-2"

	verr := Validate(draft)
	require.NotNil(t, verr)
	require.Equal(t, KindSerialCountMismatch, verr.Kind)
	require.Equal(t, int64(102), verr.POLineID)
}

func TestValidateDuplicateSerialNormalized(t *testing.T) {
	draft := NewDraft(testPO())
	draft.Header.ReceiptDate = receiptDate()
	line := draft.LineByID(102)
	line.SetReceiveQuantity(2)
	line.Serials[0] = "bri-1"
	line.Serials[1] = " BRI-1 "

	verr := Validate(draft)
	require.NotNil(t, verr)
	require.Equal(t, KindDuplicateSerial, verr.Kind)
	require.Equal(t, int64(102), verr.POLineID)
}

func TestValidateCheckOrderShortCircuits(t *testing.T) {
	// A draft broken in several ways reports the earliest rule only.
	draft := NewDraft(testPO())
	line := draft.LineByID(101)
	line.ReceiveQty = 99
	line.Serials = []string{"DUP", "DUP"}

	verr := Validate(draft)
	require.NotNil(t, verr)
	require.Equal(t, KindQuantityExceedsRemaining, verr.Kind)
}

func TestValidateCleanDraft(t *testing.T) {
	draft := NewDraft(testPO())
	draft.Header.ReceiptDate = receiptDate()
	line := draft.LineByID(101)
	line.SetReceiveQuantity(2)
	line.Serials[0] = "MIC-1"
	line.Serials[1] = "MIC-2"

	require.Nil(t, Validate(draft))
}

func TestValidationErrorMessage(t *testing.T) {
	require.Equal(t, "receiving: DUPLICATE_SERIAL (line 7)", (&ValidationError{Kind: KindDuplicateSerial, POLineID: 7}).Error())
	require.Equal(t, "receiving: NO_ITEMS_SELECTED", (&ValidationError{Kind: KindNoItemsSelected}).Error())
}
