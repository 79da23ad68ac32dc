package receiving

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

func TestGenerateBatchPattern(t *testing.T) {
	// UnixMilli ends in ...890123, so the suffix is deterministic.
	gen := NewGenerator(fixedClock{at: time.UnixMilli(1234567890123)})

	draft := NewDraft(testPO())
	line := draft.LineByID(101)
	line.SetReceiveQuantity(2)

	serials := gen.GenerateBatch(line)
	require.Equal(t, []string{
		"MIC-295-80R22.5-890123-001",
		"MIC-295-80R22.5-890123-002",
	}, serials)
	require.Equal(t, serials, line.Serials)
}

func TestGenerateBatchOverwritesManualEntries(t *testing.T) {
	gen := NewGenerator(fixedClock{at: time.UnixMilli(42)})

	draft := NewDraft(testPO())
	line := draft.LineByID(102)
	line.SetReceiveQuantity(2)
	line.Serials[0] = "HAND-TYPED"

	gen.GenerateBatch(line)
	require.NotContains(t, line.Serials, "HAND-TYPED")
	require.Len(t, line.Serials, 2)
}

func TestGenerateBatchFallbackPrefix(t *testing.T) {
	gen := NewGenerator(fixedClock{at: time.UnixMilli(1000)})

	draft := NewDraft(testPO())
	line := draft.LineByID(101)
	line.Line.Brand = "  "
	line.SetReceiveQuantity(1)

	serials := gen.GenerateBatch(line)
	require.Equal(t, "TIR-295-80R22.5-001000-001", serials[0])
}

func TestGenerateBatchZeroQuantity(t *testing.T) {
	gen := NewGenerator(nil)
	draft := NewDraft(testPO())
	require.Nil(t, gen.GenerateBatch(draft.LineByID(101)))
}

func TestGeneratedSerialsPassValidation(t *testing.T) {
	gen := NewGenerator(fixedClock{at: time.UnixMilli(987654321987)})

	draft := NewDraft(testPO())
	draft.Header.ReceiptDate = time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	line := draft.LineByID(101)
	line.SetReceiveQuantity(6)
	gen.GenerateBatch(line)

	require.Nil(t, Validate(draft))
}

func TestNormalizeSerial(t *testing.T) {
	require.Equal(t, "ABC-1", NormalizeSerial("  abc-1 "))
	require.Equal(t, "", NormalizeSerial("   "))
}

func TestCleanSerialsDropsBlanksKeepsOrder(t *testing.T) {
	cleaned := CleanSerials([]string{" b-2", "", "a-1 ", "  "})
	require.Equal(t, []string{"B-2", "A-1"}, cleaned)
}

func TestDefaultBatchNumber(t *testing.T) {
	require.Equal(t, "BATCH-PO-20260115-001-101", DefaultBatchNumber("PO-20260115-001", 101))
}
