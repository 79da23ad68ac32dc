package procurement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextStatusAfterReceipt(t *testing.T) {
	cases := []struct {
		name     string
		current  POStatus
		ordered  int
		received int
		want     POStatus
	}{
		{"untouched order keeps status", POStatusOrdered, 10, 0, POStatusOrdered},
		{"partial receipt", POStatusOrdered, 10, 4, POStatusPartiallyReceived},
		{"second partial stays partial", POStatusPartiallyReceived, 10, 9, POStatusPartiallyReceived},
		{"exact completion", POStatusPartiallyReceived, 10, 10, POStatusFullyReceived},
		{"single-shot full receipt", POStatusOrdered, 6, 6, POStatusFullyReceived},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStatusAfterReceipt(tc.current, tc.ordered, tc.received)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNextStatusAfterReceiptOverReceived(t *testing.T) {
	_, err := NextStatusAfterReceipt(POStatusOrdered, 10, 11)
	require.ErrorIs(t, err, ErrReceivedExceedsOrdered)
}

func TestStatusReceivable(t *testing.T) {
	receivable := []POStatus{POStatusDraft, POStatusApproved, POStatusOrdered, POStatusPartiallyReceived}
	for _, st := range receivable {
		require.True(t, st.Receivable(), "status %s", st)
	}
	closed := []POStatus{POStatusFullyReceived, POStatusClosed, POStatusCancelled}
	for _, st := range closed {
		require.False(t, st.Receivable(), "status %s", st)
	}
}

func TestStatusCanCancel(t *testing.T) {
	require.True(t, POStatusDraft.CanCancel())
	require.True(t, POStatusOrdered.CanCancel())
	require.True(t, POStatusPartiallyReceived.CanCancel())
	require.False(t, POStatusFullyReceived.CanCancel())
	require.False(t, POStatusClosed.CanCancel())
	require.False(t, POStatusCancelled.CanCancel())
}

func TestLineRemainingQty(t *testing.T) {
	require.Equal(t, 6, Line{OrderedQty: 10, ReceivedQty: 4}.RemainingQty())
	require.Equal(t, 0, Line{OrderedQty: 10, ReceivedQty: 10}.RemainingQty())
	require.Equal(t, 0, Line{OrderedQty: 10, ReceivedQty: 12}.RemainingQty())
}
