package procurement

import "errors"

// ErrReceivedExceedsOrdered flags a data-integrity violation: the aggregate
// received quantity can never pass the ordered quantity. The caller must
// abort rather than guess a status.
var ErrReceivedExceedsOrdered = errors.New("procurement: received quantity exceeds ordered quantity")

// NextStatusAfterReceipt derives the order status once a goods receipt has
// been applied, given quantities summed across all lines. A zero received
// total leaves the current status untouched.
func NextStatusAfterReceipt(current POStatus, totalOrdered, totalReceivedAfter int) (POStatus, error) {
	if totalReceivedAfter > totalOrdered {
		return "", ErrReceivedExceedsOrdered
	}
	switch {
	case totalReceivedAfter == 0:
		return current, nil
	case totalReceivedAfter < totalOrdered:
		return POStatusPartiallyReceived, nil
	default:
		return POStatusFullyReceived, nil
	}
}
