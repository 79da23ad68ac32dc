package shared

import "fmt"

// ReceivingLockKey builds the redis key serialising GRN commits per purchase order.
func ReceivingLockKey(poID int64) string {
	return fmt.Sprintf("receiving:po:%d:lock", poID)
}

// RetreadLockKey builds the redis key serialising retread order transitions.
func RetreadLockKey(orderID int64) string {
	return fmt.Sprintf("retread:order:%d:lock", orderID)
}
