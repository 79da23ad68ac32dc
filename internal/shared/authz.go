package shared

// Permission names enforced by the RBAC middleware.
const (
	PermProcurementView = "procurement.view"
	PermProcurementEdit = "procurement.edit"

	PermReceivingView = "receiving.view"
	PermReceivingEdit = "receiving.edit"

	PermInventoryView = "inventory.view"
	PermInventoryEdit = "inventory.edit"

	PermRetreadView = "retread.view"
	PermRetreadEdit = "retread.edit"

	PermMasterdataView = "masterdata.view"
	PermMasterdataEdit = "masterdata.edit"
)
