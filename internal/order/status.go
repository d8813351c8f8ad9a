package order

// Status represents the lifecycle stage of an order. The set is closed;
// transition rules live in the workflow engine's table, not here.
type Status string

const (
	StatusPendingCreditApproval     Status = "PENDING_CREDIT_APPROVAL"
	StatusOnHold                    Status = "ON_HOLD"
	StatusPendingWarehouseSelection Status = "PENDING_WAREHOUSE_SELECTION"
	StatusPendingPacking            Status = "PENDING_PACKING"
	StatusPartiallyPacked           Status = "PARTIALLY_PACKED"
	StatusPendingLogisticsCosting   Status = "PENDING_LOGISTICS_COSTING"
	StatusRejected                  Status = "REJECTED"
	StatusReadyForBilling           Status = "READY_FOR_BILLING"
	StatusReadyForDispatch          Status = "READY_FOR_DISPATCH"
	StatusPickedUp                  Status = "PICKED_UP"
	StatusOutForDelivery            Status = "OUT_FOR_DELIVERY"
	StatusDelivered                 Status = "DELIVERED"
	StatusPartiallyAccepted         Status = "PARTIALLY_ACCEPTED"
	StatusReturnedToWarehouse       Status = "RETURNED_TO_WAREHOUSE"
	StatusBackorder                 Status = "BACKORDER"
)

// IsValid checks if the status is a member of the closed set.
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingCreditApproval, StatusOnHold, StatusPendingWarehouseSelection,
		StatusPendingPacking, StatusPartiallyPacked, StatusPendingLogisticsCosting,
		StatusRejected, StatusReadyForBilling, StatusReadyForDispatch,
		StatusPickedUp, StatusOutForDelivery, StatusDelivered,
		StatusPartiallyAccepted, StatusReturnedToWarehouse, StatusBackorder:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no implemented trigger leaves this status.
// ReturnedToWarehouse is reachable only through an external operator override
// and never re-enters the workflow.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusReturnedToWarehouse
}

// InitialStatus returns the entry status for a new order of the given kind.
// Stock transfers bypass credit review entirely.
func InitialStatus(k Kind) Status {
	if k == KindStockTransfer {
		return StatusPendingWarehouseSelection
	}
	return StatusPendingCreditApproval
}
