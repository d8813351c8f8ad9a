package order

import "errors"

// Domain errors surfaced by the workflow engine and repository.
var (
	// ErrNotFound indicates the requested order was not found.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned when the requested trigger has no edge
	// from the order's current status.
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	// ErrMissingReason is returned when a hold/reject/send-back trigger is
	// submitted without a reason.
	ErrMissingReason = errors.New("reason is required for this transition")
	// ErrIncompleteAllocation is returned when packing is finalized while a
	// line still has no batch allocations.
	ErrIncompleteAllocation = errors.New("line has no batch allocations")
	// ErrUnauthorizedActor is returned when a resubmit is attempted by an
	// actor other than the originating salesperson.
	ErrUnauthorizedActor = errors.New("actor not allowed to perform this transition")
	// ErrPersistenceConflict signals a concurrent write on the aggregate.
	// The caller should reload and resubmit.
	ErrPersistenceConflict = errors.New("order was modified concurrently")

	// Creation/payload validation errors.
	ErrEmptyLines      = errors.New("at least one line is required")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidKind     = errors.New("unknown order kind")
	ErrSameWarehouse   = errors.New("stock transfer source and destination must differ")
	ErrMissingCustomer = errors.New("sales order requires a customer")

	// Transition payload guards.
	ErrMissingFacility  = errors.New("facility identifier is required")
	ErrMissingInvoice   = errors.New("invoice number is required")
	ErrMissingFleet     = errors.New("fleet agent and vehicle are required")
	ErrMissingProof     = errors.New("proof of delivery reference is required")
	ErrMissingDelivered = errors.New("per-line delivered quantities are required")
	ErrDeliveredExceeds = errors.New("delivered quantity exceeds packed quantity")
)
