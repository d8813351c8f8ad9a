// Package workflow owns the order status transition table and the engine
// that applies department-submitted transitions to the order aggregate.
package workflow

import (
	"github.com/frostline-scm/frostline/internal/order"
)

// Trigger names a workflow action a department can submit. Each trigger maps
// to exactly one row of the transition table; adding a status or action means
// touching the table, not call sites.
type Trigger string

const (
	TriggerApprove         Trigger = "approve"
	TriggerHold            Trigger = "hold"
	TriggerReject          Trigger = "reject"
	TriggerResubmit        Trigger = "resubmit"
	TriggerAssignFacility  Trigger = "assign_facility"
	TriggerFinalizePacking Trigger = "finalize_packing"
	TriggerPushToCosting   Trigger = "push_to_costing"
	TriggerSendBack        Trigger = "send_back"
	TriggerFinalizeInvoice Trigger = "finalize_invoice"
	TriggerRejectCosting   Trigger = "reject_costing"
	TriggerAssignFleet     Trigger = "assign_fleet"
	TriggerConfirmPickup   Trigger = "confirm_pickup"
	TriggerStartMission    Trigger = "start_mission"
	TriggerDeliverFull     Trigger = "deliver_full"
	TriggerDeliverPartial  Trigger = "deliver_partial"
	TriggerDeliverRefused  Trigger = "deliver_refused"
	TriggerReopenBackorder Trigger = "reopen_backorder"
)

// FleetAssignment attaches a dispatch agent and vehicle to an order.
type FleetAssignment struct {
	AgentID         int64   `json:"agent_id" validate:"required,gt=0"`
	VehicleNumber   string  `json:"vehicle_number" validate:"required,max=50"`
	VehicleProvider string  `json:"vehicle_provider,omitempty" validate:"omitempty,max=50"`
	DistanceKm      float64 `json:"distance_km,omitempty" validate:"gte=0"`
}

// TransitionRequest carries a trigger plus its supporting payload. Which
// fields are required depends on the trigger; guards reject a request whose
// payload is incomplete.
type TransitionRequest struct {
	Trigger Trigger `json:"trigger" validate:"required"`

	// Reason backs hold, reject, send-back, reject-costing and refused
	// deliveries.
	Reason string `json:"reason,omitempty"`

	// Remarks accompany a resubmission after rejection.
	Remarks string `json:"remarks,omitempty"`

	// FacilityID assigns the cold-storage facility during warehouse selection.
	FacilityID string `json:"facility_id,omitempty"`

	// Allocations carries the packing terminal's batch entries per line index.
	Allocations map[int][]order.BatchAllocation `json:"allocations,omitempty"`
	PackedBoxes int                             `json:"packed_boxes,omitempty" validate:"gte=0"`

	// Logistics carries itemized costing figures.
	Logistics *order.LogisticsDetails `json:"logistics,omitempty"`

	// InvoiceNumber is generated at invoicing approval.
	InvoiceNumber string `json:"invoice_number,omitempty"`

	// Fleet backs the fleet-assignment action.
	Fleet *FleetAssignment `json:"fleet,omitempty"`

	// ProofRef is the opaque proof-of-delivery reference.
	ProofRef string `json:"proof_ref,omitempty"`

	// Delivered captures per-line accepted quantities on a partial delivery,
	// keyed by line index.
	Delivered map[int]float64 `json:"delivered,omitempty"`
}
