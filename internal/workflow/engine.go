package workflow

import (
	"fmt"
	"time"

	"github.com/frostline-scm/frostline/internal/order"
	"github.com/frostline-scm/frostline/internal/packing"
	"github.com/frostline-scm/frostline/internal/shared"
)

// transitionRule is one row of the transition table. apply runs the guard,
// mutates the aggregate's payload fields and returns the resolved next
// status, which may depend on the aggregate (finalize_packing collapses into
// ReadyForBilling or PartiallyPacked).
type transitionRule struct {
	from  []order.Status
	apply func(o *order.Order, req TransitionRequest, actor shared.Actor) (order.Status, error)
}

// transitionTable is the single place transition rules live. A trigger absent
// here, or submitted from a status outside its from set, is an invalid
// transition.
var transitionTable = map[Trigger]transitionRule{
	TriggerApprove: {
		from: []order.Status{order.StatusPendingCreditApproval, order.StatusOnHold},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			return order.StatusPendingWarehouseSelection, nil
		},
	},
	TriggerHold: {
		from: []order.Status{order.StatusPendingCreditApproval, order.StatusOnHold},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if err := requireReason(o, req); err != nil {
				return "", err
			}
			return order.StatusOnHold, nil
		},
	},
	TriggerReject: {
		from: []order.Status{order.StatusPendingCreditApproval, order.StatusOnHold},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if err := requireReason(o, req); err != nil {
				return "", err
			}
			return order.StatusRejected, nil
		},
	},
	TriggerResubmit: {
		from: []order.Status{order.StatusRejected},
		apply: func(o *order.Order, req TransitionRequest, actor shared.Actor) (order.Status, error) {
			if actor.Role != shared.RoleSales || actor.ID != o.SalespersonID {
				return "", order.ErrUnauthorizedActor
			}
			if req.Remarks != "" {
				o.Remarks = append(o.Remarks, req.Remarks)
			}
			o.RejectionReason = nil
			return order.StatusPendingCreditApproval, nil
		},
	},
	TriggerAssignFacility: {
		from: []order.Status{order.StatusPendingWarehouseSelection},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if req.FacilityID == "" {
				return "", order.ErrMissingFacility
			}
			o.WarehouseSource = req.FacilityID
			return order.StatusPendingPacking, nil
		},
	},
	TriggerFinalizePacking: {
		from: []order.Status{order.StatusPendingPacking, order.StatusBackorder},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			for idx, allocs := range req.Allocations {
				if idx < 0 || idx >= len(o.Lines) {
					return "", fmt.Errorf("line index %d out of range", idx)
				}
				packing.ReplaceAllocations(&o.Lines[idx], allocs)
			}
			if !packing.HasAllocations(o) {
				return "", order.ErrIncompleteAllocation
			}
			if req.PackedBoxes > 0 {
				o.PackedBoxes = req.PackedBoxes
			}
			if packing.IsFullyPacked(o) {
				return order.StatusReadyForBilling, nil
			}
			return order.StatusPartiallyPacked, nil
		},
	},
	TriggerPushToCosting: {
		from: []order.Status{order.StatusReadyForBilling, order.StatusPartiallyPacked},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if req.Logistics != nil {
				mergeCosting(o, req.Logistics)
			}
			return order.StatusPendingLogisticsCosting, nil
		},
	},
	TriggerSendBack: {
		from: []order.Status{order.StatusReadyForBilling, order.StatusPartiallyPacked},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if err := requireReason(o, req); err != nil {
				return "", err
			}
			return order.StatusPendingPacking, nil
		},
	},
	TriggerFinalizeInvoice: {
		from: []order.Status{order.StatusPendingLogisticsCosting},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if req.InvoiceNumber == "" {
				return "", order.ErrMissingInvoice
			}
			if req.Logistics != nil {
				mergeCosting(o, req.Logistics)
			}
			inv := req.InvoiceNumber
			o.InvoiceNumber = &inv
			return order.StatusReadyForDispatch, nil
		},
	},
	TriggerRejectCosting: {
		from: []order.Status{order.StatusPendingLogisticsCosting},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if err := requireReason(o, req); err != nil {
				return "", err
			}
			return order.StatusReadyForBilling, nil
		},
	},
	TriggerAssignFleet: {
		// Status does not change; the order becomes trackable.
		from: []order.Status{order.StatusReadyForDispatch},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if req.Fleet == nil || req.Fleet.AgentID == 0 || req.Fleet.VehicleNumber == "" {
				return "", order.ErrMissingFleet
			}
			if o.Logistics == nil {
				o.Logistics = &order.LogisticsDetails{}
			}
			agent := req.Fleet.AgentID
			vehicle := req.Fleet.VehicleNumber
			o.Logistics.FleetAgentID = &agent
			o.Logistics.VehicleNumber = &vehicle
			if req.Fleet.VehicleProvider != "" {
				provider := req.Fleet.VehicleProvider
				o.Logistics.VehicleProvider = &provider
			}
			if req.Fleet.DistanceKm > 0 {
				km := req.Fleet.DistanceKm
				o.Logistics.DistanceKm = &km
			}
			return order.StatusReadyForDispatch, nil
		},
	},
	TriggerConfirmPickup: {
		from: []order.Status{order.StatusReadyForDispatch},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			return order.StatusPickedUp, nil
		},
	},
	TriggerStartMission: {
		from: []order.Status{order.StatusPickedUp},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			return order.StatusOutForDelivery, nil
		},
	},
	TriggerDeliverFull: {
		from: []order.Status{order.StatusOutForDelivery},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if req.ProofRef == "" {
				return "", order.ErrMissingProof
			}
			proof := req.ProofRef
			o.DeliveryProof = &proof
			for i := range o.Lines {
				o.Lines[i].DeliveredQty += o.Lines[i].PackedQty()
			}
			return order.StatusDelivered, nil
		},
	},
	TriggerDeliverPartial: {
		from: []order.Status{order.StatusOutForDelivery},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if req.ProofRef == "" {
				return "", order.ErrMissingProof
			}
			if len(req.Delivered) == 0 {
				return "", order.ErrMissingDelivered
			}
			for idx, qty := range req.Delivered {
				if idx < 0 || idx >= len(o.Lines) {
					return "", fmt.Errorf("line index %d out of range", idx)
				}
				if qty < 0 || qty > o.Lines[idx].PackedQty() {
					return "", fmt.Errorf("line %d: %w", idx, order.ErrDeliveredExceeds)
				}
			}
			proof := req.ProofRef
			o.DeliveryProof = &proof
			for idx, qty := range req.Delivered {
				o.Lines[idx].DeliveredQty += qty
			}
			return order.StatusPartiallyAccepted, nil
		},
	},
	TriggerDeliverRefused: {
		from: []order.Status{order.StatusOutForDelivery},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			if err := requireReason(o, req); err != nil {
				return "", err
			}
			return order.StatusRejected, nil
		},
	},
	TriggerReopenBackorder: {
		from: []order.Status{order.StatusPartiallyAccepted},
		apply: func(o *order.Order, req TransitionRequest, _ shared.Actor) (order.Status, error) {
			packing.ResetForRepack(o)
			return order.StatusBackorder, nil
		},
	},
}

func requireReason(o *order.Order, req TransitionRequest) error {
	if req.Reason == "" {
		return order.ErrMissingReason
	}
	reason := req.Reason
	o.RejectionReason = &reason
	return nil
}

func mergeCosting(o *order.Order, d *order.LogisticsDetails) {
	if o.Logistics == nil {
		o.Logistics = &order.LogisticsDetails{}
	}
	o.Logistics.InsulatedBoxCount = d.InsulatedBoxCount
	o.Logistics.InsulatedBoxRate = d.InsulatedBoxRate
	o.Logistics.CoolantMassKg = d.CoolantMassKg
	o.Logistics.CoolantRate = d.CoolantRate
	o.Logistics.FirstLegAmount = d.FirstLegAmount
	o.Logistics.SecondLegAmount = d.SecondLegAmount
	o.Logistics.LastLegAmount = d.LastLegAmount
}

// Engine applies transition requests against an order aggregate.
type Engine struct{}

// NewEngine constructs the workflow engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply validates the requested transition against the table, mutates the
// aggregate, appends exactly one history entry with the resolved status, and
// returns the emitted event. On error the aggregate may be partially mutated;
// callers must work on a clone and discard it on failure.
func (e *Engine) Apply(o *order.Order, req TransitionRequest, actor shared.Actor, now time.Time) (TransitionEvent, error) {
	rule, ok := transitionTable[req.Trigger]
	if !ok {
		return TransitionEvent{}, fmt.Errorf("%w: unknown trigger %q", order.ErrInvalidTransition, req.Trigger)
	}

	allowed := false
	for _, from := range rule.from {
		if o.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return TransitionEvent{}, fmt.Errorf("%w: %s from %s", order.ErrInvalidTransition, req.Trigger, o.Status)
	}

	oldStatus := o.Status
	next, err := rule.apply(o, req, actor)
	if err != nil {
		return TransitionEvent{}, err
	}

	o.Status = next
	o.History = append(o.History, order.StatusChange{Status: next, At: now})

	return TransitionEvent{
		OrderID:   o.ID,
		OldStatus: oldStatus,
		NewStatus: next,
		Trigger:   req.Trigger,
		At:        now,
	}, nil
}
