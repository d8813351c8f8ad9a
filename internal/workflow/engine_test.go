package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostline-scm/frostline/internal/logistics"
	"github.com/frostline-scm/frostline/internal/order"
	"github.com/frostline-scm/frostline/internal/shared"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newSalesOrder(status order.Status, lines ...order.Line) *order.Order {
	if len(lines) == 0 {
		lines = []order.Line{{ProductID: 1, OrderedQty: 10, UOM: "BOX", UnitPrice: 100}}
	}
	return &order.Order{
		ID:            uuid.New(),
		Kind:          order.KindSalesOrder,
		CustomerID:    42,
		Lines:         lines,
		Status:        status,
		History:       []order.StatusChange{{Status: status, At: testNow.Add(-time.Hour)}},
		SalespersonID: 9,
	}
}

func apply(t *testing.T, o *order.Order, req TransitionRequest, actor shared.Actor) TransitionEvent {
	t.Helper()
	ev, err := NewEngine().Apply(o, req, actor, testNow)
	require.NoError(t, err)
	return ev
}

func TestApplyUnknownTrigger(t *testing.T) {
	o := newSalesOrder(order.StatusPendingCreditApproval)
	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: "vaporize"}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestApplyWrongSourceStatus(t *testing.T) {
	o := newSalesOrder(order.StatusDelivered)
	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerApprove}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
	assert.Equal(t, order.StatusDelivered, o.Status)
	assert.Len(t, o.History, 1, "failed transition must not grow history")
}

func TestApproveFromPendingCredit(t *testing.T) {
	o := newSalesOrder(order.StatusPendingCreditApproval)

	ev := apply(t, o, TransitionRequest{Trigger: TriggerApprove}, shared.Actor{Role: shared.RoleCredit})

	assert.Equal(t, order.StatusPendingWarehouseSelection, o.Status)
	assert.Equal(t, order.StatusPendingCreditApproval, ev.OldStatus)
	assert.Equal(t, order.StatusPendingWarehouseSelection, ev.NewStatus)
	require.Len(t, o.History, 2)
	assert.Equal(t, order.StatusPendingWarehouseSelection, o.History[1].Status)
	assert.Equal(t, testNow, o.History[1].At)
}

func TestApproveFromHold(t *testing.T) {
	o := newSalesOrder(order.StatusOnHold)
	apply(t, o, TransitionRequest{Trigger: TriggerApprove}, shared.Actor{})
	assert.Equal(t, order.StatusPendingWarehouseSelection, o.Status)
}

func TestHoldRequiresReason(t *testing.T) {
	o := newSalesOrder(order.StatusPendingCreditApproval)

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerHold}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingReason)

	apply(t, o, TransitionRequest{Trigger: TriggerHold, Reason: "limit breached"}, shared.Actor{})
	assert.Equal(t, order.StatusOnHold, o.Status)
	require.NotNil(t, o.RejectionReason)
	assert.Equal(t, "limit breached", *o.RejectionReason)
}

func TestHoldIsReentrant(t *testing.T) {
	o := newSalesOrder(order.StatusOnHold)
	apply(t, o, TransitionRequest{Trigger: TriggerHold, Reason: "still waiting"}, shared.Actor{})
	assert.Equal(t, order.StatusOnHold, o.Status)
	assert.Len(t, o.History, 2, "re-hold still appends a history entry")
}

func TestRejectRequiresReason(t *testing.T) {
	o := newSalesOrder(order.StatusOnHold)

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerReject}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingReason)

	apply(t, o, TransitionRequest{Trigger: TriggerReject, Reason: "no payment history"}, shared.Actor{})
	assert.Equal(t, order.StatusRejected, o.Status)
}

func TestResubmitOnlyByOriginalSalesperson(t *testing.T) {
	o := newSalesOrder(order.StatusRejected)
	reason := "no payment history"
	o.RejectionReason = &reason

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerResubmit},
		shared.Actor{ID: 9, Role: shared.RoleCredit}, testNow)
	assert.ErrorIs(t, err, order.ErrUnauthorizedActor, "right id, wrong role")

	_, err = NewEngine().Apply(o, TransitionRequest{Trigger: TriggerResubmit},
		shared.Actor{ID: 8, Role: shared.RoleSales}, testNow)
	assert.ErrorIs(t, err, order.ErrUnauthorizedActor, "right role, wrong id")

	apply(t, o, TransitionRequest{Trigger: TriggerResubmit, Remarks: "terms renegotiated"},
		shared.Actor{ID: 9, Role: shared.RoleSales})
	assert.Equal(t, order.StatusPendingCreditApproval, o.Status)
	assert.Nil(t, o.RejectionReason, "resubmission clears the rejection reason")
	assert.Contains(t, o.Remarks, "terms renegotiated")
}

func TestAssignFacility(t *testing.T) {
	o := newSalesOrder(order.StatusPendingWarehouseSelection)

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerAssignFacility}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingFacility)

	apply(t, o, TransitionRequest{Trigger: TriggerAssignFacility, FacilityID: "CS-NORTH"}, shared.Actor{})
	assert.Equal(t, order.StatusPendingPacking, o.Status)
	assert.Equal(t, "CS-NORTH", o.WarehouseSource)
}

func TestFinalizePackingRejectsUnallocatedLines(t *testing.T) {
	o := newSalesOrder(order.StatusPendingPacking,
		order.Line{ProductID: 1, OrderedQty: 10, UnitPrice: 100},
		order.Line{ProductID: 2, OrderedQty: 5, UnitPrice: 40},
	)

	_, err := NewEngine().Apply(o, TransitionRequest{
		Trigger: TriggerFinalizePacking,
		Allocations: map[int][]order.BatchAllocation{
			0: {{BatchCode: "LOT-A", Qty: 10}},
		},
	}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrIncompleteAllocation)
}

func TestFinalizePackingFullGoesToBilling(t *testing.T) {
	o := newSalesOrder(order.StatusPendingPacking)

	apply(t, o, TransitionRequest{
		Trigger:     TriggerFinalizePacking,
		PackedBoxes: 3,
		Allocations: map[int][]order.BatchAllocation{
			0: {{BatchCode: "LOT-A", Qty: 6}, {BatchCode: "LOT-B", Qty: 4}},
		},
	}, shared.Actor{})

	assert.Equal(t, order.StatusReadyForBilling, o.Status)
	assert.Equal(t, 3, o.PackedBoxes)
	assert.Equal(t, 1000.0, o.PackedValue())
}

func TestFinalizePackingPartialGoesToPartiallyPacked(t *testing.T) {
	o := newSalesOrder(order.StatusPendingPacking)

	apply(t, o, TransitionRequest{
		Trigger: TriggerFinalizePacking,
		Allocations: map[int][]order.BatchAllocation{
			0: {{BatchCode: "LOT-A", Qty: 7}},
		},
	}, shared.Actor{})

	assert.Equal(t, order.StatusPartiallyPacked, o.Status)
	assert.Equal(t, 700.0, o.PackedValue())
}

func TestFinalizePackingClampsOverAllocation(t *testing.T) {
	o := newSalesOrder(order.StatusPendingPacking)

	apply(t, o, TransitionRequest{
		Trigger: TriggerFinalizePacking,
		Allocations: map[int][]order.BatchAllocation{
			0: {{BatchCode: "LOT-A", Qty: 15}},
		},
	}, shared.Actor{})

	assert.Equal(t, order.StatusReadyForBilling, o.Status)
	assert.Equal(t, 10.0, o.Lines[0].PackedQty(), "over-pack clamps to the ordered quantity")
}

func TestFinalizePackingLineIndexOutOfRange(t *testing.T) {
	o := newSalesOrder(order.StatusPendingPacking)
	_, err := NewEngine().Apply(o, TransitionRequest{
		Trigger:     TriggerFinalizePacking,
		Allocations: map[int][]order.BatchAllocation{3: {{BatchCode: "X", Qty: 1}}},
	}, shared.Actor{}, testNow)
	assert.Error(t, err)
}

func TestSendBackToPacking(t *testing.T) {
	o := newSalesOrder(order.StatusReadyForBilling)

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerSendBack}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingReason)

	apply(t, o, TransitionRequest{Trigger: TriggerSendBack, Reason: "wrong lot"}, shared.Actor{})
	assert.Equal(t, order.StatusPendingPacking, o.Status)
}

func TestPushToCostingMergesFigures(t *testing.T) {
	o := newSalesOrder(order.StatusReadyForBilling)
	o.Lines[0].Allocations = []order.BatchAllocation{{BatchCode: "LOT-A", Qty: 10}}

	apply(t, o, TransitionRequest{
		Trigger: TriggerPushToCosting,
		Logistics: &order.LogisticsDetails{
			InsulatedBoxCount: 4,
			InsulatedBoxRate:  12.5,
			CoolantMassKg:     3.2,
			CoolantRate:       10,
			FirstLegAmount:    20,
			SecondLegAmount:   15,
			LastLegAmount:     3,
		},
	}, shared.Actor{})

	assert.Equal(t, order.StatusPendingLogisticsCosting, o.Status)
	require.NotNil(t, o.Logistics)
	assert.Equal(t, 120.0, logistics.Total(*o.Logistics))
	assert.InDelta(t, 0.12, logistics.OrderCostRatio(o), 1e-9)
	assert.Equal(t, logistics.SeverityHighBurden, logistics.Band(logistics.OrderCostRatio(o)))
}

func TestFinalizeInvoiceRequiresNumber(t *testing.T) {
	o := newSalesOrder(order.StatusPendingLogisticsCosting)

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerFinalizeInvoice}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingInvoice)

	apply(t, o, TransitionRequest{Trigger: TriggerFinalizeInvoice, InvoiceNumber: "INV-2025-0042"}, shared.Actor{})
	assert.Equal(t, order.StatusReadyForDispatch, o.Status)
	require.NotNil(t, o.InvoiceNumber)
	assert.Equal(t, "INV-2025-0042", *o.InvoiceNumber)
}

func TestRejectCostingReturnsToBilling(t *testing.T) {
	o := newSalesOrder(order.StatusPendingLogisticsCosting)
	apply(t, o, TransitionRequest{Trigger: TriggerRejectCosting, Reason: "freight quote too high"}, shared.Actor{})
	assert.Equal(t, order.StatusReadyForBilling, o.Status)
}

func TestAssignFleetKeepsStatus(t *testing.T) {
	o := newSalesOrder(order.StatusReadyForDispatch)

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerAssignFleet}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingFleet)

	_, err = NewEngine().Apply(o, TransitionRequest{
		Trigger: TriggerAssignFleet,
		Fleet:   &FleetAssignment{AgentID: 12},
	}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingFleet, "vehicle number is mandatory")

	apply(t, o, TransitionRequest{
		Trigger: TriggerAssignFleet,
		Fleet: &FleetAssignment{
			AgentID:         12,
			VehicleNumber:   "B-9912-FC",
			VehicleProvider: "PT Rantai Dingin",
			DistanceKm:      47.5,
		},
	}, shared.Actor{Role: shared.RoleFleet})

	assert.Equal(t, order.StatusReadyForDispatch, o.Status, "fleet assignment does not advance the order")
	require.True(t, o.Logistics.FleetAssigned())
	assert.Equal(t, int64(12), *o.Logistics.FleetAgentID)
	assert.Equal(t, 47.5, *o.Logistics.DistanceKm)
	assert.Len(t, o.History, 2, "the assignment is still recorded")
}

func TestPickupAndMission(t *testing.T) {
	o := newSalesOrder(order.StatusReadyForDispatch)

	apply(t, o, TransitionRequest{Trigger: TriggerConfirmPickup}, shared.Actor{Role: shared.RoleDriver})
	assert.Equal(t, order.StatusPickedUp, o.Status)

	apply(t, o, TransitionRequest{Trigger: TriggerStartMission}, shared.Actor{Role: shared.RoleDriver})
	assert.Equal(t, order.StatusOutForDelivery, o.Status)
}

func TestDeliverFull(t *testing.T) {
	o := newSalesOrder(order.StatusOutForDelivery)
	o.Lines[0].Allocations = []order.BatchAllocation{{BatchCode: "LOT-A", Qty: 10}}

	_, err := NewEngine().Apply(o, TransitionRequest{Trigger: TriggerDeliverFull}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingProof)

	apply(t, o, TransitionRequest{Trigger: TriggerDeliverFull, ProofRef: "POD-778"}, shared.Actor{})
	assert.Equal(t, order.StatusDelivered, o.Status)
	assert.Equal(t, 10.0, o.Lines[0].DeliveredQty)
	require.NotNil(t, o.DeliveryProof)
	assert.Equal(t, "POD-778", *o.DeliveryProof)
	assert.True(t, o.Status.IsTerminal())
}

func TestDeliverPartialValidatesQuantities(t *testing.T) {
	o := newSalesOrder(order.StatusOutForDelivery)
	o.Lines[0].Allocations = []order.BatchAllocation{{BatchCode: "LOT-A", Qty: 10}}

	_, err := NewEngine().Apply(o, TransitionRequest{
		Trigger: TriggerDeliverPartial, ProofRef: "POD-779",
	}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrMissingDelivered)

	_, err = NewEngine().Apply(o, TransitionRequest{
		Trigger:   TriggerDeliverPartial,
		ProofRef:  "POD-779",
		Delivered: map[int]float64{0: 12},
	}, shared.Actor{}, testNow)
	assert.ErrorIs(t, err, order.ErrDeliveredExceeds)
	assert.Equal(t, 0.0, o.Lines[0].DeliveredQty, "rejected delivery leaves quantities untouched")

	apply(t, o, TransitionRequest{
		Trigger:   TriggerDeliverPartial,
		ProofRef:  "POD-779",
		Delivered: map[int]float64{0: 6},
	}, shared.Actor{})
	assert.Equal(t, order.StatusPartiallyAccepted, o.Status)
	assert.Equal(t, 6.0, o.Lines[0].DeliveredQty)
}

func TestDeliverRefused(t *testing.T) {
	o := newSalesOrder(order.StatusOutForDelivery)
	apply(t, o, TransitionRequest{Trigger: TriggerDeliverRefused, Reason: "cold chain broken"}, shared.Actor{})
	assert.Equal(t, order.StatusRejected, o.Status)
}

func TestReopenBackorderRepacksRemainderOnly(t *testing.T) {
	o := newSalesOrder(order.StatusPartiallyAccepted)
	o.Lines[0].DeliveredQty = 6
	o.Lines[0].Allocations = []order.BatchAllocation{{BatchCode: "LOT-A", Qty: 10}}

	apply(t, o, TransitionRequest{Trigger: TriggerReopenBackorder}, shared.Actor{})

	assert.Equal(t, order.StatusBackorder, o.Status)
	assert.Equal(t, 0.0, o.Lines[0].PackedQty(), "allocations reset for the repack")
	assert.Equal(t, 6.0, o.Lines[0].DeliveredQty, "delivered quantity is immutable")
	assert.Equal(t, 4.0, o.Lines[0].RemainingQty())
}

// Full happy path plus the backorder loop, asserting history grows by exactly
// one entry per applied trigger.
func TestBackorderCycle(t *testing.T) {
	o := newSalesOrder(order.StatusPendingCreditApproval)
	engine := NewEngine()
	sales := shared.Actor{ID: 9, Role: shared.RoleSales}

	steps := []TransitionRequest{
		{Trigger: TriggerApprove},
		{Trigger: TriggerAssignFacility, FacilityID: "CS-NORTH"},
		{Trigger: TriggerFinalizePacking, Allocations: map[int][]order.BatchAllocation{
			0: {{BatchCode: "LOT-A", Qty: 10}},
		}},
		{Trigger: TriggerPushToCosting, Logistics: &order.LogisticsDetails{FirstLegAmount: 80}},
		{Trigger: TriggerFinalizeInvoice, InvoiceNumber: "INV-1"},
		{Trigger: TriggerConfirmPickup},
		{Trigger: TriggerStartMission},
		{Trigger: TriggerDeliverPartial, ProofRef: "POD-1", Delivered: map[int]float64{0: 6}},
		{Trigger: TriggerReopenBackorder},
	}
	for i, req := range steps {
		before := len(o.History)
		_, err := engine.Apply(o, req, sales, testNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err, "step %d (%s)", i, req.Trigger)
		require.Len(t, o.History, before+1, "step %d (%s)", i, req.Trigger)
	}
	assert.Equal(t, order.StatusBackorder, o.Status)

	// Repack the 4 undelivered units and run the remainder out for delivery.
	apply(t, o, TransitionRequest{Trigger: TriggerFinalizePacking, Allocations: map[int][]order.BatchAllocation{
		0: {{BatchCode: "LOT-B", Qty: 4}},
	}}, sales)
	assert.Equal(t, order.StatusReadyForBilling, o.Status, "packing the remainder is a full pack")
	assert.Equal(t, 4.0, o.Lines[0].PackedQty())

	apply(t, o, TransitionRequest{Trigger: TriggerPushToCosting}, sales)
	apply(t, o, TransitionRequest{Trigger: TriggerFinalizeInvoice, InvoiceNumber: "INV-2"}, sales)
	apply(t, o, TransitionRequest{Trigger: TriggerConfirmPickup}, sales)
	apply(t, o, TransitionRequest{Trigger: TriggerStartMission}, sales)
	apply(t, o, TransitionRequest{Trigger: TriggerDeliverFull, ProofRef: "POD-2"}, sales)

	assert.Equal(t, order.StatusDelivered, o.Status)
	assert.Equal(t, 10.0, o.Lines[0].DeliveredQty)
}

func TestHistoryTimestampsMonotonic(t *testing.T) {
	o := newSalesOrder(order.StatusPendingCreditApproval)
	engine := NewEngine()

	_, err := engine.Apply(o, TransitionRequest{Trigger: TriggerApprove}, shared.Actor{}, testNow)
	require.NoError(t, err)
	_, err = engine.Apply(o, TransitionRequest{Trigger: TriggerAssignFacility, FacilityID: "CS-1"},
		shared.Actor{}, testNow.Add(time.Minute))
	require.NoError(t, err)

	for i := 1; i < len(o.History); i++ {
		assert.False(t, o.History[i].At.Before(o.History[i-1].At))
	}
}

func TestInitialStatusByKind(t *testing.T) {
	assert.Equal(t, order.StatusPendingCreditApproval, order.InitialStatus(order.KindSalesOrder))
	assert.Equal(t, order.StatusPendingWarehouseSelection, order.InitialStatus(order.KindStockTransfer),
		"stock transfers bypass credit review")
}
