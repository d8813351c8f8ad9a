// Package order defines the supply order aggregate and its status model.
package order

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes customer-facing orders from internal stock transfers.
type Kind string

const (
	KindSalesOrder    Kind = "SALES_ORDER"
	KindStockTransfer Kind = "STOCK_TRANSFER"
)

// IsValid checks if the kind is valid.
func (k Kind) IsValid() bool {
	return k == KindSalesOrder || k == KindStockTransfer
}

// BatchAllocation assigns a quantity from a specific inventory lot to a line.
type BatchAllocation struct {
	BatchCode       string     `json:"batch_code" db:"batch_code"`
	ManufactureDate *time.Time `json:"manufacture_date,omitempty" db:"manufacture_date"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Qty             float64    `json:"qty" db:"qty"`
}

// Line represents one product entry within an order.
type Line struct {
	ID           int64             `json:"id" db:"id"`
	ProductID    int64             `json:"product_id" db:"product_id"`
	OrderedQty   float64           `json:"ordered_qty" db:"ordered_qty"`
	UOM          string            `json:"uom" db:"uom"`
	UnitPrice    float64           `json:"unit_price" db:"unit_price"`
	BaseRate     float64           `json:"base_rate" db:"base_rate"`
	Allocations  []BatchAllocation `json:"allocations" db:"-"`
	DeliveredQty float64           `json:"delivered_qty" db:"delivered_qty"`
	LineOrder    int               `json:"line_order" db:"line_order"`
}

// PackedQty derives the packed quantity from the allocation entries.
// It is never stored independently.
func (l *Line) PackedQty() float64 {
	var total float64
	for _, a := range l.Allocations {
		total += a.Qty
	}
	return total
}

// RemainingQty is the undelivered portion of the ordered quantity. Delivered
// quantity is immutable history, so allocation for a backorder runs over this
// bound rather than the full ordered quantity.
func (l *Line) RemainingQty() float64 {
	rem := l.OrderedQty - l.DeliveredQty
	if rem < 0 {
		return 0
	}
	return rem
}

// LogisticsDetails holds itemized freight and cold-chain cost components plus
// fleet assignment fields. Amount totals are derived, never stored.
type LogisticsDetails struct {
	InsulatedBoxCount int     `json:"insulated_box_count" db:"insulated_box_count"`
	InsulatedBoxRate  float64 `json:"insulated_box_rate" db:"insulated_box_rate"`
	CoolantMassKg     float64 `json:"coolant_mass_kg" db:"coolant_mass_kg"`
	CoolantRate       float64 `json:"coolant_rate" db:"coolant_rate"`
	FirstLegAmount    float64 `json:"first_leg_amount" db:"first_leg_amount"`
	SecondLegAmount   float64 `json:"second_leg_amount" db:"second_leg_amount"`
	LastLegAmount     float64 `json:"last_leg_amount" db:"last_leg_amount"`

	FleetAgentID    *int64   `json:"fleet_agent_id,omitempty" db:"fleet_agent_id"`
	VehicleNumber   *string  `json:"vehicle_number,omitempty" db:"vehicle_number"`
	VehicleProvider *string  `json:"vehicle_provider,omitempty" db:"vehicle_provider"`
	DistanceKm      *float64 `json:"distance_km,omitempty" db:"distance_km"`
}

// FleetAssigned reports whether dispatch tracking data is attached.
func (d *LogisticsDetails) FleetAssigned() bool {
	return d != nil && d.FleetAgentID != nil && d.VehicleNumber != nil
}

// StatusChange is one append-only history entry. Entries are never edited,
// reordered or removed.
type StatusChange struct {
	Status Status    `json:"status" db:"status"`
	At     time.Time `json:"at" db:"at"`
}

// Order is the aggregate root moving through the fulfillment workflow.
type Order struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	Kind            Kind              `json:"kind" db:"kind"`
	CustomerID      int64             `json:"customer_id,omitempty" db:"customer_id"`
	FromWarehouse   string            `json:"from_warehouse,omitempty" db:"from_warehouse"`
	ToWarehouse     string            `json:"to_warehouse,omitempty" db:"to_warehouse"`
	Lines           []Line            `json:"lines" db:"-"`
	Status          Status            `json:"status" db:"status"`
	History         []StatusChange    `json:"history" db:"-"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	SalespersonID   int64             `json:"salesperson_id" db:"salesperson_id"`
	WarehouseSource string            `json:"warehouse_source,omitempty" db:"warehouse_source"`
	Logistics       *LogisticsDetails `json:"logistics,omitempty" db:"-"`
	PackedBoxes     int               `json:"packed_boxes" db:"packed_boxes"`
	InvoiceNumber   *string           `json:"invoice_number,omitempty" db:"invoice_number"`
	RejectionReason *string           `json:"rejection_reason,omitempty" db:"rejection_reason"`
	DeliveryProof   *string           `json:"delivery_proof,omitempty" db:"delivery_proof"`
	Remarks         []string          `json:"remarks,omitempty" db:"-"`
	Version         int64             `json:"version" db:"version"`
}

// PackedValue is the value of goods actually packed, derived on every call.
func (o *Order) PackedValue() float64 {
	var total float64
	for i := range o.Lines {
		total += o.Lines[i].PackedQty() * o.Lines[i].UnitPrice
	}
	return total
}

// Clone returns a deep copy of the aggregate. The workflow engine mutates a
// clone so a failed transition leaves the loaded aggregate untouched.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Lines = make([]Line, len(o.Lines))
	for i, src := range o.Lines {
		line := src
		line.Allocations = append([]BatchAllocation(nil), src.Allocations...)
		cp.Lines[i] = line
	}
	cp.History = append([]StatusChange(nil), o.History...)
	cp.Remarks = append([]string(nil), o.Remarks...)
	if o.Logistics != nil {
		lg := *o.Logistics
		cp.Logistics = &lg
	}
	return &cp
}
