package workflow

import (
	"github.com/google/uuid"

	"github.com/frostline-scm/frostline/internal/credit"
	"github.com/frostline-scm/frostline/internal/logistics"
	"github.com/frostline-scm/frostline/internal/order"
)

// CreateOrderRequest books a new sales order or stock transfer.
type CreateOrderRequest struct {
	Kind          order.Kind      `json:"kind" validate:"required"`
	CustomerID    int64           `json:"customer_id,omitempty" validate:"gte=0"`
	FromWarehouse string          `json:"from_warehouse,omitempty" validate:"omitempty,max=50"`
	ToWarehouse   string          `json:"to_warehouse,omitempty" validate:"omitempty,max=50"`
	Lines         []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateLineReq is one line item in a create request.
type CreateLineReq struct {
	ProductID  int64   `json:"product_id" validate:"required,gt=0"`
	OrderedQty float64 `json:"ordered_qty" validate:"required,gt=0"`
	UOM        string  `json:"uom" validate:"required,max=20"`
	UnitPrice  float64 `json:"unit_price" validate:"required,gte=0"`
	BaseRate   float64 `json:"base_rate" validate:"gte=0"`
}

// CreditReview bundles the inputs the credit controller sees before deciding
// to approve, hold or reject.
type CreditReview struct {
	OrderID  uuid.UUID       `json:"order_id"`
	Snapshot credit.Snapshot `json:"snapshot"`
	Exposure credit.Exposure `json:"exposure"`
	Insight  string          `json:"insight,omitempty"`
}

// CostSummary is the derived logistics costing view.
type CostSummary struct {
	OrderID            uuid.UUID          `json:"order_id"`
	InsulatedBoxAmount float64            `json:"insulated_box_amount"`
	CoolantAmount      float64            `json:"coolant_amount"`
	TotalCost          float64            `json:"total_cost"`
	PackedValue        float64            `json:"packed_value"`
	CostRatio          float64            `json:"cost_ratio"`
	Band               logistics.Severity `json:"band"`
}

// OrderView decorates the aggregate with derived per-line and order totals
// for detail responses.
type OrderView struct {
	order.Order
	PackedValue float64      `json:"packed_value"`
	LineTotals  []LineTotals `json:"line_totals"`
	FullyPacked bool         `json:"fully_packed"`
}

// LineTotals reconciles ordered vs packed vs delivered per line.
type LineTotals struct {
	ProductID    int64   `json:"product_id"`
	OrderedQty   float64 `json:"ordered_qty"`
	PackedQty    float64 `json:"packed_qty"`
	DeliveredQty float64 `json:"delivered_qty"`
	RemainingQty float64 `json:"remaining_qty"`
}
