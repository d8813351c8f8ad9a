package workflow

import (
	"fmt"

	"github.com/frostline-scm/frostline/internal/order"
)

// ValidateCreateRequest enforces domain rules on order creation that struct
// tags cannot express.
func ValidateCreateRequest(req CreateOrderRequest) error {
	if !req.Kind.IsValid() {
		return order.ErrInvalidKind
	}
	if len(req.Lines) == 0 {
		return order.ErrEmptyLines
	}
	for i, line := range req.Lines {
		if line.OrderedQty <= 0 {
			return fmt.Errorf("line %d: %w", i+1, order.ErrInvalidQuantity)
		}
	}
	switch req.Kind {
	case order.KindSalesOrder:
		if req.CustomerID <= 0 {
			return order.ErrMissingCustomer
		}
	case order.KindStockTransfer:
		if req.FromWarehouse == "" || req.ToWarehouse == "" {
			return order.ErrMissingFacility
		}
		if req.FromWarehouse == req.ToWarehouse {
			return order.ErrSameWarehouse
		}
	}
	return nil
}
