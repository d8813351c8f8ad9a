package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frostline-scm/frostline/internal/order"
	"github.com/frostline-scm/frostline/internal/platform/db"
)

// ListRequest filters the paginated order list.
type ListRequest struct {
	Status     *order.Status `json:"status,omitempty"`
	Kind       *order.Kind   `json:"kind,omitempty"`
	CustomerID *int64        `json:"customer_id,omitempty"`
	Limit      int           `json:"limit" validate:"gte=0,lte=200"`
	Offset     int           `json:"offset" validate:"gte=0"`
}

// Repository persists order aggregates. SaveTransition must commit the status
// change, payload fields and the new history entry atomically, or roll all of
// it back: a partially-applied transition must never be observable.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	List(ctx context.Context, req ListRequest) ([]order.Order, int, error)
	Create(ctx context.Context, o *order.Order) error
	SaveTransition(ctx context.Context, o *order.Order, entry order.StatusChange) error
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// GetByID retrieves an order aggregate with lines, allocations, logistics and
// status history.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `
		SELECT id, kind, customer_id, from_warehouse, to_warehouse, status,
		       created_at, salesperson_id, warehouse_source, packed_boxes,
		       invoice_number, rejection_reason, delivery_proof, remarks, version
		FROM orders
		WHERE id = $1
	`
	var o order.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.Kind, &o.CustomerID, &o.FromWarehouse, &o.ToWarehouse, &o.Status,
		&o.CreatedAt, &o.SalespersonID, &o.WarehouseSource, &o.PackedBoxes,
		&o.InvoiceNumber, &o.RejectionReason, &o.DeliveryProof, &o.Remarks, &o.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if o.Lines, err = r.getLines(ctx, id); err != nil {
		return nil, err
	}
	if o.History, err = r.getHistory(ctx, id); err != nil {
		return nil, err
	}
	if o.Logistics, err = r.getLogistics(ctx, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) getLines(ctx context.Context, orderID uuid.UUID) ([]order.Line, error) {
	query := `
		SELECT id, product_id, ordered_qty, uom, unit_price, base_rate,
		       delivered_qty, line_order
		FROM order_lines
		WHERE order_id = $1
		ORDER BY line_order, id
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	defer rows.Close()

	var lines []order.Line
	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.OrderedQty, &l.UOM,
			&l.UnitPrice, &l.BaseRate, &l.DeliveredQty, &l.LineOrder); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range lines {
		allocs, err := r.getAllocations(ctx, lines[i].ID)
		if err != nil {
			return nil, err
		}
		lines[i].Allocations = allocs
	}
	return lines, nil
}

func (r *repository) getAllocations(ctx context.Context, lineID int64) ([]order.BatchAllocation, error) {
	query := `
		SELECT batch_code, manufacture_date, expiry_date, qty
		FROM line_batch_allocations
		WHERE line_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, lineID)
	if err != nil {
		return nil, fmt.Errorf("get allocations: %w", err)
	}
	defer rows.Close()

	var allocs []order.BatchAllocation
	for rows.Next() {
		var a order.BatchAllocation
		if err := rows.Scan(&a.BatchCode, &a.ManufactureDate, &a.ExpiryDate, &a.Qty); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func (r *repository) getHistory(ctx context.Context, orderID uuid.UUID) ([]order.StatusChange, error) {
	query := `
		SELECT status, at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	var history []order.StatusChange
	for rows.Next() {
		var h order.StatusChange
		if err := rows.Scan(&h.Status, &h.At); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *repository) getLogistics(ctx context.Context, orderID uuid.UUID) (*order.LogisticsDetails, error) {
	query := `
		SELECT insulated_box_count, insulated_box_rate, coolant_mass_kg, coolant_rate,
		       first_leg_amount, second_leg_amount, last_leg_amount,
		       fleet_agent_id, vehicle_number, vehicle_provider, distance_km
		FROM order_logistics
		WHERE order_id = $1
	`
	var d order.LogisticsDetails
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&d.InsulatedBoxCount, &d.InsulatedBoxRate, &d.CoolantMassKg, &d.CoolantRate,
		&d.FirstLegAmount, &d.SecondLegAmount, &d.LastLegAmount,
		&d.FleetAgentID, &d.VehicleNumber, &d.VehicleProvider, &d.DistanceKm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get logistics: %w", err)
	}
	return &d, nil
}

// List returns a filtered, paginated page of orders without child rows.
func (r *repository) List(ctx context.Context, req ListRequest) ([]order.Order, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if req.Status != nil {
		where += " AND status = " + arg(*req.Status)
	}
	if req.Kind != nil {
		where += " AND kind = " + arg(*req.Kind)
	}
	if req.CustomerID != nil {
		where += " AND customer_id = " + arg(*req.CustomerID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT id, kind, customer_id, from_warehouse, to_warehouse, status,
		       created_at, salesperson_id, warehouse_source, packed_boxes,
		       invoice_number, rejection_reason, delivery_proof, remarks, version
		FROM orders %s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`, where, arg(limit), arg(req.Offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.ID, &o.Kind, &o.CustomerID, &o.FromWarehouse, &o.ToWarehouse, &o.Status,
			&o.CreatedAt, &o.SalespersonID, &o.WarehouseSource, &o.PackedBoxes,
			&o.InvoiceNumber, &o.RejectionReason, &o.DeliveryProof, &o.Remarks, &o.Version,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// Create inserts the aggregate with its lines and initial history entry.
func (r *repository) Create(ctx context.Context, o *order.Order) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, kind, customer_id, from_warehouse, to_warehouse, status,
			                    created_at, salesperson_id, warehouse_source, packed_boxes,
			                    invoice_number, rejection_reason, delivery_proof, remarks, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			o.ID, o.Kind, o.CustomerID, o.FromWarehouse, o.ToWarehouse, o.Status,
			o.CreatedAt, o.SalespersonID, o.WarehouseSource, o.PackedBoxes,
			o.InvoiceNumber, o.RejectionReason, o.DeliveryProof, o.Remarks, o.Version,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range o.Lines {
			l := &o.Lines[i]
			if err := tx.QueryRow(ctx, `
				INSERT INTO order_lines (order_id, product_id, ordered_qty, uom, unit_price,
				                         base_rate, delivered_qty, line_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id`,
				o.ID, l.ProductID, l.OrderedQty, l.UOM, l.UnitPrice,
				l.BaseRate, l.DeliveredQty, l.LineOrder,
			).Scan(&l.ID); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}

		for _, h := range o.History {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_status_history (order_id, status, at)
				VALUES ($1, $2, $3)`, o.ID, h.Status, h.At); err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
		}
		return nil
	})
}

// SaveTransition persists a transitioned aggregate under an optimistic
// version check. A stale version means another department won the race; the
// caller reloads and resubmits.
func (r *repository) SaveTransition(ctx context.Context, o *order.Order, entry order.StatusChange) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $1, warehouse_source = $2, packed_boxes = $3,
			    invoice_number = $4, rejection_reason = $5, delivery_proof = $6,
			    remarks = $7, version = version + 1, updated_at = $8
			WHERE id = $9 AND version = $10`,
			o.Status, o.WarehouseSource, o.PackedBoxes,
			o.InvoiceNumber, o.RejectionReason, o.DeliveryProof,
			o.Remarks, time.Now(), o.ID, o.Version,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrPersistenceConflict
		}

		for i := range o.Lines {
			l := &o.Lines[i]
			if _, err := tx.Exec(ctx, `
				UPDATE order_lines SET delivered_qty = $1 WHERE id = $2`,
				l.DeliveredQty, l.ID); err != nil {
				return fmt.Errorf("update line: %w", err)
			}
			if _, err := tx.Exec(ctx, `
				DELETE FROM line_batch_allocations WHERE line_id = $1`, l.ID); err != nil {
				return fmt.Errorf("clear allocations: %w", err)
			}
			for _, a := range l.Allocations {
				if _, err := tx.Exec(ctx, `
					INSERT INTO line_batch_allocations (line_id, batch_code, manufacture_date, expiry_date, qty)
					VALUES ($1, $2, $3, $4, $5)`,
					l.ID, a.BatchCode, a.ManufactureDate, a.ExpiryDate, a.Qty); err != nil {
					return fmt.Errorf("insert allocation: %w", err)
				}
			}
		}

		if o.Logistics != nil {
			d := o.Logistics
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_logistics (order_id, insulated_box_count, insulated_box_rate,
				                             coolant_mass_kg, coolant_rate, first_leg_amount,
				                             second_leg_amount, last_leg_amount, fleet_agent_id,
				                             vehicle_number, vehicle_provider, distance_km)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (order_id) DO UPDATE SET
					insulated_box_count = EXCLUDED.insulated_box_count,
					insulated_box_rate = EXCLUDED.insulated_box_rate,
					coolant_mass_kg = EXCLUDED.coolant_mass_kg,
					coolant_rate = EXCLUDED.coolant_rate,
					first_leg_amount = EXCLUDED.first_leg_amount,
					second_leg_amount = EXCLUDED.second_leg_amount,
					last_leg_amount = EXCLUDED.last_leg_amount,
					fleet_agent_id = EXCLUDED.fleet_agent_id,
					vehicle_number = EXCLUDED.vehicle_number,
					vehicle_provider = EXCLUDED.vehicle_provider,
					distance_km = EXCLUDED.distance_km`,
				o.ID, d.InsulatedBoxCount, d.InsulatedBoxRate,
				d.CoolantMassKg, d.CoolantRate, d.FirstLegAmount,
				d.SecondLegAmount, d.LastLegAmount, d.FleetAgentID,
				d.VehicleNumber, d.VehicleProvider, d.DistanceKm); err != nil {
				return fmt.Errorf("upsert logistics: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO order_status_history (order_id, status, at)
			VALUES ($1, $2, $3)`, o.ID, entry.Status, entry.At); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, order.ErrPersistenceConflict) {
			return order.ErrPersistenceConflict
		}
		return err
	}
	o.Version++
	return nil
}
