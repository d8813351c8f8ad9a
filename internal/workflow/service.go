package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frostline-scm/frostline/internal/credit"
	"github.com/frostline-scm/frostline/internal/customers"
	"github.com/frostline-scm/frostline/internal/logistics"
	"github.com/frostline-scm/frostline/internal/order"
	"github.com/frostline-scm/frostline/internal/shared"
)

// InsightProvider supplies advisory review text. It is purely informational:
// implementations return an empty string on failure and never an error.
type InsightProvider interface {
	Insight(ctx context.Context, o *order.Order, snap credit.Snapshot) string
}

// DistanceProvider resolves the road distance for display on logistics
// details. Implementations degrade to zero when unavailable.
type DistanceProvider interface {
	DistanceKm(ctx context.Context, fromFacility, destination string) float64
}

// AuditRecorder persists supplementary transition audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, a shared.TransitionAudit) error
}

// Service coordinates order lifecycle operations: creation, reads and
// workflow transitions.
type Service struct {
	repo      Repository
	engine    *Engine
	logger    *slog.Logger
	notifier  Notifier
	audit     AuditRecorder
	customers customers.Source
	insight   InsightProvider
	distance  DistanceProvider
	now       func() time.Time
}

// NewService creates a new service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: NewEngine(),
		logger: logger,
		now:    time.Now,
	}
}

// SetNotifier wires the notification sink.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetAudit wires the transition audit recorder.
func (s *Service) SetAudit(a AuditRecorder) { s.audit = a }

// SetCustomers wires the customer snapshot source.
func (s *Service) SetCustomers(src customers.Source) { s.customers = src }

// SetInsight wires the advisory insight generator.
func (s *Service) SetInsight(p InsightProvider) { s.insight = p }

// SetDistance wires the distance lookup.
func (s *Service) SetDistance(p DistanceProvider) { s.distance = p }

// Create books a new order in its initial status. A stock transfer with
// matching source and destination warehouses is rejected here, before the
// workflow engine ever sees the order.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, actor shared.Actor) (*order.Order, error) {
	if err := ValidateCreateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	o := &order.Order{
		ID:            uuid.New(),
		Kind:          req.Kind,
		CustomerID:    req.CustomerID,
		FromWarehouse: req.FromWarehouse,
		ToWarehouse:   req.ToWarehouse,
		Status:        order.InitialStatus(req.Kind),
		CreatedAt:     now,
		SalespersonID: actor.ID,
		Version:       1,
	}
	for i, l := range req.Lines {
		o.Lines = append(o.Lines, order.Line{
			ProductID:  l.ProductID,
			OrderedQty: l.OrderedQty,
			UOM:        l.UOM,
			UnitPrice:  l.UnitPrice,
			BaseRate:   l.BaseRate,
			LineOrder:  i,
		})
	}
	o.History = []order.StatusChange{{Status: o.Status, At: now}}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// Get retrieves an order aggregate.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a paginated page of orders.
func (s *Service) List(ctx context.Context, req ListRequest) ([]order.Order, int, error) {
	return s.repo.List(ctx, req)
}

// Submit applies one workflow transition to an order. The engine works on a
// clone so a failed transition leaves nothing mutated; the repository commits
// the status change and history entry atomically under a version check.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, req TransitionRequest, actor shared.Actor) (*order.Order, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	working := existing.Clone()

	if req.Trigger == TriggerAssignFleet && req.Fleet != nil && req.Fleet.DistanceKm == 0 && s.distance != nil {
		req.Fleet.DistanceKm = s.distance.DistanceKm(ctx, working.WarehouseSource, working.ToWarehouse)
	}

	ev, err := s.engine.Apply(working, req, actor, s.now())
	if err != nil {
		return nil, err
	}

	entry := working.History[len(working.History)-1]
	if err := s.repo.SaveTransition(ctx, working, entry); err != nil {
		return nil, err
	}

	s.notify(ctx, ev)
	s.recordAudit(ctx, ev, req, actor)

	return working, nil
}

func (s *Service) notify(ctx context.Context, ev TransitionEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.OrderTransitioned(ctx, ev)
}

func (s *Service) recordAudit(ctx context.Context, ev TransitionEvent, req TransitionRequest, actor shared.Actor) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{}
	if req.Reason != "" {
		meta["reason"] = req.Reason
	}
	err := s.audit.Record(ctx, shared.TransitionAudit{
		OrderID:   ev.OrderID.String(),
		Actor:     actor,
		Trigger:   string(ev.Trigger),
		OldStatus: string(ev.OldStatus),
		NewStatus: string(ev.NewStatus),
		Meta:      meta,
		At:        ev.At,
	})
	if err != nil {
		s.logger.Warn("record transition audit", slog.Any("error", err))
	}
}

// CreditReview assembles the inputs for the credit-control decision: the
// customer snapshot, the derived exposure and, when available, advisory
// insight text. The insight degrades to empty and never blocks the review.
func (s *Service) CreditReview(ctx context.Context, id uuid.UUID) (*CreditReview, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Kind != order.KindSalesOrder {
		return nil, fmt.Errorf("%w: stock transfers bypass credit review", order.ErrInvalidTransition)
	}
	if s.customers == nil {
		return nil, fmt.Errorf("customer source not configured")
	}

	snap, err := s.customers.GetSnapshot(ctx, o.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer snapshot: %w", err)
	}

	review := &CreditReview{
		OrderID:  o.ID,
		Snapshot: snap,
		Exposure: credit.Evaluate(snap),
	}
	if s.insight != nil {
		review.Insight = s.insight.Insight(ctx, o, snap)
	}
	return review, nil
}

// Costing derives the logistics cost summary for an order: itemized amounts,
// total, packed value, cost ratio and the advisory burden band.
func (s *Service) Costing(ctx context.Context, id uuid.UUID) (*CostSummary, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &CostSummary{
		OrderID:     o.ID,
		PackedValue: o.PackedValue(),
	}
	if o.Logistics != nil {
		d := *o.Logistics
		summary.InsulatedBoxAmount = logistics.InsulatedBoxAmount(d)
		summary.CoolantAmount = logistics.CoolantAmount(d)
		summary.TotalCost = logistics.Total(d)
	}
	summary.CostRatio = logistics.CostRatio(summary.TotalCost, summary.PackedValue)
	summary.Band = logistics.Band(summary.CostRatio)
	return summary, nil
}
