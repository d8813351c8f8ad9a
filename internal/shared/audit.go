package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TransitionAudit records who moved an order and through which trigger. It is
// supplementary bookkeeping; the authoritative status history lives on the
// aggregate itself.
type TransitionAudit struct {
	OrderID   string
	Actor     Actor
	Trigger   string
	OldStatus string
	NewStatus string
	Meta      map[string]any
	At        time.Time
}

// AuditLogger writes transition records into order_audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the audit entry.
func (l *AuditLogger) Record(ctx context.Context, a TransitionAudit) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if a.OrderID == "" || a.Trigger == "" {
		return errors.New("audit entry requires order id and trigger")
	}
	metaJSON, err := json.Marshal(a.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO order_audit_logs
(order_id, actor_id, actor_role, trigger, old_status, new_status, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		a.OrderID, a.Actor.ID, string(a.Actor.Role), a.Trigger, a.OldStatus, a.NewStatus, metaJSON, a.At)
	return err
}
