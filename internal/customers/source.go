// Package customers provides read-only access to customer credit snapshots.
package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frostline-scm/frostline/internal/credit"
)

// ErrNotFound indicates the customer has no credit snapshot.
var ErrNotFound = errors.New("customer snapshot not found")

// Source supplies credit snapshots. The workflow core only reads; master-data
// editing belongs to an external system.
type Source interface {
	GetSnapshot(ctx context.Context, customerID int64) (credit.Snapshot, error)
}

// Repository reads snapshots from the customer credit view.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSnapshot loads the credit limit, balances and nine aging buckets for a
// customer.
func (r *Repository) GetSnapshot(ctx context.Context, customerID int64) (credit.Snapshot, error) {
	query := `
		SELECT customer_id, credit_limit, outstanding_balance, overdue_amount,
		       bucket_0_7, bucket_7_15, bucket_15_30, bucket_30_45, bucket_45_90,
		       bucket_90_120, bucket_120_150, bucket_150_180, bucket_over_180
		FROM customer_credit_view
		WHERE customer_id = $1
	`
	var s credit.Snapshot
	err := r.pool.QueryRow(ctx, query, customerID).Scan(
		&s.CustomerID, &s.CreditLimit, &s.Outstanding, &s.Overdue,
		&s.Aging[0], &s.Aging[1], &s.Aging[2], &s.Aging[3], &s.Aging[4],
		&s.Aging[5], &s.Aging[6], &s.Aging[7], &s.Aging[8],
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return credit.Snapshot{}, ErrNotFound
		}
		return credit.Snapshot{}, fmt.Errorf("customers: get snapshot: %w", err)
	}
	return s, nil
}
