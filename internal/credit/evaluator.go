// Package credit evaluates customer exposure from an aging snapshot.
package credit

// BucketCount is the number of aging buckets in a snapshot.
const BucketCount = 9

// BucketLabels name the aging buckets in days outstanding, oldest last.
var BucketLabels = [BucketCount]string{
	"0 to 7",
	"7 to 15",
	"15 to 30",
	"30 to 45",
	"45 to 90",
	"90 to 120",
	"120 to 150",
	"150 to 180",
	"over 180",
}

// criticalBucketStart is the index of the "15 to 30" bucket. Any balance at
// or beyond the 15-day boundary counts as critical exposure.
const criticalBucketStart = 2

// Snapshot is a read-only view of a customer's credit position. It is
// consumed, never mutated, by the evaluator.
type Snapshot struct {
	CustomerID  int64                `json:"customer_id"`
	CreditLimit float64              `json:"credit_limit"`
	Outstanding float64              `json:"outstanding"`
	Overdue     float64              `json:"overdue"`
	Aging       [BucketCount]float64 `json:"aging"`
}

// Exposure holds the derived values surfaced to the credit-control decision.
// No automatic rejection happens here; the domain requires a human in the
// loop even under critical exposure.
type Exposure struct {
	HasOverdue       bool    `json:"has_overdue"`
	CriticalExposure bool    `json:"critical_exposure"`
	AvailableCredit  float64 `json:"available_credit"`
}

// Evaluate derives exposure from a snapshot. AvailableCredit may be negative;
// the negative value itself signals a limit breach and is not clamped.
func Evaluate(s Snapshot) Exposure {
	exp := Exposure{
		HasOverdue:      s.Overdue > 0,
		AvailableCredit: s.CreditLimit - s.Outstanding,
	}
	for i := criticalBucketStart; i < BucketCount; i++ {
		if s.Aging[i] > 0 {
			exp.CriticalExposure = true
			break
		}
	}
	return exp
}
