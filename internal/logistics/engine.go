// Package logistics computes freight cost totals and burden banding.
package logistics

import (
	"math"

	"github.com/frostline-scm/frostline/internal/order"
)

// Severity bands the cost-to-value ratio. The band is advisory input to the
// invoicing decision; nothing auto-rejects on it.
type Severity string

const (
	SeverityNominal        Severity = "NOMINAL"
	SeverityHighBurden     Severity = "HIGH_BURDEN"
	SeverityCriticalBurden Severity = "CRITICAL_BURDEN"
)

const (
	highBurdenThreshold     = 0.10
	criticalBurdenThreshold = 0.15
)

// InsulatedBoxAmount recomputes the box cost from count and rate.
func InsulatedBoxAmount(d order.LogisticsDetails) float64 {
	return round2(float64(d.InsulatedBoxCount) * d.InsulatedBoxRate)
}

// CoolantAmount recomputes the coolant cost from mass and rate.
func CoolantAmount(d order.LogisticsDetails) float64 {
	return round2(d.CoolantMassKg * d.CoolantRate)
}

// Total derives the full logistics cost from its components. It is recomputed
// on every call so a stale stored amount can never diverge from the itemized
// fields.
func Total(d order.LogisticsDetails) float64 {
	return round2(InsulatedBoxAmount(d) + CoolantAmount(d) +
		d.FirstLegAmount + d.SecondLegAmount + d.LastLegAmount)
}

// CostRatio is total cost over packed value, zero when nothing is packed.
func CostRatio(total, packedValue float64) float64 {
	if packedValue == 0 {
		return 0
	}
	return total / packedValue
}

// Band classifies a cost ratio. Both band boundaries belong to HighBurden.
func Band(ratio float64) Severity {
	switch {
	case ratio < highBurdenThreshold:
		return SeverityNominal
	case ratio <= criticalBurdenThreshold:
		return SeverityHighBurden
	default:
		return SeverityCriticalBurden
	}
}

// OrderCostRatio derives the ratio for an order, zero when no costing exists.
func OrderCostRatio(o *order.Order) float64 {
	if o.Logistics == nil {
		return 0
	}
	return CostRatio(Total(*o.Logistics), o.PackedValue())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
