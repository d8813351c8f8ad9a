// Package packing enforces batch allocation rules during the packing stage.
package packing

import (
	"fmt"

	"github.com/frostline-scm/frostline/internal/order"
)

const qtyEpsilon = 1e-9

// SetAllocation replaces the allocation at idx. The quantity is silently
// capped to max(0, remaining - sum of the other allocations); over-packing is
// clamped, never rejected.
func SetAllocation(line *order.Line, idx int, alloc order.BatchAllocation) error {
	if idx < 0 || idx >= len(line.Allocations) {
		return fmt.Errorf("allocation index %d out of range", idx)
	}
	var others float64
	for i, a := range line.Allocations {
		if i != idx {
			others += a.Qty
		}
	}
	alloc.Qty = clamp(alloc.Qty, line.RemainingQty()-others)
	line.Allocations[idx] = alloc
	return nil
}

// AddAllocation appends a new allocation, capping its quantity to the line's
// unallocated remainder.
func AddAllocation(line *order.Line, alloc order.BatchAllocation) {
	alloc.Qty = clamp(alloc.Qty, line.RemainingQty()-line.PackedQty())
	line.Allocations = append(line.Allocations, alloc)
}

// RemoveAllocation deletes the allocation at idx. Removing the last entry
// leaves one empty placeholder so the line stays editable in the packing
// terminal.
func RemoveAllocation(line *order.Line, idx int) error {
	if idx < 0 || idx >= len(line.Allocations) {
		return fmt.Errorf("allocation index %d out of range", idx)
	}
	line.Allocations = append(line.Allocations[:idx], line.Allocations[idx+1:]...)
	if len(line.Allocations) == 0 {
		line.Allocations = []order.BatchAllocation{{}}
	}
	return nil
}

// ReplaceAllocations swaps a line's allocation list wholesale, clamping each
// entry in insertion order so the allocation bound invariant holds after
// every intermediate step.
func ReplaceAllocations(line *order.Line, allocs []order.BatchAllocation) {
	line.Allocations = line.Allocations[:0]
	for _, a := range allocs {
		AddAllocation(line, a)
	}
	if len(line.Allocations) == 0 {
		line.Allocations = []order.BatchAllocation{{}}
	}
}

// ResetForRepack clears allocations on every line that still has undelivered
// quantity, leaving a single placeholder per line. Delivered quantity is
// immutable history; a backorder re-packs only the remainder.
func ResetForRepack(o *order.Order) {
	for i := range o.Lines {
		if o.Lines[i].RemainingQty() > qtyEpsilon {
			o.Lines[i].Allocations = []order.BatchAllocation{{}}
		} else {
			o.Lines[i].Allocations = nil
		}
	}
}

// HasAllocations reports whether every line with undelivered quantity carries
// at least one non-empty allocation. Finalizing packing without this is an
// incomplete allocation.
func HasAllocations(o *order.Order) bool {
	for i := range o.Lines {
		if o.Lines[i].RemainingQty() > qtyEpsilon && o.Lines[i].PackedQty() <= qtyEpsilon {
			return false
		}
	}
	return len(o.Lines) > 0
}

// IsFullyPacked reports whether every line's packed quantity covers its
// remaining (undelivered) quantity. The finalize-packing transition uses this
// to choose between ReadyForBilling and PartiallyPacked.
func IsFullyPacked(o *order.Order) bool {
	for i := range o.Lines {
		if o.Lines[i].PackedQty() < o.Lines[i].RemainingQty()-qtyEpsilon {
			return false
		}
	}
	return true
}

func clamp(qty, capacity float64) float64 {
	if capacity < 0 {
		capacity = 0
	}
	if qty < 0 {
		return 0
	}
	if qty > capacity {
		return capacity
	}
	return qty
}
