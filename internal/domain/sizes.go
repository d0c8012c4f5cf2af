package domain

import (
	"fmt"
	"slices"
	"strings"
)

// SizeOrder is the canonical garment size ordering used for display and reports.
var SizeOrder = []string{"PP", "P", "M", "G", "GG", "G1", "G2", "G3", "G4", "G5"}

// UnitSize keys quantities for products sold without a size grid.
const UnitSize = "UN"

// SizeQuantities maps a size label to a unit count.
type SizeQuantities map[string]int

// Total sums all sizes.
func (q SizeQuantities) Total() int {
	total := 0
	for _, n := range q {
		total += n
	}
	return total
}

// Sizes returns the keys in canonical order, unknown sizes last and sorted.
func (q SizeQuantities) Sizes() []string {
	out := make([]string, 0, len(q))
	for _, size := range SizeOrder {
		if _, ok := q[size]; ok {
			out = append(out, size)
		}
	}
	extra := make([]string, 0)
	for size := range q {
		if !slices.Contains(SizeOrder, size) {
			extra = append(extra, size)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// Clone copies the map.
func (q SizeQuantities) Clone() SizeQuantities {
	if q == nil {
		return SizeQuantities{}
	}
	out := make(SizeQuantities, len(q))
	for size, n := range q {
		out[size] = n
	}
	return out
}

// Add returns the per-size sum of q and other.
func (q SizeQuantities) Add(other SizeQuantities) SizeQuantities {
	out := q.Clone()
	for size, n := range other {
		out[size] += n
	}
	return out
}

// normalizeSizeQuantities upper-cases sizes, drops zero entries, and rejects negatives.
func normalizeSizeQuantities(in SizeQuantities) (SizeQuantities, error) {
	out := SizeQuantities{}
	for raw, n := range in {
		size := strings.ToUpper(strings.TrimSpace(raw))
		if size == "" {
			return nil, fmt.Errorf("%w: empty size label", ErrInvalidQuantity)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: size %s is negative", ErrInvalidQuantity, size)
		}
		if n == 0 {
			continue
		}
		out[size] += n
	}
	return out, nil
}
