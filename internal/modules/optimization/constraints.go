package optimization

// Constraints bounds each asset's weight. Global Min/Max apply to every
// asset unless a per-asset bound overrides them.
type Constraints struct {
	MinWeight float64               `json:"min_weight"`
	MaxWeight float64               `json:"max_weight"`
	Bounds    map[string][2]float64 `json:"bounds,omitempty"`
}

// DefaultConstraints is long-only with no single asset above 100%.
func DefaultConstraints() Constraints {
	return Constraints{MinWeight: 0.0, MaxWeight: 1.0}
}

// boundsFor resolves the [min, max] bound for one asset.
func (c Constraints) boundsFor(id string) (float64, float64) {
	if b, ok := c.Bounds[id]; ok {
		return b[0], b[1]
	}
	return c.MinWeight, c.MaxWeight
}

// feasible reports whether the weight vector respects every bound within
// tolerance.
func (c Constraints) feasible(weights []float64, ids []string, tolerance float64) bool {
	for i, id := range ids {
		lo, hi := c.boundsFor(id)
		if weights[i] < lo-tolerance || weights[i] > hi+tolerance {
			return false
		}
	}
	return true
}

// clamp projects the weight vector onto its box bounds in place.
func (c Constraints) clamp(weights []float64, ids []string) {
	for i, id := range ids {
		lo, hi := c.boundsFor(id)
		if weights[i] < lo {
			weights[i] = lo
		}
		if weights[i] > hi {
			weights[i] = hi
		}
	}
}
