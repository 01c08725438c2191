package optimization

// dominates reports whether a Pareto-dominates b: equal-or-better return
// at equal-or-lower variance, strictly better in at least one dimension.
func dominates(a, b *PortfolioMetrics) bool {
	if a.ExpectedReturn < b.ExpectedReturn || a.Variance > b.Variance {
		return false
	}
	return a.ExpectedReturn > b.ExpectedReturn || a.Variance < b.Variance
}

// frontier maintains the set of mutually non-dominated candidates. The
// final set is independent of insertion order.
type frontier struct {
	candidates []*PortfolioMetrics
}

// admit adds the candidate unless an accepted candidate dominates it,
// and evicts accepted candidates the newcomer dominates.
func (f *frontier) admit(candidate *PortfolioMetrics) bool {
	for _, existing := range f.candidates {
		if dominates(existing, candidate) {
			return false
		}
	}

	kept := f.candidates[:0]
	for _, existing := range f.candidates {
		if !dominates(candidate, existing) {
			kept = append(kept, existing)
		}
	}
	f.candidates = append(kept, candidate)
	return true
}
