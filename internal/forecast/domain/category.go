package domain

// selectBandIndex implements the band-selection rule shared by both
// category lookups: among the indices whose MinTCV <= tcv, the one with the
// largest MinTCV wins (ties broken by highest ID). If that winner's MaxTCV
// is finite and tcv is not below it, the winner is rejected and the caller
// falls back to an unbounded band. Returns -1 when no bounded band is
// selected.
func selectBandIndex(ids []int64, mins []float64, maxs []*float64, tcv float64) int {
	best := -1
	for i := range mins {
		if mins[i] > tcv {
			continue
		}
		if best < 0 || mins[i] > mins[best] || (mins[i] == mins[best] && ids[i] > ids[best]) {
			best = i
		}
	}
	if best < 0 {
		return -1
	}
	if maxs[best] != nil && tcv >= *maxs[best] {
		return -1
	}
	return best
}

// unboundedIndex returns the index of the highest-MinTCV band with a nil
// MaxTCV, or -1 if none exists.
func unboundedIndex(ids []int64, mins []float64, maxs []*float64) int {
	best := -1
	for i := range maxs {
		if maxs[i] != nil {
			continue
		}
		if best < 0 || mins[i] > mins[best] || (mins[i] == mins[best] && ids[i] > ids[best]) {
			best = i
		}
	}
	return best
}

// ResolveOpportunityCategoryRow resolves the global TCV band an opportunity
// falls into and returns the matched row. Returns (nil, false) when tcv < 0
// or no band matches and no unbounded band exists.
func ResolveOpportunityCategoryRow(bands []OpportunityCategory, tcv float64) (*OpportunityCategory, bool) {
	if tcv < 0 {
		return nil, false
	}
	ids := make([]int64, len(bands))
	mins := make([]float64, len(bands))
	maxs := make([]*float64, len(bands))
	for i, b := range bands {
		ids[i], mins[i], maxs[i] = b.ID, b.MinTCV, b.MaxTCV
	}
	if idx := selectBandIndex(ids, mins, maxs, tcv); idx >= 0 {
		return &bands[idx], true
	}
	if idx := unboundedIndex(ids, mins, maxs); idx >= 0 {
		return &bands[idx], true
	}
	return nil, false
}

// ResolveOpportunityCategory is the name-only form of
// ResolveOpportunityCategoryRow.
func ResolveOpportunityCategory(bands []OpportunityCategory, tcv float64) (string, bool) {
	row, ok := ResolveOpportunityCategoryRow(bands, tcv)
	if !ok {
		return "", false
	}
	return row.Name, true
}

// ResolveServiceLineCategoryRow resolves the per-service-line TCV band sl
// falls into, scoped to bands belonging to sl. Returns (nil, false) when
// tcv <= 0.
func ResolveServiceLineCategoryRow(bands []ServiceLineCategory, sl ServiceLine, tcv float64) (*ServiceLineCategory, bool) {
	if tcv <= 0 {
		return nil, false
	}
	var scoped []ServiceLineCategory
	for _, b := range bands {
		if b.ServiceLine == sl {
			scoped = append(scoped, b)
		}
	}
	ids := make([]int64, len(scoped))
	mins := make([]float64, len(scoped))
	maxs := make([]*float64, len(scoped))
	for i, b := range scoped {
		ids[i], mins[i], maxs[i] = b.ID, b.MinTCV, b.MaxTCV
	}
	if idx := selectBandIndex(ids, mins, maxs, tcv); idx >= 0 {
		return &scoped[idx], true
	}
	if idx := unboundedIndex(ids, mins, maxs); idx >= 0 {
		return &scoped[idx], true
	}
	return nil, false
}

// ResolveServiceLineCategory is the name-only form of
// ResolveServiceLineCategoryRow.
func ResolveServiceLineCategory(bands []ServiceLineCategory, sl ServiceLine, tcv float64) (string, bool) {
	row, ok := ResolveServiceLineCategoryRow(bands, sl, tcv)
	if !ok {
		return "", false
	}
	return row.Name, true
}
