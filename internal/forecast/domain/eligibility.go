package domain

// IsEligible implements the per-service-line eligibility predicate used by
// bulk generation (4.F) and by the aggregator's missing-timelines count
// (4.G): the opportunity has a TCV and decision date, resolves to a global
// timeline category, and has at least one target service line whose
// resource category resolves and carries a stage-effort template row.
//
// The spec's source carried two near-duplicate eligibility predicates, one
// scoped per service line and one scoped to the global opportunity
// category; this is the per-service-line form, chosen as canonical per the
// design notes.
func IsEligible(
	o *Opportunity,
	timelineCategories []OpportunityCategory,
	serviceLineCategories []ServiceLineCategory,
	stageEfforts []ServiceLineStageEffort,
) bool {
	if o.DecisionDate == nil {
		return false
	}
	if _, ok := ResolveOpportunityCategoryRow(timelineCategories, o.TCV); !ok {
		return false
	}
	for _, target := range TargetServiceLines(o) {
		resourceCategory, ok := ResolveServiceLineCategoryRow(serviceLineCategories, target.ServiceLine, target.TCV)
		if !ok {
			continue
		}
		for _, e := range stageEfforts {
			if e.ServiceLine == target.ServiceLine && e.ServiceLineCategory == resourceCategory.Name {
				return true
			}
		}
	}
	return false
}
