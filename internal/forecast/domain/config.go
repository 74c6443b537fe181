package domain

// CategoryBand is a [MinTCV, MaxTCV) range mapped to a named category.
// MaxTCV is nil when the band is unbounded above. Bands within one scope are
// assumed to have distinct MinTCV values; ID breaks ties deterministically
// when they are not.
type CategoryBand struct {
	ID      int64
	Name    string
	MinTCV  float64
	MaxTCV  *float64
}

// contains reports whether tcv falls in [MinTCV, MaxTCV).
func (b CategoryBand) contains(tcv float64) bool {
	if tcv < b.MinTCV {
		return false
	}
	if b.MaxTCV != nil && tcv >= *b.MaxTCV {
		return false
	}
	return true
}

// OpportunityCategory is a global TCV band that additionally carries stage
// durations, in weeks, keyed by stage name.
type OpportunityCategory struct {
	CategoryBand
	StageDurationWeeks map[Stage]float64
}

// ServiceLineCategory is a per-service-line TCV band, structurally identical
// to OpportunityCategory but without stage durations.
type ServiceLineCategory struct {
	CategoryBand
	ServiceLine ServiceLine
}

// ServiceLineStageEffort is the FTE template row for
// (service_line, service_line_category, stage_name). At most one row exists
// per triple.
type ServiceLineStageEffort struct {
	ServiceLine         ServiceLine
	ServiceLineCategory string
	Stage               Stage
	FTERequired         float64
}

// ServiceLineOfferingThreshold is the per (service_line, stage_name) offering
// count threshold and increment multiplier. Absence of a row for a given
// pair means no multiplier applies at that stage.
type ServiceLineOfferingThreshold struct {
	ServiceLine         ServiceLine
	Stage               Stage
	ThresholdCount      int
	IncrementMultiplier float64
}

// ServiceLineOfferingMapping asserts that a line item whose InternalService
// and SimplifiedOffering both match is a distinct offering counted toward
// ServiceLine.
type ServiceLineOfferingMapping struct {
	ServiceLine        ServiceLine
	InternalService    string
	SimplifiedOffering string
}
