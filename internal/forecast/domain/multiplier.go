package domain

import "strings"

// offeringKey is the matching pair from a line item or a mapping row.
type offeringKey struct {
	internalService    string
	simplifiedOffering string
}

// Multiplier returns a value >= 1: the scaling factor applied to a stage's
// base FTE for the count of distinct mapped offerings the opportunity
// exercises on sl at this stage.
func Multiplier(
	lineItems []OpportunityLineItem,
	mappings []ServiceLineOfferingMapping,
	threshold *ServiceLineOfferingThreshold,
	sl ServiceLine,
) float64 {
	mapped := make(map[offeringKey]struct{})
	for _, m := range mappings {
		if m.ServiceLine != sl {
			continue
		}
		mapped[offeringKey{m.InternalService, m.SimplifiedOffering}] = struct{}{}
	}
	if len(mapped) == 0 {
		return 1.0
	}

	matched := make(map[string]struct{})
	for _, li := range lineItems {
		offering := strings.TrimSpace(li.SimplifiedOffering)
		if offering == "" {
			continue
		}
		if _, ok := mapped[offeringKey{li.InternalService, li.SimplifiedOffering}]; ok {
			matched[offering] = struct{}{}
		}
	}
	k := len(matched)

	if threshold == nil {
		return 1.0
	}
	if k <= threshold.ThresholdCount {
		return 1.0
	}
	return 1.0 + float64(k-threshold.ThresholdCount)*threshold.IncrementMultiplier
}
