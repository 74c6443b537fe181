package domain

import "time"

// ServiceLineRevenue pairs a service line with the TCV used to resolve its
// resource category: either the opportunity's actual revenue split, or a
// nominal 1.0 when falling back to the lead offering.
type ServiceLineRevenue struct {
	ServiceLine ServiceLine
	TCV         float64
}

// TargetServiceLines selects which resource-planned service lines an
// opportunity should be scheduled for: MW and ITOC with a strictly positive
// revenue split. If neither carries revenue, the opportunity's lead
// offering stands in with a nominal TCV of 1.0, provided it is itself one
// of the resource-planned service lines. Otherwise the opportunity yields
// no target service lines at all.
func TargetServiceLines(o *Opportunity) []ServiceLineRevenue {
	var out []ServiceLineRevenue
	for _, sl := range ResourcePlannedServiceLines {
		if rev := o.RevenueFor(sl); rev > 0 {
			out = append(out, ServiceLineRevenue{ServiceLine: sl, TCV: rev})
		}
	}
	if len(out) > 0 {
		return out
	}
	if o.LeadOffering != nil && IsResourcePlanned(*o.LeadOffering) {
		out = append(out, ServiceLineRevenue{ServiceLine: *o.LeadOffering, TCV: 1.0})
	}
	return out
}

// Schedule walks the remaining stages for sl backward from decisionDate,
// emitting one StageInterval per stage that has both a duration and an FTE
// template row. Stages missing either are skipped without moving the
// cursor, so the chronology of the stages that are emitted stays contiguous.
// The returned slice is in chronological order (earliest stage first).
func Schedule(
	decisionDate time.Time,
	currentStage Stage,
	sl ServiceLine,
	resourceCategory string,
	stageDurationWeeks map[Stage]float64,
	stageFTE map[Stage]float64,
	lineItems []OpportunityLineItem,
	mappings []ServiceLineOfferingMapping,
	thresholds map[Stage]ServiceLineOfferingThreshold,
) []StageInterval {
	stages := RemainingStages(currentStage)
	cursor := decisionDate

	reverseChronological := make([]StageInterval, 0, len(stages))
	for i := len(stages) - 1; i >= 0; i-- {
		stage := stages[i]
		duration, hasDuration := stageDurationWeeks[stage]
		baseFTE, hasFTE := stageFTE[stage]
		if !hasDuration || !hasFTE {
			continue
		}

		var threshold *ServiceLineOfferingThreshold
		if th, ok := thresholds[stage]; ok {
			threshold = &th
		}
		fte := baseFTE * Multiplier(lineItems, mappings, threshold, sl)

		end := cursor
		start := end.Add(-durationToInterval(duration))
		cursor = start

		reverseChronological = append(reverseChronological, StageInterval{
			Stage:            stage,
			StartDate:        start,
			EndDate:          end,
			DurationWeeks:    duration,
			FTERequired:      fte,
			TotalEffortWeeks: duration * fte,
			ResourceCategory: resourceCategory,
		})
	}

	out := make([]StageInterval, len(reverseChronological))
	for i, iv := range reverseChronological {
		out[len(reverseChronological)-1-i] = iv
	}
	return out
}

// durationToInterval converts a stage duration in weeks to a calendar
// interval. Zero weeks collapses the interval to a single instant.
func durationToInterval(weeks float64) time.Duration {
	return time.Duration(weeks * 7 * 24 * float64(time.Hour))
}

// BuildTimeline resolves an opportunity's global category, selects its
// target service lines, resolves each one's resource category, and
// schedules each against the supplied templates. An opportunity with no
// decision date is an error; one whose TCV does not fall into any category
// band (including negative TCV) yields an empty, uncategorized bundle with
// no error. A service line whose resource category cannot be resolved, or
// whose template is incomplete for every remaining stage, is silently
// dropped from the bundle rather than failing the whole request.
func BuildTimeline(
	o *Opportunity,
	lineItems []OpportunityLineItem,
	timelineCategories []OpportunityCategory,
	serviceLineCategories []ServiceLineCategory,
	stageEfforts []ServiceLineStageEffort,
	thresholds []ServiceLineOfferingThreshold,
	mappings []ServiceLineOfferingMapping,
) (TimelineBundle, error) {
	if o.DecisionDate == nil {
		return TimelineBundle{}, ErrMissingDecisionDate
	}

	bundle := TimelineBundle{OpportunityID: o.ID}

	categoryRow, ok := ResolveOpportunityCategoryRow(timelineCategories, o.TCV)
	if !ok {
		return bundle, nil
	}
	bundle.Category = categoryRow.Name

	for _, target := range TargetServiceLines(o) {
		resourceCategory, ok := ResolveServiceLineCategoryRow(serviceLineCategories, target.ServiceLine, target.TCV)
		if !ok {
			continue
		}

		effortMap := effortTemplate(stageEfforts, target.ServiceLine, resourceCategory.Name)
		thresholdMap := thresholdTemplate(thresholds, target.ServiceLine)

		intervals := Schedule(
			*o.DecisionDate,
			o.SalesStage,
			target.ServiceLine,
			resourceCategory.Name,
			categoryRow.StageDurationWeeks,
			effortMap,
			lineItems,
			mappings,
			thresholdMap,
		)
		if len(intervals) == 0 {
			continue
		}

		bundle.ServiceLines = append(bundle.ServiceLines, ServiceLineTimeline{
			ServiceLine:      target.ServiceLine,
			ResourceCategory: resourceCategory.Name,
			Intervals:        intervals,
		})
	}

	return bundle, nil
}

func effortTemplate(rows []ServiceLineStageEffort, sl ServiceLine, resourceCategory string) map[Stage]float64 {
	out := make(map[Stage]float64)
	for _, r := range rows {
		if r.ServiceLine == sl && r.ServiceLineCategory == resourceCategory {
			out[r.Stage] = r.FTERequired
		}
	}
	return out
}

func thresholdTemplate(rows []ServiceLineOfferingThreshold, sl ServiceLine) map[Stage]ServiceLineOfferingThreshold {
	out := make(map[Stage]ServiceLineOfferingThreshold)
	for _, r := range rows {
		if r.ServiceLine == sl {
			out[r.Stage] = r
		}
	}
	return out
}
