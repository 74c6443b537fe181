package domain

import "time"

// StageInterval is one emitted stage of a schedule, before it is attached to
// an opportunity/service line and given a lifecycle status. Produced by
// Schedule (scheduler.go) and turned into a ResourceTimeline row by the
// persistor.
type StageInterval struct {
	Stage            Stage
	StartDate        time.Time
	EndDate          time.Time
	DurationWeeks    float64
	FTERequired      float64
	TotalEffortWeeks float64
	ResourceCategory string
}

// ResourceTimeline is a single materialized stage row for one opportunity
// and service line.
type ResourceTimeline struct {
	ID               string
	OpportunityID    string
	ServiceLine      ServiceLine
	Stage            Stage
	StageStartDate   time.Time
	StageEndDate     time.Time
	DurationWeeks    float64
	FTERequired      float64
	TotalEffortWeeks float64
	Category         string
	ResourceCategory string
	DecisionDate     time.Time
	CalculatedDate   time.Time
	LastUpdated      time.Time
	ResourceStatus   ResourceStatus
}

// ServiceLineTimeline is the scheduled output for one service line: its
// resource category and the chronological stage intervals.
type ServiceLineTimeline struct {
	ServiceLine      ServiceLine
	ResourceCategory string
	Intervals        []StageInterval
}

// TimelineBundle is the full output of building a timeline for an
// opportunity: its resolved global category and its per-service-line
// schedules.
type TimelineBundle struct {
	OpportunityID string
	Category      string
	ServiceLines  []ServiceLineTimeline
}

// TotalFTE sums FTERequired across every emitted interval in the bundle. A
// zero result means nothing is worth persisting for this opportunity.
func (b TimelineBundle) TotalFTE() float64 {
	var total float64
	for _, sl := range b.ServiceLines {
		for _, iv := range sl.Intervals {
			total += iv.FTERequired
		}
	}
	return total
}
