package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidBucket is returned when a caller requests a bucket granularity
// outside {week, month, quarter}.
var ErrInvalidBucket = errors.New("invalid bucket granularity")

// PortfolioFilters narrows which stored timeline rows feed an aggregation.
// A nil/empty slice means "no restriction on that dimension".
type PortfolioFilters struct {
	ServiceLines           []ServiceLine
	Categories             []string
	Stages                 []Stage
	OpportunitySalesStages []Stage
}

func (f PortfolioFilters) matches(row ResourceTimeline, currentStage Stage) bool {
	if len(f.ServiceLines) > 0 && !containsServiceLine(f.ServiceLines, row.ServiceLine) {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, row.Category) {
		return false
	}
	if len(f.Stages) > 0 && !containsStage(f.Stages, row.Stage) {
		return false
	}
	if len(f.OpportunitySalesStages) > 0 && !containsStage(f.OpportunitySalesStages, currentStage) {
		return false
	}
	return true
}

func containsServiceLine(set []ServiceLine, v ServiceLine) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsStage(set []Stage, v Stage) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Bucket is one time-bucketed aggregate of concurrent FTE, averaged across
// the days of the bucket that fall within the aggregation window.
type Bucket struct {
	Start             time.Time
	End               time.Time
	Label             string
	MeanTotalFTE      float64
	DayCount          int
	MeanByServiceLine map[ServiceLine]float64
}

// BreakdownBucket is the stage-resource variant of Bucket: its per-key mean
// is credited against an arbitrary string key (service line, or
// service-line/current-stage pair) instead of a fixed ServiceLine type.
type BreakdownBucket struct {
	Start    time.Time
	End      time.Time
	Label    string
	DayCount int
	MeanByKey map[string]float64
}

// PortfolioSummary holds the unwindowed totals computed from the full set
// of rows matching the request's filters, independent of the time window.
type PortfolioSummary struct {
	EffortWeeksByServiceLine map[ServiceLine]float64
	EffortWeeksByStage       map[Stage]float64
	EffortWeeksByCategory    map[string]float64
	OpportunityCount         int
}

// PortfolioForecast is the output of AggregatePortfolio.
type PortfolioForecast struct {
	Buckets          []Bucket
	Summary          PortfolioSummary
	MissingTimelines int
}

// StageResourceForecast is the output of AggregateStageResource: buckets
// keyed by "service_line|current_stage" instead of by service line alone.
type StageResourceForecast struct {
	Buckets          []BreakdownBucket
	Summary          PortfolioSummary
	MissingTimelines int
}

// StageResourceKey formats the (service_line, opportunity_current_stage)
// credit key used by the stage-resource breakdown.
func StageResourceKey(sl ServiceLine, currentStage Stage) string {
	return fmt.Sprintf("%s|%s", sl, currentStage)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func maxDay(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDay(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// dailyExpansion walks every day each row is active within [start, end] and
// hands it to credit, which accumulates the row's fte_required under
// whatever key the caller chooses (service line, or service-line/stage
// pair). Suspension is not modeled here; callers that need cooperative
// cancellation check a context between calls to this function per row.
func dailyExpansion(rows []ResourceTimeline, start, end time.Time, credit func(day time.Time, row ResourceTimeline)) {
	start, end = truncateToDay(start), truncateToDay(end)
	for _, row := range rows {
		if row.StageEndDate.Before(row.StageStartDate) {
			continue
		}
		rowStart, rowEnd := truncateToDay(row.StageStartDate), truncateToDay(row.StageEndDate)
		d := maxDay(start, rowStart)
		last := minDay(end, rowEnd)
		for !d.After(last) {
			credit(d, row)
			d = d.AddDate(0, 0, 1)
		}
	}
}

// bucketBounds returns the [start, end] boundaries and label of every
// bucket of the given granularity whose range intersects [start, end].
func bucketBounds(granularity BucketGranularity, start, end time.Time) []Bucket {
	start, end = truncateToDay(start), truncateToDay(end)
	var out []Bucket
	switch granularity {
	case BucketWeek:
		cursor := mondayOnOrBefore(start)
		for !cursor.After(end) {
			bEnd := cursor.AddDate(0, 0, 6)
			out = append(out, Bucket{Start: cursor, End: bEnd, Label: cursor.Format("2006-01-02")})
			cursor = cursor.AddDate(0, 0, 7)
		}
	case BucketMonth:
		cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !cursor.After(end) {
			next := cursor.AddDate(0, 1, 0)
			bEnd := next.AddDate(0, 0, -1)
			out = append(out, Bucket{Start: cursor, End: bEnd, Label: cursor.Format("2006-01")})
			cursor = next
		}
	case BucketQuarter:
		qStartMonth := ((int(start.Month()) - 1) / 3) * 3
		cursor := time.Date(start.Year(), time.Month(qStartMonth+1), 1, 0, 0, 0, 0, time.UTC)
		for !cursor.After(end) {
			next := cursor.AddDate(0, 3, 0)
			bEnd := next.AddDate(0, 0, -1)
			q := (int(cursor.Month())-1)/3 + 1
			out = append(out, Bucket{Start: cursor, End: bEnd, Label: fmt.Sprintf("%d-Q%d", cursor.Year(), q)})
			cursor = next
		}
	}
	return out
}

func mondayOnOrBefore(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return t.AddDate(0, 0, -(wd - 1))
}

// AggregatePortfolio implements the portfolio aggregator: it expands the
// matching stored rows into daily concurrent FTE, buckets the result by the
// requested granularity averaging over each bucket's in-window days, and
// computes the unwindowed summary totals and missing-timelines count.
// oppCurrentStage maps opportunity id to its current sales stage, needed
// only to apply OpportunitySalesStages filters. eligibleOpportunityIDs is
// the set of opportunities the caller has already determined are eligible
// for timeline generation, used solely to compute MissingTimelines.
func AggregatePortfolio(
	rows []ResourceTimeline,
	oppCurrentStage map[string]Stage,
	eligibleOpportunityIDs []string,
	filters PortfolioFilters,
	start, end time.Time,
	granularity BucketGranularity,
) (PortfolioForecast, error) {
	if !granularity.IsValid() {
		return PortfolioForecast{}, ErrInvalidBucket
	}

	var filtered []ResourceTimeline
	for _, r := range rows {
		if filters.matches(r, oppCurrentStage[r.OpportunityID]) {
			filtered = append(filtered, r)
		}
	}

	dailyTotal := make(map[time.Time]float64)
	dailyBySL := make(map[time.Time]map[ServiceLine]float64)
	dailyExpansion(filtered, start, end, func(day time.Time, row ResourceTimeline) {
		dailyTotal[day] += row.FTERequired
		if dailyBySL[day] == nil {
			dailyBySL[day] = make(map[ServiceLine]float64)
		}
		dailyBySL[day][row.ServiceLine] += row.FTERequired
	})

	var buckets []Bucket
	for _, b := range bucketBounds(granularity, start, end) {
		windowStart := maxDay(b.Start, truncateToDay(start))
		windowEnd := minDay(b.End, truncateToDay(end))
		if windowEnd.Before(windowStart) {
			continue
		}

		var sumTotal float64
		sumBySL := make(map[ServiceLine]float64)
		days := 0
		for d := windowStart; !d.After(windowEnd); d = d.AddDate(0, 0, 1) {
			sumTotal += dailyTotal[d]
			for sl, v := range dailyBySL[d] {
				sumBySL[sl] += v
			}
			days++
		}
		if days == 0 {
			continue
		}
		meanBySL := make(map[ServiceLine]float64, len(sumBySL))
		for sl, v := range sumBySL {
			meanBySL[sl] = v / float64(days)
		}
		b.MeanTotalFTE = sumTotal / float64(days)
		b.DayCount = days
		b.MeanByServiceLine = meanBySL
		buckets = append(buckets, b)
	}

	summary := summarize(filtered)
	missing := missingTimelines(filtered, eligibleOpportunityIDs)

	return PortfolioForecast{Buckets: buckets, Summary: summary, MissingTimelines: missing}, nil
}

// AggregateStageResource is the stage-resource breakdown variant: identical
// to AggregatePortfolio except each daily contribution is credited to
// (service_line, opportunity_current_stage) rather than to service line
// alone.
func AggregateStageResource(
	rows []ResourceTimeline,
	oppCurrentStage map[string]Stage,
	eligibleOpportunityIDs []string,
	filters PortfolioFilters,
	start, end time.Time,
	granularity BucketGranularity,
) (StageResourceForecast, error) {
	if !granularity.IsValid() {
		return StageResourceForecast{}, ErrInvalidBucket
	}

	var filtered []ResourceTimeline
	for _, r := range rows {
		if filters.matches(r, oppCurrentStage[r.OpportunityID]) {
			filtered = append(filtered, r)
		}
	}

	dailyByKey := make(map[time.Time]map[string]float64)
	dailyExpansion(filtered, start, end, func(day time.Time, row ResourceTimeline) {
		key := StageResourceKey(row.ServiceLine, NormalizeCurrentStage(oppCurrentStage[row.OpportunityID]))
		if dailyByKey[day] == nil {
			dailyByKey[day] = make(map[string]float64)
		}
		dailyByKey[day][key] += row.FTERequired
	})

	var buckets []BreakdownBucket
	for _, b := range bucketBounds(granularity, start, end) {
		windowStart := maxDay(b.Start, truncateToDay(start))
		windowEnd := minDay(b.End, truncateToDay(end))
		if windowEnd.Before(windowStart) {
			continue
		}

		sumByKey := make(map[string]float64)
		days := 0
		for d := windowStart; !d.After(windowEnd); d = d.AddDate(0, 0, 1) {
			for k, v := range dailyByKey[d] {
				sumByKey[k] += v
			}
			days++
		}
		if days == 0 {
			continue
		}
		meanByKey := make(map[string]float64, len(sumByKey))
		for k, v := range sumByKey {
			meanByKey[k] = v / float64(days)
		}
		buckets = append(buckets, BreakdownBucket{Start: b.Start, End: b.End, Label: b.Label, DayCount: days, MeanByKey: meanByKey})
	}

	summary := summarize(filtered)
	missing := missingTimelines(filtered, eligibleOpportunityIDs)

	return StageResourceForecast{Buckets: buckets, Summary: summary, MissingTimelines: missing}, nil
}

func summarize(rows []ResourceTimeline) PortfolioSummary {
	s := PortfolioSummary{
		EffortWeeksByServiceLine: make(map[ServiceLine]float64),
		EffortWeeksByStage:       make(map[Stage]float64),
		EffortWeeksByCategory:    make(map[string]float64),
	}
	opps := make(map[string]struct{})
	for _, r := range rows {
		s.EffortWeeksByServiceLine[r.ServiceLine] += r.TotalEffortWeeks
		s.EffortWeeksByStage[r.Stage] += r.TotalEffortWeeks
		s.EffortWeeksByCategory[r.Category] += r.TotalEffortWeeks
		opps[r.OpportunityID] = struct{}{}
	}
	s.OpportunityCount = len(opps)
	return s
}

func missingTimelines(filtered []ResourceTimeline, eligibleOpportunityIDs []string) int {
	present := make(map[string]struct{}, len(filtered))
	for _, r := range filtered {
		present[r.OpportunityID] = struct{}{}
	}
	count := 0
	for _, id := range eligibleOpportunityIDs {
		if _, ok := present[id]; !ok {
			count++
		}
	}
	return count
}
