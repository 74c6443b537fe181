package domain

import (
	"math"
	"testing"
	"time"
)

// TestAggregatePortfolioWeeklyOverlap is scenario 5: two opportunities with
// overlapping MW rows. Only the week of 2025-01-13 has both rows active; the
// week of 2025-01-20 carries B alone, so its daily mean is 1.0.
func TestAggregatePortfolioWeeklyOverlap(t *testing.T) {
	rows := []ResourceTimeline{
		{
			OpportunityID: "A", ServiceLine: ServiceLineMW, Stage: Stage04A,
			StageStartDate: mustDate("2025-01-06"), StageEndDate: mustDate("2025-01-19"),
			FTERequired: 1.0,
		},
		{
			OpportunityID: "B", ServiceLine: ServiceLineMW, Stage: Stage04A,
			StageStartDate: mustDate("2025-01-13"), StageEndDate: mustDate("2025-01-26"),
			FTERequired: 1.0,
		},
	}

	forecast, err := AggregatePortfolio(rows, nil, nil, PortfolioFilters{}, mustDate("2025-01-06"), mustDate("2025-02-02"), BucketWeek)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]float64{
		"2025-01-06": 1.0,
		"2025-01-13": 2.0,
		"2025-01-20": 1.0,
		"2025-01-27": 0.0,
	}
	if len(forecast.Buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(forecast.Buckets), len(want), forecast.Buckets)
	}
	for _, b := range forecast.Buckets {
		wantMean, ok := want[b.Label]
		if !ok {
			t.Fatalf("unexpected bucket label %q", b.Label)
		}
		if math.Abs(b.MeanTotalFTE-wantMean) > 1e-9 {
			t.Errorf("bucket %s: mean = %v, want %v", b.Label, b.MeanTotalFTE, wantMean)
		}
	}
}

func TestAggregatePortfolioInvalidBucket(t *testing.T) {
	_, err := AggregatePortfolio(nil, nil, nil, PortfolioFilters{}, mustDate("2025-01-01"), mustDate("2025-01-31"), BucketGranularity("fortnight"))
	if err != ErrInvalidBucket {
		t.Fatalf("got %v, want ErrInvalidBucket", err)
	}
}

// TestAggregationConservation checks the invariant that, for a window large
// enough to cover all rows, the overall daily mean equals the day-count
// weighted mean of the per-bucket means.
func TestAggregationConservation(t *testing.T) {
	rows := []ResourceTimeline{
		{OpportunityID: "A", ServiceLine: ServiceLineMW, Stage: Stage04A, StageStartDate: mustDate("2025-01-01"), StageEndDate: mustDate("2025-03-01"), FTERequired: 1.5},
		{OpportunityID: "B", ServiceLine: ServiceLineITOC, Stage: Stage05A, StageStartDate: mustDate("2025-01-15"), StageEndDate: mustDate("2025-02-10"), FTERequired: 0.8},
	}
	start, end := mustDate("2025-01-01"), mustDate("2025-03-01")

	forecast, err := AggregatePortfolio(rows, nil, nil, PortfolioFilters{}, start, end, BucketMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var weightedSum float64
	var totalDays int
	for _, b := range forecast.Buckets {
		weightedSum += b.MeanTotalFTE * float64(b.DayCount)
		totalDays += b.DayCount
	}
	weightedMean := weightedSum / float64(totalDays)

	var dailySum float64
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, r := range rows {
			if !d.Before(r.StageStartDate) && !d.After(r.StageEndDate) {
				dailySum += r.FTERequired
			}
		}
		days++
	}
	directMean := dailySum / float64(days)

	if math.Abs(weightedMean-directMean) > 1e-9 {
		t.Errorf("bucketed weighted mean = %v, direct daily mean = %v", weightedMean, directMean)
	}
	if totalDays != days {
		t.Errorf("bucket day count = %d, window day count = %d", totalDays, days)
	}
}

func TestAggregateStageResourceCreditsCurrentStage(t *testing.T) {
	rows := []ResourceTimeline{
		{OpportunityID: "A", ServiceLine: ServiceLineMW, Stage: Stage04A, StageStartDate: mustDate("2025-01-06"), StageEndDate: mustDate("2025-01-12"), FTERequired: 1.0},
	}
	oppStage := map[string]Stage{"A": Stage06}

	forecast, err := AggregateStageResource(rows, oppStage, nil, PortfolioFilters{}, mustDate("2025-01-06"), mustDate("2025-01-12"), BucketWeek)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forecast.Buckets) != 1 {
		t.Fatalf("got %d buckets, want 1", len(forecast.Buckets))
	}
	key := StageResourceKey(ServiceLineMW, Stage06)
	got, ok := forecast.Buckets[0].MeanByKey[key]
	if !ok {
		t.Fatalf("missing key %q in %+v", key, forecast.Buckets[0].MeanByKey)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("mean = %v, want 1.0", got)
	}
}

func TestMissingTimelinesCountsEligibleWithoutRows(t *testing.T) {
	rows := []ResourceTimeline{
		{OpportunityID: "A", ServiceLine: ServiceLineMW, StageStartDate: mustDate("2025-01-01"), StageEndDate: mustDate("2025-01-02"), FTERequired: 1},
	}
	forecast, err := AggregatePortfolio(rows, nil, []string{"A", "B", "C"}, PortfolioFilters{}, mustDate("2025-01-01"), mustDate("2025-01-02"), BucketWeek)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forecast.MissingTimelines != 2 {
		t.Errorf("missing = %d, want 2", forecast.MissingTimelines)
	}
}

func TestDailyExpansionSkipsInvertedRows(t *testing.T) {
	rows := []ResourceTimeline{
		{OpportunityID: "A", ServiceLine: ServiceLineMW, StageStartDate: mustDate("2025-01-10"), StageEndDate: mustDate("2025-01-01"), FTERequired: 1},
	}
	var total float64
	dailyExpansion(rows, mustDate("2025-01-01"), mustDate("2025-01-31"), func(_ time.Time, row ResourceTimeline) {
		total += row.FTERequired
	})
	if total != 0 {
		t.Errorf("inverted row must not contribute, got total %v", total)
	}
}
