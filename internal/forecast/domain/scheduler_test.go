package domain

import (
	"testing"
	"time"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRemainingStagesUnknownCurrentIsStage01(t *testing.T) {
	got := RemainingStages("")
	if len(got) != len(StageOrder) || got[0] != Stage01 {
		t.Fatalf("unknown current stage should keep the full order, got %v", got)
	}
	got = RemainingStages("not-a-stage")
	if len(got) != len(StageOrder) {
		t.Fatalf("unrecognized stage should keep the full order, got %v", got)
	}
}

func TestRemainingStagesIsFixedOrderSuffix(t *testing.T) {
	got := RemainingStages(Stage04A)
	want := []Stage{Stage04A, Stage04B, Stage05A, Stage05B, Stage06}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// TestScheduleSingleStageNoMultiplier is scenario 1: a single remaining
// stage, no offering multiplier in play.
func TestScheduleSingleStageNoMultiplier(t *testing.T) {
	decision := mustDate("2025-06-02")
	durations := map[Stage]float64{Stage04A: 4}
	efforts := map[Stage]float64{Stage04A: 0.5}

	intervals := Schedule(decision, Stage04A, ServiceLineMW, "Sub $5M", durations, efforts, nil, nil, nil)

	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	iv := intervals[0]
	if iv.Stage != Stage04A {
		t.Errorf("stage = %v, want 04A", iv.Stage)
	}
	if !iv.StartDate.Equal(mustDate("2025-05-05")) {
		t.Errorf("start = %v, want 2025-05-05", iv.StartDate)
	}
	if !iv.EndDate.Equal(mustDate("2025-06-02")) {
		t.Errorf("end = %v, want 2025-06-02", iv.EndDate)
	}
	if iv.FTERequired != 0.5 {
		t.Errorf("fte = %v, want 0.5", iv.FTERequired)
	}
	if iv.TotalEffortWeeks != 2.0 {
		t.Errorf("total effort = %v, want 2.0", iv.TotalEffortWeeks)
	}
}

// TestScheduleBackwardChaining is scenario 3: two remaining stages chain
// contiguously backward from the decision date.
func TestScheduleBackwardChaining(t *testing.T) {
	decision := mustDate("2025-12-31")
	durations := map[Stage]float64{Stage03: 4, Stage04A: 15}
	efforts := map[Stage]float64{Stage03: 0.25, Stage04A: 2.0}

	intervals := Schedule(decision, Stage03, ServiceLineMW, "Cat B", durations, efforts, nil, nil, nil)

	if len(intervals) != 2 {
		t.Fatalf("got %d intervals, want 2", len(intervals))
	}
	if intervals[0].Stage != Stage03 || intervals[1].Stage != Stage04A {
		t.Fatalf("intervals out of chronological order: %+v", intervals)
	}
	if !intervals[0].StartDate.Equal(mustDate("2025-08-20")) || !intervals[0].EndDate.Equal(mustDate("2025-09-17")) {
		t.Errorf("stage_03 interval = %+v", intervals[0])
	}
	if !intervals[1].StartDate.Equal(mustDate("2025-09-17")) || !intervals[1].EndDate.Equal(mustDate("2025-12-31")) {
		t.Errorf("stage_04A interval = %+v", intervals[1])
	}
	if !intervals[0].EndDate.Equal(intervals[1].StartDate) {
		t.Error("stages must chain contiguously")
	}
}

func TestScheduleSkipsIncompleteTemplateWithoutAdvancingCursor(t *testing.T) {
	decision := mustDate("2025-12-31")
	durations := map[Stage]float64{Stage03: 4, Stage04A: 15}
	efforts := map[Stage]float64{Stage04A: 2.0} // stage_03 effort missing

	intervals := Schedule(decision, Stage03, ServiceLineMW, "Cat B", durations, efforts, nil, nil, nil)

	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1 (stage_03 must be skipped)", len(intervals))
	}
	if intervals[0].Stage != Stage04A {
		t.Fatalf("got %v, want 04A", intervals[0].Stage)
	}
	if !intervals[0].EndDate.Equal(decision) {
		t.Errorf("end = %v, want %v", intervals[0].EndDate, decision)
	}
}

func TestScheduleZeroDurationCollapses(t *testing.T) {
	decision := mustDate("2025-06-02")
	durations := map[Stage]float64{Stage04A: 0}
	efforts := map[Stage]float64{Stage04A: 1.0}

	intervals := Schedule(decision, Stage04A, ServiceLineMW, "Sub $5M", durations, efforts, nil, nil, nil)
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	if !intervals[0].StartDate.Equal(intervals[0].EndDate) {
		t.Errorf("zero-duration stage should collapse to a single day, got %+v", intervals[0])
	}
}

func TestTargetServiceLinesPrefersRevenue(t *testing.T) {
	o := &Opportunity{RevenueSplit: map[ServiceLine]float64{ServiceLineMW: 3, ServiceLineITOC: 0}}
	got := TargetServiceLines(o)
	if len(got) != 1 || got[0].ServiceLine != ServiceLineMW || got[0].TCV != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestTargetServiceLinesFallsBackToLeadOffering(t *testing.T) {
	lead := ServiceLineITOC
	o := &Opportunity{LeadOffering: &lead}
	got := TargetServiceLines(o)
	if len(got) != 1 || got[0].ServiceLine != ServiceLineITOC || got[0].TCV != 1.0 {
		t.Fatalf("got %+v", got)
	}
}

func TestTargetServiceLinesEmptyWhenLeadOfferingUnsupported(t *testing.T) {
	lead := ServiceLineCES
	o := &Opportunity{LeadOffering: &lead}
	got := TargetServiceLines(o)
	if len(got) != 0 {
		t.Fatalf("got %+v, want none", got)
	}
}

func TestBuildTimelineRequiresDecisionDate(t *testing.T) {
	o := &Opportunity{ID: "opp-1", TCV: 3}
	_, err := BuildTimeline(o, nil, nil, nil, nil, nil, nil)
	if err != ErrMissingDecisionDate {
		t.Fatalf("got %v, want ErrMissingDecisionDate", err)
	}
}

// TestBuildTimelineUncategorizedIsEmptyNotError is scenario 6: a negative
// TCV opportunity resolves to no category and yields an empty timeline
// without error.
func TestBuildTimelineUncategorizedIsEmptyNotError(t *testing.T) {
	decision := mustDate("2025-06-02")
	o := &Opportunity{
		ID:           "opp-1",
		TCV:          -2,
		DecisionDate: &decision,
		SalesStage:   Stage04A,
		RevenueSplit: map[ServiceLine]float64{ServiceLineMW: 5},
	}
	bundle, err := BuildTimeline(o, nil, nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Category != "" || len(bundle.ServiceLines) != 0 {
		t.Fatalf("got %+v, want empty uncategorized bundle", bundle)
	}
	if bundle.TotalFTE() != 0 {
		t.Errorf("total FTE = %v, want 0", bundle.TotalFTE())
	}
}

func TestBuildTimelineEndToEnd(t *testing.T) {
	decision := mustDate("2025-06-02")
	o := &Opportunity{
		ID:           "opp-1",
		TCV:          3,
		DecisionDate: &decision,
		SalesStage:   Stage04A,
		RevenueSplit: map[ServiceLine]float64{ServiceLineMW: 3},
	}
	maxFive := 5.0
	timelineCategories := []OpportunityCategory{
		{CategoryBand: CategoryBand{ID: 1, Name: "Sub $5M", MinTCV: 0, MaxTCV: &maxFive}, StageDurationWeeks: map[Stage]float64{Stage04A: 4}},
	}
	slCategories := []ServiceLineCategory{
		{CategoryBand: CategoryBand{ID: 1, Name: "Sub $5M", MinTCV: 0, MaxTCV: &maxFive}, ServiceLine: ServiceLineMW},
	}
	efforts := []ServiceLineStageEffort{
		{ServiceLine: ServiceLineMW, ServiceLineCategory: "Sub $5M", Stage: Stage04A, FTERequired: 0.5},
	}

	bundle, err := BuildTimeline(o, nil, timelineCategories, slCategories, efforts, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Category != "Sub $5M" {
		t.Fatalf("category = %q, want \"Sub $5M\"", bundle.Category)
	}
	if len(bundle.ServiceLines) != 1 {
		t.Fatalf("got %d service line timelines, want 1", len(bundle.ServiceLines))
	}
	sl := bundle.ServiceLines[0]
	if sl.ServiceLine != ServiceLineMW || sl.ResourceCategory != "Sub $5M" {
		t.Fatalf("got %+v", sl)
	}
	if len(sl.Intervals) != 1 || sl.Intervals[0].FTERequired != 0.5 {
		t.Fatalf("got %+v", sl.Intervals)
	}
	if bundle.TotalFTE() != 0.5 {
		t.Errorf("total FTE = %v, want 0.5", bundle.TotalFTE())
	}
}
