// Package dto holds the request/response shapes the forecast usecases
// accept and return, decoupled from both the domain model and the wire
// format any particular transport chooses.
package dto

import "time"

// ComputeTimelineRequest is compute_timeline's input: which opportunity to
// (re)schedule, and whether to overwrite Forecast/Planned rows that would
// otherwise protect themselves from a recompute.
type ComputeTimelineRequest struct {
	OpportunityID string `json:"opportunity_id" validate:"required"`
	Force         bool   `json:"force"`
}

// StageIntervalResponse is one scheduled stage within a timeline response.
type StageIntervalResponse struct {
	Stage            string    `json:"stage"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	DurationWeeks    float64   `json:"duration_weeks"`
	FTERequired      float64   `json:"fte_required"`
	TotalEffortWeeks float64   `json:"total_effort_weeks"`
	ResourceStatus   string    `json:"resource_status"`
}

// ServiceLineTimelineResponse is the scheduled output for one service line.
type ServiceLineTimelineResponse struct {
	ServiceLine      string                  `json:"service_line"`
	ResourceCategory string                  `json:"resource_category"`
	Intervals        []StageIntervalResponse `json:"intervals"`
}

// TimelineResponse is the shared shape returned by compute_timeline and
// get_timeline.
type TimelineResponse struct {
	OpportunityID string                        `json:"opportunity_id"`
	Category      string                        `json:"category"`
	ServiceLines  []ServiceLineTimelineResponse `json:"service_lines"`
	TotalFTE      float64                       `json:"total_fte"`
}

// DeleteTimelineResponse reports how many stored rows delete_timeline
// removed.
type DeleteTimelineResponse struct {
	OpportunityID string `json:"opportunity_id"`
	RowsDeleted   int    `json:"rows_deleted"`
}

// PatchStatusRequest is patch_status's input: the selector narrows which
// stored rows for OpportunityID get their ResourceStatus overwritten.
type PatchStatusRequest struct {
	OpportunityID string  `json:"opportunity_id" validate:"required"`
	ServiceLine   *string `json:"service_line,omitempty"`
	Stage         *string `json:"stage,omitempty"`
	Status        string  `json:"status" validate:"required,oneof=Predicted Forecast Planned"`
}

// PatchStatusResponse reports how many rows patch_status touched.
type PatchStatusResponse struct {
	OpportunityID string `json:"opportunity_id"`
	RowsUpdated   int    `json:"rows_updated"`
}

// PatchIntervalRequest is patch_interval's input: it overwrites exactly one
// (opportunity, service_line, stage) row's scheduling fields, used by a
// planner correcting a single stage without rerunning the scheduler.
type PatchIntervalRequest struct {
	OpportunityID  string    `json:"opportunity_id" validate:"required"`
	ServiceLine    string    `json:"service_line" validate:"required"`
	Stage          string    `json:"stage" validate:"required"`
	StageStartDate time.Time `json:"stage_start_date" validate:"required"`
	StageEndDate   time.Time `json:"stage_end_date" validate:"required"`
	DurationWeeks  float64   `json:"duration_weeks" validate:"gte=0"`
	FTERequired    float64   `json:"fte_required" validate:"gte=0"`
}

// PatchIntervalResponse is the row as stored after the patch.
type PatchIntervalResponse struct {
	OpportunityID    string    `json:"opportunity_id"`
	ServiceLine      string    `json:"service_line"`
	Stage            string    `json:"stage"`
	StageStartDate   time.Time `json:"stage_start_date"`
	StageEndDate     time.Time `json:"stage_end_date"`
	DurationWeeks    float64   `json:"duration_weeks"`
	FTERequired      float64   `json:"fte_required"`
	TotalEffortWeeks float64   `json:"total_effort_weeks"`
	ResourceStatus   string    `json:"resource_status"`
}

// GenerateBulkRequest is generate_bulk's input: a worker pool walks every
// eligible opportunity in the portfolio and computes its timeline.
// RegeneratePredicted gates whether an opportunity whose stored rows are
// all Predicted gets deleted and regenerated; an opportunity carrying any
// Forecast/Planned row is always skipped, regardless of this flag.
// IdempotencyKey, when set, lets a retried or duplicated call observe the
// first call's result instead of re-running the walk.
type GenerateBulkRequest struct {
	RegeneratePredicted bool   `json:"regenerate_predicted"`
	IdempotencyKey      string `json:"idempotency_key,omitempty"`
}

// BulkOpportunityOutcome is the per-opportunity action record generate_bulk
// reports alongside its aggregate counts.
type BulkOpportunityOutcome struct {
	OpportunityID string `json:"opportunity_id"`
	Action        string `json:"action"`
	Reason        string `json:"reason,omitempty"`
}

// GenerateBulkResponse summarizes one generate_bulk run.
type GenerateBulkResponse struct {
	OpportunitiesConsidered int                      `json:"opportunities_considered"`
	OpportunitiesGenerated  int                      `json:"opportunities_generated"`
	OpportunitiesUpdated    int                      `json:"opportunities_updated"`
	OpportunitiesSkipped    int                      `json:"opportunities_skipped"`
	OpportunitiesFailed     int                      `json:"opportunities_failed"`
	FailedOpportunityIDs    []string                 `json:"failed_opportunity_ids,omitempty"`
	Outcomes                []BulkOpportunityOutcome `json:"outcomes,omitempty"`
	FromCache               bool                     `json:"from_cache"`
}

// GenerationStatsResponse is generation_stats' output: a breakdown of
// stored rows by resource_status, supplementing the base spec with the
// per-status counts an operator dashboard needs.
type GenerationStatsResponse struct {
	TotalRows         int            `json:"total_rows"`
	TotalOpportunities int           `json:"total_opportunities"`
	RowsByStatus      map[string]int `json:"rows_by_status"`
	OpportunitiesByStatus map[string]int `json:"opportunities_by_status"`
}

// ClearPredictedResponse reports how many Predicted rows clear_predicted
// removed.
type ClearPredictedResponse struct {
	RowsDeleted int  `json:"rows_deleted"`
	FromCache   bool `json:"from_cache"`
}

// PortfolioForecastRequest is portfolio_forecast's (and
// stage_resource_forecast's) shared input. Start/End are optional; when
// either is omitted the use case defaults it from the earliest/latest
// stored timeline bound, per §4.G's "broad window that covers stored data"
// default.
type PortfolioForecastRequest struct {
	ServiceLines           []string   `json:"service_lines,omitempty"`
	Categories             []string   `json:"categories,omitempty"`
	Stages                 []string   `json:"stages,omitempty"`
	OpportunitySalesStages []string   `json:"opportunity_sales_stages,omitempty"`
	Start                  *time.Time `json:"start,omitempty"`
	End                    *time.Time `json:"end,omitempty"`
	Bucket                 string     `json:"bucket" validate:"required,oneof=week month quarter"`
}

// BucketResponse is one time bucket of the portfolio_forecast response.
type BucketResponse struct {
	Start             time.Time          `json:"start"`
	End               time.Time          `json:"end"`
	Label             string             `json:"label"`
	DayCount          int                `json:"day_count"`
	MeanTotalFTE      float64            `json:"mean_total_fte"`
	MeanByServiceLine map[string]float64 `json:"mean_by_service_line"`
}

// SummaryResponse is the unwindowed totals shared by both aggregation
// verbs.
type SummaryResponse struct {
	EffortWeeksByServiceLine map[string]float64 `json:"effort_weeks_by_service_line"`
	EffortWeeksByStage       map[string]float64 `json:"effort_weeks_by_stage"`
	EffortWeeksByCategory    map[string]float64 `json:"effort_weeks_by_category"`
	OpportunityCount         int                `json:"opportunity_count"`
}

// PortfolioForecastResponse is portfolio_forecast's output.
type PortfolioForecastResponse struct {
	Buckets          []BucketResponse `json:"buckets"`
	Summary          SummaryResponse  `json:"summary"`
	MissingTimelines int              `json:"missing_timelines"`
}

// BreakdownBucketResponse is one time bucket of the stage_resource_forecast
// response, keyed by "service_line|current_stage".
type BreakdownBucketResponse struct {
	Start     time.Time          `json:"start"`
	End       time.Time          `json:"end"`
	Label     string             `json:"label"`
	DayCount  int                `json:"day_count"`
	MeanByKey map[string]float64 `json:"mean_by_key"`
}

// StageResourceForecastResponse is stage_resource_forecast's output, the
// supplemented verb breaking portfolio_forecast down by sales stage as
// well as service line.
type StageResourceForecastResponse struct {
	Buckets          []BreakdownBucketResponse `json:"buckets"`
	Summary          SummaryResponse           `json:"summary"`
	MissingTimelines int                       `json:"missing_timelines"`
}

// TimelineBoundsResponse is timeline_bounds' output: the earliest/latest
// stored interval overall, plus the supplemented per-service-line
// breakdown.
type TimelineBoundsResponse struct {
	Earliest      *time.Time                    `json:"earliest,omitempty"`
	Latest        *time.Time                    `json:"latest,omitempty"`
	ByServiceLine map[string]ServiceLineBoundsResponse `json:"by_service_line"`
}

// ServiceLineBoundsResponse is one service line's earliest/latest interval.
type ServiceLineBoundsResponse struct {
	Earliest *time.Time `json:"earliest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
}
