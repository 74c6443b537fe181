package domain

import (
	"context"
	"time"
)

// ConfigRepository gives read-only access to component A, the configuration
// store: the operator-owned tables of category bands, FTE templates, and
// offering thresholds/mappings. Values change rarely; every method is a
// point read satisfied per-opportunity, so no caching is required for
// correctness.
type ConfigRepository interface {
	OpportunityCategories(ctx context.Context) ([]OpportunityCategory, error)
	ServiceLineCategories(ctx context.Context) ([]ServiceLineCategory, error)
	StageEfforts(ctx context.Context) ([]ServiceLineStageEffort, error)
	OfferingThresholds(ctx context.Context) ([]ServiceLineOfferingThreshold, error)
	OfferingMappings(ctx context.Context) ([]ServiceLineOfferingMapping, error)
}

// OpportunityRepository gives read-only access to component B's opportunity
// and line-item rows. The core never creates, updates, or deletes these; they
// are owned by the upstream spreadsheet loader.
type OpportunityRepository interface {
	GetByID(ctx context.Context, opportunityID string) (*Opportunity, error)
	LineItems(ctx context.Context, opportunityID string) ([]OpportunityLineItem, error)
	// ListAll returns every opportunity known to the store, used by bulk
	// generation and by the aggregator's eligibility/missing-timelines scan.
	ListAll(ctx context.Context) ([]Opportunity, error)
}

// IntervalPatch carries the fields patch_interval overwrites on exactly one
// (opportunity, service_line, stage) row.
type IntervalPatch struct {
	StageStartDate time.Time
	StageEndDate   time.Time
	DurationWeeks  float64
	FTERequired    float64
}

// ServiceLineBounds is the earliest/latest stored interval for one
// resource-planned service line, used by timeline_bounds().
type ServiceLineBounds struct {
	Earliest *time.Time
	Latest   *time.Time
}

// TimelineRepository is component F's persistence surface: the materialized
// OpportunityResourceTimeline rows and their lifecycle.
type TimelineRepository interface {
	// ByOpportunity returns every stored row for one opportunity, in no
	// particular order.
	ByOpportunity(ctx context.Context, opportunityID string) ([]ResourceTimeline, error)

	// ReplaceForOpportunity deletes all existing rows for opportunityID and
	// inserts rows in one atomic step, so readers observe either the
	// complete old set or the complete new set. Callers must have already
	// verified the overwrite is permitted (no Forecast/Planned rows survive
	// unprotected); ReplaceForOpportunity itself does not re-check status.
	ReplaceForOpportunity(ctx context.Context, opportunityID string, rows []ResourceTimeline) error

	// DeleteForOpportunity removes all rows for opportunityID and reports
	// how many were removed.
	DeleteForOpportunity(ctx context.Context, opportunityID string) (int, error)

	// PatchStatus updates resource_status (and last_updated) on the subset
	// selected by opportunityID plus the optional service-line/stage
	// narrowing, and reports the row count touched.
	PatchStatus(ctx context.Context, opportunityID string, sl *ServiceLine, stage *Stage, status ResourceStatus) (int, error)

	// PatchInterval overwrites exactly one row's scheduling fields and
	// returns the row as stored after the patch.
	PatchInterval(ctx context.Context, opportunityID string, sl ServiceLine, stage Stage, patch IntervalPatch) (*ResourceTimeline, error)

	// AllRows returns every stored timeline row across the whole portfolio,
	// the raw input to the aggregator (4.G) before in-memory filtering.
	AllRows(ctx context.Context) ([]ResourceTimeline, error)

	// ClearPredicted deletes every row with ResourceStatus == StatusPredicted
	// across all opportunities and reports the deleted count.
	ClearPredicted(ctx context.Context) (int, error)

	// Bounds returns the earliest stage_start_date and latest
	// stage_end_date across all stored rows (nil, nil if none exist), plus
	// the same bounds scoped to each resource-planned service line.
	Bounds(ctx context.Context) (earliest, latest *time.Time, byServiceLine map[ServiceLine]ServiceLineBounds, err error)
}

// UnitOfWork scopes a request's repository calls to one transaction, per
// §5: write-heavy verbs run inside a single transaction, read-heavy verbs
// run read-only. Begin returns a new UnitOfWork bound to the transaction;
// Commit/Rollback finalize it.
type UnitOfWork interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	Commit() error
	Rollback() error

	Config() ConfigRepository
	Opportunities() OpportunityRepository
	Timelines() TimelineRepository
}
