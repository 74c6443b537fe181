package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gdralph/rfot/internal/forecast/domain"
)

// TimelineRepository implements domain.TimelineRepository for PostgreSQL:
// the materialized OpportunityResourceTimeline rows and their lifecycle.
type TimelineRepository struct {
	db *sqlx.DB
}

// NewTimelineRepository creates a new TimelineRepository.
func NewTimelineRepository(db *sqlx.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

type timelineRow struct {
	ID               string    `db:"id"`
	OpportunityID    string    `db:"opportunity_id"`
	ServiceLine      string    `db:"service_line"`
	Stage            string    `db:"stage_name"`
	StageStartDate   time.Time `db:"stage_start_date"`
	StageEndDate     time.Time `db:"stage_end_date"`
	DurationWeeks    float64   `db:"duration_weeks"`
	FTERequired      float64   `db:"fte_required"`
	TotalEffortWeeks float64   `db:"total_effort_weeks"`
	Category         string    `db:"category"`
	ResourceCategory string    `db:"resource_category"`
	DecisionDate     time.Time `db:"decision_date"`
	CalculatedDate   time.Time `db:"calculated_date"`
	LastUpdated      time.Time `db:"last_updated"`
	ResourceStatus   string    `db:"resource_status"`
}

func (row timelineRow) toDomain() domain.ResourceTimeline {
	return domain.ResourceTimeline{
		ID:               row.ID,
		OpportunityID:    row.OpportunityID,
		ServiceLine:      domain.ServiceLine(row.ServiceLine),
		Stage:            domain.Stage(row.Stage),
		StageStartDate:   row.StageStartDate,
		StageEndDate:     row.StageEndDate,
		DurationWeeks:    row.DurationWeeks,
		FTERequired:      row.FTERequired,
		TotalEffortWeeks: row.TotalEffortWeeks,
		Category:         row.Category,
		ResourceCategory: row.ResourceCategory,
		DecisionDate:     row.DecisionDate,
		CalculatedDate:   row.CalculatedDate,
		LastUpdated:      row.LastUpdated,
		ResourceStatus:   domain.ResourceStatus(row.ResourceStatus),
	}
}

const timelineSelect = `
	SELECT id, opportunity_id, service_line, stage_name, stage_start_date, stage_end_date,
	       duration_weeks, fte_required, total_effort_weeks, category, resource_category,
	       decision_date, calculated_date, last_updated, resource_status
	FROM opportunity_resource_timelines`

// ByOpportunity returns every stored row for one opportunity.
func (r *TimelineRepository) ByOpportunity(ctx context.Context, opportunityID string) ([]domain.ResourceTimeline, error) {
	var rows []timelineRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, timelineSelect+` WHERE opportunity_id = $1`, opportunityID); err != nil {
		return nil, err
	}
	out := make([]domain.ResourceTimeline, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ReplaceForOpportunity deletes and reinserts opportunityID's rows in one
// transaction so readers never observe a partial set. Callers already hold
// a UnitOfWork transaction for compute_timeline and generate_bulk; if none
// is active (e.g. a test calling the repository directly) one is opened
// here instead.
func (r *TimelineRepository) ReplaceForOpportunity(ctx context.Context, opportunityID string, rows []domain.ResourceTimeline) error {
	if getTxFromContext(ctx) == nil {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := r.ReplaceForOpportunity(setTxToContext(ctx, tx), opportunityID, rows); err != nil {
			return err
		}
		return tx.Commit()
	}

	exec := getExecutor(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM opportunity_resource_timelines WHERE opportunity_id = $1`, opportunityID); err != nil {
		return err
	}

	const insert = `
		INSERT INTO opportunity_resource_timelines
			(id, opportunity_id, service_line, stage_name, stage_start_date, stage_end_date,
			 duration_weeks, fte_required, total_effort_weeks, category, resource_category,
			 decision_date, calculated_date, last_updated, resource_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := exec.ExecContext(ctx, insert,
			id, row.OpportunityID, string(row.ServiceLine), string(row.Stage), row.StageStartDate, row.StageEndDate,
			row.DurationWeeks, row.FTERequired, row.TotalEffortWeeks, row.Category, row.ResourceCategory,
			row.DecisionDate, row.CalculatedDate, row.LastUpdated, string(row.ResourceStatus))
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteForOpportunity removes all rows for opportunityID.
func (r *TimelineRepository) DeleteForOpportunity(ctx context.Context, opportunityID string) (int, error) {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM opportunity_resource_timelines WHERE opportunity_id = $1`, opportunityID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// PatchStatus updates resource_status on the rows selected by
// opportunityID plus the optional service-line/stage narrowing.
func (r *TimelineRepository) PatchStatus(ctx context.Context, opportunityID string, sl *domain.ServiceLine, stage *domain.Stage, status domain.ResourceStatus) (int, error) {
	query := `UPDATE opportunity_resource_timelines SET resource_status = $1, last_updated = now() WHERE opportunity_id = $2`
	args := []interface{}{string(status), opportunityID}
	if sl != nil {
		args = append(args, string(*sl))
		query += " AND service_line = $" + itoa(len(args))
	}
	if stage != nil {
		args = append(args, string(*stage))
		query += " AND stage_name = $" + itoa(len(args))
	}
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// PatchInterval overwrites one row's scheduling fields.
func (r *TimelineRepository) PatchInterval(ctx context.Context, opportunityID string, sl domain.ServiceLine, stage domain.Stage, patch domain.IntervalPatch) (*domain.ResourceTimeline, error) {
	const update = `
		UPDATE opportunity_resource_timelines
		SET stage_start_date = $1, stage_end_date = $2, duration_weeks = $3, fte_required = $4,
		    total_effort_weeks = $3 * $4, last_updated = now()
		WHERE opportunity_id = $5 AND service_line = $6 AND stage_name = $7`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, update,
		patch.StageStartDate, patch.StageEndDate, patch.DurationWeeks, patch.FTERequired,
		opportunityID, string(sl), string(stage))
	if err != nil {
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	var row timelineRow
	err = sqlx.GetContext(ctx, getExecutor(ctx, r.db), &row,
		timelineSelect+` WHERE opportunity_id = $1 AND service_line = $2 AND stage_name = $3`,
		opportunityID, string(sl), string(stage))
	if err != nil {
		return nil, err
	}
	out := row.toDomain()
	return &out, nil
}

// AllRows returns every stored row across the whole portfolio.
func (r *TimelineRepository) AllRows(ctx context.Context) ([]domain.ResourceTimeline, error) {
	var rows []timelineRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, timelineSelect); err != nil {
		return nil, err
	}
	out := make([]domain.ResourceTimeline, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ClearPredicted deletes every row with resource_status = 'Predicted'.
func (r *TimelineRepository) ClearPredicted(ctx context.Context) (int, error) {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM opportunity_resource_timelines WHERE resource_status = $1`, string(domain.StatusPredicted))
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

type boundsRow struct {
	Earliest *time.Time `db:"earliest"`
	Latest   *time.Time `db:"latest"`
}

type serviceLineBoundsRow struct {
	ServiceLine string     `db:"service_line"`
	Earliest    *time.Time `db:"earliest"`
	Latest      *time.Time `db:"latest"`
}

// Bounds returns the earliest/latest stored interval overall and per
// resource-planned service line.
func (r *TimelineRepository) Bounds(ctx context.Context) (*time.Time, *time.Time, map[domain.ServiceLine]domain.ServiceLineBounds, error) {
	exec := getExecutor(ctx, r.db)

	var overall boundsRow
	err := sqlx.GetContext(ctx, exec, &overall,
		`SELECT MIN(stage_start_date) AS earliest, MAX(stage_end_date) AS latest FROM opportunity_resource_timelines`)
	if err != nil {
		return nil, nil, nil, err
	}

	var bySLRows []serviceLineBoundsRow
	err = sqlx.SelectContext(ctx, exec, &bySLRows,
		`SELECT service_line, MIN(stage_start_date) AS earliest, MAX(stage_end_date) AS latest
		 FROM opportunity_resource_timelines GROUP BY service_line`)
	if err != nil {
		return nil, nil, nil, err
	}

	bySL := make(map[domain.ServiceLine]domain.ServiceLineBounds, len(bySLRows))
	for _, row := range bySLRows {
		bySL[domain.ServiceLine(row.ServiceLine)] = domain.ServiceLineBounds{Earliest: row.Earliest, Latest: row.Latest}
	}
	return overall.Earliest, overall.Latest, bySL, nil
}

// itoa avoids pulling in strconv for a single-digit-heavy placeholder
// index; PatchStatus never has more than four positional arguments.
func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
