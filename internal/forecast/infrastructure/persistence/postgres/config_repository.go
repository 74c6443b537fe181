package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/gdralph/rfot/internal/forecast/domain"
)

// ConfigRepository implements domain.ConfigRepository for PostgreSQL: plain
// reads of component A's operator-owned configuration tables.
type ConfigRepository struct {
	db *sqlx.DB
}

// NewConfigRepository creates a new ConfigRepository.
func NewConfigRepository(db *sqlx.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

type categoryBandRow struct {
	ID     int64    `db:"id"`
	Name   string   `db:"name"`
	MinTCV float64  `db:"min_tcv"`
	MaxTCV *float64 `db:"max_tcv"`
}

type opportunityCategoryRow struct {
	categoryBandRow
	Stage         domain.Stage `db:"stage_name"`
	DurationWeeks float64      `db:"duration_weeks"`
}

// OpportunityCategories loads every (band, stage duration) row and folds
// them into one OpportunityCategory per band, since the table is stored
// normalized (one row per band/stage pair).
func (r *ConfigRepository) OpportunityCategories(ctx context.Context) ([]domain.OpportunityCategory, error) {
	const query = `
		SELECT id, name, min_tcv, max_tcv, stage_name, duration_weeks
		FROM opportunity_category_stage_durations
		ORDER BY id`
	var rows []opportunityCategoryRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, query); err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.OpportunityCategory)
	var order []int64
	for _, row := range rows {
		cat, ok := byID[row.ID]
		if !ok {
			cat = &domain.OpportunityCategory{
				CategoryBand:       domain.CategoryBand{ID: row.ID, Name: row.Name, MinTCV: row.MinTCV, MaxTCV: row.MaxTCV},
				StageDurationWeeks: make(map[domain.Stage]float64),
			}
			byID[row.ID] = cat
			order = append(order, row.ID)
		}
		cat.StageDurationWeeks[row.Stage] = row.DurationWeeks
	}

	out := make([]domain.OpportunityCategory, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

type serviceLineCategoryRow struct {
	categoryBandRow
	ServiceLine domain.ServiceLine `db:"service_line"`
}

// ServiceLineCategories loads component A's per-service-line TCV bands.
func (r *ConfigRepository) ServiceLineCategories(ctx context.Context) ([]domain.ServiceLineCategory, error) {
	const query = `SELECT id, name, min_tcv, max_tcv, service_line FROM service_line_categories ORDER BY id`
	var rows []serviceLineCategoryRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, query); err != nil {
		return nil, err
	}
	out := make([]domain.ServiceLineCategory, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ServiceLineCategory{
			CategoryBand: domain.CategoryBand{ID: row.ID, Name: row.Name, MinTCV: row.MinTCV, MaxTCV: row.MaxTCV},
			ServiceLine:  row.ServiceLine,
		})
	}
	return out, nil
}

type stageEffortRow struct {
	ServiceLine         domain.ServiceLine `db:"service_line"`
	ServiceLineCategory string             `db:"service_line_category"`
	Stage               domain.Stage       `db:"stage_name"`
	FTERequired         float64            `db:"fte_required"`
}

// StageEfforts loads the FTE-per-stage template rows.
func (r *ConfigRepository) StageEfforts(ctx context.Context) ([]domain.ServiceLineStageEffort, error) {
	const query = `SELECT service_line, service_line_category, stage_name, fte_required FROM service_line_stage_efforts`
	var rows []stageEffortRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, query); err != nil {
		return nil, err
	}
	out := make([]domain.ServiceLineStageEffort, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ServiceLineStageEffort{
			ServiceLine:         row.ServiceLine,
			ServiceLineCategory: row.ServiceLineCategory,
			Stage:               row.Stage,
			FTERequired:         row.FTERequired,
		})
	}
	return out, nil
}

type offeringThresholdRow struct {
	ServiceLine         domain.ServiceLine `db:"service_line"`
	Stage               domain.Stage       `db:"stage_name"`
	ThresholdCount      int                `db:"threshold_count"`
	IncrementMultiplier float64            `db:"increment_multiplier"`
}

// OfferingThresholds loads the per (service_line, stage) offering-count
// threshold rows that feed the offering multiplier.
func (r *ConfigRepository) OfferingThresholds(ctx context.Context) ([]domain.ServiceLineOfferingThreshold, error) {
	const query = `SELECT service_line, stage_name, threshold_count, increment_multiplier FROM service_line_offering_thresholds`
	var rows []offeringThresholdRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, query); err != nil {
		return nil, err
	}
	out := make([]domain.ServiceLineOfferingThreshold, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ServiceLineOfferingThreshold{
			ServiceLine:         row.ServiceLine,
			Stage:               row.Stage,
			ThresholdCount:      row.ThresholdCount,
			IncrementMultiplier: row.IncrementMultiplier,
		})
	}
	return out, nil
}

type offeringMappingRow struct {
	ServiceLine        domain.ServiceLine `db:"service_line"`
	InternalService    string             `db:"internal_service"`
	SimplifiedOffering string             `db:"simplified_offering"`
}

// OfferingMappings loads the (internal_service, simplified_offering)
// mappings that count as one distinct offering toward a service line.
func (r *ConfigRepository) OfferingMappings(ctx context.Context) ([]domain.ServiceLineOfferingMapping, error) {
	const query = `SELECT service_line, internal_service, simplified_offering FROM service_line_offering_mappings`
	var rows []offeringMappingRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, query); err != nil {
		return nil, err
	}
	out := make([]domain.ServiceLineOfferingMapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ServiceLineOfferingMapping{
			ServiceLine:        row.ServiceLine,
			InternalService:    row.InternalService,
			SimplifiedOffering: row.SimplifiedOffering,
		})
	}
	return out, nil
}
