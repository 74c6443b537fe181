package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/gdralph/rfot/internal/forecast/domain"
)

// OpportunityRepository implements domain.OpportunityRepository for
// PostgreSQL. Rows are owned by the upstream spreadsheet loader; this
// repository only reads.
type OpportunityRepository struct {
	db *sqlx.DB
}

// NewOpportunityRepository creates a new OpportunityRepository.
func NewOpportunityRepository(db *sqlx.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

type opportunityRow struct {
	ID           string         `db:"id"`
	TCV          float64        `db:"tcv"`
	DecisionDate sql.NullTime   `db:"decision_date"`
	SalesStage   string         `db:"sales_stage"`
	LeadOffering sql.NullString `db:"lead_offering"`
	RevenueSplit []byte         `db:"revenue_split"`
}

func (row opportunityRow) toDomain() (domain.Opportunity, error) {
	o := domain.Opportunity{
		ID:         row.ID,
		TCV:        row.TCV,
		SalesStage: domain.Stage(row.SalesStage),
	}
	if row.DecisionDate.Valid {
		t := row.DecisionDate.Time
		o.DecisionDate = &t
	}
	if row.LeadOffering.Valid {
		sl := domain.ServiceLine(row.LeadOffering.String)
		o.LeadOffering = &sl
	}
	if len(row.RevenueSplit) > 0 {
		raw := make(map[string]float64)
		if err := json.Unmarshal(row.RevenueSplit, &raw); err != nil {
			return domain.Opportunity{}, err
		}
		o.RevenueSplit = make(map[domain.ServiceLine]float64, len(raw))
		for sl, v := range raw {
			o.RevenueSplit[domain.ServiceLine(sl)] = v
		}
	}
	return o, nil
}

const opportunitySelect = `SELECT id, tcv, decision_date, sales_stage, lead_offering, revenue_split FROM opportunities`

// GetByID reads a single opportunity row.
func (r *OpportunityRepository) GetByID(ctx context.Context, opportunityID string) (*domain.Opportunity, error) {
	var row opportunityRow
	err := sqlx.GetContext(ctx, getExecutor(ctx, r.db), &row, opportunitySelect+` WHERE id = $1`, opportunityID)
	if err != nil {
		return nil, err
	}
	o, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListAll reads every opportunity row, used by generate_bulk and the
// aggregator's eligibility/missing-timelines scan.
func (r *OpportunityRepository) ListAll(ctx context.Context) ([]domain.Opportunity, error) {
	var rows []opportunityRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, opportunitySelect+` ORDER BY id`); err != nil {
		return nil, err
	}
	out := make([]domain.Opportunity, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

type lineItemRow struct {
	OpportunityID      string `db:"opportunity_id"`
	InternalService    string `db:"internal_service"`
	SimplifiedOffering string `db:"simplified_offering"`
}

// LineItems reads every line item for one opportunity.
func (r *OpportunityRepository) LineItems(ctx context.Context, opportunityID string) ([]domain.OpportunityLineItem, error) {
	const query = `SELECT opportunity_id, internal_service, simplified_offering FROM opportunity_line_items WHERE opportunity_id = $1`
	var rows []lineItemRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, r.db), &rows, query, opportunityID); err != nil {
		return nil, err
	}
	out := make([]domain.OpportunityLineItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.OpportunityLineItem{
			OpportunityID:      row.OpportunityID,
			InternalService:    row.InternalService,
			SimplifiedOffering: row.SimplifiedOffering,
		})
	}
	return out, nil
}
