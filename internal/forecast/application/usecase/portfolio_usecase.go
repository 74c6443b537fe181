package usecase

import (
	"context"
	"time"

	"github.com/gdralph/rfot/internal/forecast/application"
	"github.com/gdralph/rfot/internal/forecast/application/dto"
	"github.com/gdralph/rfot/internal/forecast/domain"
)

// PortfolioUseCase implements component G's read verbs: portfolio_forecast,
// the supplemented stage_resource_forecast breakdown, and timeline_bounds.
type PortfolioUseCase interface {
	PortfolioForecast(ctx context.Context, req *dto.PortfolioForecastRequest) (*dto.PortfolioForecastResponse, error)
	StageResourceForecast(ctx context.Context, req *dto.PortfolioForecastRequest) (*dto.StageResourceForecastResponse, error)
	TimelineBounds(ctx context.Context) (*dto.TimelineBoundsResponse, error)
}

type portfolioUseCase struct {
	uow domain.UnitOfWork
}

// NewPortfolioUseCase creates the portfolio use case.
func NewPortfolioUseCase(uow domain.UnitOfWork) PortfolioUseCase {
	return &portfolioUseCase{uow: uow}
}

func toDomainFilters(req *dto.PortfolioForecastRequest) domain.PortfolioFilters {
	f := domain.PortfolioFilters{Categories: req.Categories}
	for _, sl := range req.ServiceLines {
		f.ServiceLines = append(f.ServiceLines, domain.ServiceLine(sl))
	}
	for _, s := range req.Stages {
		f.Stages = append(f.Stages, domain.Stage(s))
	}
	for _, s := range req.OpportunitySalesStages {
		f.OpportunitySalesStages = append(f.OpportunitySalesStages, domain.Stage(s))
	}
	return f
}

func toSummaryResponse(s domain.PortfolioSummary) dto.SummaryResponse {
	resp := dto.SummaryResponse{
		EffortWeeksByServiceLine: make(map[string]float64, len(s.EffortWeeksByServiceLine)),
		EffortWeeksByStage:       make(map[string]float64, len(s.EffortWeeksByStage)),
		EffortWeeksByCategory:    s.EffortWeeksByCategory,
		OpportunityCount:         s.OpportunityCount,
	}
	for sl, v := range s.EffortWeeksByServiceLine {
		resp.EffortWeeksByServiceLine[string(sl)] = v
	}
	for stage, v := range s.EffortWeeksByStage {
		resp.EffortWeeksByStage[string(stage)] = v
	}
	return resp
}

// resolveWindow defaults an absent start/end to the earliest/latest stored
// timeline bound, per §4.G's "broad window that covers stored data"
// default for an unbounded portfolio_forecast/stage_resource_forecast
// request.
func (uc *portfolioUseCase) resolveWindow(ctx context.Context, start, end *time.Time) (time.Time, time.Time, error) {
	if start != nil && end != nil {
		return *start, *end, nil
	}

	earliest, latest, _, err := uc.uow.Timelines().Bounds(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, application.ErrPersistence("read timeline bounds", err)
	}

	resolvedStart := time.Time{}
	switch {
	case start != nil:
		resolvedStart = *start
	case earliest != nil:
		resolvedStart = *earliest
	}

	resolvedEnd := resolvedStart
	switch {
	case end != nil:
		resolvedEnd = *end
	case latest != nil:
		resolvedEnd = *latest
	}

	return resolvedStart, resolvedEnd, nil
}

// loadAggregationInputs gathers the two pieces of state the aggregator
// needs beyond the stored rows themselves: every opportunity's current
// sales stage (for the OpportunitySalesStages filter) and the set of
// opportunity IDs eligible for timeline generation (for MissingTimelines).
func (uc *portfolioUseCase) loadAggregationInputs(ctx context.Context) ([]domain.ResourceTimeline, map[string]domain.Stage, []string, error) {
	rows, err := uc.uow.Timelines().AllRows(ctx)
	if err != nil {
		return nil, nil, nil, application.ErrPersistence("read all rows", err)
	}

	opps, err := uc.uow.Opportunities().ListAll(ctx)
	if err != nil {
		return nil, nil, nil, application.ErrPersistence("list opportunities", err)
	}

	cfg, err := loadConfig(ctx, uc.uow.Config())
	if err != nil {
		return nil, nil, nil, application.ErrPersistence("load configuration", err)
	}

	currentStage := make(map[string]domain.Stage, len(opps))
	var eligible []string
	for i := range opps {
		opp := opps[i]
		currentStage[opp.ID] = opp.SalesStage
		if domain.IsEligible(&opp, cfg.timelineCategories, cfg.serviceLineCategories, cfg.stageEfforts) {
			eligible = append(eligible, opp.ID)
		}
	}
	return rows, currentStage, eligible, nil
}

// PortfolioForecast implements portfolio_forecast.
func (uc *portfolioUseCase) PortfolioForecast(ctx context.Context, req *dto.PortfolioForecastRequest) (*dto.PortfolioForecastResponse, error) {
	granularity := domain.BucketGranularity(req.Bucket)
	if !granularity.IsValid() {
		return nil, application.ErrInvalidBucket(req.Bucket)
	}

	rows, currentStage, eligible, err := uc.loadAggregationInputs(ctx)
	if err != nil {
		return nil, err
	}

	start, end, err := uc.resolveWindow(ctx, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	result, err := domain.AggregatePortfolio(rows, currentStage, eligible, toDomainFilters(req), start, end, granularity)
	if err != nil {
		return nil, application.ErrInvalidBucket(req.Bucket)
	}

	resp := &dto.PortfolioForecastResponse{Summary: toSummaryResponse(result.Summary), MissingTimelines: result.MissingTimelines}
	for _, b := range result.Buckets {
		bResp := dto.BucketResponse{Start: b.Start, End: b.End, Label: b.Label, DayCount: b.DayCount, MeanTotalFTE: b.MeanTotalFTE, MeanByServiceLine: make(map[string]float64, len(b.MeanByServiceLine))}
		for sl, v := range b.MeanByServiceLine {
			bResp.MeanByServiceLine[string(sl)] = v
		}
		resp.Buckets = append(resp.Buckets, bResp)
	}
	return resp, nil
}

// StageResourceForecast implements the supplemented stage_resource_forecast
// verb: the same aggregation as PortfolioForecast, credited by
// (service_line, opportunity_current_stage) instead of service line alone.
func (uc *portfolioUseCase) StageResourceForecast(ctx context.Context, req *dto.PortfolioForecastRequest) (*dto.StageResourceForecastResponse, error) {
	granularity := domain.BucketGranularity(req.Bucket)
	if !granularity.IsValid() {
		return nil, application.ErrInvalidBucket(req.Bucket)
	}

	rows, currentStage, eligible, err := uc.loadAggregationInputs(ctx)
	if err != nil {
		return nil, err
	}

	start, end, err := uc.resolveWindow(ctx, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	result, err := domain.AggregateStageResource(rows, currentStage, eligible, toDomainFilters(req), start, end, granularity)
	if err != nil {
		return nil, application.ErrInvalidBucket(req.Bucket)
	}

	resp := &dto.StageResourceForecastResponse{Summary: toSummaryResponse(result.Summary), MissingTimelines: result.MissingTimelines}
	for _, b := range result.Buckets {
		resp.Buckets = append(resp.Buckets, dto.BreakdownBucketResponse{Start: b.Start, End: b.End, Label: b.Label, DayCount: b.DayCount, MeanByKey: b.MeanByKey})
	}
	return resp, nil
}

// TimelineBounds implements timeline_bounds, supplemented per SPEC_FULL.md
// with the per-resource-planned-service-line breakdown.
func (uc *portfolioUseCase) TimelineBounds(ctx context.Context) (*dto.TimelineBoundsResponse, error) {
	earliest, latest, bySL, err := uc.uow.Timelines().Bounds(ctx)
	if err != nil {
		return nil, application.ErrPersistence("read timeline bounds", err)
	}

	resp := &dto.TimelineBoundsResponse{Earliest: earliest, Latest: latest, ByServiceLine: make(map[string]dto.ServiceLineBoundsResponse, len(bySL))}
	for sl, b := range bySL {
		resp.ByServiceLine[string(sl)] = dto.ServiceLineBoundsResponse{Earliest: b.Earliest, Latest: b.Latest}
	}
	return resp, nil
}
