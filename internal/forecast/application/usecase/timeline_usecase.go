package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gdralph/rfot/internal/forecast/application"
	"github.com/gdralph/rfot/internal/forecast/application/dto"
	"github.com/gdralph/rfot/internal/forecast/application/ports"
	"github.com/gdralph/rfot/internal/forecast/domain"
	"github.com/gdralph/rfot/pkg/logger"
)

// TimelineUseCase implements the per-opportunity verbs of §6: compute,
// read, delete, and patch an opportunity's resource timeline, plus the
// portfolio-scale generate_bulk/generation_stats/clear_predicted trio.
type TimelineUseCase interface {
	ComputeTimeline(ctx context.Context, req *dto.ComputeTimelineRequest) (*dto.TimelineResponse, error)
	GetTimeline(ctx context.Context, opportunityID string) (*dto.TimelineResponse, error)
	DeleteTimeline(ctx context.Context, opportunityID string) (*dto.DeleteTimelineResponse, error)
	PatchStatus(ctx context.Context, req *dto.PatchStatusRequest) (*dto.PatchStatusResponse, error)
	PatchInterval(ctx context.Context, req *dto.PatchIntervalRequest) (*dto.PatchIntervalResponse, error)
	GenerateBulk(ctx context.Context, req *dto.GenerateBulkRequest) (*dto.GenerateBulkResponse, error)
	GenerationStats(ctx context.Context) (*dto.GenerationStatsResponse, error)
	ClearPredicted(ctx context.Context, idempotencyKey string) (*dto.ClearPredictedResponse, error)
}

// BulkConfig tunes generate_bulk's worker pool, loaded from
// config.ForecastConfig.
type BulkConfig struct {
	WorkerConcurrency     int
	OpportunitiesPerSecond float64
	IdempotencyTTL        time.Duration
}

type timelineUseCase struct {
	uow        domain.UnitOfWork
	publisher  ports.EventPublisher
	idempotent ports.IdempotencyCache
	bulk       BulkConfig
	log        *logger.Logger
	clock      func() time.Time
}

// NewTimelineUseCase creates the timeline use case. clock is injected so
// tests can control CalculatedDate/LastUpdated without a wall-clock
// dependency; production callers pass time.Now.
func NewTimelineUseCase(
	uow domain.UnitOfWork,
	publisher ports.EventPublisher,
	idempotent ports.IdempotencyCache,
	bulk BulkConfig,
	log *logger.Logger,
	clock func() time.Time,
) TimelineUseCase {
	return &timelineUseCase{uow: uow, publisher: publisher, idempotent: idempotent, bulk: bulk, log: log, clock: clock}
}

// configSnapshot bundles component A's tables, read once per call.
type configSnapshot struct {
	timelineCategories    []domain.OpportunityCategory
	serviceLineCategories []domain.ServiceLineCategory
	stageEfforts          []domain.ServiceLineStageEffort
	thresholds            []domain.ServiceLineOfferingThreshold
	mappings              []domain.ServiceLineOfferingMapping
}

func loadConfig(ctx context.Context, repo domain.ConfigRepository) (configSnapshot, error) {
	var snap configSnapshot
	var err error
	if snap.timelineCategories, err = repo.OpportunityCategories(ctx); err != nil {
		return snap, err
	}
	if snap.serviceLineCategories, err = repo.ServiceLineCategories(ctx); err != nil {
		return snap, err
	}
	if snap.stageEfforts, err = repo.StageEfforts(ctx); err != nil {
		return snap, err
	}
	if snap.thresholds, err = repo.OfferingThresholds(ctx); err != nil {
		return snap, err
	}
	if snap.mappings, err = repo.OfferingMappings(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

func toTimelineResponse(b domain.TimelineBundle, status domain.ResourceStatus) *dto.TimelineResponse {
	resp := &dto.TimelineResponse{OpportunityID: b.OpportunityID, Category: b.Category, TotalFTE: b.TotalFTE()}
	for _, sl := range b.ServiceLines {
		slResp := dto.ServiceLineTimelineResponse{ServiceLine: string(sl.ServiceLine), ResourceCategory: sl.ResourceCategory}
		for _, iv := range sl.Intervals {
			slResp.Intervals = append(slResp.Intervals, dto.StageIntervalResponse{
				Stage:            string(iv.Stage),
				StartDate:        iv.StartDate,
				EndDate:          iv.EndDate,
				DurationWeeks:    iv.DurationWeeks,
				FTERequired:      iv.FTERequired,
				TotalEffortWeeks: iv.TotalEffortWeeks,
				ResourceStatus:   string(status),
			})
		}
		resp.ServiceLines = append(resp.ServiceLines, slResp)
	}
	return resp
}

func rowsFromBundle(b domain.TimelineBundle, decisionDate time.Time, now time.Time) []domain.ResourceTimeline {
	var rows []domain.ResourceTimeline
	for _, sl := range b.ServiceLines {
		for _, iv := range sl.Intervals {
			rows = append(rows, domain.ResourceTimeline{
				OpportunityID:    b.OpportunityID,
				ServiceLine:      sl.ServiceLine,
				Stage:            iv.Stage,
				StageStartDate:   iv.StartDate,
				StageEndDate:     iv.EndDate,
				DurationWeeks:    iv.DurationWeeks,
				FTERequired:      iv.FTERequired,
				TotalEffortWeeks: iv.TotalEffortWeeks,
				Category:         b.Category,
				ResourceCategory: sl.ResourceCategory,
				DecisionDate:     decisionDate,
				CalculatedDate:   now,
				LastUpdated:      now,
				ResourceStatus:   domain.StatusPredicted,
			})
		}
	}
	return rows
}

// anyOverwriteProtected reports whether existing rows carry a status other
// than Predicted, which compute_timeline must not silently discard.
func anyOverwriteProtected(existing []domain.ResourceTimeline) bool {
	for _, r := range existing {
		if r.ResourceStatus != domain.StatusPredicted {
			return true
		}
	}
	return false
}

// rowsEqual reports whether two row sets carry the same scheduled content,
// ignoring the bookkeeping timestamps a recompute always refreshes
// (calculated_date, last_updated). generate_bulk uses this to keep a
// second identical regeneration a true no-op instead of a reported update.
func rowsEqual(a, b []domain.ResourceTimeline) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(r domain.ResourceTimeline) string {
		return string(r.ServiceLine) + "|" + string(r.Stage)
	}
	byKey := make(map[string]domain.ResourceTimeline, len(a))
	for _, r := range a {
		byKey[key(r)] = r
	}
	for _, r := range b {
		other, ok := byKey[key(r)]
		if !ok {
			return false
		}
		if !r.StageStartDate.Equal(other.StageStartDate) ||
			!r.StageEndDate.Equal(other.StageEndDate) ||
			r.DurationWeeks != other.DurationWeeks ||
			r.FTERequired != other.FTERequired ||
			r.TotalEffortWeeks != other.TotalEffortWeeks ||
			r.Category != other.Category ||
			r.ResourceCategory != other.ResourceCategory ||
			r.ResourceStatus != other.ResourceStatus {
			return false
		}
	}
	return true
}

func (uc *timelineUseCase) computeOne(ctx context.Context, uow domain.UnitOfWork, opportunityID string, force bool, cfg configSnapshot) (domain.TimelineBundle, error) {
	opp, err := uow.Opportunities().GetByID(ctx, opportunityID)
	if err != nil {
		return domain.TimelineBundle{}, application.ErrOpportunityNotFound(opportunityID)
	}
	if opp.DecisionDate == nil {
		return domain.TimelineBundle{}, application.ErrMissingDecisionDate(opportunityID)
	}

	existing, err := uow.Timelines().ByOpportunity(ctx, opportunityID)
	if err != nil {
		return domain.TimelineBundle{}, application.ErrPersistence("read existing timeline", err)
	}
	if anyOverwriteProtected(existing) && !force {
		return domain.TimelineBundle{}, application.ErrOverwriteProtected(opportunityID)
	}

	lineItems, err := uow.Opportunities().LineItems(ctx, opportunityID)
	if err != nil {
		return domain.TimelineBundle{}, application.ErrPersistence("read line items", err)
	}

	bundle, err := domain.BuildTimeline(opp, lineItems, cfg.timelineCategories, cfg.serviceLineCategories, cfg.stageEfforts, cfg.thresholds, cfg.mappings)
	if err != nil {
		return domain.TimelineBundle{}, application.ErrMissingDecisionDate(opportunityID)
	}
	if bundle.TotalFTE() == 0 {
		return domain.TimelineBundle{}, application.ErrZeroEffortTimeline(opportunityID)
	}

	rows := rowsFromBundle(bundle, *opp.DecisionDate, uc.clock())
	if err := uow.Timelines().ReplaceForOpportunity(ctx, opportunityID, rows); err != nil {
		return domain.TimelineBundle{}, application.ErrPersistence("replace timeline", err)
	}
	return bundle, nil
}

// ComputeTimeline implements compute_timeline.
func (uc *timelineUseCase) ComputeTimeline(ctx context.Context, req *dto.ComputeTimelineRequest) (*dto.TimelineResponse, error) {
	uow, err := uc.uow.Begin(ctx)
	if err != nil {
		return nil, application.ErrPersistence("begin transaction", err)
	}
	defer uow.Rollback()

	cfg, err := loadConfig(ctx, uow.Config())
	if err != nil {
		return nil, application.ErrPersistence("load configuration", err)
	}

	bundle, err := uc.computeOne(ctx, uow, req.OpportunityID, req.Force, cfg)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, application.ErrPersistence("commit transaction", err)
	}

	uc.publishTimelineGenerated(ctx, bundle)
	return toTimelineResponse(bundle, domain.StatusPredicted), nil
}

func (uc *timelineUseCase) publishTimelineGenerated(ctx context.Context, bundle domain.TimelineBundle) {
	evt := ports.Event{
		Type:          "forecast.timeline.generated",
		AggregateID:   bundle.OpportunityID,
		AggregateType: "opportunity",
		OccurredAt:    uc.clock(),
		Payload: map[string]interface{}{
			"opportunity_id": bundle.OpportunityID,
			"category":       bundle.Category,
			"total_fte":      bundle.TotalFTE(),
		},
	}
	if err := uc.publisher.Publish(ctx, evt); err != nil {
		uc.log.Warn().Err(err).Str("opportunity_id", bundle.OpportunityID).Msg("failed to publish forecast.timeline.generated")
	}
}

// GetTimeline implements get_timeline: a plain read of the stored rows,
// reassembled into the same response shape compute_timeline returns.
func (uc *timelineUseCase) GetTimeline(ctx context.Context, opportunityID string) (*dto.TimelineResponse, error) {
	rows, err := uc.uow.Timelines().ByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, application.ErrPersistence("read timeline", err)
	}
	if len(rows) == 0 {
		return nil, application.ErrTimelineNotFound(opportunityID)
	}

	resp := &dto.TimelineResponse{OpportunityID: opportunityID, Category: rows[0].Category}
	bySL := make(map[domain.ServiceLine]*dto.ServiceLineTimelineResponse)
	var order []domain.ServiceLine
	for _, r := range rows {
		slResp, ok := bySL[r.ServiceLine]
		if !ok {
			slResp = &dto.ServiceLineTimelineResponse{ServiceLine: string(r.ServiceLine), ResourceCategory: r.ResourceCategory}
			bySL[r.ServiceLine] = slResp
			order = append(order, r.ServiceLine)
		}
		slResp.Intervals = append(slResp.Intervals, dto.StageIntervalResponse{
			Stage:            string(r.Stage),
			StartDate:        r.StageStartDate,
			EndDate:          r.StageEndDate,
			DurationWeeks:    r.DurationWeeks,
			FTERequired:      r.FTERequired,
			TotalEffortWeeks: r.TotalEffortWeeks,
			ResourceStatus:   string(r.ResourceStatus),
		})
		resp.TotalFTE += r.FTERequired
	}
	for _, sl := range order {
		resp.ServiceLines = append(resp.ServiceLines, *bySL[sl])
	}
	return resp, nil
}

// DeleteTimeline implements delete_timeline.
func (uc *timelineUseCase) DeleteTimeline(ctx context.Context, opportunityID string) (*dto.DeleteTimelineResponse, error) {
	n, err := uc.uow.Timelines().DeleteForOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, application.ErrPersistence("delete timeline", err)
	}
	if n == 0 {
		return nil, application.ErrTimelineNotFound(opportunityID)
	}
	return &dto.DeleteTimelineResponse{OpportunityID: opportunityID, RowsDeleted: n}, nil
}

// PatchStatus implements patch_status.
func (uc *timelineUseCase) PatchStatus(ctx context.Context, req *dto.PatchStatusRequest) (*dto.PatchStatusResponse, error) {
	status := domain.ResourceStatus(req.Status)
	if !status.IsValid() {
		return nil, application.ErrInvalidResourceStatus(req.Status)
	}

	var sl *domain.ServiceLine
	if req.ServiceLine != nil {
		v := domain.ServiceLine(*req.ServiceLine)
		sl = &v
	}
	var stage *domain.Stage
	if req.Stage != nil {
		v := domain.Stage(*req.Stage)
		stage = &v
	}

	n, err := uc.uow.Timelines().PatchStatus(ctx, req.OpportunityID, sl, stage, status)
	if err != nil {
		return nil, application.ErrPersistence("patch status", err)
	}
	if n == 0 {
		return nil, application.ErrNoMatchingRows(req.OpportunityID)
	}
	return &dto.PatchStatusResponse{OpportunityID: req.OpportunityID, RowsUpdated: n}, nil
}

// PatchInterval implements patch_interval.
func (uc *timelineUseCase) PatchInterval(ctx context.Context, req *dto.PatchIntervalRequest) (*dto.PatchIntervalResponse, error) {
	patch := domain.IntervalPatch{
		StageStartDate: req.StageStartDate,
		StageEndDate:   req.StageEndDate,
		DurationWeeks:  req.DurationWeeks,
		FTERequired:    req.FTERequired,
	}
	row, err := uc.uow.Timelines().PatchInterval(ctx, req.OpportunityID, domain.ServiceLine(req.ServiceLine), domain.Stage(req.Stage), patch)
	if err != nil {
		return nil, application.ErrPersistence("patch interval", err)
	}
	if row == nil {
		return nil, application.ErrNoMatchingRows(req.OpportunityID)
	}
	return &dto.PatchIntervalResponse{
		OpportunityID:    row.OpportunityID,
		ServiceLine:      string(row.ServiceLine),
		Stage:            string(row.Stage),
		StageStartDate:   row.StageStartDate,
		StageEndDate:     row.StageEndDate,
		DurationWeeks:    row.DurationWeeks,
		FTERequired:      row.FTERequired,
		TotalEffortWeeks: row.TotalEffortWeeks,
		ResourceStatus:   string(row.ResourceStatus),
	}, nil
}

// bulkAction classifies what generate_bulk did for one opportunity.
type bulkAction string

const (
	bulkActionGenerated bulkAction = "generated"
	bulkActionUpdated   bulkAction = "updated"
	bulkActionSkipped   bulkAction = "skipped"
)

// computeOneBulk implements generate_bulk's per-opportunity decision from
// §4.F: an opportunity with no stored rows is generated; one whose stored
// rows are all Predicted is regenerated only when regeneratePredicted is
// set, and only if the recomputed rows actually differ from what's stored
// (a no-op recompute is reported as skipped, not updated, so that running
// bulk generation twice in a row is idempotent on the counts); an
// opportunity carrying any Forecast/Planned row is always skipped,
// regardless of regeneratePredicted — a bulk force flag may never
// authorize overwriting a protected row.
func (uc *timelineUseCase) computeOneBulk(ctx context.Context, opportunityID string, regeneratePredicted bool, cfg configSnapshot) (bulkAction, string, domain.TimelineBundle, error) {
	uow, err := uc.uow.Begin(ctx)
	if err != nil {
		return "", "", domain.TimelineBundle{}, application.ErrPersistence("begin transaction", err)
	}
	defer uow.Rollback()

	opp, err := uow.Opportunities().GetByID(ctx, opportunityID)
	if err != nil {
		return "", "", domain.TimelineBundle{}, application.ErrOpportunityNotFound(opportunityID)
	}
	if opp.DecisionDate == nil {
		return bulkActionSkipped, "missing_decision_date", domain.TimelineBundle{}, nil
	}

	existing, err := uow.Timelines().ByOpportunity(ctx, opportunityID)
	if err != nil {
		return "", "", domain.TimelineBundle{}, application.ErrPersistence("read existing timeline", err)
	}

	if anyOverwriteProtected(existing) {
		return bulkActionSkipped, "overwrite_protected", domain.TimelineBundle{}, nil
	}
	if len(existing) > 0 && !regeneratePredicted {
		return bulkActionSkipped, "existing_predicted_not_regenerated", domain.TimelineBundle{}, nil
	}

	lineItems, err := uow.Opportunities().LineItems(ctx, opportunityID)
	if err != nil {
		return "", "", domain.TimelineBundle{}, application.ErrPersistence("read line items", err)
	}

	bundle, err := domain.BuildTimeline(opp, lineItems, cfg.timelineCategories, cfg.serviceLineCategories, cfg.stageEfforts, cfg.thresholds, cfg.mappings)
	if err != nil {
		return bulkActionSkipped, "missing_decision_date", domain.TimelineBundle{}, nil
	}
	if bundle.TotalFTE() == 0 {
		return bulkActionSkipped, "zero_effort_timeline", domain.TimelineBundle{}, nil
	}

	rows := rowsFromBundle(bundle, *opp.DecisionDate, uc.clock())
	if len(existing) > 0 && rowsEqual(existing, rows) {
		return bulkActionSkipped, "no_op", bundle, nil
	}

	if err := uow.Timelines().ReplaceForOpportunity(ctx, opportunityID, rows); err != nil {
		return "", "", domain.TimelineBundle{}, application.ErrPersistence("replace timeline", err)
	}
	if err := uow.Commit(); err != nil {
		return "", "", domain.TimelineBundle{}, application.ErrPersistence("commit transaction", err)
	}

	if len(existing) == 0 {
		return bulkActionGenerated, "", bundle, nil
	}
	return bulkActionUpdated, "", bundle, nil
}

// GenerateBulk implements generate_bulk: it walks every opportunity the
// store knows about, computes a timeline for each eligible one through a
// bounded worker pool rate-limited independently of worker count, and
// reports how many were generated, updated, skipped, or failed, alongside
// the per-opportunity outcome list §6 requires.
func (uc *timelineUseCase) GenerateBulk(ctx context.Context, req *dto.GenerateBulkRequest) (*dto.GenerateBulkResponse, error) {
	if req.IdempotencyKey != "" {
		if cached, ok, err := uc.idempotent.Get(ctx, req.IdempotencyKey); err == nil && ok {
			var resp dto.GenerateBulkResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				resp.FromCache = true
				return &resp, nil
			}
		}
		won, err := uc.idempotent.Reserve(ctx, req.IdempotencyKey, uc.bulk.IdempotencyTTL)
		if err != nil {
			uc.log.Warn().Err(err).Msg("idempotency reserve failed; proceeding without dedup")
		} else if !won {
			if cached, ok, err := uc.idempotent.Get(ctx, req.IdempotencyKey); err == nil && ok {
				var resp dto.GenerateBulkResponse
				if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
					resp.FromCache = true
					return &resp, nil
				}
			}
		}
	}

	opps, err := uc.uow.Opportunities().ListAll(ctx)
	if err != nil {
		if req.IdempotencyKey != "" {
			_ = uc.idempotent.Release(ctx, req.IdempotencyKey)
		}
		return nil, application.ErrPersistence("list opportunities", err)
	}

	cfg, err := loadConfig(ctx, uc.uow.Config())
	if err != nil {
		if req.IdempotencyKey != "" {
			_ = uc.idempotent.Release(ctx, req.IdempotencyKey)
		}
		return nil, application.ErrPersistence("load configuration", err)
	}

	resp := &dto.GenerateBulkResponse{OpportunitiesConsidered: len(opps)}

	limiter := rate.NewLimiter(rate.Limit(uc.bulk.OpportunitiesPerSecond), 1)
	sem := make(chan struct{}, uc.bulk.WorkerConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := range opps {
		opp := opps[i]
		if !domain.IsEligible(&opp, cfg.timelineCategories, cfg.serviceLineCategories, cfg.stageEfforts) {
			mu.Lock()
			resp.OpportunitiesSkipped++
			resp.Outcomes = append(resp.Outcomes, dto.BulkOpportunityOutcome{OpportunityID: opp.ID, Action: string(bulkActionSkipped), Reason: "ineligible"})
			mu.Unlock()
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(opp domain.Opportunity) {
			defer wg.Done()
			defer func() { <-sem }()

			action, reason, bundle, err := uc.computeOneBulk(ctx, opp.ID, req.RegeneratePredicted, cfg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.OpportunitiesFailed++
				resp.FailedOpportunityIDs = append(resp.FailedOpportunityIDs, opp.ID)
				resp.Outcomes = append(resp.Outcomes, dto.BulkOpportunityOutcome{OpportunityID: opp.ID, Action: "error", Reason: err.Error()})
				uc.log.Error().Err(err).Str("opportunity_id", opp.ID).Msg("generate_bulk: failed to compute timeline")
				return
			}

			resp.Outcomes = append(resp.Outcomes, dto.BulkOpportunityOutcome{OpportunityID: opp.ID, Action: string(action), Reason: reason})
			switch action {
			case bulkActionGenerated:
				resp.OpportunitiesGenerated++
				go uc.publishTimelineGenerated(context.Background(), bundle)
			case bulkActionUpdated:
				resp.OpportunitiesUpdated++
				go uc.publishTimelineGenerated(context.Background(), bundle)
			case bulkActionSkipped:
				resp.OpportunitiesSkipped++
			}
		}(opp)
	}
	wg.Wait()

	uc.publishBulkCompleted(ctx, resp)

	if req.IdempotencyKey != "" {
		if encoded, err := json.Marshal(resp); err == nil {
			if err := uc.idempotent.Store(ctx, req.IdempotencyKey, encoded, uc.bulk.IdempotencyTTL); err != nil {
				uc.log.Warn().Err(err).Msg("failed to store idempotency result")
			}
		}
	}
	return resp, nil
}

func (uc *timelineUseCase) publishBulkCompleted(ctx context.Context, resp *dto.GenerateBulkResponse) {
	evt := ports.Event{
		Type:          "forecast.bulk_generation.completed",
		AggregateID:   "portfolio",
		AggregateType: "portfolio",
		OccurredAt:    uc.clock(),
		Payload: map[string]interface{}{
			"opportunities_considered": resp.OpportunitiesConsidered,
			"opportunities_generated":  resp.OpportunitiesGenerated,
			"opportunities_updated":    resp.OpportunitiesUpdated,
			"opportunities_skipped":    resp.OpportunitiesSkipped,
			"opportunities_failed":     resp.OpportunitiesFailed,
		},
	}
	if err := uc.publisher.Publish(ctx, evt); err != nil {
		uc.log.Warn().Err(err).Msg("failed to publish forecast.bulk_generation.completed")
	}
}

// GenerationStats implements generation_stats, supplemented per
// SPEC_FULL.md with a breakdown of stored rows and covered opportunities by
// resource_status.
func (uc *timelineUseCase) GenerationStats(ctx context.Context) (*dto.GenerationStatsResponse, error) {
	rows, err := uc.uow.Timelines().AllRows(ctx)
	if err != nil {
		return nil, application.ErrPersistence("read all rows", err)
	}

	resp := &dto.GenerationStatsResponse{
		TotalRows:             len(rows),
		RowsByStatus:          map[string]int{},
		OpportunitiesByStatus: map[string]int{},
	}
	opps := map[string]struct{}{}
	oppsByStatus := map[string]map[string]struct{}{}
	for _, r := range rows {
		status := string(r.ResourceStatus)
		resp.RowsByStatus[status]++
		opps[r.OpportunityID] = struct{}{}
		if oppsByStatus[status] == nil {
			oppsByStatus[status] = map[string]struct{}{}
		}
		oppsByStatus[status][r.OpportunityID] = struct{}{}
	}
	resp.TotalOpportunities = len(opps)
	for status, set := range oppsByStatus {
		resp.OpportunitiesByStatus[status] = len(set)
	}
	return resp, nil
}

// ClearPredicted implements clear_predicted.
func (uc *timelineUseCase) ClearPredicted(ctx context.Context, idempotencyKey string) (*dto.ClearPredictedResponse, error) {
	if idempotencyKey != "" {
		if cached, ok, err := uc.idempotent.Get(ctx, idempotencyKey); err == nil && ok {
			var resp dto.ClearPredictedResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				resp.FromCache = true
				return &resp, nil
			}
		}
		won, err := uc.idempotent.Reserve(ctx, idempotencyKey, uc.bulk.IdempotencyTTL)
		if err == nil && !won {
			if cached, ok, err := uc.idempotent.Get(ctx, idempotencyKey); err == nil && ok {
				var resp dto.ClearPredictedResponse
				if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
					resp.FromCache = true
					return &resp, nil
				}
			}
		}
	}

	n, err := uc.uow.Timelines().ClearPredicted(ctx)
	if err != nil {
		if idempotencyKey != "" {
			_ = uc.idempotent.Release(ctx, idempotencyKey)
		}
		return nil, application.ErrPersistence("clear predicted", err)
	}

	resp := &dto.ClearPredictedResponse{RowsDeleted: n}
	if idempotencyKey != "" {
		if encoded, err := json.Marshal(resp); err == nil {
			if err := uc.idempotent.Store(ctx, idempotencyKey, encoded, uc.bulk.IdempotencyTTL); err != nil {
				uc.log.Warn().Err(err).Msg("failed to store idempotency result")
			}
		}
	}
	return resp, nil
}
