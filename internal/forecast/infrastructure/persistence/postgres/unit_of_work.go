package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gdralph/rfot/internal/forecast/domain"
)

// UnitOfWork implements domain.UnitOfWork by binding the three repository
// structs to a context that may or may not carry an active transaction.
// A zero-value UnitOfWork (no bound ctx) serves read-only verbs directly
// against db; Begin returns one bound to a fresh transaction for the
// write-heavy verbs in §5.
type UnitOfWork struct {
	db  *sqlx.DB
	tm  *TransactionManager
	ctx context.Context

	config        *ConfigRepository
	opportunities *OpportunityRepository
	timelines     *TimelineRepository
}

// NewUnitOfWork creates the root, non-transactional UnitOfWork.
func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{
		db:            db,
		tm:            NewTransactionManager(db),
		config:        NewConfigRepository(db),
		opportunities: NewOpportunityRepository(db),
		timelines:     NewTimelineRepository(db),
	}
}

// Begin opens a new transaction and returns a UnitOfWork whose repository
// calls must be made with the returned instance, not the receiver.
func (u *UnitOfWork) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	txCtx, err := u.tm.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{
		db:            u.db,
		tm:            u.tm,
		ctx:           txCtx,
		config:        u.config,
		opportunities: u.opportunities,
		timelines:     u.timelines,
	}, nil
}

// Commit commits the bound transaction. Calling Commit on a UnitOfWork
// that was never produced by Begin is a programmer error.
func (u *UnitOfWork) Commit() error {
	return u.tm.CommitTx(u.ctx)
}

// Rollback rolls back the bound transaction. It is safe to call after a
// successful Commit (no-op), matching the defer-after-conditional-commit
// pattern usecases rely on.
func (u *UnitOfWork) Rollback() error {
	return u.tm.RollbackTx(u.ctx)
}

// Config returns the configuration repository, transaction-scoped when
// this UnitOfWork was produced by Begin.
func (u *UnitOfWork) Config() domain.ConfigRepository {
	return &scopedConfigRepository{repo: u.config, ctx: u.ctx}
}

// Opportunities returns the opportunity repository, transaction-scoped
// when this UnitOfWork was produced by Begin.
func (u *UnitOfWork) Opportunities() domain.OpportunityRepository {
	return &scopedOpportunityRepository{repo: u.opportunities, ctx: u.ctx}
}

// Timelines returns the timeline repository, transaction-scoped when this
// UnitOfWork was produced by Begin.
func (u *UnitOfWork) Timelines() domain.TimelineRepository {
	return &scopedTimelineRepository{repo: u.timelines, ctx: u.ctx}
}

// The scoped*Repository wrappers exist because the repositories
// themselves take ctx per-call (so getExecutor can dispatch tx-or-db),
// while domain.UnitOfWork hands out repositories already bound to one
// request's context. A wrapper built from a transactional UnitOfWork
// (produced by Begin) always uses its own bound ctx, so nested Begin
// calls never leak a parent's un-transacted context into a child
// repository call. A wrapper built from the root UnitOfWork has no bound
// ctx of its own and falls back to whatever ctx the caller passes, so
// read-only verbs that never call Begin still propagate cancellation and
// deadlines from the inbound request.

func chooseCtx(bound, fallback context.Context) context.Context {
	if bound != nil {
		return bound
	}
	return fallback
}

type scopedConfigRepository struct {
	repo *ConfigRepository
	ctx  context.Context
}

func (s *scopedConfigRepository) OpportunityCategories(ctx context.Context) ([]domain.OpportunityCategory, error) {
	return s.repo.OpportunityCategories(chooseCtx(s.ctx, ctx))
}

func (s *scopedConfigRepository) ServiceLineCategories(ctx context.Context) ([]domain.ServiceLineCategory, error) {
	return s.repo.ServiceLineCategories(chooseCtx(s.ctx, ctx))
}

func (s *scopedConfigRepository) StageEfforts(ctx context.Context) ([]domain.ServiceLineStageEffort, error) {
	return s.repo.StageEfforts(chooseCtx(s.ctx, ctx))
}

func (s *scopedConfigRepository) OfferingThresholds(ctx context.Context) ([]domain.ServiceLineOfferingThreshold, error) {
	return s.repo.OfferingThresholds(chooseCtx(s.ctx, ctx))
}

func (s *scopedConfigRepository) OfferingMappings(ctx context.Context) ([]domain.ServiceLineOfferingMapping, error) {
	return s.repo.OfferingMappings(chooseCtx(s.ctx, ctx))
}

type scopedOpportunityRepository struct {
	repo *OpportunityRepository
	ctx  context.Context
}

func (s *scopedOpportunityRepository) GetByID(ctx context.Context, opportunityID string) (*domain.Opportunity, error) {
	return s.repo.GetByID(chooseCtx(s.ctx, ctx), opportunityID)
}

func (s *scopedOpportunityRepository) LineItems(ctx context.Context, opportunityID string) ([]domain.OpportunityLineItem, error) {
	return s.repo.LineItems(chooseCtx(s.ctx, ctx), opportunityID)
}

func (s *scopedOpportunityRepository) ListAll(ctx context.Context) ([]domain.Opportunity, error) {
	return s.repo.ListAll(chooseCtx(s.ctx, ctx))
}

type scopedTimelineRepository struct {
	repo *TimelineRepository
	ctx  context.Context
}

func (s *scopedTimelineRepository) ByOpportunity(ctx context.Context, opportunityID string) ([]domain.ResourceTimeline, error) {
	return s.repo.ByOpportunity(chooseCtx(s.ctx, ctx), opportunityID)
}

func (s *scopedTimelineRepository) ReplaceForOpportunity(ctx context.Context, opportunityID string, rows []domain.ResourceTimeline) error {
	return s.repo.ReplaceForOpportunity(chooseCtx(s.ctx, ctx), opportunityID, rows)
}

func (s *scopedTimelineRepository) DeleteForOpportunity(ctx context.Context, opportunityID string) (int, error) {
	return s.repo.DeleteForOpportunity(chooseCtx(s.ctx, ctx), opportunityID)
}

func (s *scopedTimelineRepository) PatchStatus(ctx context.Context, opportunityID string, sl *domain.ServiceLine, stage *domain.Stage, status domain.ResourceStatus) (int, error) {
	return s.repo.PatchStatus(chooseCtx(s.ctx, ctx), opportunityID, sl, stage, status)
}

func (s *scopedTimelineRepository) PatchInterval(ctx context.Context, opportunityID string, sl domain.ServiceLine, stage domain.Stage, patch domain.IntervalPatch) (*domain.ResourceTimeline, error) {
	return s.repo.PatchInterval(chooseCtx(s.ctx, ctx), opportunityID, sl, stage, patch)
}

func (s *scopedTimelineRepository) AllRows(ctx context.Context) ([]domain.ResourceTimeline, error) {
	return s.repo.AllRows(chooseCtx(s.ctx, ctx))
}

func (s *scopedTimelineRepository) ClearPredicted(ctx context.Context) (int, error) {
	return s.repo.ClearPredicted(chooseCtx(s.ctx, ctx))
}

func (s *scopedTimelineRepository) Bounds(ctx context.Context) (earliest, latest *time.Time, byServiceLine map[domain.ServiceLine]domain.ServiceLineBounds, err error) {
	return s.repo.Bounds(chooseCtx(s.ctx, ctx))
}
