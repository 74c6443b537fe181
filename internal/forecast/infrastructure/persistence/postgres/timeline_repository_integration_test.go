//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gdralph/rfot/internal/forecast/domain"
	"github.com/gdralph/rfot/pkg/testing/containers"
	"github.com/gdralph/rfot/pkg/testing/helpers"
)

// These tests exercise TimelineRepository against a real PostgreSQL
// instance (docker-compose or any reachable TEST_POSTGRES_* target) rather
// than asserting against mocks, matching how the teacher's pkg/database
// integration tests talk to a live container instead of stubbing the driver.
// Run with `go test -tags=integration ./...`; they skip under -short.

func setupTimelineRepo(t *testing.T) (*TimelineRepository, *containers.PostgresContainer) {
	t.Helper()
	helpers.SkipIfShort(t)

	ctx, cancel := helpers.DefaultTestContext()
	defer cancel()

	pg, err := containers.NewPostgresContainer(ctx, containers.PostgresContainerConfig{
		Database: "rfot_test",
		User:     "rfot_test",
		Password: "rfot_test_password",
	})
	helpers.AssertNoError(t, err)

	schema := `
		CREATE TABLE IF NOT EXISTS opportunity_resource_timelines (
			id TEXT PRIMARY KEY,
			opportunity_id TEXT NOT NULL,
			service_line TEXT NOT NULL,
			stage_name TEXT NOT NULL,
			stage_start_date TIMESTAMPTZ NOT NULL,
			stage_end_date TIMESTAMPTZ NOT NULL,
			duration_weeks DOUBLE PRECISION NOT NULL,
			fte_required DOUBLE PRECISION NOT NULL,
			total_effort_weeks DOUBLE PRECISION NOT NULL,
			category TEXT NOT NULL,
			resource_category TEXT NOT NULL,
			decision_date TIMESTAMPTZ NOT NULL,
			calculated_date TIMESTAMPTZ NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
			resource_status TEXT NOT NULL
		)`
	helpers.AssertNoError(t, pg.RunMigrationSQL(ctx, schema))
	helpers.AssertNoError(t, pg.TruncateTables(ctx, "opportunity_resource_timelines"))

	return NewTimelineRepository(pg.GetDB()), pg
}

func TestTimelineRepository_ReplaceAndRead(t *testing.T) {
	repo, pg := setupTimelineRepo(t)
	defer pg.Close()

	ctx := context.Background()
	decision := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	start := decision.AddDate(0, 0, -28)

	rows := []domain.ResourceTimeline{
		{
			OpportunityID:    "opp-1",
			ServiceLine:      domain.ServiceLineMW,
			Stage:            domain.Stage04A,
			StageStartDate:   start,
			StageEndDate:     decision,
			DurationWeeks:    4,
			FTERequired:      0.5,
			TotalEffortWeeks: 2,
			Category:         "Sub $5M",
			ResourceCategory: "Sub $5M",
			DecisionDate:     decision,
			CalculatedDate:   decision,
			ResourceStatus:   domain.StatusPredicted,
		},
	}

	helpers.AssertNoError(t, repo.ReplaceForOpportunity(ctx, "opp-1", rows))

	got, err := repo.ByOpportunity(ctx, "opp-1")
	helpers.AssertNoError(t, err)
	helpers.AssertLen(t, got, 1)
	helpers.AssertEqual(t, domain.StatusPredicted, got[0].ResourceStatus)

	// A second replace must fully supersede the first, not append.
	rows[0].FTERequired = 0.75
	helpers.AssertNoError(t, repo.ReplaceForOpportunity(ctx, "opp-1", rows))
	got, err = repo.ByOpportunity(ctx, "opp-1")
	helpers.AssertNoError(t, err)
	helpers.AssertLen(t, got, 1)
	helpers.AssertEqual(t, 0.75, got[0].FTERequired)
}

func TestTimelineRepository_PatchStatusNarrowing(t *testing.T) {
	repo, pg := setupTimelineRepo(t)
	defer pg.Close()

	ctx := context.Background()
	decision := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := []domain.ResourceTimeline{
		{OpportunityID: "opp-2", ServiceLine: domain.ServiceLineMW, Stage: domain.Stage04A,
			StageStartDate: decision, StageEndDate: decision, Category: "Sub $5M", ResourceCategory: "Sub $5M",
			DecisionDate: decision, CalculatedDate: decision, ResourceStatus: domain.StatusPredicted},
		{OpportunityID: "opp-2", ServiceLine: domain.ServiceLineITOC, Stage: domain.Stage04A,
			StageStartDate: decision, StageEndDate: decision, Category: "Sub $5M", ResourceCategory: "Sub $5M",
			DecisionDate: decision, CalculatedDate: decision, ResourceStatus: domain.StatusPredicted},
	}
	helpers.AssertNoError(t, repo.ReplaceForOpportunity(ctx, "opp-2", rows))

	mw := domain.ServiceLineMW
	n, err := repo.PatchStatus(ctx, "opp-2", &mw, nil, domain.StatusForecast)
	helpers.AssertNoError(t, err)
	helpers.AssertEqual(t, 1, n)

	got, err := repo.ByOpportunity(ctx, "opp-2")
	helpers.AssertNoError(t, err)
	for _, row := range got {
		if row.ServiceLine == domain.ServiceLineMW {
			helpers.AssertEqual(t, domain.StatusForecast, row.ResourceStatus)
		} else {
			helpers.AssertEqual(t, domain.StatusPredicted, row.ResourceStatus)
		}
	}
}

func TestTimelineRepository_ClearPredictedOnlyDropsPredicted(t *testing.T) {
	repo, pg := setupTimelineRepo(t)
	defer pg.Close()

	ctx := context.Background()
	decision := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	helpers.AssertNoError(t, repo.ReplaceForOpportunity(ctx, "opp-3", []domain.ResourceTimeline{
		{OpportunityID: "opp-3", ServiceLine: domain.ServiceLineMW, Stage: domain.Stage04A,
			StageStartDate: decision, StageEndDate: decision, Category: "Sub $5M", ResourceCategory: "Sub $5M",
			DecisionDate: decision, CalculatedDate: decision, ResourceStatus: domain.StatusPredicted},
	}))
	helpers.AssertNoError(t, repo.ReplaceForOpportunity(ctx, "opp-4", []domain.ResourceTimeline{
		{OpportunityID: "opp-4", ServiceLine: domain.ServiceLineMW, Stage: domain.Stage04A,
			StageStartDate: decision, StageEndDate: decision, Category: "Sub $5M", ResourceCategory: "Sub $5M",
			DecisionDate: decision, CalculatedDate: decision, ResourceStatus: domain.StatusPlanned},
	}))

	n, err := repo.ClearPredicted(ctx)
	helpers.AssertNoError(t, err)
	helpers.AssertEqual(t, 1, n)

	remaining, err := repo.AllRows(ctx)
	helpers.AssertNoError(t, err)
	helpers.AssertLen(t, remaining, 1)
	helpers.AssertEqual(t, "opp-4", remaining[0].OpportunityID)
}
