package postgresadapter_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	leadclaimengine "leadhub/contexts/lead-distribution/lead-claim-engine"
	"leadhub/contexts/lead-distribution/lead-claim-engine/adapters/memory"
	postgresadapter "leadhub/contexts/lead-distribution/lead-claim-engine/adapters/postgres"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/commands"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
	httptransport "leadhub/contexts/lead-distribution/lead-claim-engine/transport/http"
)

func newPostgresModule(t *testing.T) (leadclaimengine.Module, *postgresadapter.Repository) {
	t.Helper()
	dsn := os.Getenv("LEADHUB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEADHUB_TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	if err := postgresadapter.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgresadapter.NewRepository(db, 2*time.Second, log)
	module := leadclaimengine.NewModule(leadclaimengine.Dependencies{
		Leads:       repo,
		Settings:    repo,
		Catalog:     repo,
		Claims:      repo,
		Idempotency: repo,
		Outbox:      repo,
		Dedup:       repo,
		Locker:      memory.NewLocker(),
		Clock:       postgresadapter.SystemClock{},
		IDGenerator: postgresadapter.UUIDGenerator{},
		LockWait:    2 * time.Second,
		Logger:      log,
	})
	return module, repo
}

func uniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func TestPostgresFirstClaimExclusiveUnderConcurrency(t *testing.T) {
	module, repo := newPostgresModule(t)
	ctx := context.Background()
	city := uniqueID("city")

	tenants := make([]string, 6)
	mode := string(entities.ClaimModeFirstClaimExclusive)
	targets := []string{city}
	for i := range tenants {
		tenants[i] = uniqueID("tenant")
		if _, err := module.Handler.PatchSettings.Execute(ctx, commands.PatchTenantSettingsCommand{
			TenantID:     tenants[i],
			Role:         "owner",
			TargetCities: &targets,
			ClaimMode:    &mode,
		}); err != nil {
			t.Fatalf("configure tenant: %v", err)
		}
	}
	leadID := uniqueID("lead")
	if _, err := module.Ingest.Execute(ctx, commands.IngestLeadCommand{Lead: entities.Lead{
		LeadID:   leadID,
		Name:     "Apex Coaching",
		City:     city,
		Category: "JEE",
	}}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		granted   []string
		conflicts int
	)
	for _, tenantID := range tenants {
		wg.Add(1)
		go func(tenantID string) {
			defer wg.Done()
			_, err := module.Handler.ClaimLeadHandler(ctx, httptransport.Identity{TenantID: tenantID, Role: "manager"}, leadID, "", httptransport.ClaimLeadRequest{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted = append(granted, tenantID)
			case errors.Is(err, domainerrors.ErrClaimConflict):
				conflicts++
			default:
				t.Errorf("tenant %s unexpected error: %v", tenantID, err)
			}
		}(tenantID)
	}
	wg.Wait()

	if len(granted) != 1 || conflicts != len(tenants)-1 {
		t.Fatalf("expected one grant, got granted=%v conflicts=%d", granted, conflicts)
	}

	for _, tenantID := range tenants {
		status := entities.VisibilityLocked
		if tenantID == granted[0] {
			status = entities.VisibilityClaimed
		}
		page, err := module.Handler.ListTenantLeadsHandler(ctx, httptransport.Identity{TenantID: tenantID, Role: "member"}, httptransport.ListTenantLeadsRequest{
			VisibilityStatus: string(status),
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		found := false
		for _, item := range page.Items {
			if item.Lead.LeadID == leadID {
				found = true
			}
		}
		if !found {
			t.Fatalf("tenant %s expected lead in %s catalog", tenantID, status)
		}
	}

	pending, err := repo.ListPendingOutbox(ctx, 1000)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	claimed := 0
	for _, message := range pending {
		if message.EventType == "lead.claimed" && message.PartitionKey == leadID {
			claimed++
		}
	}
	if claimed != 1 {
		t.Fatalf("expected one lead.claimed outbox row, got %d", claimed)
	}
}

func TestPostgresReleaseReopensAndEventDedup(t *testing.T) {
	module, repo := newPostgresModule(t)
	ctx := context.Background()
	city := uniqueID("city")
	mode := string(entities.ClaimModeFirstClaimExclusive)
	targets := []string{city}
	holder, other := uniqueID("tenant"), uniqueID("tenant")
	for _, tenantID := range []string{holder, other} {
		if _, err := module.Handler.PatchSettings.Execute(ctx, commands.PatchTenantSettingsCommand{
			TenantID:     tenantID,
			Role:         "owner",
			TargetCities: &targets,
			ClaimMode:    &mode,
		}); err != nil {
			t.Fatalf("configure tenant: %v", err)
		}
	}
	leadID := uniqueID("lead")
	if _, err := module.Ingest.Execute(ctx, commands.IngestLeadCommand{Lead: entities.Lead{
		LeadID: leadID, Name: "Zenith Tutorials", City: city, Category: "NEET", BaseScore: 60,
	}}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := module.Handler.ClaimLeadHandler(ctx, httptransport.Identity{TenantID: holder, Role: "manager"}, leadID, "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	resp, err := module.Handler.ReleaseClaimHandler(ctx, httptransport.Identity{TenantID: holder, Role: "owner"}, leadID, httptransport.ReleaseClaimRequest{})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(resp.ReopenedTenants) != 2 {
		t.Fatalf("expected both tenants reopened, got %v", resp.ReopenedTenants)
	}
	if _, err := module.Handler.ClaimLeadHandler(ctx, httptransport.Identity{TenantID: other, Role: "manager"}, leadID, "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("reclaim after release: %v", err)
	}

	eventID := uniqueID("evt")
	replayed, err := repo.ReserveEvent(ctx, eventID, "hash", time.Now().Add(time.Hour))
	if err != nil || replayed {
		t.Fatalf("first reservation: replayed=%v err=%v", replayed, err)
	}
	replayed, err = repo.ReserveEvent(ctx, eventID, "hash", time.Now().Add(time.Hour))
	if err != nil || !replayed {
		t.Fatalf("second reservation should report replay: replayed=%v err=%v", replayed, err)
	}
}

func TestPostgresSettingsSaveConvergesAfterPartialReconcile(t *testing.T) {
	module, repo := newPostgresModule(t)
	ctx := context.Background()
	city, nextCity := uniqueID("city"), uniqueID("city")
	tenantID := uniqueID("tenant")
	targets := []string{city}
	if _, err := module.Handler.PatchSettings.Execute(ctx, commands.PatchTenantSettingsCommand{
		TenantID:     tenantID,
		Role:         "owner",
		TargetCities: &targets,
	}); err != nil {
		t.Fatalf("configure tenant: %v", err)
	}
	leadID := uniqueID("lead")
	if _, err := module.Ingest.Execute(ctx, commands.IngestLeadCommand{Lead: entities.Lead{
		LeadID: leadID, Name: "Pinnacle Academy", City: city, Category: "JEE", BaseScore: 50,
	}}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	viewOf := func() entities.TenantLeadView {
		t.Helper()
		var view entities.TenantLeadView
		if _, err := repo.MutateLead(ctx, leadID, func(state services.LeadState) (ports.LeadMutation, error) {
			view = state.Views[tenantID]
			return ports.LeadMutation{}, nil
		}); err != nil {
			t.Fatalf("read view: %v", err)
		}
		return view
	}
	before := viewOf()
	if before.FitScore != 85 {
		t.Fatalf("expected initial fit 85, got %d", before.FitScore)
	}

	retargeted := entities.TenantSettings{
		TenantID:     tenantID,
		TargetCities: []string{nextCity},
		ClaimMode:    entities.ClaimModeMultiTenantShared,
		UpdatedAt:    time.Now().UTC(),
	}.Normalized()
	reconcileErr := errors.New("reconcile interrupted")
	_, err := repo.SaveTenantSettings(ctx, retargeted, func(
		lead entities.Lead,
		existing *entities.TenantLeadView,
		activeClaims []entities.Claim,
	) (entities.TenantLeadView, bool, error) {
		if lead.LeadID == leadID {
			return entities.TenantLeadView{}, false, reconcileErr
		}
		return services.ReconcileTenantView(lead, retargeted, existing, activeClaims, time.Now())
	})
	if !errors.Is(err, reconcileErr) {
		t.Fatalf("expected interrupted reconcile error, got %v", err)
	}
	saved, err := repo.GetTenantSettings(ctx, tenantID)
	if err != nil || len(saved.TargetCities) != 1 || saved.TargetCities[0] != entities.NormalizeKey(nextCity) {
		t.Fatalf("settings should be committed before reconciliation, got %+v (%v)", saved, err)
	}
	if viewOf().FitScore != before.FitScore {
		t.Fatalf("interrupted lead should keep its previous score")
	}

	nextTargets := []string{nextCity}
	if _, err := module.Handler.PatchSettings.Execute(ctx, commands.PatchTenantSettingsCommand{
		TenantID:     tenantID,
		Role:         "owner",
		TargetCities: &nextTargets,
	}); err != nil {
		t.Fatalf("repeat patch: %v", err)
	}
	if got := viewOf().FitScore; got != 50 {
		t.Fatalf("repeat patch should converge to category-only fit 50, got %d", got)
	}
}
