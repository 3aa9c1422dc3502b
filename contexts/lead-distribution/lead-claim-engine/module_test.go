package leadclaimengine_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	leadclaimengine "leadhub/contexts/lead-distribution/lead-claim-engine"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/commands"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	httptransport "leadhub/contexts/lead-distribution/lead-claim-engine/transport/http"
)

func newTestModule() leadclaimengine.Module {
	return leadclaimengine.NewInMemoryModule(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func configureTenant(
	t *testing.T,
	module leadclaimengine.Module,
	tenantID string,
	mode entities.ClaimMode,
	minimumScore int,
	cities ...string,
) {
	t.Helper()
	modeValue := string(mode)
	targets := append([]string{}, cities...)
	_, err := module.Handler.PatchSettings.Execute(context.Background(), commands.PatchTenantSettingsCommand{
		TenantID:     tenantID,
		Role:         "owner",
		TargetCities: &targets,
		MinimumScore: &minimumScore,
		ClaimMode:    &modeValue,
	})
	if err != nil {
		t.Fatalf("configure tenant %s: %v", tenantID, err)
	}
}

func ingestLead(t *testing.T, module leadclaimengine.Module, lead entities.Lead) {
	t.Helper()
	if lead.Name == "" {
		lead.Name = "Coaching " + lead.LeadID
	}
	if lead.Category == "" {
		lead.Category = "JEE"
	}
	if lead.City == "" {
		lead.City = "Delhi"
	}
	if _, err := module.Ingest.Execute(context.Background(), commands.IngestLeadCommand{Lead: lead}); err != nil {
		t.Fatalf("ingest lead %s: %v", lead.LeadID, err)
	}
}

func identity(tenantID string) httptransport.Identity {
	return httptransport.Identity{TenantID: tenantID, Role: "manager", UserID: "user-" + tenantID}
}

func claimConcurrently(module leadclaimengine.Module, leadID string, tenants []string) map[string]error {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]error, len(tenants))
		start   = make(chan struct{})
	)
	for _, tenantID := range tenants {
		wg.Add(1)
		go func(tenantID string) {
			defer wg.Done()
			<-start
			_, err := module.Handler.ClaimLeadHandler(context.Background(), identity(tenantID), leadID, "", httptransport.ClaimLeadRequest{})
			mu.Lock()
			results[tenantID] = err
			mu.Unlock()
		}(tenantID)
	}
	close(start)
	wg.Wait()
	return results
}

func tenantIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%02d", prefix, i)
	}
	return ids
}

func TestConcurrentSharedClaimsAllSucceed(t *testing.T) {
	module := newTestModule()
	tenants := tenantIDs("shared", 12)
	for _, tenantID := range tenants {
		configureTenant(t, module, tenantID, entities.ClaimModeMultiTenantShared, 0)
	}
	ingestLead(t, module, entities.Lead{LeadID: "lead-shared", BaseScore: 50})

	for tenantID, err := range claimConcurrently(module, "lead-shared", tenants) {
		if err != nil {
			t.Fatalf("tenant %s claim failed: %v", tenantID, err)
		}
	}
	for _, tenantID := range tenants {
		view, ok := module.Store.View(tenantID, "lead-shared")
		if !ok || view.VisibilityStatus != entities.VisibilityClaimed {
			t.Fatalf("tenant %s expected CLAIMED, got %+v", tenantID, view)
		}
	}
}

func TestConcurrentFirstClaimExclusiveHasSingleWinner(t *testing.T) {
	module := newTestModule()
	tenants := tenantIDs("exclusive", 12)
	for _, tenantID := range tenants {
		configureTenant(t, module, tenantID, entities.ClaimModeFirstClaimExclusive, 0)
	}
	ingestLead(t, module, entities.Lead{LeadID: "lead-hot", BaseScore: 50})

	winner := ""
	conflicts := 0
	for tenantID, err := range claimConcurrently(module, "lead-hot", tenants) {
		switch {
		case err == nil:
			if winner != "" {
				t.Fatalf("two winners: %s and %s", winner, tenantID)
			}
			winner = tenantID
		case errors.Is(err, domainerrors.ErrClaimConflict):
			conflicts++
		default:
			t.Fatalf("tenant %s unexpected error: %v", tenantID, err)
		}
	}
	if winner == "" || conflicts != len(tenants)-1 {
		t.Fatalf("expected one winner and %d conflicts, got winner=%q conflicts=%d", len(tenants)-1, winner, conflicts)
	}

	for _, tenantID := range tenants {
		view, _ := module.Store.View(tenantID, "lead-hot")
		want := entities.VisibilityLocked
		if tenantID == winner {
			want = entities.VisibilityClaimed
		}
		if view.VisibilityStatus != want || view.ClaimedByTenantID != winner {
			t.Fatalf("tenant %s expected %s held by %s, got %+v", tenantID, want, winner, view)
		}
	}

	claimed := 0
	for _, event := range module.Store.OutboxEvents() {
		if event.EventType == "lead.claimed" {
			claimed++
		}
	}
	if claimed != 1 {
		t.Fatalf("expected one lead.claimed event, got %d", claimed)
	}
}

func TestConcurrentRegionExclusiveOneWinnerPerRegion(t *testing.T) {
	module := newTestModule()
	north := tenantIDs("rohini", 5)
	west := tenantIDs("dwarka", 5)
	for _, tenantID := range north {
		configureTenant(t, module, tenantID, entities.ClaimModeRegionExclusive, 0, "Rohini")
	}
	for _, tenantID := range west {
		configureTenant(t, module, tenantID, entities.ClaimModeRegionExclusive, 0, "Dwarka")
	}
	ingestLead(t, module, entities.Lead{LeadID: "lead-region", Localities: []string{"Rohini", "Dwarka"}, BaseScore: 40})

	results := claimConcurrently(module, "lead-region", append(append([]string{}, north...), west...))
	for _, group := range [][]string{north, west} {
		granted := 0
		for _, tenantID := range group {
			err := results[tenantID]
			if err == nil {
				granted++
				continue
			}
			if !errors.Is(err, domainerrors.ErrClaimConflict) {
				t.Fatalf("tenant %s unexpected error: %v", tenantID, err)
			}
		}
		if granted != 1 {
			t.Fatalf("expected exactly one grant in region of %s, got %d", group[0], granted)
		}
	}
}

func TestReleaseReopensLockedTenants(t *testing.T) {
	module := newTestModule()
	for _, tenantID := range []string{"tenant-a", "tenant-b", "tenant-c"} {
		configureTenant(t, module, tenantID, entities.ClaimModeFirstClaimExclusive, 50)
	}
	ingestLead(t, module, entities.Lead{LeadID: "lead-1", BaseScore: 60})

	if _, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-1", "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	editor := httptransport.Identity{TenantID: "tenant-a", Role: "editor"}
	if _, err := module.Handler.ReleaseClaimHandler(context.Background(), editor, "lead-1", httptransport.ReleaseClaimRequest{}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected editor release to be forbidden, got %v", err)
	}
	if _, err := module.Handler.ReleaseClaimHandler(context.Background(), identity("tenant-b"), "lead-1", httptransport.ReleaseClaimRequest{}); !errors.Is(err, domainerrors.ErrClaimNotFound) {
		t.Fatalf("expected release by non-holder to fail, got %v", err)
	}

	resp, err := module.Handler.ReleaseClaimHandler(context.Background(), identity("tenant-a"), "lead-1", httptransport.ReleaseClaimRequest{})
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if resp.Reason != "disposition_reset" {
		t.Fatalf("expected default reason, got %q", resp.Reason)
	}
	if len(resp.ReopenedTenants) != 3 {
		t.Fatalf("expected 3 reopened views, got %v", resp.ReopenedTenants)
	}
	for _, tenantID := range []string{"tenant-a", "tenant-b", "tenant-c"} {
		view, _ := module.Store.View(tenantID, "lead-1")
		if view.VisibilityStatus != entities.VisibilityAvailable || view.FitScore != 88 {
			t.Fatalf("tenant %s expected AVAILABLE with fit 88, got %+v", tenantID, view)
		}
	}

	if _, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-b"), "lead-1", "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("reclaim after release failed: %v", err)
	}
}

func TestLockedTenantLosesLeadFromAvailableCatalog(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeFirstClaimExclusive, 50)
	configureTenant(t, module, "tenant-b", entities.ClaimModeFirstClaimExclusive, 50)
	ingestLead(t, module, entities.Lead{LeadID: "lead-l"})

	available := httptransport.ListTenantLeadsRequest{VisibilityStatus: "AVAILABLE"}
	for _, tenantID := range []string{"tenant-a", "tenant-b"} {
		page, err := module.Handler.ListTenantLeadsHandler(context.Background(), identity(tenantID), available)
		if err != nil {
			t.Fatalf("list for %s failed: %v", tenantID, err)
		}
		if len(page.Items) != 1 || page.Items[0].FitScore != 70 {
			t.Fatalf("tenant %s expected lead-l with fit 70, got %+v", tenantID, page.Items)
		}
	}

	if _, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-l", "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("tenant-a claim failed: %v", err)
	}

	page, err := module.Handler.ListTenantLeadsHandler(context.Background(), identity("tenant-b"), available)
	if err != nil {
		t.Fatalf("list for tenant-b failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("tenant-b must no longer see lead-l as AVAILABLE, got %+v", page.Items)
	}
	unfiltered, err := module.Handler.ListTenantLeadsHandler(context.Background(), identity("tenant-b"), httptransport.ListTenantLeadsRequest{})
	if err != nil {
		t.Fatalf("unfiltered list failed: %v", err)
	}
	if len(unfiltered.Items) != 0 {
		t.Fatalf("locked leads are hidden from the default catalog, got %+v", unfiltered.Items)
	}

	_, err = module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-b"), "lead-l", "", httptransport.ClaimLeadRequest{})
	if !errors.Is(err, domainerrors.ErrClaimConflict) {
		t.Fatalf("expected claim conflict for tenant-b, got %v", err)
	}
}

func TestExclusiveTenantNeverSeesUnclaimableLeadAsAvailable(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "excl-a", entities.ClaimModeFirstClaimExclusive, 0)
	configureTenant(t, module, "shared-c", entities.ClaimModeMultiTenantShared, 0)
	configureTenant(t, module, "region-n", entities.ClaimModeRegionExclusive, 0, "Noida")
	ingestLead(t, module, entities.Lead{LeadID: "lead-x"})
	ingestLead(t, module, entities.Lead{LeadID: "lead-y", City: "Noida"})

	for tenantID, leadID := range map[string]string{"shared-c": "lead-x", "region-n": "lead-y"} {
		if _, err := module.Handler.ClaimLeadHandler(context.Background(), identity(tenantID), leadID, "", httptransport.ClaimLeadRequest{}); err != nil {
			t.Fatalf("%s claim on %s failed: %v", tenantID, leadID, err)
		}
	}

	page, err := module.Handler.ListTenantLeadsHandler(context.Background(), identity("excl-a"), httptransport.ListTenantLeadsRequest{VisibilityStatus: "AVAILABLE"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("excl-a must not see claimed leads as AVAILABLE, got %+v", page.Items)
	}
	for _, leadID := range []string{"lead-x", "lead-y"} {
		view, _ := module.Store.View("excl-a", leadID)
		if view.VisibilityStatus != entities.VisibilityLocked {
			t.Fatalf("excl-a view of %s expected LOCKED, got %s", leadID, view.VisibilityStatus)
		}
		_, err := module.Handler.ClaimLeadHandler(context.Background(), identity("excl-a"), leadID, "", httptransport.ClaimLeadRequest{})
		if !errors.Is(err, domainerrors.ErrClaimConflict) {
			t.Fatalf("excl-a claim on %s expected conflict, got %v", leadID, err)
		}
	}

	if _, err := module.Handler.ReleaseClaimHandler(context.Background(), identity("shared-c"), "lead-x", httptransport.ReleaseClaimRequest{}); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	view, _ := module.Store.View("excl-a", "lead-x")
	if view.VisibilityStatus != entities.VisibilityAvailable {
		t.Fatalf("excl-a view should reopen after release, got %s", view.VisibilityStatus)
	}
	if _, err := module.Handler.ClaimLeadHandler(context.Background(), identity("excl-a"), "lead-x", "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("excl-a claim after release failed: %v", err)
	}
}

func TestCatalogPaginationSurvivesMidPaginationIngestion(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeMultiTenantShared, 50, "Pune")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eligible := map[string]bool{}
	for i := 0; i < 70; i++ {
		lead := entities.Lead{
			LeadID:    fmt.Sprintf("lead-%03d", i),
			City:      "Pune",
			BaseScore: 20,
			// Pairs share a timestamp so the lead id tiebreak is exercised.
			CreatedAt: base.Add(time.Duration(i/2) * time.Minute),
		}
		if i%7 == 0 {
			lead.City = "Nagpur"
			lead.Category = "UPSC"
		} else {
			eligible[lead.LeadID] = true
		}
		ingestLead(t, module, lead)
	}

	seen := map[string]int{}
	cursor := ""
	for page := 0; ; page++ {
		resp, err := module.Handler.ListTenantLeadsHandler(context.Background(), identity("tenant-a"), httptransport.ListTenantLeadsRequest{
			Cursor:           cursor,
			Limit:            25,
			VisibilityStatus: "AVAILABLE",
		})
		if err != nil {
			t.Fatalf("page %d failed: %v", page, err)
		}
		if len(resp.Items) > 25 {
			t.Fatalf("page %d exceeded limit: %d", page, len(resp.Items))
		}
		for _, item := range resp.Items {
			seen[item.Lead.LeadID]++
			if item.FitScore < 50 {
				t.Fatalf("lead %s below minimum score surfaced with fit %d", item.Lead.LeadID, item.FitScore)
			}
		}
		if page == 0 {
			for i := 0; i < 5; i++ {
				ingestLead(t, module, entities.Lead{
					LeadID:    fmt.Sprintf("late-new-%d", i),
					City:      "Pune",
					CreatedAt: base.Add(48 * time.Hour),
				})
				ingestLead(t, module, entities.Lead{
					LeadID:    fmt.Sprintf("late-old-%d", i),
					City:      "Pune",
					CreatedAt: base.Add(-time.Hour),
				})
			}
		}
		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	for leadID, count := range seen {
		if count != 1 {
			t.Fatalf("lead %s returned %d times", leadID, count)
		}
	}
	for leadID := range eligible {
		if seen[leadID] != 1 {
			t.Fatalf("eligible lead %s was never returned", leadID)
		}
	}
	for i := 0; i < 5; i++ {
		if seen[fmt.Sprintf("late-new-%d", i)] != 0 {
			t.Fatalf("lead newer than the first page cursor must not appear later")
		}
	}
}

func TestCatalogRejectsInvalidFilters(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeMultiTenantShared, 0)

	tooHigh := 101
	for _, req := range []httptransport.ListTenantLeadsRequest{
		{Limit: 101},
		{Limit: -1},
		{VisibilityStatus: "ARCHIVED"},
		{MinFitScore: &tooHigh},
		{Cursor: "garbage!"},
	} {
		_, err := module.Handler.ListTenantLeadsHandler(context.Background(), identity("tenant-a"), req)
		if !errors.Is(err, domainerrors.ErrInvalidListFilter) && !errors.Is(err, domainerrors.ErrInvalidCursor) {
			t.Fatalf("request %+v expected validation error, got %v", req, err)
		}
	}

	outsider := httptransport.Identity{TenantID: "tenant-a", Role: "guest"}
	if _, err := module.Handler.ListTenantLeadsHandler(context.Background(), outsider, httptransport.ListTenantLeadsRequest{}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}
}

func TestClaimLeadIdempotencyReplay(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeFirstClaimExclusive, 0)
	ingestLead(t, module, entities.Lead{LeadID: "lead-1"})

	first, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-1", "idem-1", httptransport.ClaimLeadRequest{})
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	second, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-1", "idem-1", httptransport.ClaimLeadRequest{})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed || second.Claim.ClaimID != first.Claim.ClaimID {
		t.Fatalf("expected replay of %s, got %+v", first.Claim.ClaimID, second)
	}

	_, err = module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-1", "idem-1", httptransport.ClaimLeadRequest{LockMode: "FIRST_CLAIM_EXCLUSIVE"})
	if !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected idempotency conflict for different payload, got %v", err)
	}
}

func TestIdempotencyKeysAreScopedToTenant(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-1", entities.ClaimModeMultiTenantShared, 0)
	configureTenant(t, module, "tenant-2", entities.ClaimModeMultiTenantShared, 0)
	ingestLead(t, module, entities.Lead{LeadID: "lead-i"})
	ingestLead(t, module, entities.Lead{LeadID: "lead-j"})

	first, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-1"), "lead-i", "req-1", httptransport.ClaimLeadRequest{})
	if err != nil {
		t.Fatalf("tenant-1 claim failed: %v", err)
	}
	second, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-2"), "lead-j", "req-1", httptransport.ClaimLeadRequest{})
	if err != nil {
		t.Fatalf("tenant-2 claim with the same key failed: %v", err)
	}
	if second.Replayed || second.Claim.ClaimID == first.Claim.ClaimID || second.Claim.TenantID != "tenant-2" {
		t.Fatalf("tenant-2 must get its own claim, got %+v", second)
	}

	again, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-1"), "lead-i", "req-1", httptransport.ClaimLeadRequest{})
	if err != nil || !again.Replayed || again.Claim.ClaimID != first.Claim.ClaimID {
		t.Fatalf("tenant-1 retry should replay %s, got %+v (%v)", first.Claim.ClaimID, again, err)
	}
}

func TestConcurrentRetriesWithSameKeyReplayOneClaim(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeMultiTenantShared, 0)
	ingestLead(t, module, entities.Lead{LeadID: "lead-r"})

	const retries = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]httptransport.ClaimLeadResponse, retries)
		errs    = make([]error, retries)
	)
	for i := 0; i < retries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-r", "retry-key", httptransport.ClaimLeadRequest{})
		}(i)
	}
	close(start)
	wg.Wait()

	claimID := ""
	fresh := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("retry %d failed: %v", i, errs[i])
		}
		if !results[i].Replayed {
			fresh++
		}
		if claimID == "" {
			claimID = results[i].Claim.ClaimID
		}
		if results[i].Claim.ClaimID != claimID {
			t.Fatalf("retries returned different claims: %s and %s", claimID, results[i].Claim.ClaimID)
		}
	}
	if fresh != 1 {
		t.Fatalf("expected exactly one fresh claim, got %d", fresh)
	}
}

func TestClaimLeadValidationHasNoSideEffects(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeFirstClaimExclusive, 0)
	configureTenant(t, module, "tenant-strict", entities.ClaimModeMultiTenantShared, 95)
	ingestLead(t, module, entities.Lead{LeadID: "lead-1"})

	cases := []struct {
		name     string
		identity httptransport.Identity
		req      httptransport.ClaimLeadRequest
		leadID   string
		want     error
	}{
		{"member cannot claim", httptransport.Identity{TenantID: "tenant-a", Role: "member"}, httptransport.ClaimLeadRequest{}, "lead-1", domainerrors.ErrForbidden},
		{"unknown lock mode", identity("tenant-a"), httptransport.ClaimLeadRequest{LockMode: "ROUND_ROBIN"}, "lead-1", domainerrors.ErrInvalidClaimRequest},
		{"lock mode mismatch", identity("tenant-a"), httptransport.ClaimLeadRequest{LockMode: "REGION_EXCLUSIVE"}, "lead-1", domainerrors.ErrInvalidLockMode},
		{"unknown lead", identity("tenant-a"), httptransport.ClaimLeadRequest{}, "lead-missing", domainerrors.ErrLeadNotFound},
		{"below minimum score", identity("tenant-strict"), httptransport.ClaimLeadRequest{}, "lead-1", domainerrors.ErrNotEligible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := module.Handler.ClaimLeadHandler(context.Background(), tc.identity, tc.leadID, "", tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	view, _ := module.Store.View("tenant-a", "lead-1")
	if view.VisibilityStatus != entities.VisibilityAvailable {
		t.Fatalf("rejected claims must not change state, got %s", view.VisibilityStatus)
	}
	if len(module.Store.OutboxEvents()) != 0 {
		t.Fatalf("rejected claims must not emit events")
	}
}

func TestPatchSettingsReconcilesAvailableViewsOnly(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeMultiTenantShared, 0, "Pune")
	ingestLead(t, module, entities.Lead{LeadID: "lead-pune", City: "Pune", BaseScore: 100})
	ingestLead(t, module, entities.Lead{LeadID: "lead-claimed", City: "Pune", BaseScore: 100})

	if _, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-claimed", "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	cities := []string{"Mumbai"}
	categories := []string{"NEET"}
	resp, err := module.Handler.PatchTenantSettingsHandler(context.Background(), httptransport.Identity{TenantID: "tenant-a", Role: "owner"}, httptransport.PatchTenantSettingsRequest{
		TargetCities:     &cities,
		TargetCategories: &categories,
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if resp.ViewsUpdated != 1 {
		t.Fatalf("expected only the available view to be reconciled, got %d", resp.ViewsUpdated)
	}

	available, _ := module.Store.View("tenant-a", "lead-pune")
	if available.FitScore != 0 {
		t.Fatalf("expected no-overlap fit 0 after retargeting, got %d", available.FitScore)
	}
	claimed, _ := module.Store.View("tenant-a", "lead-claimed")
	if claimed.VisibilityStatus != entities.VisibilityClaimed || claimed.FitScore != 100 {
		t.Fatalf("claimed view must be untouched, got %+v", claimed)
	}

	if _, err := module.Handler.PatchTenantSettingsHandler(context.Background(), httptransport.Identity{TenantID: "tenant-a", Role: "manager"}, httptransport.PatchTenantSettingsRequest{}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected manager patch to be forbidden, got %v", err)
	}
}

func TestNewTenantSeesExistingLeadsLockedBehindExclusiveClaim(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeFirstClaimExclusive, 0)
	ingestLead(t, module, entities.Lead{LeadID: "lead-1"})
	if _, err := module.Handler.ClaimLeadHandler(context.Background(), identity("tenant-a"), "lead-1", "", httptransport.ClaimLeadRequest{}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	configureTenant(t, module, "tenant-late", entities.ClaimModeMultiTenantShared, 0)
	view, ok := module.Store.View("tenant-late", "lead-1")
	if !ok || view.VisibilityStatus != entities.VisibilityLocked || view.ClaimedByTenantID != "tenant-a" {
		t.Fatalf("expected late tenant locked behind tenant-a, got %+v", view)
	}
}

func TestRecalculateScoreRefreshesAvailableViews(t *testing.T) {
	module := newTestModule()
	configureTenant(t, module, "tenant-a", entities.ClaimModeMultiTenantShared, 0)
	ingestLead(t, module, entities.Lead{
		LeadID:          "lead-1",
		Phone:           "+91-9000000000",
		Email:           "desk@apex.example",
		Rating:          5,
		ReviewCount:     100,
		EngagementCount: 20,
		LastActivityAt:  time.Now().UTC(),
	})

	if _, err := module.Handler.RecalculateScoreHandler(context.Background(), identity("tenant-a"), "lead-1"); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected manager recalculation to be forbidden, got %v", err)
	}

	resp, err := module.Handler.RecalculateScoreHandler(context.Background(), httptransport.Identity{TenantID: "tenant-a", Role: "owner"}, "lead-1")
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if resp.BaseScore < 85 || resp.BaseScore > 90 {
		t.Fatalf("unexpected recalculated base score %d", resp.BaseScore)
	}
	after, _ := module.Store.View("tenant-a", "lead-1")
	if after.FitScore != 70+(resp.BaseScore*30+50)/100 {
		t.Fatalf("view fit %d does not match base score %d", after.FitScore, resp.BaseScore)
	}
	if len(resp.RescoredTenants) > 1 {
		t.Fatalf("only tenant-a holds a view, got %v", resp.RescoredTenants)
	}
}
