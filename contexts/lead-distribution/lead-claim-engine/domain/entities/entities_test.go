package entities

import (
	"errors"
	"testing"
	"time"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from VisibilityStatus
		to   VisibilityStatus
		want bool
	}{
		{VisibilityAvailable, VisibilityClaimed, true},
		{VisibilityAvailable, VisibilityLocked, true},
		{VisibilityClaimed, VisibilityAvailable, true},
		{VisibilityLocked, VisibilityAvailable, true},
		{VisibilityLocked, VisibilityClaimed, false},
		{VisibilityClaimed, VisibilityLocked, false},
		{VisibilityAvailable, VisibilityAvailable, false},
		{VisibilityStatus("ARCHIVED"), VisibilityAvailable, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTenantLeadViewLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	claim, err := NewClaim("claim-1", "tenant-a", "lead-1", ClaimModeFirstClaimExclusive, "delhi", "lead:lead-1", now)
	if err != nil {
		t.Fatalf("new claim: %v", err)
	}

	view := TenantLeadView{TenantID: "tenant-b", LeadID: "lead-1", VisibilityStatus: VisibilityAvailable, FitScore: 70}
	locked, err := view.LockBy(claim)
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if locked.Discoverable(0) {
		t.Fatalf("locked view must never be discoverable")
	}
	if _, err := locked.Claim(claim); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected LOCKED -> CLAIMED to be rejected, got %v", err)
	}

	reopened, err := locked.Reopen(140, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.VisibilityStatus != VisibilityAvailable || reopened.FitScore != MaxScore || reopened.ClaimedAt != nil {
		t.Fatalf("unexpected reopened view: %+v", reopened)
	}
	if reopened.Discoverable(MaxScore + 1) {
		t.Fatalf("available view below minimum must be hidden")
	}

	claimed, err := reopened.Claim(claim)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !claimed.Discoverable(MaxScore) {
		t.Fatalf("claimed view stays discoverable regardless of minimum")
	}
}

func TestTenantSettingsValidateAndNormalize(t *testing.T) {
	now := time.Now()
	settings := DefaultTenantSettings("tenant-a", now)
	if err := settings.Validate(); err != nil {
		t.Fatalf("default settings should be valid: %v", err)
	}

	settings.TargetCities = []string{" New  Delhi", "new delhi", "", "Mumbai"}
	normalized := settings.Normalized()
	if len(normalized.TargetCities) != 2 || normalized.TargetCities[0] != "mumbai" || normalized.TargetCities[1] != "new delhi" {
		t.Fatalf("unexpected normalized cities: %v", normalized.TargetCities)
	}
	if !normalized.TargetsCity("NEW DELHI") {
		t.Fatalf("expected case-insensitive city targeting")
	}

	invalid := []TenantSettings{
		{TenantID: "", ClaimMode: ClaimModeMultiTenantShared},
		{TenantID: "t", ClaimMode: ClaimModeMultiTenantShared, MinimumScore: 101},
		{TenantID: "t", ClaimMode: ClaimModeMultiTenantShared, MinimumScore: -1},
		{TenantID: "t", ClaimMode: ClaimMode("ROUND_ROBIN")},
		{TenantID: "t", ClaimMode: ClaimModeRegionExclusive, TargetCities: make([]string, MaxTargetEntries+1)},
	}
	for i, candidate := range invalid {
		if err := candidate.Validate(); !errors.Is(err, domainerrors.ErrInvalidSettings) {
			t.Fatalf("case %d: expected invalid settings, got %v", i, err)
		}
	}
}

func TestLeadValidate(t *testing.T) {
	valid := Lead{LeadID: "lead-1", Name: "Apex Classes", City: "Pune", Category: "NEET", BaseScore: 40, Rating: 4.5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid lead: %v", err)
	}

	broken := []Lead{
		{Name: "x", City: "Pune", Category: "NEET"},
		{LeadID: "l", Name: "x", Category: "NEET"},
		{LeadID: "l", Name: "x", City: "Pune", Category: "NEET", BaseScore: 101},
		{LeadID: "l", Name: "x", City: "Pune", Category: "NEET", Rating: 6},
	}
	for i, lead := range broken {
		if err := lead.Validate(); !errors.Is(err, domainerrors.ErrInvalidLead) {
			t.Fatalf("case %d: expected invalid lead, got %v", i, err)
		}
	}

	keys := Lead{City: "Pune", Localities: []string{"Kothrud", "pune", " kothrud "}}.LocalityKeys()
	if len(keys) != 2 || keys[0] != "pune" || keys[1] != "kothrud" {
		t.Fatalf("unexpected locality keys: %v", keys)
	}
}

func TestRolePermissions(t *testing.T) {
	cases := []struct {
		role       string
		claim      bool
		release    bool
		administer bool
		member     bool
	}{
		{"owner", true, true, true, true},
		{" Manager ", true, true, false, true},
		{"editor", true, false, false, true},
		{"member", false, false, false, true},
		{"", false, false, false, false},
		{"guest", false, false, false, false},
	}
	for _, tc := range cases {
		role := ParseRole(tc.role)
		if role.CanClaim() != tc.claim || role.CanRelease() != tc.release ||
			role.CanAdminister() != tc.administer || role.IsMember() != tc.member {
			t.Fatalf("unexpected permissions for role %q", tc.role)
		}
	}
}
