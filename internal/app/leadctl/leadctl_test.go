package leadctl

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	leadclaimengine "leadhub/contexts/lead-distribution/lead-claim-engine"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	"leadhub/internal/app/bootstrap"
)

func useInMemoryRuntime(t *testing.T) leadclaimengine.Module {
	t.Helper()
	module := leadclaimengine.NewInMemoryModule(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	previous := openRuntime
	openRuntime = func(string) (*bootstrap.Runtime, error) {
		return &bootstrap.Runtime{Module: module}, nil
	}
	t.Cleanup(func() { openRuntime = previous })
	return module
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags clears flag values and Changed marks left over from earlier runs.
func resetFlags() {
	tenantID, releaseReason, ingestFile, settingsMode = "", "", "", ""
	settingsCities, settingsCategories, settingsMinScore = nil, nil, 0
	for _, cmd := range rootCmd.Commands() {
		for _, name := range []string{"cities", "categories", "min-score", "mode"} {
			if flag := cmd.Flags().Lookup(name); flag != nil {
				flag.Changed = false
			}
		}
	}
}

func writeLeadsFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSettingsIngestReleaseFlow(t *testing.T) {
	module := useInMemoryRuntime(t)

	out, err := run(t, "settings", "--tenant", "tenant-a", "--cities", "Delhi,Pune", "--mode", "FIRST_CLAIM_EXCLUSIVE")
	require.NoError(t, err)
	require.Contains(t, out, "mode=FIRST_CLAIM_EXCLUSIVE")
	require.Contains(t, out, "cities=delhi,pune")

	out, err = run(t, "settings", "--tenant", "tenant-a", "--min-score", "40")
	require.NoError(t, err)
	require.Contains(t, out, "mode=FIRST_CLAIM_EXCLUSIVE")
	require.Contains(t, out, "min_score=40")

	path := writeLeadsFile(t, `[
		{"lead_id":"lead-1","name":"Apex Coaching","city":"Delhi","category":"JEE","base_score":60},
		{"lead_id":"lead-2","name":"Zenith Tutorials","city":"Pune","category":"NEET","phone":"+91-9000000001"}
	]`)
	out, err = run(t, "ingest", "--file", path)
	require.NoError(t, err)
	require.Contains(t, out, "ingested 2 leads (2 created, 0 updated)")

	view, ok := module.Store.View("tenant-a", "lead-1")
	require.True(t, ok)
	require.Equal(t, entities.VisibilityAvailable, view.VisibilityStatus)
	require.Equal(t, 88, view.FitScore)

	out, err = run(t, "recalculate", "lead-2", "--tenant", "tenant-a")
	require.NoError(t, err)
	require.Contains(t, out, "lead lead-2 scored 10")

	_, err = run(t, "release", "lead-1", "--tenant", "tenant-a")
	require.Error(t, err, "release without an active claim must fail")
}

func TestSettingsPatchOnlyCarriesChangedFlags(t *testing.T) {
	resetFlags()
	require.NoError(t, settingsCmd.ParseFlags([]string{"--tenant", "tenant-b", "--categories", " JEE , ,NEET"}))

	patch := settingsPatch(settingsCmd)
	require.Equal(t, "tenant-b", patch.TenantID)
	require.Equal(t, operatorRole, patch.Role)
	require.Nil(t, patch.TargetCities)
	require.Nil(t, patch.MinimumScore)
	require.Nil(t, patch.ClaimMode)
	require.NotNil(t, patch.TargetCategories)
	require.Equal(t, []string{"JEE", "NEET"}, *patch.TargetCategories)
}

func TestIngestRejectsMalformedFile(t *testing.T) {
	useInMemoryRuntime(t)

	_, err := run(t, "ingest", "--file", writeLeadsFile(t, `{"lead_id":"not-an-array"}`))
	require.Error(t, err)

	_, err = run(t, "ingest", "--file", writeLeadsFile(t, `[{"lead_id":"lead-x"}]`))
	require.ErrorContains(t, err, `ingest lead "lead-x"`)
}

func TestRelayReportsPublishedCount(t *testing.T) {
	module := useInMemoryRuntime(t)
	require.Empty(t, module.Store.OutboxEvents())

	out, err := run(t, "relay")
	require.NoError(t, err)
	require.Contains(t, out, "published 0 events")
}
