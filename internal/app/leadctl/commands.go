package leadctl

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"leadhub/contexts/lead-distribution/lead-claim-engine/application/commands"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	"leadhub/internal/app/bootstrap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the lead claim engine schema",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, _ *bootstrap.Runtime) error {
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	}),
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load pool leads from a JSON array file",
	Args:  cobra.NoArgs,
	RunE:  withRuntime(runIngest),
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate <lead_id>",
	Short: "Recalculate a lead's automation base score",
	Args:  cobra.ExactArgs(1),
	RunE:  withRuntime(runRecalculate),
}

var releaseCmd = &cobra.Command{
	Use:   "release <lead_id>",
	Short: "Release a tenant's active claim on a lead",
	Args:  cobra.ExactArgs(1),
	RunE:  withRuntime(runRelease),
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Patch a tenant's targeting, minimum score or claim mode",
	Long: `Only flags that are passed are changed. Pass an empty list
(--cities "") to clear a target set, which makes it a wildcard.`,
	Args: cobra.NoArgs,
	RunE: withRuntime(runSettings),
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish one batch of pending outbox events",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, runtime *bootstrap.Runtime) error {
		sent, err := runtime.Module.OutboxRelay.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", sent)
		return nil
	}),
}

var (
	ingestFile string

	tenantID      string
	releaseReason string

	settingsCities     []string
	settingsCategories []string
	settingsMinScore   int
	settingsMode       string
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "path to a JSON array of leads")
	_ = ingestCmd.MarkFlagRequired("file")

	for _, cmd := range []*cobra.Command{recalculateCmd, releaseCmd, settingsCmd} {
		cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "tenant id")
		_ = cmd.MarkFlagRequired("tenant")
	}
	releaseCmd.Flags().StringVar(&releaseReason, "reason", "", "release reason (default disposition_reset)")

	settingsCmd.Flags().StringSliceVar(&settingsCities, "cities", nil, "target cities, comma separated")
	settingsCmd.Flags().StringSliceVar(&settingsCategories, "categories", nil, "target categories, comma separated")
	settingsCmd.Flags().IntVar(&settingsMinScore, "min-score", 0, "minimum fit score (0-100)")
	settingsCmd.Flags().StringVar(&settingsMode, "mode", "", "claim mode: MULTI_TENANT_SHARED, FIRST_CLAIM_EXCLUSIVE or REGION_EXCLUSIVE")

	rootCmd.AddCommand(migrateCmd, ingestCmd, recalculateCmd, releaseCmd, settingsCmd, relayCmd)
}

// leadRecord is the file format accepted by ingest.
type leadRecord struct {
	LeadID          string    `json:"lead_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Website         string    `json:"website"`
	Address         string    `json:"address"`
	City            string    `json:"city"`
	Localities      []string  `json:"localities"`
	Category        string    `json:"category"`
	Source          string    `json:"source"`
	Rating          float64   `json:"rating"`
	ReviewCount     int       `json:"review_count"`
	EngagementCount int       `json:"engagement_count"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	BaseScore       int       `json:"base_score"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r leadRecord) toEntity() entities.Lead {
	return entities.Lead{
		LeadID:          r.LeadID,
		Name:            r.Name,
		Phone:           r.Phone,
		Email:           r.Email,
		Website:         r.Website,
		Address:         r.Address,
		City:            r.City,
		Localities:      r.Localities,
		Category:        r.Category,
		Source:          r.Source,
		Rating:          r.Rating,
		ReviewCount:     r.ReviewCount,
		EngagementCount: r.EngagementCount,
		LastActivityAt:  r.LastActivityAt,
		BaseScore:       r.BaseScore,
		CreatedAt:       r.CreatedAt,
	}
}

func runIngest(cmd *cobra.Command, _ []string, runtime *bootstrap.Runtime) error {
	raw, err := os.ReadFile(ingestFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", ingestFile, err)
	}
	var records []leadRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("decode %s: %w", ingestFile, err)
	}

	created, updated := 0, 0
	for _, record := range records {
		result, err := runtime.Module.Ingest.Execute(cmd.Context(), commands.IngestLeadCommand{Lead: record.toEntity()})
		if err != nil {
			return fmt.Errorf("ingest lead %q: %w", record.LeadID, err)
		}
		if result.Created {
			created++
		} else {
			updated++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d leads (%d created, %d updated)\n", len(records), created, updated)
	return nil
}

func runRecalculate(cmd *cobra.Command, args []string, runtime *bootstrap.Runtime) error {
	result, err := runtime.Module.Handler.Recalculate.Execute(cmd.Context(), commands.RecalculateScoreCommand{
		TenantID: tenantID,
		Role:     operatorRole,
		LeadID:   args[0],
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "lead %s scored %d (was %d), %d tenant views rescored\n",
		result.Lead.LeadID, result.Lead.BaseScore, result.PreviousScore, len(result.RescoredTenants))
	return nil
}

func runRelease(cmd *cobra.Command, args []string, runtime *bootstrap.Runtime) error {
	result, err := runtime.Module.Handler.ReleaseClaim.Execute(cmd.Context(), commands.ReleaseClaimCommand{
		TenantID: tenantID,
		Role:     operatorRole,
		UserID:   "leadctl",
		LeadID:   args[0],
		Reason:   releaseReason,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "released claim %s, reopened for %s\n",
		result.Release.ClaimID, strings.Join(result.ReopenedTenants, ","))
	return nil
}

func runSettings(cmd *cobra.Command, _ []string, runtime *bootstrap.Runtime) error {
	patch := settingsPatch(cmd)
	result, err := runtime.Module.Handler.PatchSettings.Execute(cmd.Context(), patch)
	if err != nil {
		return err
	}
	settings := result.Settings
	fmt.Fprintf(cmd.OutOrStdout(), "tenant %s: mode=%s min_score=%d cities=%s categories=%s (%d views updated)\n",
		settings.TenantID,
		settings.ClaimMode,
		settings.MinimumScore,
		strings.Join(settings.TargetCities, ","),
		strings.Join(settings.TargetCategories, ","),
		result.ViewsUpdated,
	)
	return nil
}

// settingsPatch maps only the flags the operator set onto the patch command.
func settingsPatch(cmd *cobra.Command) commands.PatchTenantSettingsCommand {
	patch := commands.PatchTenantSettingsCommand{
		TenantID: tenantID,
		Role:     operatorRole,
	}
	flags := cmd.Flags()
	if flags.Changed("cities") {
		cities := compact(settingsCities)
		patch.TargetCities = &cities
	}
	if flags.Changed("categories") {
		categories := compact(settingsCategories)
		patch.TargetCategories = &categories
	}
	if flags.Changed("min-score") {
		minScore := settingsMinScore
		patch.MinimumScore = &minScore
	}
	if flags.Changed("mode") {
		mode := settingsMode
		patch.ClaimMode = &mode
	}
	return patch
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
