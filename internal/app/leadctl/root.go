package leadctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"leadhub/internal/app/bootstrap"
	"leadhub/internal/platform/config"
)

// operatorRole is the role leadctl acts with; it is an operator tool, not a
// tenant client.
const operatorRole = "owner"

var rootCmd = &cobra.Command{
	Use:   "leadctl",
	Short: "Operate the leadhub lead claim engine",
	Long: `leadctl runs operator tasks against the leadhub database:

- migrate: create or update the schema
- ingest: load pool leads from a JSON file
- recalculate: refresh a lead's automation score
- release: release a tenant's claim on a lead
- settings: patch a tenant's distribution settings
- relay: publish pending outbox events once`,
	SilenceUsage: true,
}

var configFile string

// openRuntime is swapped in tests to run commands against the in-memory store.
var openRuntime = func(path string) (*bootstrap.Runtime, error) {
	var (
		cfg config.Config
		err error
	)
	if strings.TrimSpace(path) != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return bootstrap.BuildRuntime(cfg, bootstrap.NewLogger(cfg, "leadctl"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default reads CONFIG_FILE and the environment)")
}

func withRuntime(run func(cmd *cobra.Command, args []string, runtime *bootstrap.Runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		runtime, err := openRuntime(configFile)
		if err != nil {
			return err
		}
		defer func() {
			_ = runtime.Close()
		}()
		return run(cmd, args, runtime)
	}
}
