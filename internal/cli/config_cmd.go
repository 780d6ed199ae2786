package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/gridmon/rsv-probe/internal/account"
	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the validated configuration for a metric",
	Long: `Load and validate the configuration a run would use and print it as YAML.

The RSV user is resolved but the process identity is not changed, so this
can be run by an operator to check a metric before the scheduler does.

Examples:
  run-rsv-metric config -m org.osg.general.ping-host -u ce01.example.org`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromFlags(true)
		if err != nil {
			return err
		}
		log := logger.NewLevelLogger(os.Stderr, opts.Verbosity)
		return showConfig(cmd.OutOrStdout(), opts, account.System{}, log)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func showConfig(w io.Writer, opts Options, accounts account.Resolver, log logger.Logger) error {
	layout := config.NewLayout(opts.VDTLocation, opts.Metric, opts.URI)
	settings, err := loadSettings(opts, layout, runDeps{accounts: accounts, log: log})
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	_, err = w.Write(data)
	return err
}
