package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/ui"
	"github.com/gridmon/rsv-probe/internal/util"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed metrics and hosts with metric configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromFlags(false)
		if err != nil {
			return err
		}
		return listInventory(cmd.OutOrStdout(), opts.VDTLocation)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listInventory(w io.Writer, vdtLocation string) error {
	layout := config.NewLayout(vdtLocation, "", "")

	metrics, err := config.InstalledMetrics(layout.RSVLocation)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfigMissing,
			"The metrics directory does not exist",
			"Check --vdt-location points at an RSV installation")
	}
	hosts, err := config.ConfiguredHosts(layout.RSVLocation)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfigInvalid,
			"Couldn't read host configuration", "Check permissions on etc/metrics")
	}

	if len(metrics) == 0 {
		fmt.Fprintln(w, "No metrics installed")
	} else {
		rows := make([][]string, len(metrics))
		for i, m := range metrics {
			_, confErr := os.Stat(config.NewLayout(vdtLocation, m, "").MetricFile())
			rows[i] = []string{m, yesNo(confErr == nil)}
		}
		fmt.Fprintln(w, ui.RenderSimpleTable(
			[]ui.TableColumn{{Title: "Metric"}, {Title: "Configured"}}, rows))
	}

	if len(hosts) == 0 {
		fmt.Fprintln(w, "No host-specific configuration")
		return nil
	}

	names := make([]string, 0, len(hosts))
	for h := range hosts {
		names = append(names, h)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, h := range names {
		rows[i] = []string{h, util.JoinOrNone(hosts[h])}
	}
	fmt.Fprintln(w, ui.RenderSimpleTable(
		[]ui.TableColumn{{Title: "Host"}, {Title: "Metrics"}}, rows))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
