package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Viper keys for the process-level settings.
const (
	keyMetric      = "metric"
	keyURI         = "uri"
	keyVerbose     = "verbose"
	keyVDTLocation = "vdt-location"
)

// cfg holds flag values with their environment fallbacks.
var cfg = viper.New()

var rootCmd = &cobra.Command{
	Use:   "run-rsv-metric -m <METRIC> -u <HOST>",
	Short: "Run one RSV metric against one host",
	Long: `Run an RSV metric probe against a host and report the result.

Configuration is read from <vdt>/osg-rsv/etc/rsv.conf, the metric's own
configuration file, and an optional host-specific override. The probe runs
locally, through globus-job-run, or over SSH depending on the metric's
'execute' and 'jobmanager' settings.

Examples:
  run-rsv-metric -m org.osg.general.ping-host -u ce01.example.org
  run-rsv-metric -m org.osg.globus.gram-authentication -u ce01.example.org -v 3`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runRoot is rootCmd's RunE. It is assigned in init because it reads
// rootCmd's flags, which would otherwise form an initialization cycle.
func runRoot(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(true)
	if err != nil {
		return err
	}
	code, err := runMetric(cmd.Context(), opts, defaultDeps(opts))
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.NewExitError(code)
	}
	return nil
}

func init() {
	rootCmd.RunE = runRoot

	pf := rootCmd.PersistentFlags()
	pf.StringP(keyMetric, "m", "", "metric to run")
	pf.StringP(keyURI, "u", "", "URI (host) to probe")
	pf.IntP(keyVerbose, "v", logger.VerbosityDefault, "verbosity level (0-3)")
	pf.String(keyVDTLocation, "", "VDT install directory (overrides VDT_LOCATION)")

	for _, key := range []string{keyMetric, keyURI, keyVerbose, keyVDTLocation} {
		_ = cfg.BindPFlag(key, pf.Lookup(key))
	}
	_ = cfg.BindEnv(keyVDTLocation, "VDT_LOCATION", "OSG_LOCATION")
	_ = cfg.BindEnv(keyVerbose, "RSV_VERBOSE")
	cfg.SetDefault(keyVerbose, logger.VerbosityDefault)
}

// Options are the process-level settings for one invocation.
type Options struct {
	Metric      string
	URI         string
	VDTLocation string
	Verbosity   int
	// VDTFromFlag is set when --vdt-location overrode the environment.
	VDTFromFlag bool
}

// optionsFromFlags reads the bound flags. Metric and URI are only required
// when needTarget is set.
func optionsFromFlags(needTarget bool) (Options, error) {
	opts := Options{
		Metric:      strings.TrimSpace(cfg.GetString(keyMetric)),
		URI:         strings.TrimSpace(cfg.GetString(keyURI)),
		VDTLocation: strings.TrimSpace(cfg.GetString(keyVDTLocation)),
		Verbosity:   cfg.GetInt(keyVerbose),
	}
	if f := rootCmd.PersistentFlags().Lookup(keyVDTLocation); f != nil {
		opts.VDTFromFlag = f.Changed
	}
	return opts, opts.validate(needTarget)
}

func (o Options) validate(needTarget bool) error {
	if o.Verbosity < logger.VerbosityQuiet || o.Verbosity > logger.VerbosityDebug {
		return errors.New(errors.ErrConfigInvalid,
			fmt.Sprintf("verbosity must be between 0 and 3, got %d", o.Verbosity),
			"Pass -v 0, 1, 2 or 3")
	}
	if o.VDTLocation == "" {
		return errors.New(errors.ErrConfigMissing,
			"You must have VDT_LOCATION set in your environment",
			"Either source setup.sh or pass --vdt-location")
	}
	if !needTarget {
		return nil
	}
	if o.Metric == "" {
		return errors.New(errors.ErrConfigInvalid,
			"You must provide a metric to run",
			"Pass -m <METRIC>")
	}
	if o.URI == "" {
		return errors.New(errors.ErrConfigInvalid,
			"You must provide a URI to test against",
			"Pass -u <HOST>")
	}
	return nil
}

// Execute runs the root command and exits the process. Errors are logged
// before exiting, even at verbosity 0; an ExitError only sets the status.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	logger.NewLevelLogger(os.Stderr, logger.VerbosityDefault).Error("%s", err.Error())
	os.Exit(1)
}
