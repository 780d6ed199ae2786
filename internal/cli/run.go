package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gridmon/rsv-probe/internal/account"
	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/credential"
	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/exec"
	"github.com/gridmon/rsv-probe/internal/logger"
	"github.com/gridmon/rsv-probe/internal/outcome"
	"github.com/gridmon/rsv-probe/internal/report"
)

// runDeps are the collaborators of one run. Tests replace the ones that touch
// the system.
type runDeps struct {
	accounts   account.Resolver
	switchUser bool
	checker    credential.ExpiryChecker
	renewer    credential.Renewer
	dispatcher *exec.Dispatcher
	out        io.Writer
	log        logger.Logger
}

func defaultDeps(opts Options) runDeps {
	log := logger.NewLevelLogger(os.Stderr, opts.Verbosity)
	return runDeps{
		accounts:   account.System{},
		switchUser: true,
		checker:    credential.X509Checker{},
		renewer:    credential.NewGridProxyRenewer(opts.VDTLocation),
		dispatcher: exec.NewDispatcher(exec.WithLogger(log)),
		out:        os.Stdout,
		log:        log,
	}
}

// runMetric executes the whole pipeline once. A returned error is fatal and
// means no result was reported; otherwise the exit code comes from the
// reported outcome.
func runMetric(ctx context.Context, opts Options, deps runDeps) (int, error) {
	log := deps.log
	if opts.VDTFromFlag {
		log.Info("Using alternate VDT_LOCATION supplied on command line")
	}

	layout := config.NewLayout(opts.VDTLocation, opts.Metric, opts.URI)
	if _, err := os.Stat(layout.Executable()); err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfigMissing,
			fmt.Sprintf("Metric does not exist at %s", layout.Executable()),
			"Check the metric name; 'run-rsv-metric list' shows installed metrics")
	}

	settings, err := loadSettings(opts, layout, deps)
	if err != nil {
		return 0, err
	}

	state, err := credential.NewManager(deps.checker, deps.renewer, log).Check(ctx, settings.Credentials)
	if err != nil {
		return 0, err
	}
	log.Debug("Credential check finished: %s", state)
	if err := requireUsable(state); err != nil {
		return 0, err
	}

	spec, err := exec.NewJobSpec(settings, layout)
	if err != nil {
		return 0, err
	}

	res, err := deps.dispatcher.Dispatch(ctx, spec)
	if err != nil {
		return 0, err
	}

	result := outcome.Classify(res)
	if result.Kind == outcome.ProcessFailure {
		if hint := exec.FailureHint(spec, res.Stderr+res.Stdout, res.ExitCode); hint != "" {
			log.Warn("%s", hint)
		}
	}

	var sink report.Sink = report.NewReporter(settings, opts.URI,
		report.WithOutput(deps.out),
		report.WithSpool(report.Spool{Dir: layout.OutputDir()}),
		report.WithVerbosity(opts.Verbosity),
		report.WithReportLogger(log),
	)
	return sink.Report(ctx, result)
}

// requireUsable refuses to dispatch after a credential state that does not
// permit it.
func requireUsable(state credential.State) error {
	if state.Usable() {
		return nil
	}
	return errors.New(errors.ErrCredential,
		fmt.Sprintf("credential check ended in state '%s'", state),
		"Fix the proxy configuration in rsv.conf")
}

// loadSettings loads the configuration layers and validates them.
func loadSettings(opts Options, layout config.Layout, deps runDeps) (*config.Settings, error) {
	store := config.NewStore(deps.log)
	if err := config.LoadLayers(store, layout); err != nil {
		return nil, err
	}

	validateOpts := []config.ValidationOption{
		config.WithAccounts(deps.accounts),
		config.WithVDTLocation(opts.VDTLocation),
		config.WithLogger(deps.log),
	}
	if !deps.switchUser {
		validateOpts = append(validateOpts, config.WithoutPrivilegeSwitch())
	}
	return config.Validate(store, opts.Metric, validateOpts...)
}
