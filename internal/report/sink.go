package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/exec"
	"github.com/gridmon/rsv-probe/internal/logger"
	"github.com/gridmon/rsv-probe/internal/outcome"
	"github.com/gridmon/rsv-probe/internal/util"
)

// Exit codes returned by Report.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Sink receives the single classified outcome of a run and returns the
// process exit code.
type Sink interface {
	Report(ctx context.Context, o outcome.Outcome) (exitCode int, err error)
}

var _ Sink = (*Reporter)(nil)

// Reporter is the Sink used by run-rsv-metric. Success, Timeout and
// ProcessFailure produce a record that is printed and copied to every
// consumer; MalformedOutput only logs the offending output.
type Reporter struct {
	settings  *config.Settings
	uri       string
	formatter Formatter
	out       io.Writer
	spool     *Spool
	verbosity int
	log       logger.Logger
	hostname  string
	now       func() time.Time
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithOutput sets where records are printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) ReporterOption {
	return func(r *Reporter) { r.out = w }
}

// WithSpool enables consumer delivery.
func WithSpool(s Spool) ReporterOption {
	return func(r *Reporter) { r.spool = &s }
}

// WithVerbosity sets the verbosity used to decide output trimming.
func WithVerbosity(v int) ReporterOption {
	return func(r *Reporter) { r.verbosity = v }
}

// WithReportLogger sets the logger.
func WithReportLogger(l logger.Logger) ReporterOption {
	return func(r *Reporter) { r.log = l }
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// WithHostname overrides the gatheredAt value.
func WithHostname(name string) ReporterOption {
	return func(r *Reporter) { r.hostname = name }
}

// NewReporter creates a Reporter for one metric run against uri.
func NewReporter(settings *config.Settings, uri string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		settings:  settings,
		uri:       uri,
		out:       os.Stdout,
		verbosity: logger.VerbosityDefault,
		log:       logger.Noop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.hostname == "" {
		r.hostname, _ = os.Hostname()
	}
	if r.formatter == nil {
		r.formatter = NewFormatter(settings.OutputFormat, r.out)
	}
	return r
}

// Report renders o. The returned error is only set when the record could not
// be written; the exit code is meaningful either way.
func (r *Reporter) Report(_ context.Context, o outcome.Outcome) (int, error) {
	if o.Kind == outcome.MalformedOutput {
		r.reportMalformed(o)
		return ExitFailure, nil
	}

	rec := r.record(o)
	text := r.formatter.Format(rec)
	if _, err := io.WriteString(r.out, text); err != nil {
		return ExitFailure, fmt.Errorf("writing result: %w", err)
	}

	if err := r.deliver(rec); err != nil {
		return ExitFailure, err
	}

	if o.Failed() {
		return ExitFailure, nil
	}
	return ExitOK, nil
}

func (r *Reporter) record(o outcome.Outcome) Record {
	status, details := o.Status, o.Details
	switch o.Kind {
	case outcome.Timeout:
		status = StatusCritical
		details = fmt.Sprintf("Timeout hit - command did not finish within %d seconds.\nCommand: %s\n",
			int(o.Timeout/time.Second), o.Command)
	case outcome.ProcessFailure:
		status = StatusCritical
		details = failureDetails(o)
	}

	return Record{
		MetricName:   r.settings.Metric,
		MetricType:   r.settings.MetricType,
		MetricStatus: status,
		ServiceType:  r.settings.ServiceType,
		ServiceURI:   r.uri,
		GatheredAt:   r.hostname,
		Timestamp:    r.now(),
		Summary:      summaryFor(status, details),
		Details:      util.Truncate(details, r.settings.DetailsDataTrimLength),
	}
}

func failureDetails(o outcome.Outcome) string {
	where := "Local"
	if o.Mode == exec.ModeRemote {
		where = "Remote"
	}
	details := fmt.Sprintf("%s job failed with exit code %d.\nCommand: %s\n", where, o.ExitCode, o.Command)
	if o.Output != "" {
		details += "Output:\n" + o.Output
	}
	if o.Stderr != "" {
		details += "Error output:\n" + o.Stderr
	}
	return details
}

func (r *Reporter) reportMalformed(o outcome.Outcome) {
	r.log.Error("invalid data returned from job.")

	trim := r.settings.DetailsDataTrimLength
	shown := outcome.ReportedOutput(o.Output, r.verbosity, trim)
	if outcome.Trimmed(o.Output, r.verbosity, trim) {
		r.log.Error("Displaying first %d bytes of output (use -v3 for full output)", trim)
	} else {
		r.log.Debug("Displaying full output received from command:")
	}
	if o.Stderr != "" {
		r.log.Info("Command stderr:\n%s", o.Stderr)
	}

	if shown = strings.TrimRight(shown, "\n"); shown != "" {
		fmt.Fprintln(r.out, shown)
	}
}

func (r *Reporter) deliver(rec Record) error {
	if r.spool == nil || len(r.settings.Consumers) == 0 {
		return nil
	}
	text := WLCGFormatter{}.Format(rec)
	for _, consumer := range r.settings.Consumers {
		path, err := r.spool.Write(consumer, text)
		if err != nil {
			r.log.Error("Failed to write record for consumer '%s': %v", consumer, err)
			return fmt.Errorf("delivering record to %s: %w", consumer, err)
		}
		r.log.Debug("    Wrote record for consumer '%s' to %s", consumer, path)
	}
	return nil
}
