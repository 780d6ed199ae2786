// Package outcome turns a finished job into one of the terminal run outcomes.
package outcome

import (
	"strings"
	"time"

	"github.com/gridmon/rsv-probe/internal/exec"
	"github.com/gridmon/rsv-probe/internal/logger"
)

// ResultsMarker is the first line of valid worker output.
const ResultsMarker = "JOB RESULTS:"

// Kind identifies the Outcome variant.
type Kind int

const (
	Success Kind = iota
	Timeout
	ProcessFailure
	MalformedOutput
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case ProcessFailure:
		return "process-failure"
	case MalformedOutput:
		return "malformed-output"
	}
	return "unknown"
}

// Outcome is the classified result of a run. Which fields are meaningful
// depends on Kind:
//
//	Success          Status, Details
//	Timeout          Command, Timeout
//	ProcessFailure   Command, Mode, ExitCode, Output, Stderr
//	MalformedOutput  Command, Output, Stderr
type Outcome struct {
	Kind Kind

	Status  string
	Details string

	Command  string
	Mode     exec.Mode
	Timeout  time.Duration
	ExitCode int
	Output   string
	Stderr   string
}

// Failed reports whether the run should exit non-zero.
func (o Outcome) Failed() bool {
	return o.Kind != Success
}

// Classify maps a dispatch result to an Outcome. The failure mode tag comes
// from the same JobSpec that was dispatched.
func Classify(res exec.JobResult) Outcome {
	base := Outcome{
		Command: res.Command,
		Mode:    res.Spec.Mode,
		Timeout: res.Spec.Timeout,
	}

	if res.TimedOut {
		base.Kind = Timeout
		base.ExitCode = -1
		return base
	}

	base.ExitCode = res.ExitCode
	base.Output = res.Stdout
	base.Stderr = res.Stderr

	if res.ExitCode != 0 {
		base.Kind = ProcessFailure
		return base
	}

	status, details, ok := ParseJobOutput(res.Stdout)
	if !ok {
		base.Kind = MalformedOutput
		return base
	}

	base.Kind = Success
	base.Status = status
	base.Details = details
	return base
}

// ParseJobOutput parses worker stdout. Line 0 must be exactly ResultsMarker,
// line 1 (trimmed) is the status and the remaining lines, rejoined with '\n',
// are the details. ok is false when the marker is missing or either part is
// empty.
func ParseJobOutput(output string) (status, details string, ok bool) {
	lines := strings.Split(output, "\n")
	if lines[0] != ResultsMarker || len(lines) < 2 {
		return "", "", false
	}

	status = strings.TrimSpace(lines[1])
	details = strings.Join(lines[2:], "\n")
	if status == "" || details == "" {
		return "", "", false
	}
	return status, details, true
}

// ReportedOutput is the output shown for malformed results. Below debug
// verbosity it is trimmed to trim bytes (0 disables trimming); debug shows
// everything.
func ReportedOutput(raw string, verbosity, trim int) string {
	if verbosity < logger.VerbosityDebug && trim > 0 && len(raw) > trim {
		return raw[:trim]
	}
	return raw
}

// Trimmed reports whether ReportedOutput would cut raw.
func Trimmed(raw string, verbosity, trim int) bool {
	return len(ReportedOutput(raw, verbosity, trim)) < len(raw)
}
