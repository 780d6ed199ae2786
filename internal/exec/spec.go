package exec

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/util"
)

// Mode selects where the probe executable runs.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// JobManagerSSH runs remote jobs over SSH instead of through the grid
// submission tool.
const JobManagerSSH = "ssh"

// ParseMode maps the metric's execute value to a Mode, ignoring case.
func ParseMode(execute string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(execute)) {
	case string(ModeLocal):
		return ModeLocal, nil
	case string(ModeRemote):
		return ModeRemote, nil
	}
	return "", errors.New(errors.ErrDispatch,
		fmt.Sprintf("unhandled execute mode '%s'", execute),
		"Set 'execute' in the metric configuration to 'local' or 'remote'")
}

// JobSpec describes the single job of a run. Built once from validated
// settings and not modified afterwards.
type JobSpec struct {
	Mode       Mode
	Executable string
	Metric     string
	URI        string
	JobManager string
	Timeout    time.Duration

	// SubmitTool is the remote submission client (globus-job-run).
	SubmitTool string

	Env []config.EnvironmentAction
}

// NewJobSpec builds the JobSpec for a run.
func NewJobSpec(settings *config.Settings, layout config.Layout) (JobSpec, error) {
	mode, err := ParseMode(settings.Execute)
	if err != nil {
		return JobSpec{}, err
	}

	return JobSpec{
		Mode:       mode,
		Executable: layout.Executable(),
		Metric:     settings.Metric,
		URI:        layout.URI,
		JobManager: settings.JobManager,
		Timeout:    settings.JobTimeout,
		SubmitTool: filepath.Join(settings.VDTLocation, "globus", "bin", "globus-job-run"),
		Env:        settings.Env,
	}, nil
}

// UsesSSH reports whether the job is dispatched through the SSH transport.
func (s JobSpec) UsesSSH() bool {
	return s.Mode == ModeRemote && strings.EqualFold(s.JobManager, JobManagerSSH)
}

// LocalCommand is `<executable> -m <metric> -u <uri>`.
func LocalCommand(s JobSpec) string {
	return util.ShellJoin(s.Executable, "-m", s.Metric, "-u", s.URI)
}

// RemoteCommand is `<submit-tool> <uri>/jobmanager-<type> -s <executable> -m <metric>`.
func RemoteCommand(s JobSpec) string {
	contact := s.URI + "/jobmanager-" + s.JobManager
	return util.ShellJoin(s.SubmitTool, contact, "-s", s.Executable, "-m", s.Metric)
}

// SSHCommand is the command executed on the remote host for the ssh
// jobmanager: the env prelude followed by the local-style invocation.
func SSHCommand(s JobSpec) string {
	prelude := EnvPrelude(s.Env)
	if prelude == "" {
		return LocalCommand(s)
	}
	return prelude + "; " + LocalCommand(s)
}

// Command returns the shell command line for the spec's mode. For the ssh
// jobmanager it is the display form, prefixed with the target host.
func (s JobSpec) Command() string {
	switch {
	case s.UsesSSH():
		return "ssh " + util.ShellWord(s.URI) + " " + LocalCommand(s)
	case s.Mode == ModeRemote:
		return RemoteCommand(s)
	default:
		return LocalCommand(s)
	}
}

// EnvPrelude renders env actions as POSIX shell statements for hosts whose
// environment cannot be set directly.
func EnvPrelude(actions []config.EnvironmentAction) string {
	stmts := make([]string, 0, len(actions))
	for _, a := range actions {
		v := util.ShellQuote(a.Value)
		switch a.Action {
		case config.EnvSet:
			stmts = append(stmts, fmt.Sprintf("export %s=%s", a.Name, v))
		case config.EnvUnset:
			stmts = append(stmts, "unset "+a.Name)
		case config.EnvAppend:
			stmts = append(stmts, fmt.Sprintf(`export %s="${%s:+$%s:}"%s`, a.Name, a.Name, a.Name, v))
		case config.EnvPrepend:
			stmts = append(stmts, fmt.Sprintf(`export %s=%s"${%s:+:$%s}"`, a.Name, v, a.Name, a.Name))
		}
	}
	return strings.Join(stmts, "; ")
}
