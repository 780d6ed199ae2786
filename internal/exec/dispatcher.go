package exec

import (
	"context"

	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/logger"
)

// RemoteShell runs one command on a remote host.
type RemoteShell interface {
	ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)
	Close() error
}

// Dialer opens a RemoteShell to host.
type Dialer func(ctx context.Context, host string) (RemoteShell, error)

// JobResult is what a dispatch produced, with enough context to report it.
type JobResult struct {
	Spec    JobSpec
	Command string
	RunResult
}

// Dispatcher runs the job described by a JobSpec.
type Dispatcher struct {
	runner Runner
	dial   Dialer
	log    logger.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRunner overrides the local command runner.
func WithRunner(r Runner) DispatcherOption {
	return func(d *Dispatcher) { d.runner = r }
}

// WithDialer sets the SSH dialer used for the ssh jobmanager.
func WithDialer(dial Dialer) DispatcherOption {
	return func(d *Dispatcher) { d.dial = dial }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a Dispatcher using a LocalRunner by default.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		runner: LocalRunner{},
		log:    logger.Noop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the job once under spec.Timeout. Non-zero exits and timeouts
// are part of the result; an error means the job could not be launched.
func (d *Dispatcher) Dispatch(ctx context.Context, spec JobSpec) (JobResult, error) {
	cmd := spec.Command()
	d.log.Info("Running command '%s'", cmd)

	var (
		res RunResult
		err error
	)
	if spec.UsesSSH() {
		res, err = d.dispatchSSH(ctx, spec)
	} else {
		env := config.ApplyEnvironment(Environ(), spec.Env)
		res, err = d.runner.Run(ctx, cmd, env, spec.Timeout)
	}
	if err != nil {
		return JobResult{}, err
	}

	if res.TimedOut {
		d.log.Info("    Command timed out after %s", spec.Timeout)
	} else {
		d.log.Debug("    Command exited with status %d", res.ExitCode)
	}

	return JobResult{Spec: spec, Command: cmd, RunResult: res}, nil
}

func (d *Dispatcher) dispatchSSH(ctx context.Context, spec JobSpec) (RunResult, error) {
	if d.dial == nil {
		d.dial = DialSSH
	}

	ctx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	shell, err := d.dialContext(ctx, spec.URI)
	if err != nil {
		if ctx.Err() != nil {
			return RunResult{TimedOut: true, ExitCode: -1}, nil
		}
		return RunResult{ExitCode: -1}, err
	}
	defer shell.Close()

	stdout, stderr, exitCode, err := shell.ExecContext(ctx, SSHCommand(spec))
	if ctx.Err() != nil {
		return RunResult{TimedOut: true, ExitCode: -1}, nil
	}
	if err != nil {
		return RunResult{ExitCode: -1}, err
	}

	return RunResult{
		ExitCode: exitCode,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
	}, nil
}

type dialResult struct {
	shell RemoteShell
	err   error
}

// dialContext returns when the dialer does or when ctx ends, whichever comes
// first. A connection that completes after ctx ended is closed.
func (d *Dispatcher) dialContext(ctx context.Context, host string) (RemoteShell, error) {
	done := make(chan dialResult, 1)
	go func() {
		shell, err := d.dial(ctx, host)
		done <- dialResult{shell, err}
	}()

	select {
	case r := <-done:
		return r.shell, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.shell != nil {
				r.shell.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
