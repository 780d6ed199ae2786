package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/gridmon/rsv-probe/internal/errors"
	"golang.org/x/sys/unix"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// group has been killed. A descendant that escaped the group could otherwise
// hold stdout open indefinitely.
const waitDelay = 5 * time.Second

// RunResult is the outcome of one command execution.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// TimedOut is set when the deadline elapsed. ExitCode and output are
	// meaningless in that case.
	TimedOut bool
}

// Runner executes a shell command under a deadline.
type Runner interface {
	Run(ctx context.Context, cmd string, env []string, timeout time.Duration) (RunResult, error)
}

// LocalRunner runs commands through /bin/sh in their own process group.
type LocalRunner struct {
	// Shell defaults to /bin/sh.
	Shell string
}

// Run executes cmd and waits for it or for the timeout, whichever comes
// first. On timeout the whole process group receives SIGKILL so that no
// descendant (such as a hung remote submission) outlives the run.
// A nil env inherits the current environment. Only a failure to launch the
// command is returned as an error; non-zero exits are reported in the result.
func (r LocalRunner) Run(ctx context.Context, cmd string, env []string, timeout time.Duration) (RunResult, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := exec.CommandContext(ctx, shell, "-c", cmd)
	command.Env = env
	command.Stdin = nil

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	// Own process group: negative PID signals the shell and all its children.
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	command.Cancel = func() error {
		return unix.Kill(-command.Process.Pid, unix.SIGKILL)
	}
	command.WaitDelay = waitDelay

	if err := command.Start(); err != nil {
		return RunResult{ExitCode: -1}, errors.WrapWithCode(err, errors.ErrDispatch,
			"Couldn't start the command",
			"Make sure "+shell+" exists and is executable.")
	}

	waitErr := command.Wait()

	if ctx.Err() != nil {
		// Reap anything left in the group; ESRCH just means it is gone.
		_ = unix.Kill(-command.Process.Pid, unix.SIGKILL)
		return RunResult{TimedOut: true, ExitCode: -1}, nil
	}

	result := RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if stderrors.Is(waitErr, exec.ErrWaitDelay) && command.ProcessState != nil {
			result.ExitCode = command.ProcessState.ExitCode()
			return result, nil
		}
		return RunResult{ExitCode: -1}, errors.WrapWithCode(waitErr, errors.ErrDispatch,
			"Failed to execute local command",
			"Check that the command exists and is executable")
	}

	return result, nil
}

// Environ returns the current process environment. Kept as a variable so
// tests can pin the base environment.
var Environ = os.Environ
