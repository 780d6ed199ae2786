package sshutil

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gridmon/rsv-probe/internal/errors"
	"golang.org/x/crypto/ssh"
)

// ExecContext runs a command and waits for it or for ctx to end. On
// cancellation the remote process gets SIGKILL and the session is closed so
// that the remote side does not keep a hung probe around; ctx.Err() is
// returned. Exit code is -1 if the command couldn't be executed at all.
func (c *Client) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Start(cmd); err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrDispatch,
			fmt.Sprintf("Failed to start remote command: %s", cmd),
			"Check that the host accepts SSH command execution.")
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		// Not every server honours signals; closing the session tears down
		// the channel either way.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return nil, nil, -1, ctx.Err()
	case err = <-done:
	}

	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrDispatch,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}
