package exec

import (
	"context"
	"time"

	"github.com/gridmon/rsv-probe/pkg/sshutil"
)

// sshConnectTimeout caps the TCP connect phase of an SSH dispatch.
const sshConnectTimeout = 30 * time.Second

// DialSSH connects to host with the sshutil client, bounded by the context
// deadline when that is shorter than sshConnectTimeout.
func DialSSH(ctx context.Context, host string) (RemoteShell, error) {
	timeout := sshConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	client, err := sshutil.Dial(host, timeout)
	if err != nil {
		return nil, err
	}
	return client, nil
}
