package credential

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gridmon/rsv-probe/internal/exec"
	"github.com/gridmon/rsv-probe/internal/util"
)

const (
	// ProxyLifetime is requested from grid-proxy-init as HH:MM.
	ProxyLifetime = "12:00"

	renewTimeout = 2 * time.Minute
)

// GridProxyRenewer regenerates a proxy with the Globus grid-proxy-init tool.
type GridProxyRenewer struct {
	// Tool is the path to grid-proxy-init.
	Tool   string
	Runner exec.Runner
	// Env is the child environment; nil inherits the current one.
	Env []string
}

// NewGridProxyRenewer uses <vdtLocation>/globus/bin/grid-proxy-init.
func NewGridProxyRenewer(vdtLocation string) *GridProxyRenewer {
	return &GridProxyRenewer{
		Tool:   filepath.Join(vdtLocation, "globus", "bin", "grid-proxy-init"),
		Runner: exec.LocalRunner{},
	}
}

// Command returns the renewal command line.
func (r *GridProxyRenewer) Command(cert, key, proxy string) string {
	return util.ShellJoin(r.Tool, "-cert", cert, "-key", key, "-valid", ProxyLifetime, "-debug", "-out", proxy)
}

// Renew runs grid-proxy-init and returns its combined output. A non-zero
// exit or a timeout is an error.
func (r *GridProxyRenewer) Renew(ctx context.Context, cert, key, proxy string) (string, error) {
	res, err := r.Runner.Run(ctx, r.Command(cert, key, proxy), r.Env, renewTimeout)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(res.Stdout + res.Stderr)
	if res.TimedOut {
		return out, fmt.Errorf("grid-proxy-init timed out after %s", renewTimeout)
	}
	if res.ExitCode != 0 {
		return out, fmt.Errorf("grid-proxy-init exited with status %d", res.ExitCode)
	}
	return out, nil
}
