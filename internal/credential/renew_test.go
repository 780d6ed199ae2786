package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gridmon/rsv-probe/internal/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script standing in for grid-proxy-init.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid-proxy-init")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestNewGridProxyRenewer(t *testing.T) {
	r := NewGridProxyRenewer("/opt/vdt")
	assert.Equal(t, "/opt/vdt/globus/bin/grid-proxy-init", r.Tool)
	assert.Equal(t,
		"/opt/vdt/globus/bin/grid-proxy-init -cert /c.pem -key /k.pem -valid 12:00 -debug -out /tmp/p",
		r.Command("/c.pem", "/k.pem", "/tmp/p"))
}

func TestGridProxyRenewer_Success(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	r := &GridProxyRenewer{
		Tool:   fakeTool(t, `echo "$@" > `+out+`; echo "Your proxy is valid until tomorrow"`),
		Runner: exec.LocalRunner{},
	}

	msg, err := r.Renew(context.Background(), "/c.pem", "/k.pem", "/tmp/p")
	require.NoError(t, err)
	assert.Equal(t, "Your proxy is valid until tomorrow", msg)

	args, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-cert /c.pem -key /k.pem -valid 12:00 -debug -out /tmp/p\n", string(args))
}

func TestGridProxyRenewer_Failure(t *testing.T) {
	r := &GridProxyRenewer{
		Tool:   fakeTool(t, `echo "ERROR: Couldn't read user key" >&2; exit 1`),
		Runner: exec.LocalRunner{},
	}

	msg, err := r.Renew(context.Background(), "/c.pem", "/k.pem", "/tmp/p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 1")
	assert.Contains(t, msg, "Couldn't read user key")
}
