package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridmon/rsv-probe/internal/account"
	"github.com/gridmon/rsv-probe/internal/credential"
	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/exec"
	"github.com/gridmon/rsv-probe/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMetric = "org.osg.general.ping-host"

type fakeAccounts struct {
	switched []string
}

func (f *fakeAccounts) Lookup(name string) (account.Account, error) {
	if name != "rsv" {
		return account.Account{}, errors.New(errors.ErrCredential, "The '"+name+"' user defined in rsv.conf does not exist", "")
	}
	return account.Account{Name: name, UID: 500, GID: 500, HomeDir: "/home/rsv"}, nil
}

func (f *fakeAccounts) Switch(acct account.Account) error {
	f.switched = append(f.switched, acct.Name)
	return nil
}

type fakeChecker struct{ valid bool }

func (f fakeChecker) CheckExpiry(string, time.Duration) (bool, error) { return f.valid, nil }

type fakeRenewer struct{ called bool }

func (f *fakeRenewer) Renew(context.Context, string, string, string) (string, error) {
	f.called = true
	return "", nil
}

// installation is a throwaway VDT tree with one metric.
type installation struct {
	vdt string
	rsv string
}

func newInstallation(t *testing.T, rsvConf, metricConf, probe string) installation {
	t.Helper()
	vdt := t.TempDir()
	in := installation{vdt: vdt, rsv: filepath.Join(vdt, "osg-rsv")}

	write := func(path, content string, mode os.FileMode) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
	}
	write(filepath.Join(in.rsv, "etc", "rsv.conf"), rsvConf, 0o644)
	write(filepath.Join(in.rsv, "etc", "metrics", testMetric+".conf"), metricConf, 0o644)
	if probe != "" {
		write(filepath.Join(in.rsv, "bin", "metrics", testMetric), "#!/bin/sh\n"+probe+"\n", 0o755)
	}
	return in
}

func (in installation) options() Options {
	return Options{Metric: testMetric, URI: "localhost", VDTLocation: in.vdt, Verbosity: logger.VerbosityDefault}
}

type testRun struct {
	out      bytes.Buffer
	log      *logger.BufferLogger
	accounts *fakeAccounts
	renewer  *fakeRenewer
	deps     runDeps
}

func newTestRun() *testRun {
	r := &testRun{
		log:      logger.NewBufferLogger(),
		accounts: &fakeAccounts{},
		renewer:  &fakeRenewer{},
	}
	r.deps = runDeps{
		accounts:   r.accounts,
		switchUser: true,
		checker:    fakeChecker{valid: true},
		renewer:    r.renewer,
		dispatcher: exec.NewDispatcher(exec.WithLogger(r.log)),
		out:        &r.out,
		log:        r.log,
	}
	return r
}

const baseRSVConf = `[rsv]
user = rsv
consumers = html-consumer
`

const localMetricConf = `[org.osg.general.ping-host]
service-type = OSG-CE
execute = local
output-format = wlcg
need_proxy = false

[org.osg.general.ping-host env]
PROBE_GREETING = SET | hello from !!VDT_LOCATION!!
`

func TestRunMetric_LocalSuccess(t *testing.T) {
	in := newInstallation(t, baseRSVConf, localMetricConf,
		`echo "JOB RESULTS:"; echo OK; echo "$PROBE_GREETING $2 $4"`)
	run := newTestRun()

	code, err := runMetric(context.Background(), in.options(), run.deps)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"rsv"}, run.accounts.switched)

	out := run.out.String()
	assert.Contains(t, out, "metricName: "+testMetric+"\n")
	assert.Contains(t, out, "metricStatus: OK\n")
	assert.Contains(t, out, "serviceType: OSG-CE\n")
	assert.Contains(t, out, "serviceURI: localhost\n")
	assert.Contains(t, out, "detailsData: hello from "+in.vdt+" "+testMetric+" localhost\n")

	records, err := filepath.Glob(filepath.Join(in.rsv, "output", "html-consumer", "*.record"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRunMetric_HostOverride(t *testing.T) {
	in := newInstallation(t, baseRSVConf, localMetricConf,
		`echo "JOB RESULTS:"; echo OK; echo done`)
	hostConf := filepath.Join(in.rsv, "etc", "metrics", "localhost", testMetric+".conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(hostConf), 0o755))
	require.NoError(t, os.WriteFile(hostConf, []byte("[org.osg.general.ping-host]\noutput-format = brief\n"), 0o644))
	run := newTestRun()

	code, err := runMetric(context.Background(), in.options(), run.deps)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(run.out.String(), "✓ OK "+testMetric+" @ localhost\n"), run.out.String())
}

func TestRunMetric_MissingExecutable(t *testing.T) {
	in := newInstallation(t, baseRSVConf, localMetricConf, "")
	run := newTestRun()

	_, err := runMetric(context.Background(), in.options(), run.deps)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfigMissing))
	assert.Contains(t, err.Error(), "Metric does not exist")
	assert.Empty(t, run.accounts.switched)
}

func TestRunMetric_MissingMetricConfig(t *testing.T) {
	in := newInstallation(t, baseRSVConf, localMetricConf, "echo never")
	require.NoError(t, os.Remove(filepath.Join(in.rsv, "etc", "metrics", testMetric+".conf")))
	run := newTestRun()

	_, err := runMetric(context.Background(), in.options(), run.deps)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfigMissing))
}

func TestRunMetric_CredentialFailureSkipsDispatch(t *testing.T) {
	metricConf := strings.Replace(localMetricConf, "need_proxy = false\n", "", 1)
	in := newInstallation(t, baseRSVConf, metricConf, `touch "$(dirname "$0")/ran"`)
	run := newTestRun()

	_, err := runMetric(context.Background(), in.options(), run.deps)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCredential))
	assert.NoFileExists(t, filepath.Join(in.rsv, "bin", "metrics", "ran"))
	assert.Empty(t, run.out.String())
}

func TestRunMetric_ServiceProxyRenewed(t *testing.T) {
	rsvConf := baseRSVConf + "service_cert = /etc/grid-security/rsvcert.pem\n" +
		"service_key = /etc/grid-security/rsvkey.pem\n" +
		"service_proxy = /tmp/rsvproxy\n"
	metricConf := strings.Replace(localMetricConf, "need_proxy = false\n", "", 1)
	in := newInstallation(t, rsvConf, metricConf, `echo "JOB RESULTS:"; echo OK; echo fine`)
	run := newTestRun()
	run.deps.checker = fakeChecker{valid: false}

	code, err := runMetric(context.Background(), in.options(), run.deps)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.True(t, run.renewer.called)
}

func TestRunMetric_Timeout(t *testing.T) {
	in := newInstallation(t, baseRSVConf+"job_timeout = 1\n", localMetricConf, "sleep 30")
	run := newTestRun()

	start := time.Now()
	code, err := runMetric(context.Background(), in.options(), run.deps)

	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Less(t, time.Since(start), 15*time.Second)
	assert.Contains(t, run.out.String(), "metricStatus: CRITICAL\n")
	assert.Contains(t, run.out.String(), "within 1 seconds")
}

func TestRunMetric_ProcessFailure(t *testing.T) {
	in := newInstallation(t, baseRSVConf, localMetricConf, `echo "probe blew up" >&2; exit 3`)
	run := newTestRun()

	code, err := runMetric(context.Background(), in.options(), run.deps)

	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, run.out.String(), "Local job failed with exit code 3.")
	assert.Contains(t, run.out.String(), "probe blew up")
}

func TestRunMetric_MalformedOutput(t *testing.T) {
	in := newInstallation(t, baseRSVConf, localMetricConf, `echo "something unexpected"`)
	run := newTestRun()

	code, err := runMetric(context.Background(), in.options(), run.deps)

	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, "something unexpected\n", run.out.String())
	assert.True(t, run.log.Contains("error", "invalid data returned from job"))
}

func TestRunMetric_UnhandledExecuteMode(t *testing.T) {
	metricConf := strings.Replace(localMetricConf, "execute = local", "execute = batch", 1)
	in := newInstallation(t, baseRSVConf, metricConf, "echo never")
	run := newTestRun()

	_, err := runMetric(context.Background(), in.options(), run.deps)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDispatch))
	assert.Contains(t, err.Error(), "unhandled execute mode")
}

func TestRunMetric_InvalidConfig(t *testing.T) {
	in := newInstallation(t, baseRSVConf+"job_timeout = soon\n", localMetricConf, "echo never")
	run := newTestRun()

	_, err := runMetric(context.Background(), in.options(), run.deps)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfigInvalid))
}

func TestRequireUsable(t *testing.T) {
	tests := []struct {
		state   credential.State
		wantErr bool
	}{
		{credential.Skipped, false},
		{credential.ServiceCredential, false},
		{credential.UserProxy, false},
		{credential.Renewed, false},
		{credential.NotChecked, true},
		{credential.NoCredential, true},
		{credential.ExpiredFatal, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			err := requireUsable(tt.state)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCredential))
			assert.Contains(t, err.Error(), tt.state.String())
		})
	}
}
