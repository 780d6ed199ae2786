// Package credential decides which grid credential a run uses and makes sure
// it will outlive the job.
package credential

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/logger"
)

const (
	// ServiceProxyThreshold is how long a service proxy must remain valid
	// before it is renewed.
	ServiceProxyThreshold = 6 * time.Hour

	// UserProxyThreshold is the minimum remaining lifetime of a user proxy.
	// User proxies are never renewed here.
	UserProxyThreshold = 10 * time.Minute
)

// ExpiryChecker reports whether the certificate at path is still valid
// `within` from now.
type ExpiryChecker interface {
	CheckExpiry(path string, within time.Duration) (bool, error)
}

// Renewer regenerates a proxy from a certificate and key.
type Renewer interface {
	Renew(ctx context.Context, cert, key, proxy string) (output string, err error)
}

// Manager runs the credential check for one run.
type Manager struct {
	checker ExpiryChecker
	renewer Renewer
	log     logger.Logger
}

// NewManager creates a Manager. A nil logger discards messages.
func NewManager(checker ExpiryChecker, renewer Renewer, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Noop()
	}
	return &Manager{checker: checker, renewer: renewer, log: log}
}

// Check validates (and for service credentials, renews) the credential
// described by cfg. A non-nil error is always a CREDENTIAL error and the run
// must not dispatch. Service credential keys take precedence over proxy_file
// when both are configured.
func (m *Manager) Check(ctx context.Context, cfg config.CredentialConfig) (State, error) {
	if !cfg.NeedProxy {
		m.log.Info("Skipping proxy check because need_proxy=false")
		return Skipped, nil
	}

	if cfg.HasServiceCredential() {
		return m.checkServiceProxy(ctx, cfg)
	}

	if cfg.HasProxyFile() {
		return m.checkUserProxy(cfg.ProxyFile)
	}

	return NoCredential, errors.New(errors.ErrCredential,
		"no proxy found",
		"Set service_cert, service_key and service_proxy, or proxy_file, in rsv.conf. "+
			"Set need_proxy = false in the metric configuration if it runs without one")
}

func (m *Manager) checkServiceProxy(ctx context.Context, cfg config.CredentialConfig) (State, error) {
	m.log.Info("Checking service certificate proxy:")

	for _, kv := range [][2]string{
		{"service_cert", cfg.ServiceCert},
		{"service_key", cfg.ServiceKey},
		{"service_proxy", cfg.ServiceProxy},
	} {
		if kv[1] == "" {
			return ExpiredFatal, errors.New(errors.ErrCredential,
				fmt.Sprintf("%s is set but empty in rsv.conf", kv[0]),
				"Give service_cert, service_key and service_proxy a path, or remove all three to use proxy_file")
		}
	}

	valid, err := m.checker.CheckExpiry(cfg.ServiceProxy, ServiceProxyThreshold)
	if err != nil {
		m.log.Debug("    %v", err)
	}
	if valid {
		m.log.Info("    Service certificate valid for at least %s.", ServiceProxyThreshold)
		return ServiceCredential, nil
	}

	m.log.Info("    Service certificate proxy expiring within %s.  Renewing it.", ServiceProxyThreshold)
	out, err := m.renewer.Renew(ctx, cfg.ServiceCert, cfg.ServiceKey, cfg.ServiceProxy)
	if err != nil {
		if out != "" {
			m.log.Error("grid-proxy-init output:\n%s", out)
		}
		return ExpiredFatal, errors.WrapWithCode(err, errors.ErrCredential,
			fmt.Sprintf("service proxy renewal failed (cert=%s key=%s proxy=%s)",
				cfg.ServiceCert, cfg.ServiceKey, cfg.ServiceProxy),
			"Check that the service certificate and key are readable by the RSV user and not expired")
	}

	return Renewed, nil
}

func (m *Manager) checkUserProxy(path string) (State, error) {
	m.log.Info("Checking user proxy")

	if path == "" {
		return ExpiredFatal, errors.New(errors.ErrCredential,
			"proxy_file is set but empty in rsv.conf",
			"Set proxy_file to the path of the RSV user's proxy")
	}

	if _, err := os.Stat(path); err != nil {
		return ExpiredFatal, errors.WrapWithCode(err, errors.ErrCredential,
			fmt.Sprintf("proxy file does not exist at %s", path),
			"Create a proxy with grid-proxy-init or voms-proxy-init as the RSV user")
	}

	valid, err := m.checker.CheckExpiry(path, UserProxyThreshold)
	if err != nil {
		return ExpiredFatal, errors.WrapWithCode(err, errors.ErrCredential,
			fmt.Sprintf("unable to read proxy file %s", path),
			"Regenerate the proxy")
	}
	if !valid {
		return ExpiredFatal, errors.New(errors.ErrCredential,
			fmt.Sprintf("proxy file %s is expired or will expire within %s", path, UserProxyThreshold),
			"Renew the proxy; it is never renewed automatically")
	}

	return UserProxy, nil
}
