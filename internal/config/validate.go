package config

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gridmon/rsv-probe/internal/account"
	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/logger"
	"github.com/gridmon/rsv-probe/internal/util"
)

// ValidationOption controls validation behavior.
type ValidationOption func(*validationContext)

type validationContext struct {
	accounts    account.Resolver
	switchUser  bool
	vdtLocation string
	log         logger.Logger
}

// WithAccounts overrides the account resolver (used by tests).
func WithAccounts(r account.Resolver) ValidationOption {
	return func(c *validationContext) { c.accounts = r }
}

// WithoutPrivilegeSwitch resolves the user but keeps the current identity.
// Used by read-only commands that only inspect configuration.
func WithoutPrivilegeSwitch() ValidationOption {
	return func(c *validationContext) { c.switchUser = false }
}

// WithVDTLocation sets the value substituted for !!VDT_LOCATION!! in env entries.
func WithVDTLocation(path string) ValidationOption {
	return func(c *validationContext) { c.vdtLocation = path }
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l logger.Logger) ValidationOption {
	return func(c *validationContext) { c.log = l }
}

var consumerSplit = regexp.MustCompile(`\s*,\s*`)

// maxJobTimeout is the largest job_timeout, in seconds, a time.Duration holds.
const maxJobTimeout = math.MaxInt64 / int64(time.Second)

// Validate checks the loaded store for one metric and returns the resolved
// Settings. Soft defaults are written back into the store. Every returned
// error is fatal to the run.
func Validate(s *Store, metric string, opts ...ValidationOption) (*Settings, error) {
	ctx := &validationContext{
		accounts:   account.System{},
		switchUser: true,
		log:        logger.Noop(),
	}
	for _, opt := range opts {
		opt(ctx)
	}

	settings := &Settings{
		Metric:      metric,
		VDTLocation: ctx.vdtLocation,
	}

	if err := validateUser(s, ctx, settings); err != nil {
		return nil, err
	}

	trim, err := intWithDefault(s, KeyDetailsDataTrimLength, DefaultDetailsDataTrimLength)
	if err != nil {
		return nil, err
	}
	if trim < 0 {
		return nil, errors.New(errors.ErrConfigInvalid,
			fmt.Sprintf("%s must be a non-negative integer. It is set to '%d'", KeyDetailsDataTrimLength, trim),
			"Use 0 to disable trimming")
	}
	settings.DetailsDataTrimLength = trim

	timeout, err := intWithDefault(s, KeyJobTimeout, DefaultJobTimeout)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, errors.New(errors.ErrConfigInvalid,
			fmt.Sprintf("%s must be a positive integer. It is set to '%d'", KeyJobTimeout, timeout),
			"Set job_timeout in rsv.conf to a number of seconds")
	}
	if int64(timeout) > maxJobTimeout {
		return nil, errors.New(errors.ErrConfigInvalid,
			fmt.Sprintf("%s is too large. It is set to '%d', the maximum is %d", KeyJobTimeout, timeout, maxJobTimeout),
			"Set job_timeout in rsv.conf to a number of seconds")
	}
	settings.JobTimeout = time.Duration(timeout) * time.Second

	settings.Consumers = consumers(s, ctx.log)

	if err := validateMetric(s, metric, settings); err != nil {
		return nil, err
	}

	env, err := validateEnv(s, metric, ctx)
	if err != nil {
		return nil, err
	}
	settings.Env = env

	settings.Credentials = credentialConfig(s, metric)

	return settings, nil
}

func validateUser(s *Store, ctx *validationContext, settings *Settings) error {
	ctx.log.Info("Validating user:")

	name, ok := s.Get(SectionRSV, KeyUser)
	if !ok || strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrConfigInvalid,
			"'user' is missing in rsv.conf",
			"Set this value to your RSV user")
	}
	name = strings.TrimSpace(name)

	acct, err := ctx.accounts.Lookup(name)
	if err != nil {
		return err
	}

	if ctx.switchUser {
		if err := ctx.accounts.Switch(acct); err != nil {
			return err
		}
	}

	settings.User = name
	return nil
}

// intWithDefault reads an integer from the rsv section, storing def when absent.
func intWithDefault(s *Store, key string, def int) (int, error) {
	n, present, err := s.GetInt(SectionRSV, key)
	if !present {
		s.Set(SectionRSV, key, strconv.Itoa(def))
		return def, nil
	}
	if err != nil {
		raw, _ := s.Get(SectionRSV, key)
		return 0, errors.WrapWithCode(err, errors.ErrConfigInvalid,
			fmt.Sprintf("%s must be an integer. It is set to '%s'", key, raw),
			"Fix the value in rsv.conf")
	}
	return n, nil
}

func consumers(s *Store, log logger.Logger) []string {
	raw, ok := s.Get(SectionRSV, KeyConsumers)
	if !ok {
		s.Set(SectionRSV, KeyConsumers, "")
		log.Warn("no consumers are registered in rsv.conf.  This means that\n" +
			"records will not be sent to a central collector for availability\n" +
			"statistics.")
		return nil
	}

	var out []string
	for _, c := range consumerSplit.Split(strings.TrimSpace(raw), -1) {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	log.Info("Registered consumers: %s", util.JoinOrNone(out))
	return out
}

func validateMetric(s *Store, metric string, settings *Settings) error {
	serviceType, hasServiceType := s.Get(metric, KeyServiceType)
	execute, hasExecute := s.Get(metric, KeyExecute)
	if !hasServiceType || !hasExecute {
		return errors.New(errors.ErrConfigInvalid,
			"metric configuration is missing 'service-type' or 'execute' declaration",
			"This is likely caused by a missing or corrupt metric configuration file")
	}
	settings.ServiceType = serviceType
	settings.Execute = execute

	format, ok := s.Get(metric, KeyOutputFormat)
	if !ok {
		return errors.New(errors.ErrConfigInvalid,
			"desired output-format is missing",
			"This is likely caused by a missing or corrupt metric configuration file")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != OutputFormatWLCG && format != OutputFormatBrief {
		return errors.New(errors.ErrConfigInvalid,
			fmt.Sprintf("output-format can only be set to 'wlcg' or 'brief' (val: %s)", format),
			"Fix output-format in the metric configuration file")
	}
	settings.OutputFormat = format

	settings.MetricType, _ = s.Get(metric, KeyMetricType)
	if settings.MetricType == "" {
		settings.MetricType = DefaultMetricType
	}
	settings.JobManager, _ = s.Get(metric, KeyJobManager)
	if settings.JobManager == "" {
		settings.JobManager = DefaultJobManager
	}
	return nil
}

func validateEnv(s *Store, metric string, ctx *validationContext) ([]EnvironmentAction, error) {
	section := EnvSection(metric)
	if !s.HasSection(section) {
		ctx.log.Info("    No environment section in metric configuration")
		return nil, nil
	}

	var actions []EnvironmentAction
	for _, name := range s.Keys(section) {
		raw, _ := s.Get(section, name)
		action, err := ParseEnvironmentAction(name, raw, ctx.vdtLocation)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfigInvalid,
				fmt.Sprintf("invalid environment config setting in section '%s'", section), "")
		}
		s.Set(section, name, string(action.Action)+" | "+action.Value)
		actions = append(actions, action)
	}
	return actions, nil
}

func credentialConfig(s *Store, metric string) CredentialConfig {
	get := func(key string) (string, bool) {
		v, ok := s.Get(SectionRSV, key)
		return strings.TrimSpace(v), ok
	}
	cert, hasCert := get(KeyServiceCert)
	key, hasKey := get(KeyServiceKey)
	proxy, hasProxy := get(KeyServiceProxy)
	proxyFile, hasProxyFile := get(KeyProxyFile)
	return CredentialConfig{
		NeedProxy:         !s.Equals(metric, KeyNeedProxy, "false"),
		ServiceCert:       cert,
		ServiceKey:        key,
		ServiceProxy:      proxy,
		ProxyFile:         proxyFile,
		ServiceDeclared:   hasCert && hasKey && hasProxy,
		ProxyFileDeclared: hasProxyFile,
	}
}
