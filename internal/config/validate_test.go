package config

import (
	"testing"
	"time"

	"github.com/gridmon/rsv-probe/internal/account"
	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMetric = "org.osg.general.ping-host"

type fakeAccounts struct {
	known     map[string]account.Account
	switched  []string
	switchErr error
}

func (f *fakeAccounts) Lookup(name string) (account.Account, error) {
	acct, ok := f.known[name]
	if !ok {
		return account.Account{}, errors.New(errors.ErrCredential, "The '"+name+"' user defined in rsv.conf does not exist", "")
	}
	return acct, nil
}

func (f *fakeAccounts) Switch(acct account.Account) error {
	f.switched = append(f.switched, acct.Name)
	return f.switchErr
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{known: map[string]account.Account{
		"rsv": {Name: "rsv", UID: 500, GID: 500},
	}}
}

// validStore returns a store that passes validation; tests mutate it.
func validStore() *Store {
	s := NewStore(nil)
	s.Set(SectionRSV, KeyUser, "rsv")
	s.Set(SectionRSV, KeyConsumers, "html-consumer, gratia-consumer")
	s.Set(testMetric, KeyServiceType, "OSG-CE")
	s.Set(testMetric, KeyExecute, "local")
	s.Set(testMetric, KeyOutputFormat, "WLCG")
	return s
}

func TestValidate_Success(t *testing.T) {
	accts := newFakeAccounts()
	s := validStore()
	s.Set(SectionRSV, KeyJobTimeout, "60")

	settings, err := Validate(s, testMetric, WithAccounts(accts))
	require.NoError(t, err)

	assert.Equal(t, "rsv", settings.User)
	assert.Equal(t, []string{"rsv"}, accts.switched)
	assert.Equal(t, 60*time.Second, settings.JobTimeout)
	assert.Equal(t, DefaultDetailsDataTrimLength, settings.DetailsDataTrimLength)
	assert.Equal(t, []string{"html-consumer", "gratia-consumer"}, settings.Consumers)
	assert.Equal(t, "OSG-CE", settings.ServiceType)
	assert.Equal(t, "local", settings.Execute)
	assert.Equal(t, OutputFormatWLCG, settings.OutputFormat)
	assert.Equal(t, DefaultMetricType, settings.MetricType)
	assert.Equal(t, DefaultJobManager, settings.JobManager)
	assert.True(t, settings.Credentials.NeedProxy)
	assert.Empty(t, settings.Env)
}

func TestValidate_User(t *testing.T) {
	t.Run("missing user", func(t *testing.T) {
		s := validStore()
		s.Set(SectionRSV, KeyUser, "")

		_, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfigInvalid))
		assert.Contains(t, err.Error(), "'user' is missing")
	})

	t.Run("unknown user", func(t *testing.T) {
		s := validStore()
		s.Set(SectionRSV, KeyUser, "nobody-here")

		_, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCredential))
	})

	t.Run("switch failure is fatal", func(t *testing.T) {
		accts := newFakeAccounts()
		accts.switchErr = errors.New(errors.ErrCredential, "cannot switch", "")

		_, err := Validate(validStore(), testMetric, WithAccounts(accts))
		assert.Error(t, err)
	})

	t.Run("switch can be skipped", func(t *testing.T) {
		accts := newFakeAccounts()

		_, err := Validate(validStore(), testMetric, WithAccounts(accts), WithoutPrivilegeSwitch())
		require.NoError(t, err)
		assert.Empty(t, accts.switched)
	})
}

func TestValidate_IntegerKeys(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		absent    bool
		wantErr   bool
		wantTrim  int
		wantTimer time.Duration
	}{
		{name: "trim absent defaults", key: KeyDetailsDataTrimLength, absent: true, wantTrim: 10000, wantTimer: 300 * time.Second},
		{name: "timeout absent defaults", key: KeyJobTimeout, absent: true, wantTrim: 10000, wantTimer: 300 * time.Second},
		{name: "trim zero allowed", key: KeyDetailsDataTrimLength, value: "0", wantTrim: 0, wantTimer: 300 * time.Second},
		{name: "trim non-integer", key: KeyDetailsDataTrimLength, value: "lots", wantErr: true},
		{name: "trim negative", key: KeyDetailsDataTrimLength, value: "-1", wantErr: true},
		{name: "timeout non-integer", key: KeyJobTimeout, value: "5m", wantErr: true},
		{name: "timeout zero", key: KeyJobTimeout, value: "0", wantErr: true},
		{name: "timeout set", key: KeyJobTimeout, value: "42", wantTrim: 10000, wantTimer: 42 * time.Second},
		{name: "timeout overflows duration", key: KeyJobTimeout, value: "10000000000", wantErr: true},
		{name: "timeout at duration limit", key: KeyJobTimeout, value: "9223372036", wantTrim: 10000, wantTimer: 9223372036 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStore()
			if !tt.absent {
				s.Set(SectionRSV, tt.key, tt.value)
			}

			settings, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfigInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrim, settings.DetailsDataTrimLength)
			assert.Equal(t, tt.wantTimer, settings.JobTimeout)

			if tt.absent {
				v, ok := s.Get(SectionRSV, tt.key)
				assert.True(t, ok, "default written back to store")
				assert.NotEmpty(t, v)
			}
		})
	}
}

func TestValidate_ConsumersMissingWarns(t *testing.T) {
	log := logger.NewBufferLogger()
	s := validStore()
	s2 := NewStore(nil)
	for _, sec := range s.Sections() {
		for _, k := range s.Keys(sec) {
			if sec == SectionRSV && k == KeyConsumers {
				continue
			}
			v, _ := s.Get(sec, k)
			s2.Set(sec, k, v)
		}
	}

	settings, err := Validate(s2, testMetric, WithAccounts(newFakeAccounts()), WithLogger(log))
	require.NoError(t, err)

	assert.Empty(t, settings.Consumers)
	assert.True(t, log.Contains("warn", "no consumers are registered"))
	v, ok := s2.Get(SectionRSV, KeyConsumers)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestValidate_MetricKeys(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Store)
		wantErr string
	}{
		{
			name:    "missing service-type",
			mutate:  func(s *Store) { s.sections[testMetric].values = map[string]string{KeyExecute: "local", KeyOutputFormat: "wlcg"} },
			wantErr: "'service-type' or 'execute'",
		},
		{
			name:    "missing execute",
			mutate:  func(s *Store) { s.sections[testMetric].values = map[string]string{KeyServiceType: "CE", KeyOutputFormat: "wlcg"} },
			wantErr: "'service-type' or 'execute'",
		},
		{
			name:    "missing output-format",
			mutate:  func(s *Store) { s.sections[testMetric].values = map[string]string{KeyServiceType: "CE", KeyExecute: "local"} },
			wantErr: "output-format is missing",
		},
		{
			name:    "bad output-format",
			mutate:  func(s *Store) { s.Set(testMetric, KeyOutputFormat, "json") },
			wantErr: "output-format can only be set to 'wlcg' or 'brief'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStore()
			tt.mutate(s)

			_, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfigInvalid))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_OutputFormatCaseInsensitive(t *testing.T) {
	for _, format := range []string{"wlcg", "WLCG", "Brief", "BRIEF"} {
		s := validStore()
		s.Set(testMetric, KeyOutputFormat, format)

		settings, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
		require.NoError(t, err, format)
		assert.Contains(t, []string{OutputFormatWLCG, OutputFormatBrief}, settings.OutputFormat)
	}
}

func TestValidate_EnvSection(t *testing.T) {
	t.Run("valid entries resolved", func(t *testing.T) {
		s := validStore()
		s.Set(EnvSection(testMetric), "FOO", "SET | bar")
		s.Set(EnvSection(testMetric), "PATH", "prepend | !!VDT_LOCATION!!/globus/bin")

		settings, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()), WithVDTLocation("/opt/vdt"))
		require.NoError(t, err)

		require.Len(t, settings.Env, 2)
		assert.Equal(t, EnvironmentAction{Name: "FOO", Action: EnvSet, Value: "bar"}, settings.Env[0])
		assert.Equal(t, EnvironmentAction{Name: "PATH", Action: EnvPrepend, Value: "/opt/vdt/globus/bin"}, settings.Env[1])
	})

	for _, raw := range []string{"bogus", "MAYBE | bar"} {
		t.Run("invalid "+raw, func(t *testing.T) {
			s := validStore()
			s.Set(EnvSection(testMetric), "FOO", raw)

			_, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfigInvalid))
		})
	}
}

func TestValidate_Credentials(t *testing.T) {
	s := validStore()
	s.Set(testMetric, KeyNeedProxy, "False")
	s.Set(SectionRSV, KeyServiceCert, "/etc/grid-security/rsv/rsvcert.pem")
	s.Set(SectionRSV, KeyServiceKey, "/etc/grid-security/rsv/rsvkey.pem")
	s.Set(SectionRSV, KeyServiceProxy, "/tmp/rsvproxy")
	s.Set(SectionRSV, KeyProxyFile, "/tmp/x509up_u500")

	settings, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
	require.NoError(t, err)

	c := settings.Credentials
	assert.False(t, c.NeedProxy)
	assert.True(t, c.HasServiceCredential())
	assert.Equal(t, "/tmp/x509up_u500", c.ProxyFile)
}

func TestValidate_CredentialKeysDeclaredEmpty(t *testing.T) {
	tests := []struct {
		name         string
		set          map[string]string
		wantService  bool
		wantUserFile bool
	}{
		{
			name: "blank service cert still selects service credential",
			set: map[string]string{
				KeyServiceCert:  "",
				KeyServiceKey:   "/etc/grid-security/rsv/rsvkey.pem",
				KeyServiceProxy: "/tmp/rsvproxy",
				KeyProxyFile:    "/tmp/x509up_u500",
			},
			wantService:  true,
			wantUserFile: true,
		},
		{
			name:         "blank proxy file is declared",
			set:          map[string]string{KeyProxyFile: ""},
			wantUserFile: true,
		},
		{
			name: "partial service keys fall through",
			set: map[string]string{
				KeyServiceCert: "/etc/grid-security/rsv/rsvcert.pem",
				KeyProxyFile:   "/tmp/x509up_u500",
			},
			wantUserFile: true,
		},
		{name: "nothing declared", set: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStore()
			for k, v := range tt.set {
				s.Set(SectionRSV, k, v)
			}

			settings, err := Validate(s, testMetric, WithAccounts(newFakeAccounts()))
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, settings.Credentials.HasServiceCredential())
			assert.Equal(t, tt.wantUserFile, settings.Credentials.HasProxyFile())
		})
	}
}
