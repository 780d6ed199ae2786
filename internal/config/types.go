package config

import "time"

// Output formats accepted in the metric's output-format key.
const (
	OutputFormatWLCG  = "wlcg"
	OutputFormatBrief = "brief"
)

// Settings is the validated, read-only configuration for one run. It is built
// once by Validate and passed by value to every later stage.
type Settings struct {
	Metric      string `yaml:"metric"`
	VDTLocation string `yaml:"vdt_location"`

	// User is the account the probe runs as.
	User string `yaml:"user"`

	DetailsDataTrimLength int           `yaml:"details_data_trim_length"`
	JobTimeout            time.Duration `yaml:"job_timeout"`

	// Consumers receive a copy of every result record. Empty means results
	// are only printed.
	Consumers []string `yaml:"consumers"`

	ServiceType  string `yaml:"service_type"`
	Execute      string `yaml:"execute"`
	OutputFormat string `yaml:"output_format"`
	MetricType   string `yaml:"metric_type"`
	JobManager   string `yaml:"jobmanager"`

	Credentials CredentialConfig    `yaml:"credentials"`
	Env         []EnvironmentAction `yaml:"env,omitempty"`
}

// CredentialConfig carries the credential-related keys. Empty strings mean the
// key was not configured.
type CredentialConfig struct {
	// NeedProxy is false only when the metric declares need_proxy=false.
	NeedProxy bool `yaml:"need_proxy"`

	ServiceCert  string `yaml:"service_cert,omitempty"`
	ServiceKey   string `yaml:"service_key,omitempty"`
	ServiceProxy string `yaml:"service_proxy,omitempty"`
	ProxyFile    string `yaml:"proxy_file,omitempty"`

	// ServiceDeclared and ProxyFileDeclared record keys present in rsv.conf,
	// including ones written with an empty value.
	ServiceDeclared   bool `yaml:"-"`
	ProxyFileDeclared bool `yaml:"-"`
}

// HasServiceCredential reports whether all three service credential keys are
// declared, even if some are blank.
func (c CredentialConfig) HasServiceCredential() bool {
	return c.ServiceDeclared || (c.ServiceCert != "" && c.ServiceKey != "" && c.ServiceProxy != "")
}

// HasProxyFile reports whether proxy_file is declared.
func (c CredentialConfig) HasProxyFile() bool {
	return c.ProxyFileDeclared || c.ProxyFile != ""
}
