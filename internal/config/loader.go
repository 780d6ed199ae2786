package config

import (
	"path/filepath"
	"strconv"
)

// Default values for knobs that may be omitted from the configuration files.
const (
	// Details data can be enormous, so it is trimmed to this many bytes.
	// A value of 0 means no trimming.
	DefaultDetailsDataTrimLength = 10000

	// DefaultJobTimeout is the job timeout in seconds.
	DefaultJobTimeout = 300

	// Remote jobs run on the CE headnode, so they use the fork jobmanager.
	DefaultJobManager = "fork"

	// Every current metric is a status metric.
	DefaultMetricType = "status"
)

// Section and key names shared across the package.
const (
	SectionRSV = "rsv"

	KeyUser                  = "user"
	KeyDetailsDataTrimLength = "details_data_trim_length"
	KeyJobTimeout            = "job_timeout"
	KeyConsumers             = "consumers"
	KeyServiceCert           = "service_cert"
	KeyServiceKey            = "service_key"
	KeyServiceProxy          = "service_proxy"
	KeyProxyFile             = "proxy_file"

	KeyServiceType  = "service-type"
	KeyExecute      = "execute"
	KeyOutputFormat = "output-format"
	KeyJobManager   = "jobmanager"
	KeyMetricType   = "metric-type"
	KeyNeedProxy    = "need_proxy"
)

// Layout locates the configuration files for one metric/host run.
type Layout struct {
	// RSVLocation is the osg-rsv directory under the VDT location.
	RSVLocation string
	Metric      string
	URI         string
}

// NewLayout builds a Layout rooted at <vdtLocation>/osg-rsv.
func NewLayout(vdtLocation, metric, uri string) Layout {
	return Layout{
		RSVLocation: filepath.Join(vdtLocation, "osg-rsv"),
		Metric:      metric,
		URI:         uri,
	}
}

// GlobalFile is the required rsv.conf.
func (l Layout) GlobalFile() string {
	return filepath.Join(l.RSVLocation, "etc", "rsv.conf")
}

// MetricFile is the required per-metric configuration.
func (l Layout) MetricFile() string {
	return filepath.Join(l.RSVLocation, "etc", "metrics", l.Metric+".conf")
}

// HostFile is the optional per-metric, per-host configuration.
func (l Layout) HostFile() string {
	return filepath.Join(l.RSVLocation, "etc", "metrics", l.URI, l.Metric+".conf")
}

// Executable is the path of the metric probe.
func (l Layout) Executable() string {
	return filepath.Join(l.RSVLocation, "bin", "metrics", l.Metric)
}

// OutputDir is where consumer spool directories live.
func (l Layout) OutputDir() string {
	return filepath.Join(l.RSVLocation, "output")
}

// EnvSection is the name of the metric's environment section.
func EnvSection(metric string) string {
	return metric + " env"
}

// SetDefaults loads the built-in defaults for a metric into the store.
func SetDefaults(s *Store, metric string) {
	s.SetDefault(metric, KeyJobManager, DefaultJobManager)
	s.SetDefault(metric, KeyMetricType, DefaultMetricType)
	s.SetDefault(SectionRSV, KeyDetailsDataTrimLength, strconv.Itoa(DefaultDetailsDataTrimLength))
	s.SetDefault(SectionRSV, KeyJobTimeout, strconv.Itoa(DefaultJobTimeout))
}

// LoadLayers populates the store in fixed order: defaults, global file,
// metric file, then the optional metric+host file.
func LoadLayers(s *Store, layout Layout) error {
	s.log.Debug("Loading default configuration settings:")
	SetDefaults(s, layout.Metric)

	s.log.Info("Reading configuration files:")
	files := []struct {
		path     string
		required bool
	}{
		{layout.GlobalFile(), true},
		{layout.MetricFile(), true},
		{layout.HostFile(), false},
	}

	for _, f := range files {
		if err := s.Load(f.path, f.required); err != nil {
			return err
		}
	}
	return nil
}
