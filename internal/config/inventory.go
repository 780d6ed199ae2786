package config

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// metricName matches installed metric executables (org.osg.x.y) and skips
// dot-files and editor leftovers.
var metricName = regexp.MustCompile(`\w\.\w`)

// InstalledMetrics lists the metric executables under <rsv>/bin/metrics,
// sorted by name.
func InstalledMetrics(rsvLocation string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(rsvLocation, "bin", "metrics"))
	if err != nil {
		return nil, err
	}

	var metrics []string
	for _, e := range entries {
		if e.IsDir() || !metricName.MatchString(e.Name()) {
			continue
		}
		metrics = append(metrics, e.Name())
	}
	sort.Strings(metrics)
	return metrics, nil
}

// ConfiguredHosts lists hosts that carry host-specific metric configuration,
// mapped to the metrics configured for each. A missing metrics directory
// yields an empty map.
func ConfiguredHosts(rsvLocation string) (map[string][]string, error) {
	dir := filepath.Join(rsvLocation, "etc", "metrics")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, err
	}

	hosts := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		confs, err := filepath.Glob(filepath.Join(dir, e.Name(), "*.conf"))
		if err != nil {
			return nil, err
		}
		metrics := make([]string, 0, len(confs))
		for _, c := range confs {
			metrics = append(metrics, trimConf(filepath.Base(c)))
		}
		sort.Strings(metrics)
		hosts[e.Name()] = metrics
	}
	return hosts, nil
}

func trimConf(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
