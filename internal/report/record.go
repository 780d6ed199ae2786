// Package report renders the final outcome of a run and delivers it to the
// terminal and to registered consumers.
package report

import (
	"strings"
	"time"
)

// Metric statuses used for records this program generates itself.
const (
	StatusOK       = "OK"
	StatusCritical = "CRITICAL"
)

// Record is one metric result in the fields of the WLCG probe format.
type Record struct {
	MetricName   string
	MetricType   string
	MetricStatus string
	ServiceType  string
	ServiceURI   string
	GatheredAt   string
	Timestamp    time.Time
	Summary      string
	Details      string
}

// summaryFor is the first non-blank line of details, or the status.
func summaryFor(status, details string) string {
	for _, line := range strings.Split(details, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return status
}
