package report

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gridmon/rsv-probe/internal/config"
	"github.com/gridmon/rsv-probe/internal/ui"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Formatter renders a Record for output.
type Formatter interface {
	// Name returns the output-format value that selects this formatter.
	Name() string

	// Format renders the record, ending with a newline.
	Format(r Record) string
}

// NewFormatter returns the formatter for an output-format value. Brief output
// is colored only when w is a terminal.
func NewFormatter(format string, w io.Writer) Formatter {
	if strings.EqualFold(format, config.OutputFormatBrief) {
		return NewBriefFormatter(w)
	}
	return WLCGFormatter{}
}

// WLCGFormatter writes the key: value record consumed by WLCG collectors.
type WLCGFormatter struct{}

// Name returns "wlcg".
func (WLCGFormatter) Name() string {
	return config.OutputFormatWLCG
}

// Format renders the record terminated by an EOT line.
func (WLCGFormatter) Format(r Record) string {
	var b strings.Builder
	field := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	field("metricName", r.MetricName)
	field("metricType", r.MetricType)
	field("timestamp", r.Timestamp.UTC().Format(time.RFC3339))
	field("metricStatus", r.MetricStatus)
	field("serviceType", r.ServiceType)
	field("serviceURI", r.ServiceURI)
	field("gatheredAt", r.GatheredAt)
	field("summaryData", r.Summary)
	field("detailsData", strings.TrimRight(r.Details, "\n"))
	b.WriteString("EOT\n")
	return b.String()
}

// BriefFormatter writes a one-line status header followed by the details.
type BriefFormatter struct {
	renderer *lipgloss.Renderer
}

// NewBriefFormatter creates a brief formatter for w. Color is only emitted
// when w is a terminal.
func NewBriefFormatter(w io.Writer) *BriefFormatter {
	r := lipgloss.NewRenderer(w)
	if !isTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return &BriefFormatter{renderer: r}
}

// Name returns "brief".
func (f *BriefFormatter) Name() string {
	return config.OutputFormatBrief
}

// Format renders "<symbol> STATUS metric @ uri" and the details.
func (f *BriefFormatter) Format(r Record) string {
	statusStyle := f.renderer.NewStyle().Bold(true).Foreground(ui.StatusColor(r.MetricStatus))
	mutedStyle := f.renderer.NewStyle().Foreground(ui.ColorMuted)

	var b strings.Builder
	b.WriteString(statusStyle.Render(ui.StatusSymbol(r.MetricStatus) + " " + r.MetricStatus))
	b.WriteString(" ")
	b.WriteString(r.MetricName)
	b.WriteString(mutedStyle.Render(" @ " + r.ServiceURI))
	b.WriteByte('\n')
	if details := strings.TrimRight(r.Details, "\n"); details != "" {
		b.WriteString(details)
		b.WriteByte('\n')
	}
	return b.String()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
