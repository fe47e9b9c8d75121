package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	refreshguard "github.com/refreshguard/refreshguard"
	"github.com/refreshguard/refreshguard/metrics/export/internaldefs"
)

// metricsSource is the read surface the exporter needs from an Engine.
type metricsSource interface {
	MetricsSnapshot() refreshguard.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders credential lifecycle metrics in the Prometheus
// text exposition format without a client library or a global registry.
// Callers mount Handler wherever they serve /metrics.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter reading from the given
// [refreshguard.Engine].
func NewPrometheusExporter(engine *refreshguard.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter from a custom metrics
// source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler serving the exposition.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics as exposition text. An engine with
// metrics disabled renders as the empty string.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		renderCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		renderHistogram(&b, def, cumulative)
	}
	renderCounter(&b, "refreshguard_audit_dropped_total", "Audit events discarded under dispatcher backpressure.", dropped)

	return b.String()
}

func renderCounter(b *strings.Builder, name, help string, value uint64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, escapeHelp(help), name, name, value)
}

func renderHistogram(b *strings.Builder, def internaldefs.HistogramDef, cumulative [8]uint64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s histogram\n", def.Name, escapeHelp(def.Help), def.Name)
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
	}
	// The in-process histogram tracks counts only, so the exposition's sum
	// is pinned at zero.
	fmt.Fprintf(b, "%s_sum 0\n%s_count %d\n", def.Name, def.Name, cumulative[len(cumulative)-1])
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}
