package otel

import (
	"context"
	"errors"
	"fmt"

	refreshguard "github.com/refreshguard/refreshguard"
	"github.com/refreshguard/refreshguard/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// metricsSource is the read surface the exporter needs from an Engine.
type metricsSource interface {
	MetricsSnapshot() refreshguard.MetricsSnapshot
	AuditDropped() uint64
}

// OTelExporter bridges the engine's internal counters into OpenTelemetry
// observable instruments. Values are read lazily inside a single registered
// callback, so collection cost is paid only when a reader collects.
type OTelExporter struct {
	source metricsSource

	counters     map[refreshguard.MetricID]metric.Int64ObservableCounter
	bucketGauges map[refreshguard.MetricID][]metric.Int64ObservableGauge
	countGauges  map[refreshguard.MetricID]metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter

	registration metric.Registration
}

// NewOTelExporter wires an Engine's metrics into meter. The exporter never
// owns the MeterProvider; callers configure readers and views themselves.
func NewOTelExporter(meter metric.Meter, engine *refreshguard.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is the injectable variant used by tests.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:       source,
		counters:     make(map[refreshguard.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		bucketGauges: make(map[refreshguard.MetricID][]metric.Int64ObservableGauge, len(internaldefs.HistogramDefs)),
		countGauges:  make(map[refreshguard.MetricID]metric.Int64ObservableGauge, len(internaldefs.HistogramDefs)),
	}

	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		gauges := make([]metric.Int64ObservableGauge, len(internaldefs.HistogramBoundSuffix))
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			ins, err := meter.Int64ObservableGauge(
				def.Name+"_bucket_le_"+suffix,
				metric.WithDescription("Cumulative histogram bucket count."),
			)
			if err != nil {
				return nil, fmt.Errorf("histogram bucket %s_bucket_le_%s: %w", def.Name, suffix, err)
			}
			gauges[i] = ins
			observables = append(observables, ins)
		}
		e.bucketGauges[def.ID] = gauges

		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("histogram count %s_count: %w", def.Name, err)
		}
		e.countGauges[def.ID] = count
		observables = append(observables, count)
	}

	dropped, err := meter.Int64ObservableCounter(
		"refreshguard_audit_dropped_total",
		metric.WithDescription("Audit events discarded under dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register metrics callback: %w", err)
	}
	e.registration = reg

	return e, nil
}

// observe reads one consistent snapshot and reports every instrument from it.
func (e *OTelExporter) observe(_ context.Context, obs metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for id, ins := range e.counters {
		obs.ObserveInt64(ins, int64(snap.Counters[id]))
	}

	for id, gauges := range e.bucketGauges {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
		for i, ins := range gauges {
			obs.ObserveInt64(ins, int64(cumulative[i]))
		}
		obs.ObserveInt64(e.countGauges[id], int64(cumulative[len(cumulative)-1]))
	}

	obs.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
