// Package metrics records validation runs with OpenTelemetry instruments.
package metrics

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Metric names.
const (
	DocumentsCheckedCounterName     = "markupcheck_documents_checked_total"
	DiagnosticsCounterName          = "markupcheck_diagnostics_total"
	SyntaxIssuesCounterName         = "markupcheck_syntax_issues_total"
	FeatureChecksCounterName        = "markupcheck_feature_checks_total"
	ValidationDurationHistogramName = "markupcheck_validation_duration_seconds"
)

// Attribute keys.
const (
	AttrVerdict = "verdict"
	AttrKind    = "kind"
	AttrSource  = "source"
	AttrProfile = "profile"
	AttrFound   = "found"
)

// CheckMetrics holds the instruments of a validation run.
type CheckMetrics struct {
	documentsCounter   metric.Int64Counter
	diagnosticsCounter metric.Int64Counter
	syntaxCounter      metric.Int64Counter
	featureCounter     metric.Int64Counter
	durationHistogram  metric.Float64Histogram
}

// NewCheckMetrics creates the instruments on the global meter provider.
func NewCheckMetrics() (*CheckMetrics, error) {
	return NewCheckMetricsWithProvider(otel.GetMeterProvider())
}

// NewNoopCheckMetrics creates instruments that record nothing.
func NewNoopCheckMetrics() *CheckMetrics {
	m, err := NewCheckMetricsWithProvider(noop.NewMeterProvider())
	if err != nil {
		// The noop provider never fails.
		panic(err)
	}
	return m
}

// NewCheckMetricsWithProvider creates the instruments on provider.
func NewCheckMetricsWithProvider(provider metric.MeterProvider) (*CheckMetrics, error) {
	meter := provider.Meter("markupcheck/validation")

	documentsCounter, err := meter.Int64Counter(DocumentsCheckedCounterName,
		metric.WithDescription("Total number of documents checked"),
	)
	if err != nil {
		return nil, err
	}

	diagnosticsCounter, err := meter.Int64Counter(DiagnosticsCounterName,
		metric.WithDescription("Total number of structural diagnostics"),
	)
	if err != nil {
		return nil, err
	}

	syntaxCounter, err := meter.Int64Counter(SyntaxIssuesCounterName,
		metric.WithDescription("Total number of JavaScript syntax issues"),
	)
	if err != nil {
		return nil, err
	}

	featureCounter, err := meter.Int64Counter(FeatureChecksCounterName,
		metric.WithDescription("Total number of feature rules evaluated"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(ValidationDurationHistogramName,
		metric.WithDescription("Validation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, err
	}

	return &CheckMetrics{
		documentsCounter:   documentsCounter,
		diagnosticsCounter: diagnosticsCounter,
		syntaxCounter:      syntaxCounter,
		featureCounter:     featureCounter,
		durationHistogram:  durationHistogram,
	}, nil
}

// RecordDocument records a finished validation.
func (m *CheckMetrics) RecordDocument(ctx context.Context, verdict string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrVerdict, verdict))
	m.documentsCounter.Add(ctx, 1, attrs)
	m.durationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// RecordDiagnostics records n diagnostics of one kind. source is "markup" or
// "script".
func (m *CheckMetrics) RecordDiagnostics(ctx context.Context, source, kind string, n int) {
	if n <= 0 {
		return
	}
	m.diagnosticsCounter.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String(AttrSource, source),
		attribute.String(AttrKind, kind),
	))
}

// RecordSyntaxIssues records JavaScript syntax issues.
func (m *CheckMetrics) RecordSyntaxIssues(ctx context.Context, n int) {
	if n > 0 {
		m.syntaxCounter.Add(ctx, int64(n))
	}
}

// RecordFeatureChecks records evaluated rules split by outcome.
func (m *CheckMetrics) RecordFeatureChecks(ctx context.Context, profile string, found, total int) {
	m.featureCounter.Add(ctx, int64(found), metric.WithAttributes(
		attribute.String(AttrProfile, profile), attribute.Bool(AttrFound, true)))
	m.featureCounter.Add(ctx, int64(total-found), metric.WithAttributes(
		attribute.String(AttrProfile, profile), attribute.Bool(AttrFound, false)))
}

// Collector is an in-process SDK meter provider whose totals are read on
// demand.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewCollector creates a collector tagged with the service name and version.
func NewCollector(ctx context.Context, serviceName, serviceVersion string) (*Collector, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return &Collector{reader: reader, provider: provider}, nil
}

// Provider returns the meter provider to create instruments on.
func (c *Collector) Provider() metric.MeterProvider {
	return c.provider
}

// Total is the aggregated value of one metric.
type Total struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Totals collects every metric and sums its data points. Histograms report
// their observation count.
func (c *Collector) Totals(ctx context.Context) ([]Total, error) {
	var data metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &data); err != nil {
		return nil, err
	}

	var totals []Total
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			var value float64
			switch d := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range d.DataPoints {
					value += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range d.DataPoints {
					value += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range d.DataPoints {
					value += float64(dp.Count)
				}
			default:
				continue
			}
			totals = append(totals, Total{Name: m.Name, Value: value})
		}
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Name < totals[j].Name })
	return totals, nil
}

// Shutdown releases the provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}
