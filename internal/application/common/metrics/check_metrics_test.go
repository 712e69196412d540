package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &data))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestCheckMetrics_RecordsInstruments(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewCheckMetricsWithProvider(provider)
	require.NoError(t, err)

	m.RecordDocument(ctx, "pass", 20*time.Millisecond)
	m.RecordDocument(ctx, "fail", 40*time.Millisecond)
	m.RecordDiagnostics(ctx, "markup", "mismatched", 2)
	m.RecordDiagnostics(ctx, "script", "unclosed", 0)
	m.RecordSyntaxIssues(ctx, 3)
	m.RecordFeatureChecks(ctx, "pacman", 7, 10)

	got := collect(t, reader)

	docs, ok := got[DocumentsCheckedCounterName].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, docs.DataPoints, 2)
	for _, dp := range docs.DataPoints {
		assert.Equal(t, int64(1), dp.Value)
		_, hasVerdict := dp.Attributes.Value(attribute.Key(AttrVerdict))
		assert.True(t, hasVerdict)
	}

	diags, ok := got[DiagnosticsCounterName].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, diags.DataPoints, 1, "zero counts are not recorded")
	assert.Equal(t, int64(2), diags.DataPoints[0].Value)
	kind, _ := diags.DataPoints[0].Attributes.Value(attribute.Key(AttrKind))
	assert.Equal(t, "mismatched", kind.AsString())

	syntax, ok := got[SyntaxIssuesCounterName].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3), syntax.DataPoints[0].Value)

	features, ok := got[FeatureChecksCounterName].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range features.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(10), total)

	hist, ok := got[ValidationDurationHistogramName].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestCollector_Totals(t *testing.T) {
	ctx := context.Background()
	c, err := NewCollector(ctx, "markupcheck", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(ctx) })

	m, err := NewCheckMetricsWithProvider(c.Provider())
	require.NoError(t, err)
	m.RecordDocument(ctx, "pass", time.Millisecond)
	m.RecordDocument(ctx, "pass", time.Millisecond)
	m.RecordDiagnostics(ctx, "markup", "unclosed", 4)

	totals, err := c.Totals(ctx)
	require.NoError(t, err)

	byName := make(map[string]float64)
	for _, tot := range totals {
		byName[tot.Name] = tot.Value
	}
	assert.InDelta(t, 2.0, byName[DocumentsCheckedCounterName], 1e-9)
	assert.InDelta(t, 4.0, byName[DiagnosticsCounterName], 1e-9)
	assert.InDelta(t, 2.0, byName[ValidationDurationHistogramName], 1e-9)
	assert.IsIncreasing(t, names(totals))
}

func TestNewNoopCheckMetrics(t *testing.T) {
	m := NewNoopCheckMetrics()

	assert.NotPanics(t, func() {
		m.RecordDocument(context.Background(), "pass", time.Second)
		m.RecordFeatureChecks(context.Background(), "generic", 0, 0)
	})
}

func names(totals []Total) []string {
	out := make([]string, len(totals))
	for i, t := range totals {
		out[i] = t.Name
	}
	return out
}
