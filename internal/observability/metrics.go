package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cory-johannsen/fiefdom"

// ActionMetrics records per-kind action outcomes.
type ActionMetrics struct {
	success  metric.Int64Counter
	rejected metric.Int64Counter
	conflict metric.Int64Counter
	failure  metric.Int64Counter
	latency  metric.Float64Histogram
	produced metric.Int64Counter
	consumed metric.Int64Counter
}

// NewActionMetrics creates the action instruments on the given provider.
// A nil provider falls back to the global provider.
//
// Postcondition: Returns usable instruments or a non-nil error.
func NewActionMetrics(mp metric.MeterProvider) (*ActionMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)

	var (
		am  ActionMetrics
		err error
	)
	if am.success, err = m.Int64Counter("fief.action.success", metric.WithDescription("actions resolved successfully")); err != nil {
		return nil, fmt.Errorf("creating success counter: %w", err)
	}
	if am.rejected, err = m.Int64Counter("fief.action.rejected", metric.WithDescription("actions rejected by validation or cost")); err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	if am.conflict, err = m.Int64Counter("fief.action.conflict", metric.WithDescription("optimistic transaction retries")); err != nil {
		return nil, fmt.Errorf("creating conflict counter: %w", err)
	}
	if am.failure, err = m.Int64Counter("fief.action.failure", metric.WithDescription("actions failed by internal error")); err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}
	if am.latency, err = m.Float64Histogram("fief.action.duration", metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}
	if am.produced, err = m.Int64Counter("fief.resources.produced", metric.WithDescription("resource units yielded by actions")); err != nil {
		return nil, fmt.Errorf("creating produced counter: %w", err)
	}
	if am.consumed, err = m.Int64Counter("fief.resources.consumed", metric.WithDescription("resource units spent by actions")); err != nil {
		return nil, fmt.Errorf("creating consumed counter: %w", err)
	}
	return &am, nil
}

func kindAttr(kind string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", kind))
}

// RecordSuccess counts a committed successful action.
func (m *ActionMetrics) RecordSuccess(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.success.Add(ctx, 1, kindAttr(kind))
}

// RecordRejected counts an action that was refused without commit.
func (m *ActionMetrics) RecordRejected(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, kindAttr(kind))
}

// RecordConflict counts one CAS retry.
func (m *ActionMetrics) RecordConflict(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.conflict.Add(ctx, 1, kindAttr(kind))
}

// RecordFailure counts an action aborted by an internal error.
func (m *ActionMetrics) RecordFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.failure.Add(ctx, 1, kindAttr(kind))
}

// RecordDuration records end-to-end resolution latency in milliseconds.
func (m *ActionMetrics) RecordDuration(ctx context.Context, kind string, ms float64) {
	if m == nil {
		return
	}
	m.latency.Record(ctx, ms, kindAttr(kind))
}

// RecordFlow adds per-resource production and consumption, tagged with the action category.
func (m *ActionMetrics) RecordFlow(ctx context.Context, category string, produced, consumed map[string]int) {
	if m == nil {
		return
	}
	for res, n := range produced {
		if n > 0 {
			m.produced.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("category", category),
				attribute.String("resource", res),
			))
		}
	}
	for res, n := range consumed {
		if n > 0 {
			m.consumed.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("category", category),
				attribute.String("resource", res),
			))
		}
	}
}
