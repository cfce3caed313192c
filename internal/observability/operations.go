package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/LazySeaHorse/Just-De-Pic/services"

// Attribute keys shared by spans and metrics
const (
	AttrOperation = attribute.Key("depic.operation")
	AttrFilePath  = attribute.Key("file.path")
	AttrFormat    = attribute.Key("depic.format")
	AttrOutcome   = attribute.Key("depic.outcome")
	AttrStrategy  = attribute.Key("depic.strip.strategy")
)

// OperationMetrics holds the instruments recorded around every file operation
type OperationMetrics struct {
	operationCount    metric.Int64Counter
	operationDuration metric.Float64Histogram
	bytesWritten      metric.Int64Counter
	activeOperations  metric.Int64UpDownCounter
}

// NewOperationMetrics creates and registers operation metrics
func NewOperationMetrics(meter metric.Meter) (*OperationMetrics, error) {
	operationCount, err := meter.Int64Counter(
		"depic.operation.count",
		metric.WithDescription("Total number of image operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"depic.operation.duration",
		metric.WithDescription("Duration of image operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	bytesWritten, err := meter.Int64Counter(
		"depic.bytes.written",
		metric.WithDescription("Bytes written back to image files"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	activeOperations, err := meter.Int64UpDownCounter(
		"depic.operation.active",
		metric.WithDescription("Number of image operations in progress"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	return &OperationMetrics{
		operationCount:    operationCount,
		operationDuration: operationDuration,
		bytesWritten:      bytesWritten,
		activeOperations:  activeOperations,
	}, nil
}

// Operation is an instrumented call in progress. Start one with StartOperation
// and finish it with End.
type Operation struct {
	ctx     context.Context
	span    trace.Span
	metrics *OperationMetrics
	start   time.Time
	attrs   []attribute.KeyValue
}

// StartOperation opens a span named name for the file at path. metrics may be nil.
func StartOperation(ctx context.Context, tracer trace.Tracer, metrics *OperationMetrics, name, path string) (context.Context, *Operation) {
	if tracer == nil {
		tracer = GetTracer()
	}
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrOperation.String(name),
			AttrFilePath.String(path),
		),
	)

	op := &Operation{
		ctx:     ctx,
		span:    span,
		metrics: metrics,
		start:   time.Now(),
		attrs:   []attribute.KeyValue{AttrOperation.String(name)},
	}
	if metrics != nil {
		metrics.activeOperations.Add(ctx, 1, metric.WithAttributes(op.attrs...))
	}
	return ctx, op
}

// SetFormat tags the span and the metrics with the container format
func (o *Operation) SetFormat(format string) {
	o.attrs = append(o.attrs, AttrFormat.String(format))
	o.span.SetAttributes(AttrFormat.String(format))
}

// SetAttributes adds span-only attributes
func (o *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	o.span.SetAttributes(attrs...)
}

// Written records n bytes written back to disk
func (o *Operation) Written(n int) {
	o.span.SetAttributes(attribute.Int("depic.bytes.written", n))
	if o.metrics != nil {
		o.metrics.bytesWritten.Add(o.ctx, int64(n), metric.WithAttributes(o.attrs...))
	}
}

// End closes the span and records the outcome. It returns err unchanged.
func (o *Operation) End(err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.span.SetAttributes(AttrOutcome.String(outcome))
	o.span.End()

	if o.metrics != nil {
		// activeOperations was incremented with the name only
		o.metrics.activeOperations.Add(o.ctx, -1, metric.WithAttributes(o.attrs[0]))
		attrs := append(o.attrs, AttrOutcome.String(outcome))
		o.metrics.operationCount.Add(o.ctx, 1, metric.WithAttributes(attrs...))
		o.metrics.operationDuration.Record(o.ctx, time.Since(o.start).Seconds(), metric.WithAttributes(attrs...))
	}
	return err
}

// GetTracer returns the global tracer for service instrumentation
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// GetMeter returns the global meter for service metrics
func GetMeter() metric.Meter {
	return otel.Meter(instrumentationName)
}
