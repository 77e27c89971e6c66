package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "aria"

// Metrics holds all Aria metric instruments.
type Metrics struct {
	Decisions        metric.Int64Counter
	Escalations      metric.Int64Counter
	UndoRequests     metric.Int64Counter
	UndoFinalized    metric.Int64Counter
	DispatchDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Decisions, err = meter.Int64Counter("aria.decisions",
		metric.WithDescription("Decisions produced by the decision engine"))
	if err != nil {
		return nil, err
	}

	m.Escalations, err = meter.Int64Counter("aria.escalations",
		metric.WithDescription("Evaluations escalated to human review"))
	if err != nil {
		return nil, err
	}

	m.UndoRequests, err = meter.Int64Counter("aria.undo.requests",
		metric.WithDescription("User-triggered undo requests processed"))
	if err != nil {
		return nil, err
	}

	m.UndoFinalized, err = meter.Int64Counter("aria.undo.finalized",
		metric.WithDescription("Reversible actions finalized after the undo window"))
	if err != nil {
		return nil, err
	}

	m.DispatchDuration, err = meter.Float64Histogram("aria.dispatch.duration_seconds",
		metric.WithDescription("Agent dispatch latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
