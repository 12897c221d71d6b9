package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sitegrove"

// Metrics holds all sitegrove metric instruments.
type Metrics struct {
	Resolutions       metric.Int64Counter
	ResolveNotFound   metric.Int64Counter
	StatusEvaluations metric.Int64Counter
	Invalidations     metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Resolutions, err = meter.Int64Counter("sitegrove.resolve.total",
		metric.WithDescription("Number of hostname resolutions"))
	if err != nil {
		return nil, err
	}

	m.ResolveNotFound, err = meter.Int64Counter("sitegrove.resolve.not_found",
		metric.WithDescription("Number of resolutions with no tenant mapping"))
	if err != nil {
		return nil, err
	}

	m.StatusEvaluations, err = meter.Int64Counter("sitegrove.status.evaluations",
		metric.WithDescription("Number of open/closed status evaluations"))
	if err != nil {
		return nil, err
	}

	m.Invalidations, err = meter.Int64Counter("sitegrove.cache.invalidations",
		metric.WithDescription("Number of cache invalidation operations"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
