// Package metrics exports catalog mutations as OpenTelemetry counters.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const MeterName = "bookmeter-discounts"

// OtelSink counts deleted books, resolved Kindle identifiers and fetched
// prices.
type OtelSink struct {
	deleted  metric.Int64Counter
	resolved metric.Int64Counter
	priced   metric.Int64Counter
}

// NewOtelSink registers the counters on `provider`, nil means the global
// meter provider.
func NewOtelSink(provider metric.MeterProvider) (OtelSink, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(MeterName)

	deleted, err := meter.Int64Counter(
		"bookmeter.deleted_books",
		metric.WithDescription("Number of books deleted from the catalog"),
	)
	if err != nil {
		return OtelSink{}, err
	}
	resolved, err := meter.Int64Counter(
		"bookmeter.kindle_id_fetched",
		metric.WithDescription("Number of Kindle IDs fetched"),
	)
	if err != nil {
		return OtelSink{}, err
	}
	priced, err := meter.Int64Counter(
		"bookmeter.price_fetched",
		metric.WithDescription("Number of prices fetched for books with Kindle ID"),
	)
	if err != nil {
		return OtelSink{}, err
	}

	return OtelSink{deleted: deleted, resolved: resolved, priced: priced}, nil
}

func (s OtelSink) RecordDeleted(ctx context.Context) {
	s.deleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "delete_from_bookmeter"),
	))
}

func (s OtelSink) RecordIdentifierResolved(ctx context.Context) {
	s.resolved.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "fetch_kindle_id"),
	))
}

func (s OtelSink) RecordPriceFetched(ctx context.Context) {
	s.priced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "fetch_price"),
	))
}
