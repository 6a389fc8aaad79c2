package discounts

import (
	"context"
	"fmt"
)

const (
	report_price_fetch   = "price.fetch"
	report_price_persist = "price.persist"
)

type PriceResult struct {
	Priced int
	Failed int
}

// FetchPrices refreshes the pricing of every resolved entry, least recently
// updated first.
func (p Pipeline) FetchPrices(ctx context.Context) (PriceResult, error) {
	var result PriceResult

	resolved, err := p.catalog.Resolved(ctx)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_catalog, err, "Resolved")
		return result, fmt.Errorf("list resolved entries: %w", err)
	}

	for i, entry := range resolved {
		err := p.pause(ctx, i)
		if err != nil {
			return result, err
		}

		pricing, err := p.pricing.Pricing(ctx, *entry.ResolvedID)
		if err != nil {
			p.tel.ReportWarning(report_price_fetch, err, entry.SourceID, *entry.ResolvedID)
			result.Failed++
			continue
		}

		err = p.catalog.SetPricing(ctx, entry.SourceID, pricing, p.clock.Now())
		if err != nil {
			p.tel.ReportBroken(report_price_persist, err, entry.SourceID)
			result.Failed++
			continue
		}
		result.Priced++
		p.metrics.RecordPriceFetched(ctx)
	}

	return result, nil
}
