package discounts

import (
	"bookmeter-discounts/internal/scrapers/amazon"
	"context"
	"errors"
	"fmt"
)

const (
	report_resolve_ebook_id = "resolve.ebook-id"
	report_resolve_persist  = "resolve.persist"
)

type ResolveResult struct {
	Resolved   int
	CooledDown int
	Failed     int
}

// ResolveIdentifiers looks up the Kindle identifier of every entry that has
// none yet and is not cooling down. Entries without a Kindle edition are put
// on cooldown for CooldownPeriod, any other failure leaves the entry as it
// was for the next run.
func (p Pipeline) ResolveIdentifiers(ctx context.Context) (ResolveResult, error) {
	var result ResolveResult

	pending, err := p.catalog.PendingResolution(ctx, p.clock.Now())
	if err != nil {
		p.tel.ReportBroken(report_pipeline_catalog, err, "PendingResolution")
		return result, fmt.Errorf("list unresolved entries: %w", err)
	}

	for i, entry := range pending {
		err := p.pause(ctx, i)
		if err != nil {
			return result, err
		}

		ebookId, err := p.resolver.EbookID(ctx, entry.ProductURL)
		if errors.Is(err, amazon.ErrEbookButtonNotFound) {
			now := p.clock.Now()
			err = p.catalog.SetCooldown(ctx, entry.SourceID, now.Add(CooldownPeriod), now)
			if err != nil {
				p.tel.ReportBroken(report_resolve_persist, err, entry.SourceID)
				result.Failed++
				continue
			}
			p.tel.ReportDebug("no kindle edition, cooling down", "source_id", entry.SourceID)
			result.CooledDown++
			continue
		}
		if err != nil {
			p.tel.ReportWarning(report_resolve_ebook_id, err, entry.SourceID, entry.ProductURL)
			result.Failed++
			continue
		}

		err = p.catalog.SetResolvedID(ctx, entry.SourceID, ebookId, p.clock.Now())
		if err != nil {
			p.tel.ReportBroken(report_resolve_persist, err, entry.SourceID)
			result.Failed++
			continue
		}
		result.Resolved++
		p.metrics.RecordIdentifierResolved(ctx)
	}

	return result, nil
}
