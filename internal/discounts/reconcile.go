package discounts

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/scrapers/bookmeter"
	"context"
	"errors"
	"fmt"
)

const (
	report_reconcile_insert = "reconcile.insert"
	report_reconcile_delete = "reconcile.delete"
)

type ReconcileResult struct {
	Inserted int
	Deleted  int
	// Skipped counts new books that could not be inserted.
	Skipped int
}

// Reconcile makes the catalog contain exactly the books of a complete
// crawl. Existing entries are left as they are, so running it twice with
// the same crawl changes nothing the second time.
func (p Pipeline) Reconcile(ctx context.Context, books []bookmeter.Book) (ReconcileResult, error) {
	var result ReconcileResult

	existing, err := p.catalog.FindAll(ctx)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_catalog, err, "FindAll")
		return result, fmt.Errorf("list catalog: %w", err)
	}
	known := make(map[int64]bool, len(existing))
	for _, e := range existing {
		known[e.SourceID] = true
	}

	present := make(map[int64]bool, len(books))
	lookups := 0
	for _, book := range books {
		present[book.ID] = true
		if known[book.ID] {
			continue
		}

		if book.ProductURL == "" {
			err := p.pause(ctx, lookups)
			if err != nil {
				return result, err
			}
			lookups++
		}

		err := p.insert(ctx, book)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Inserted++
	}

	for _, e := range existing {
		if present[e.SourceID] {
			continue
		}
		err := p.catalog.Delete(ctx, e.SourceID)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			p.tel.ReportBroken(report_reconcile_delete, err, e.SourceID)
			continue
		}
		result.Deleted++
		p.metrics.RecordDeleted(ctx)
	}

	return result, nil
}

func (p Pipeline) insert(ctx context.Context, book bookmeter.Book) error {
	productUrl := book.ProductURL
	if productUrl == "" {
		link, err := p.crawler.StoreLink(ctx, book.ID)
		if err != nil {
			p.tel.ReportWarning(report_reconcile_insert, err, book.ID)
			return err
		}
		productUrl = link
	}

	err := p.catalog.Insert(ctx, catalog.Entry{
		SourceID:   book.ID,
		ProductURL: productUrl,
		Title:      book.Title,
		UpdatedAt:  p.clock.Now(),
	})
	if errors.Is(err, catalog.ErrAlreadyExists) {
		p.tel.ReportWarning(report_reconcile_insert, err, book.ID)
		return err
	}
	if err != nil {
		p.tel.ReportBroken(report_reconcile_insert, err, book.ID)
		return err
	}
	return nil
}
