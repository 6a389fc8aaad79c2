package discounts

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/scrapers/amazon"
	"context"
)

// Discount is the outward view of a ranked entry.
type Discount struct {
	SourceID     int64   `json:"source_id"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	EbookID      string  `json:"ebook_id"`
	ListPrice    int64   `json:"list_price"`
	CurrentPrice int64   `json:"current_price"`
	DiscountRate float64 `json:"discount_rate"`
}

// NewDiscounts converts ranked entries, entries that are not fully priced
// are dropped.
func NewDiscounts(entries []catalog.Entry) []Discount {
	out := make([]Discount, 0, len(entries))
	for _, e := range entries {
		if !e.Resolved() || !e.Priced() {
			continue
		}
		out = append(out, Discount{
			SourceID:     e.SourceID,
			Title:        e.Title,
			URL:          amazon.ProductURL(*e.ResolvedID),
			EbookID:      *e.ResolvedID,
			ListPrice:    *e.ListPrice,
			CurrentPrice: *e.CurrentPrice,
			DiscountRate: *e.DiscountRate,
		})
	}
	return out
}

// Discounts returns the fully priced entries, best discount first. A limit
// of zero or less means catalog.DefaultDiscountsLimit.
func (p Pipeline) Discounts(ctx context.Context, limit int) ([]catalog.Entry, error) {
	entries, err := p.catalog.Discounts(ctx, limit)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_catalog, err, "Discounts")
		return nil, err
	}
	return entries, nil
}
