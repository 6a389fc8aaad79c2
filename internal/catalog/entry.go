package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// Entry is one wishlisted book and whatever has been learned about its
// e-book listing so far.
type Entry struct {
	SourceID     int64      `json:"source_id"`
	ProductURL   string     `json:"product_url"`
	ResolvedID   *string    `json:"resolved_id"`
	Title        string     `json:"title"`
	ListPrice    *int64     `json:"list_price"`
	CurrentPrice *int64     `json:"current_price"`
	DiscountRate *float64   `json:"discount_rate"`
	RetryAfter   *time.Time `json:"retry_after,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Resolved reports whether the storefront identifier is known.
func (e Entry) Resolved() bool {
	return e.ResolvedID != nil
}

// Priced reports whether pricing has been recorded for the entry.
func (e Entry) Priced() bool {
	return e.ListPrice != nil && e.CurrentPrice != nil && e.DiscountRate != nil
}

// CoolingDown reports whether resolution must be skipped at `now`.
func (e Entry) CoolingDown(now time.Time) bool {
	return e.RetryAfter != nil && now.Before(*e.RetryAfter)
}

// Pricing is what the pricing aggregator knows about a listing. Prices are
// whole yen.
type Pricing struct {
	ListPrice    int64
	CurrentPrice int64
	Rebate       int64
}

// DiscountRate is 1 - (current - rebate) / list. It is intentionally not
// clamped, a rebate larger than the price yields a rate above 1.
func (p Pricing) DiscountRate() float64 {
	return 1 - float64(p.CurrentPrice-p.Rebate)/float64(p.ListPrice)
}

func (p Pricing) validate() error {
	if p.ListPrice <= 0 {
		return fmt.Errorf("list price must be positive, got %d", p.ListPrice)
	}
	return nil
}

// row is the storage representation of Entry, timestamps are unix seconds.
type row struct {
	SourceID     int64           `db:"source_id"`
	ProductURL   string          `db:"product_url"`
	ResolvedID   sql.NullString  `db:"resolved_id"`
	Title        string          `db:"title"`
	ListPrice    sql.NullInt64   `db:"list_price"`
	CurrentPrice sql.NullInt64   `db:"current_price"`
	DiscountRate sql.NullFloat64 `db:"discount_rate"`
	RetryAfter   sql.NullInt64   `db:"retry_after"`
	UpdatedAt    int64           `db:"updated_at"`
}

const rowColumns = `source_id, product_url, resolved_id, title, list_price,
	current_price, discount_rate, retry_after, updated_at`

func (r row) entry() Entry {
	e := Entry{
		SourceID:   r.SourceID,
		ProductURL: r.ProductURL,
		Title:      r.Title,
		UpdatedAt:  time.Unix(r.UpdatedAt, 0).UTC(),
	}
	if r.ResolvedID.Valid {
		id := r.ResolvedID.String
		e.ResolvedID = &id
	}
	if r.ListPrice.Valid {
		v := r.ListPrice.Int64
		e.ListPrice = &v
	}
	if r.CurrentPrice.Valid {
		v := r.CurrentPrice.Int64
		e.CurrentPrice = &v
	}
	if r.DiscountRate.Valid {
		v := r.DiscountRate.Float64
		e.DiscountRate = &v
	}
	if r.RetryAfter.Valid {
		t := time.Unix(r.RetryAfter.Int64, 0).UTC()
		e.RetryAfter = &t
	}
	return e
}

func entries(rows []row) []Entry {
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out
}
