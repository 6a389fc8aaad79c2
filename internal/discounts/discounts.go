// Package discounts keeps the catalog in sync with a bookmeter wishlist and
// ranks the wishlisted books by their current Kindle discount.
package discounts

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/components/assert"
	"bookmeter-discounts/internal/components/chrono"
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/scrapers/bookmeter"
	"context"
	"time"
)

const (
	report_pipeline_run     = "pipeline.run"
	report_pipeline_catalog = "pipeline.catalog"
)

// CooldownPeriod is how long a book without a Kindle edition is left alone
// before resolution is attempted again.
const CooldownPeriod = 30 * 24 * time.Hour

type Crawler interface {
	Crawl(ctx context.Context, maxPages int) ([]bookmeter.Book, error)
	StoreLink(ctx context.Context, bookId int64) (string, error)
}

type EbookResolver interface {
	EbookID(ctx context.Context, productUrl string) (string, error)
}

type PricingSource interface {
	Pricing(ctx context.Context, ebookId string) (catalog.Pricing, error)
}

// MetricsSink receives one event per successful mutation of the catalog.
type MetricsSink interface {
	RecordDeleted(ctx context.Context)
	RecordIdentifierResolved(ctx context.Context)
	RecordPriceFetched(ctx context.Context)
}

type NopSink struct{}

func (NopSink) RecordDeleted(context.Context)            {}
func (NopSink) RecordIdentifierResolved(context.Context) {}
func (NopSink) RecordPriceFetched(context.Context)       {}

type Options struct {
	// MaxPages bounds how many wishlist pages are crawled.
	MaxPages int
	// Pause is waited between two storefront or aggregator requests.
	Pause time.Duration
}

type Pipeline struct {
	catalog  catalog.Repository
	crawler  Crawler
	resolver EbookResolver
	pricing  PricingSource
	metrics  MetricsSink
	clock    chrono.API
	tel      telemetry.API
	opts     Options
}

func NewPipeline(
	repo catalog.Repository,
	crawler Crawler,
	resolver EbookResolver,
	pricing PricingSource,
	metrics MetricsSink,
	clock chrono.API,
	tel telemetry.API,
	opts Options,
) Pipeline {
	assert.NotNil(repo)
	assert.NotNil(crawler)
	assert.NotNil(resolver)
	assert.NotNil(pricing)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if metrics == nil {
		metrics = NopSink{}
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}

	return Pipeline{
		catalog:  repo,
		crawler:  crawler,
		resolver: resolver,
		pricing:  pricing,
		metrics:  metrics,
		clock:    clock,
		tel:      telemetry.NewScopedAPI("discounts", tel),
		opts:     opts,
	}
}

type RunResult struct {
	Reconcile ReconcileResult
	Resolve   ResolveResult
	Price     PriceResult
}

// Run executes every stage in order: crawl, reconcile, resolve, price.
// A failing crawl stops the run before anything is deleted.
func (p Pipeline) Run(ctx context.Context) (RunResult, error) {
	var result RunResult

	books, err := p.crawler.Crawl(ctx, p.opts.MaxPages)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_run, err, "crawl")
		return result, err
	}

	result.Reconcile, err = p.Reconcile(ctx, books)
	if err != nil {
		return result, err
	}
	result.Resolve, err = p.ResolveIdentifiers(ctx)
	if err != nil {
		return result, err
	}
	result.Price, err = p.FetchPrices(ctx)
	if err != nil {
		return result, err
	}

	p.tel.ReportDebug(
		"run finished",
		"inserted", result.Reconcile.Inserted,
		"deleted", result.Reconcile.Deleted,
		"resolved", result.Resolve.Resolved,
		"cooled_down", result.Resolve.CooledDown,
		"priced", result.Price.Priced,
	)
	return result, nil
}

// UpdateAndGetDiscounts runs the pipeline and returns the ranking
// afterwards.
func (p Pipeline) UpdateAndGetDiscounts(ctx context.Context, limit int) ([]catalog.Entry, error) {
	_, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	return p.Discounts(ctx, limit)
}

// pause waits between two external requests of a stage, `i` is the index
// of the item about to be processed.
func (p Pipeline) pause(ctx context.Context, i int) error {
	if i == 0 {
		return ctx.Err()
	}
	return p.clock.Sleep(ctx, p.opts.Pause)
}
