package commands

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/components/chrono"
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/discounts"
	"bookmeter-discounts/internal/fetch"
	"bookmeter-discounts/internal/metrics"
	"bookmeter-discounts/internal/scrapers/amazon"
	"bookmeter-discounts/internal/scrapers/bookmeter"
	"bookmeter-discounts/internal/scrapers/listasin"
	"bookmeter-discounts/internal/webhook"
	"bookmeter-discounts/lib/restyutil"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var tel = telemetry.SlogAPI{}

func openCatalog(cfg Config) (*sqlx.DB, catalog.Store, error) {
	db, err := catalog.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, catalog.Store{}, err
	}
	return db, catalog.NewStore(db), nil
}

// amazonFetcher is the fetcher for product pages. With a fetch command
// configured the command receives the product id rather than the url.
func amazonFetcher(cfg Config, direct fetch.PageFetcher) (fetch.PageFetcher, error) {
	if cfg.AmazonFetchCommand == "" {
		return direct, nil
	}
	command, err := fetch.NewCommandFetcher(cfg.AmazonFetchCommand)
	if err != nil {
		return nil, err
	}
	command.Transform = func(target string) string {
		id, err := amazon.ProductID(target)
		if err != nil {
			return target
		}
		return id
	}
	return command, nil
}

func newPipeline(cfg Config, store catalog.Store) (discounts.Pipeline, error) {
	userId, err := bookmeter.ParseUserID(cfg.UserID)
	if err != nil {
		return discounts.Pipeline{}, err
	}

	opts := fetch.HTTPOptions{
		RequestsPerSecond: cfg.RequestsPerSecond,
		BypassCloudflare:  cfg.BypassCloudflare,
	}
	if dumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return discounts.Pipeline{}, err
		}
		opts.Dump = output
	}
	direct, err := fetch.NewHTTPFetcher(opts, tel)
	if err != nil {
		return discounts.Pipeline{}, err
	}
	retrying := fetch.NewRetrying(direct, fetch.DefaultMaxAttempts, fetch.DefaultRetryDelay, tel)

	productPages, err := amazonFetcher(cfg, direct)
	if err != nil {
		return discounts.Pipeline{}, err
	}
	productPages = fetch.NewRetrying(productPages, fetch.DefaultMaxAttempts, fetch.DefaultRetryDelay, tel)

	clock := chrono.NewStandardImpl(nil)

	crawler, err := bookmeter.NewClient(bookmeter.ClientOptions{
		UserID: userId,
		Pause:  cfg.RequestDelay(),
	}, retrying, clock, tel)
	if err != nil {
		return discounts.Pipeline{}, err
	}
	resolver, err := amazon.NewResolver(productPages, "", tel)
	if err != nil {
		return discounts.Pipeline{}, err
	}
	pricing, err := listasin.NewClient(retrying, "")
	if err != nil {
		return discounts.Pipeline{}, err
	}
	sink, err := metrics.NewOtelSink(nil)
	if err != nil {
		return discounts.Pipeline{}, fmt.Errorf("register metrics: %w", err)
	}

	return discounts.NewPipeline(
		store, crawler, resolver, pricing, sink, clock, tel,
		discounts.Options{
			MaxPages: cfg.MaxPage,
			Pause:    cfg.RequestDelay(),
		},
	), nil
}

func newNotifier(cfg Config) *webhook.Notifier {
	if cfg.WebhookURL == "" {
		return nil
	}
	notifier := webhook.NewNotifier(cfg.WebhookURL, tel)
	return &notifier
}
