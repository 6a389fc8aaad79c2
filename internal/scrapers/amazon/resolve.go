package amazon

import (
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/fetch"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const BaseUrl = "https://www.amazon.co.jp"

const report_resolver_ebook_id = "resolver.ebook-id"

// ebookButtonSelector is the purchase option swatch of the Kindle edition.
const ebookButtonSelector = "#tmm-grid-swatch-KINDLE a.a-button-text.a-text-left"

// ErrEbookButtonNotFound means the product page has no Kindle purchase
// option, usually because no e-book edition exists.
var ErrEbookButtonNotFound = errors.New("amazon: kindle button not found")

// Resolver finds the identifier of the Kindle edition of a product.
type Resolver struct {
	fetcher fetch.PageFetcher
	baseUrl *url.URL
	tel     telemetry.API
}

// NewResolver builds a resolver that reads product pages through `fetcher`.
// Pages are requested as `<baseUrl>/dp/<id>`, an empty baseUrl means BaseUrl.
func NewResolver(fetcher fetch.PageFetcher, baseUrl string, tel telemetry.API) (Resolver, error) {
	if baseUrl == "" {
		baseUrl = BaseUrl
	}
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return Resolver{}, err
	}
	return Resolver{
		fetcher: fetcher,
		baseUrl: parsed,
		tel:     telemetry.NewScopedAPI("amazon", tel),
	}, nil
}

// EbookID converts a storefront product url into the identifier of its
// Kindle edition.
//
// The link on the Kindle button is followed for a single hop and only
// through the path rule, the target page is not fetched.
func (r Resolver) EbookID(ctx context.Context, productUrl string) (string, error) {
	id, err := ProductID(productUrl)
	if err != nil {
		return "", err
	}

	body, err := r.fetcher.Fetch(ctx, r.baseUrl.JoinPath("dp", id).String())
	if err != nil {
		return "", fmt.Errorf("fetch product %s: %w", id, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse product %s: %w", id, err)
	}

	href, err := ebookButtonHref(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, productUrl)
	}
	if isInert(href) {
		r.tel.ReportDebug(report_resolver_ebook_id, "product is the kindle edition", id)
		return id, nil
	}

	target, err := r.baseUrl.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse kindle link %q: %w", href, err)
	}
	ebookId, err := ProductID(target.String())
	if err != nil {
		return "", fmt.Errorf("kindle link of %s: %w", id, err)
	}
	r.tel.ReportDebug(report_resolver_ebook_id, "followed kindle link", id, ebookId)
	return ebookId, nil
}

func ebookButtonHref(doc *goquery.Document) (string, error) {
	button := doc.Find(ebookButtonSelector).First()
	if button.Length() == 0 {
		return "", ErrEbookButtonNotFound
	}
	return strings.TrimSpace(button.AttrOr("href", "")), nil
}

// isInert reports whether the button links nowhere, which is what the
// storefront renders when the current page already is the Kindle edition.
func isInert(href string) bool {
	switch strings.ToLower(strings.ReplaceAll(href, " ", "")) {
	case "", "#", "javascript:void(0)", "javascript:void(0);":
		return true
	}
	return false
}
