// Package listasin reads Kindle pricing from the listasin.net aggregator.
package listasin

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/fetch"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const BaseUrl = "https://www.listasin.net/kndlsl/asins"

var ErrPriceNotFound = errors.New("listasin: price not found")

type Client struct {
	fetcher fetch.PageFetcher
	baseUrl *url.URL
}

// NewClient builds a client reading `<baseUrl>/<id>` pages, an empty
// baseUrl means BaseUrl.
func NewClient(fetcher fetch.PageFetcher, baseUrl string) (Client, error) {
	if baseUrl == "" {
		baseUrl = BaseUrl
	}
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return Client{}, err
	}
	return Client{fetcher: fetcher, baseUrl: parsed}, nil
}

// Pricing fetches the current pricing of a Kindle identifier.
func (c Client) Pricing(ctx context.Context, ebookId string) (catalog.Pricing, error) {
	ebookId = strings.Trim(ebookId, "'")

	body, err := c.fetcher.Fetch(ctx, c.baseUrl.JoinPath(ebookId).String())
	if err != nil {
		return catalog.Pricing{}, fmt.Errorf("fetch pricing of %s: %w", ebookId, err)
	}
	pricing, err := ParsePricing(body)
	if err != nil {
		return catalog.Pricing{}, fmt.Errorf("pricing of %s: %w", ebookId, err)
	}
	return pricing, nil
}

// ParsePricing reads a pricing page. The current price is required, the
// struck-through list price falls back to the current price and the point
// rebate falls back to zero.
func ParsePricing(body string) (catalog.Pricing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return catalog.Pricing{}, err
	}

	price, ok, err := firstIntAttr(doc.Find(".item-price > span"), "data-price")
	if err != nil {
		return catalog.Pricing{}, fmt.Errorf("current price: %w", err)
	}
	if !ok {
		return catalog.Pricing{}, ErrPriceNotFound
	}

	listPrice := price
	struck := doc.Find(".item-price > s").First()
	if struck.Length() > 0 {
		listPrice, err = parseYen(struck.Text())
		if err != nil {
			return catalog.Pricing{}, fmt.Errorf("list price: %w", err)
		}
	}

	rebate, _, err := firstIntAttr(doc.Find(".item-point > span"), "data-point")
	if err != nil {
		return catalog.Pricing{}, fmt.Errorf("rebate: %w", err)
	}

	if listPrice <= 0 {
		return catalog.Pricing{}, fmt.Errorf("list price must be positive, got %d", listPrice)
	}

	return catalog.Pricing{
		ListPrice:    listPrice,
		CurrentPrice: price,
		Rebate:       rebate,
	}, nil
}

func firstIntAttr(sel *goquery.Selection, attr string) (int64, bool, error) {
	for _, node := range sel.Nodes {
		for _, a := range node.Attr {
			if a.Key != attr {
				continue
			}
			value, err := parseYen(a.Val)
			if err != nil {
				return 0, false, err
			}
			return value, true, nil
		}
	}
	return 0, false, nil
}

var yenReplacer = strings.NewReplacer(",", "", "￥", "", "¥", "", "円", "", "pt", "")

func parseYen(text string) (int64, error) {
	cleaned := strings.TrimSpace(yenReplacer.Replace(text))
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", text, err)
	}
	return value, nil
}
