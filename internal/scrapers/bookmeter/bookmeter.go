// Package bookmeter crawls a user's "want to read" list on bookmeter.com.
package bookmeter

import (
	"bookmeter-discounts/internal/components/chrono"
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/fetch"
	"bookmeter-discounts/lib/htmlutil"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const BaseUrl = "https://bookmeter.com"

const (
	report_client_crawl      = "client.crawl"
	report_client_store_link = "client.store-link"
)

var ErrStoreLinkNotFound = errors.New("bookmeter: amazon link not found")

// Book is a single wishlist entry.
type Book struct {
	ID    int64
	Title string
	// ProductURL is empty when the wishlist page carried no storefront link,
	// see Client.StoreLink.
	ProductURL string
}

// ParseUserID validates a bookmeter user id.
func ParseUserID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed bookmeter user id %q: %w", raw, err)
	}
	return id, nil
}

type ClientOptions struct {
	UserID uint64
	// BaseUrl defaults to BaseUrl.
	BaseUrl string
	// Pause is waited between two page requests.
	Pause time.Duration
}

type Client struct {
	fetcher fetch.PageFetcher
	clock   chrono.API
	baseUrl *url.URL
	userId  uint64
	pause   time.Duration
	tel     telemetry.API
}

func NewClient(opts ClientOptions, fetcher fetch.PageFetcher, clock chrono.API, tel telemetry.API) (Client, error) {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = BaseUrl
	}
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return Client{}, err
	}
	if opts.UserID == 0 {
		return Client{}, fmt.Errorf("bookmeter user id is required")
	}
	return Client{
		fetcher: fetcher,
		clock:   clock,
		baseUrl: parsed,
		userId:  opts.UserID,
		pause:   opts.Pause,
		tel:     telemetry.NewScopedAPI("bookmeter", tel),
	}, nil
}

// Crawl reads the wishlist from page 1 up to maxPages, stopping at the
// first empty page. Books are deduplicated by id and returned in id order.
// Any failing page fails the whole crawl, callers must never act on a
// partial wishlist.
func (c Client) Crawl(ctx context.Context, maxPages int) ([]Book, error) {
	seen := map[int64]Book{}

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			err := c.clock.Sleep(ctx, c.pause)
			if err != nil {
				return nil, err
			}
		}

		books, err := c.WishlistPage(ctx, page)
		if err != nil {
			c.tel.ReportBroken(report_client_crawl, err, page)
			return nil, err
		}
		if len(books) == 0 {
			break
		}
		for _, b := range books {
			if _, ok := seen[b.ID]; !ok {
				seen[b.ID] = b
			}
		}
	}

	out := make([]Book, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	c.tel.ReportCount(report_client_crawl, int64(len(out)))
	return out, nil
}

// WishlistPage fetches and parses a single page of the wishlist.
func (c Client) WishlistPage(ctx context.Context, page int) ([]Book, error) {
	link := c.baseUrl.JoinPath("users", strconv.FormatUint(c.userId, 10), "books", "wish")
	link.RawQuery = url.Values{"page": {strconv.Itoa(page)}}.Encode()

	body, err := c.fetcher.Fetch(ctx, link.String())
	if err != nil {
		return nil, fmt.Errorf("fetch wishlist page %d: %w", page, err)
	}
	books, err := ParseWishlist(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("parse wishlist page %d: %w", page, err)
	}
	return books, nil
}

// ParseWishlist extracts the books of a wishlist page, deduplicated by id.
func ParseWishlist(ctx context.Context, body string) ([]Book, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var books []Book
	seen := map[int64]bool{}
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find(".detail__title > a")) {
		id, err := bookID(anchor.Href)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		item := doc.FindNodes(anchor.Node).Closest("li")
		productUrl := item.Find(`a[href*="amazon."]`).First().AttrOr("href", "")

		books = append(books, Book{
			ID:         id,
			Title:      anchor.Name,
			ProductURL: strings.Trim(strings.TrimSpace(productUrl), "'"),
		})
	}
	return books, nil
}

// bookID reads the trailing numeric segment of a book link like /books/123.
func bookID(href string) (int64, error) {
	link, err := url.Parse(href)
	if err != nil {
		return 0, fmt.Errorf("book link %q: %w", href, err)
	}
	segment := path.Base(strings.TrimRight(link.Path, "/"))
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("book link %q: %w", href, err)
	}
	return id, nil
}

type externalBookStores struct {
	Resources []struct {
		URL string `json:"url"`
	} `json:"resources"`
}

// StoreLink looks up the amazon page of a book through bookmeter's store
// listing api.
func (c Client) StoreLink(ctx context.Context, bookId int64) (string, error) {
	link := c.baseUrl.JoinPath(
		"api", "v1", "books",
		strconv.FormatInt(bookId, 10),
		"external_book_stores.json",
	)

	body, err := c.fetcher.Fetch(ctx, link.String())
	if err != nil {
		return "", fmt.Errorf("fetch stores of book %d: %w", bookId, err)
	}

	var stores externalBookStores
	err = json.Unmarshal([]byte(body), &stores)
	if err != nil {
		c.tel.ReportBroken(report_client_store_link, err, bookId)
		return "", fmt.Errorf("decode stores of book %d: %w", bookId, err)
	}
	for _, store := range stores.Resources {
		if strings.Contains(store.URL, "amazon") {
			return strings.Trim(strings.TrimSpace(store.URL), "'"), nil
		}
	}
	return "", fmt.Errorf("%w: book %d", ErrStoreLinkNotFound, bookId)
}
