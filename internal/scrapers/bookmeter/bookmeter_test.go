package bookmeter

import (
	"bookmeter-discounts/internal/components/chrono"
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/fetch"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func wishlistPage(items ...string) string {
	body := `<html><body><ul class="book-list__group">`
	for _, item := range items {
		body += item
	}
	return body + `</ul></body></html>`
}

func bookItem(id int64, title, amazonUrl string) string {
	store := ""
	if amazonUrl != "" {
		store = fmt.Sprintf(`<div class="detail__stores"><a href="%s">Amazon</a></div>`, amazonUrl)
	}
	return fmt.Sprintf(`<li class="group__book">
	<div class="book__detail">
		<div class="detail__title"><a href="/books/%d">%s</a></div>
		%s
	</div>
</li>`, id, title, store)
}

func TestParseWishlist(t *testing.T) {
	body := wishlistPage(
		bookItem(11, "  Book\n One ", "https://www.amazon.co.jp/dp/4088843142"),
		bookItem(12, "Book Two", ""),
		bookItem(11, "Book One again", ""),
	)

	books, err := ParseWishlist(context.Background(), body)
	require.NoError(t, err)

	expected := []Book{
		{ID: 11, Title: "Book One", ProductURL: "https://www.amazon.co.jp/dp/4088843142"},
		{ID: 12, Title: "Book Two"},
	}
	if diff := cmp.Diff(expected, books); diff != "" {
		t.Fatalf("unexpected books (-want +got):\n%s", diff)
	}
}

func TestParseWishlistMalformedLink(t *testing.T) {
	body := `<div class="detail__title"><a href="/books/not-a-number">x</a></div>`
	_, err := ParseWishlist(context.Background(), body)
	require.Error(t, err)
}

func TestParseUserID(t *testing.T) {
	id, err := ParseUserID(" 104 ")
	require.NoError(t, err)
	require.Equal(t, uint64(104), id)

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		_, err := ParseUserID(bad)
		require.Error(t, err, bad)
	}
}

type fakeSite struct {
	pages    map[int]string
	failPage int
	requests []string
}

func (s *fakeSite) server(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests = append(s.requests, r.URL.RequestURI())
		switch r.URL.Path {
		case "/users/42/books/wish":
			var page int
			fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
			if page == s.failPage {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(s.pages[page]))
		case "/api/v1/books/12/external_book_stores.json":
			w.Write([]byte(`{"resources":[{"url":"https://honto.jp/x"},{"url":" 'https://www.amazon.co.jp/dp/4000000012' "}]}`))
		case "/api/v1/books/13/external_book_stores.json":
			w.Write([]byte(`{"resources":[{"url":"https://honto.jp/x"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, baseUrl string) (Client, *chrono.Fake) {
	fetcher, err := fetch.NewHTTPFetcher(fetch.HTTPOptions{Timeout: 5 * time.Second}, &telemetry.Recorder{})
	require.NoError(t, err)
	clock := chrono.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	client, err := NewClient(
		ClientOptions{UserID: 42, BaseUrl: baseUrl, Pause: time.Second},
		fetcher, clock, &telemetry.Recorder{},
	)
	require.NoError(t, err)
	return client, clock
}

func TestCrawlStopsAtEmptyPage(t *testing.T) {
	site := &fakeSite{pages: map[int]string{
		1: wishlistPage(bookItem(3, "C", ""), bookItem(1, "A", "")),
		2: wishlistPage(bookItem(2, "B", ""), bookItem(3, "C dup", "")),
		3: wishlistPage(),
		4: wishlistPage(bookItem(4, "never reached", "")),
	}}
	server := site.server(t)
	defer server.Close()

	client, clock := newTestClient(t, server.URL)
	books, err := client.Crawl(context.Background(), 10)
	require.NoError(t, err)

	require.Equal(t, []Book{
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B"},
		{ID: 3, Title: "C"},
	}, books)
	require.Equal(t, []string{
		"/users/42/books/wish?page=1",
		"/users/42/books/wish?page=2",
		"/users/42/books/wish?page=3",
	}, site.requests)
	require.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	site := &fakeSite{pages: map[int]string{
		1: wishlistPage(bookItem(1, "A", "")),
		2: wishlistPage(bookItem(2, "B", "")),
	}}
	server := site.server(t)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	books, err := client.Crawl(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Len(t, site.requests, 1)
}

func TestCrawlFailsOnAnyPage(t *testing.T) {
	site := &fakeSite{
		pages: map[int]string{
			1: wishlistPage(bookItem(1, "A", "")),
		},
		failPage: 2,
	}
	server := site.server(t)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	books, err := client.Crawl(context.Background(), 5)
	require.Error(t, err)
	require.Nil(t, books)
}

func TestStoreLink(t *testing.T) {
	site := &fakeSite{}
	server := site.server(t)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	link, err := client.StoreLink(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, "https://www.amazon.co.jp/dp/4000000012", link)

	_, err = client.StoreLink(context.Background(), 13)
	require.ErrorIs(t, err, ErrStoreLinkNotFound)
}
