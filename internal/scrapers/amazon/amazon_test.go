package amazon

import (
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/fetch"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProductID(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
	}{
		{url: "https://site/dp/product/ABC123/ref=x", expected: "ABC123"},
		{url: "https://site/dp/ABC123", expected: "ABC123"},
		{url: "https://site/some-title/dp/XYZ999/ref=y?qid=", expected: "XYZ999"},
		{
			url:      "https://www.amazon.co.jp/dp/product/4088843142/ref=as_li_tf_tl?camp=247&creative=1211&creativeASIN=4088843142&ie=UTF8&linkCode=as2&tag=bookmeter_book_middle_detail_pc_login-22",
			expected: "4088843142",
		},
		{url: "https://www.amazon.co.jp/dp/4088843142", expected: "4088843142"},
		{
			url:      "https://www.amazon.co.jp/ONE-PIECE-%E3%83%A2%E3%83%8E%E3%82%AF%E3%83%AD%E7%89%88-110-%E3%82%B8%E3%83%A3%E3%83%B3%E3%83%97%E3%82%B3%E3%83%9F%E3%83%83%E3%82%AF%E3%82%B9DIGITAL-ebook/dp/B0DJB4QN8R/ref=tmm_kin_swatch_0?_encoding=UTF8&qid=&sr=",
			expected: "B0DJB4QN8R",
		},
		{url: "'https://www.amazon.co.jp/dp/4088843142'", expected: "4088843142"},
		{url: "https://www.amazon.co.jp/gp/product/B00TEST/", expected: "B00TEST"},
	}

	for _, test := range testCases {
		id, err := ProductID(test.url)
		require.NoError(t, err, test.url)
		require.Equal(t, test.expected, id, test.url)
	}
}

func TestProductIDInvalid(t *testing.T) {
	for _, u := range []string{
		"https://site/books/ABC123",
		"https://site/",
		"https://site/dp",
		"https://site/product/",
		"",
	} {
		_, err := ProductID(u)
		require.ErrorIs(t, err, ErrInvalidProductURL, u)
	}
}

func pageWithButton(href string) string {
	return fmt.Sprintf(`<html><body>
<div id="tmm-grid-swatch-PAPERBACK"><a class="a-button-text a-text-left" href="/dp/PAPER">Paperback</a></div>
<div id="tmm-grid-swatch-KINDLE"><span><a class="a-button-text a-text-left" href="%s">Kindle</a></span></div>
</body></html>`, href)
}

type pages map[string]string

func (p pages) Fetch(ctx context.Context, target string) (string, error) {
	body, ok := p[target]
	if !ok {
		return "", fetch.Permanent(fmt.Errorf("no page %s", target))
	}
	return body, nil
}

func TestEbookID(t *testing.T) {
	fetcher := pages{
		"https://www.amazon.co.jp/dp/KINDLE1": pageWithButton("javascript:void(0)"),
		"https://www.amazon.co.jp/dp/PAPER2": pageWithButton(
			"/Some-Title-ebook/dp/B0KINDLE2/ref=tmm_kin_swatch_0?_encoding=UTF8&qid=&sr=",
		),
		"https://www.amazon.co.jp/dp/NOKINDLE": `<html><body><div id="tmm-grid-swatch-PAPERBACK"></div></body></html>`,
		"https://www.amazon.co.jp/dp/BADLINK":  pageWithButton("/gp/help/customer"),
	}
	resolver, err := NewResolver(fetcher, "", &telemetry.Recorder{})
	require.NoError(t, err)
	ctx := context.Background()

	id, err := resolver.EbookID(ctx, "https://www.amazon.co.jp/dp/product/KINDLE1/ref=x")
	require.NoError(t, err)
	require.Equal(t, "KINDLE1", id)

	id, err = resolver.EbookID(ctx, "https://www.amazon.co.jp/dp/PAPER2")
	require.NoError(t, err)
	require.Equal(t, "B0KINDLE2", id)

	_, err = resolver.EbookID(ctx, "https://www.amazon.co.jp/dp/NOKINDLE")
	require.ErrorIs(t, err, ErrEbookButtonNotFound)

	_, err = resolver.EbookID(ctx, "https://www.amazon.co.jp/dp/BADLINK")
	require.ErrorIs(t, err, ErrInvalidProductURL)

	_, err = resolver.EbookID(ctx, "https://www.amazon.co.jp/books/nothing")
	require.ErrorIs(t, err, ErrInvalidProductURL)
}

func TestEbookIDFetchFailureIsNotCooldown(t *testing.T) {
	failing := fetch.PageFetcherFunc(func(ctx context.Context, target string) (string, error) {
		return "", fetch.ErrRetriesExhausted
	})
	resolver, err := NewResolver(failing, "", &telemetry.Recorder{})
	require.NoError(t, err)

	_, err = resolver.EbookID(context.Background(), "https://www.amazon.co.jp/dp/X")
	require.ErrorIs(t, err, fetch.ErrRetriesExhausted)
	require.False(t, errors.Is(err, ErrEbookButtonNotFound))
}
