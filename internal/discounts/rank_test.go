package discounts

import (
	"bookmeter-discounts/internal/catalog"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDiscountsRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insert(t,
		catalog.Entry{SourceID: 1, ProductURL: "https://www.amazon.co.jp/dp/P1", Title: "B", ResolvedID: ptr("K1")},
		catalog.Entry{SourceID: 2, ProductURL: "https://www.amazon.co.jp/dp/P2", Title: "A", ResolvedID: ptr("K2")},
		catalog.Entry{SourceID: 3, ProductURL: "https://www.amazon.co.jp/dp/P3", Title: "C", ResolvedID: ptr("K3")},
		catalog.Entry{SourceID: 4, ProductURL: "https://www.amazon.co.jp/dp/P4", Title: "unpriced", ResolvedID: ptr("K4")},
	)
	f.pricing["K1"] = catalog.Pricing{ListPrice: 1000, CurrentPrice: 500}
	f.pricing["K2"] = catalog.Pricing{ListPrice: 1000, CurrentPrice: 500}
	f.pricing["K3"] = catalog.Pricing{ListPrice: 2000, CurrentPrice: 1000}

	_, err := f.pipeline.FetchPrices(ctx)
	require.NoError(t, err)

	entries, err := f.pipeline.Discounts(ctx, 0)
	require.NoError(t, err)

	expected := []Discount{
		{SourceID: 3, Title: "C", URL: "https://www.amazon.co.jp/dp/K3", EbookID: "K3", ListPrice: 2000, CurrentPrice: 1000, DiscountRate: 0.5},
		{SourceID: 2, Title: "A", URL: "https://www.amazon.co.jp/dp/K2", EbookID: "K2", ListPrice: 1000, CurrentPrice: 500, DiscountRate: 0.5},
		{SourceID: 1, Title: "B", URL: "https://www.amazon.co.jp/dp/K1", EbookID: "K1", ListPrice: 1000, CurrentPrice: 500, DiscountRate: 0.5},
	}
	if diff := cmp.Diff(expected, NewDiscounts(entries)); diff != "" {
		t.Fatalf("unexpected ranking (-want +got):\n%s", diff)
	}

	top, err := f.pipeline.Discounts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
}

func TestNewDiscountsDropsIncompleteEntries(t *testing.T) {
	require.Empty(t, NewDiscounts([]catalog.Entry{
		{SourceID: 1, Title: "unresolved"},
		{SourceID: 2, Title: "unpriced", ResolvedID: ptr("K2")},
	}))
}
