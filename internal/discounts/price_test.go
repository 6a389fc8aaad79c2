package discounts

import (
	"bookmeter-discounts/internal/catalog"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insert(t,
		catalog.Entry{SourceID: 1, ProductURL: "https://www.amazon.co.jp/dp/P1", Title: "discounted", ResolvedID: ptr("K1")},
		catalog.Entry{SourceID: 2, ProductURL: "https://www.amazon.co.jp/dp/P2", Title: "delisted", ResolvedID: ptr("K2")},
		catalog.Entry{SourceID: 3, ProductURL: "https://www.amazon.co.jp/dp/P3", Title: "unresolved"},
	)
	f.pricing["K1"] = catalog.Pricing{ListPrice: 1000, CurrentPrice: 700, Rebate: 50}

	result, err := f.pipeline.FetchPrices(ctx)
	require.NoError(t, err)
	require.Equal(t, PriceResult{Priced: 1, Failed: 1}, result)
	require.Equal(t, 1, f.sink.priced)

	priced, err := f.store.FindByID(ctx, 1)
	require.NoError(t, err)
	require.True(t, priced.Priced())
	require.Equal(t, int64(1000), *priced.ListPrice)
	require.Equal(t, int64(700), *priced.CurrentPrice)
	require.InDelta(t, 0.35, *priced.DiscountRate, 1e-9)

	for _, id := range []int64{2, 3} {
		entry, err := f.store.FindByID(ctx, id)
		require.NoError(t, err)
		require.False(t, entry.Priced())
		require.Nil(t, entry.ListPrice)
		require.Nil(t, entry.CurrentPrice)
		require.Nil(t, entry.DiscountRate)
	}
	require.Len(t, f.tel.Reports("warning", "price.fetch"), 1)
}

func TestFetchPricesOldestFirst(t *testing.T) {
	f := newFixture(t)
	f.insert(t,
		catalog.Entry{SourceID: 1, ProductURL: "https://www.amazon.co.jp/dp/P1", Title: "fresh", ResolvedID: ptr("K1"), UpdatedAt: start.Add(time.Hour)},
		catalog.Entry{SourceID: 2, ProductURL: "https://www.amazon.co.jp/dp/P2", Title: "stale", ResolvedID: ptr("K2")},
	)

	var order []string
	f.pipeline.pricing = pricingFunc(func(ctx context.Context, ebookId string) (catalog.Pricing, error) {
		order = append(order, ebookId)
		return catalog.Pricing{ListPrice: 500, CurrentPrice: 500}, nil
	})

	_, err := f.pipeline.FetchPrices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"K2", "K1"}, order)
}

type pricingFunc func(ctx context.Context, ebookId string) (catalog.Pricing, error)

func (f pricingFunc) Pricing(ctx context.Context, ebookId string) (catalog.Pricing, error) {
	return f(ctx, ebookId)
}
