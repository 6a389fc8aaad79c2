package discounts

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/components/chrono"
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/scrapers/bookmeter"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func openCatalog(t testing.TB) catalog.Store {
	db, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return catalog.NewStore(db)
}

type fakeCrawler struct {
	books     []bookmeter.Book
	err       error
	links     map[int64]string
	linkCalls []int64
}

func (c *fakeCrawler) Crawl(ctx context.Context, maxPages int) ([]bookmeter.Book, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.books, nil
}

func (c *fakeCrawler) StoreLink(ctx context.Context, bookId int64) (string, error) {
	c.linkCalls = append(c.linkCalls, bookId)
	link, ok := c.links[bookId]
	if !ok {
		return "", fmt.Errorf("%w: book %d", bookmeter.ErrStoreLinkNotFound, bookId)
	}
	return link, nil
}

type resolution struct {
	id  string
	err error
}

type fakeResolver struct {
	results map[string]resolution
	calls   []string
}

func (r *fakeResolver) EbookID(ctx context.Context, productUrl string) (string, error) {
	r.calls = append(r.calls, productUrl)
	res, ok := r.results[productUrl]
	if !ok {
		return "", errors.New("unexpected product url")
	}
	return res.id, res.err
}

type fakePricing map[string]catalog.Pricing

func (p fakePricing) Pricing(ctx context.Context, ebookId string) (catalog.Pricing, error) {
	pricing, ok := p[ebookId]
	if !ok {
		return catalog.Pricing{}, fmt.Errorf("no pricing for %s", ebookId)
	}
	return pricing, nil
}

type countingSink struct {
	mutex    sync.Mutex
	deleted  int
	resolved int
	priced   int
}

func (s *countingSink) RecordDeleted(context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.deleted++
}

func (s *countingSink) RecordIdentifierResolved(context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.resolved++
}

func (s *countingSink) RecordPriceFetched(context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.priced++
}

type fixture struct {
	store    catalog.Store
	crawler  *fakeCrawler
	resolver *fakeResolver
	pricing  fakePricing
	sink     *countingSink
	clock    *chrono.Fake
	tel      *telemetry.Recorder
	pipeline Pipeline
}

func newFixture(t testing.TB) *fixture {
	f := &fixture{
		store:    openCatalog(t),
		crawler:  &fakeCrawler{links: map[int64]string{}},
		resolver: &fakeResolver{results: map[string]resolution{}},
		pricing:  fakePricing{},
		sink:     &countingSink{},
		clock:    chrono.NewFake(start),
		tel:      &telemetry.Recorder{},
	}
	f.pipeline = NewPipeline(
		f.store, f.crawler, f.resolver, f.pricing, f.sink, f.clock, f.tel,
		Options{MaxPages: 3, Pause: time.Second},
	)
	return f
}

func (f *fixture) insert(t testing.TB, entries ...catalog.Entry) {
	for _, e := range entries {
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = start
		}
		require.NoError(t, f.store.Insert(context.Background(), e))
		if e.ResolvedID != nil {
			require.NoError(t, f.store.SetResolvedID(context.Background(), e.SourceID, *e.ResolvedID, e.UpdatedAt))
		}
	}
}

func (f *fixture) ids(t testing.TB) []int64 {
	all, err := f.store.FindAll(context.Background())
	require.NoError(t, err)
	out := make([]int64, len(all))
	for i, e := range all {
		out[i] = e.SourceID
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
