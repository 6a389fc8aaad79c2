package server

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/discounts"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRanking struct {
	entries []catalog.Entry
	err     error
	limits  []int
}

func (f *fakeRanking) Discounts(ctx context.Context, limit int) ([]catalog.Entry, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func priced(id int64, title, ebookId string, list, current int64, rate float64) catalog.Entry {
	return catalog.Entry{
		SourceID:     id,
		Title:        title,
		ResolvedID:   &ebookId,
		ListPrice:    &list,
		CurrentPrice: &current,
		DiscountRate: &rate,
	}
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDiscountsEndpoint(t *testing.T) {
	ranking := &fakeRanking{entries: []catalog.Entry{
		priced(2, "On sale", "K2", 1000, 800, 0.2),
		priced(3, "Slightly", "K3", 1000, 950, 0.05),
	}}
	handler := NewServer(ranking, 100, &telemetry.Recorder{}).Handler()

	rec := get(t, handler, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("content-type"))

	var body []discounts.Discount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	require.Equal(t, "https://www.amazon.co.jp/dp/K2", body[0].URL)

	rec = get(t, handler, "/?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)

	require.Equal(t, []int{100, 1}, ranking.limits)
}

func TestDiscountsEndpointEmpty(t *testing.T) {
	handler := NewServer(&fakeRanking{}, 100, &telemetry.Recorder{}).Handler()
	rec := get(t, handler, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestDiscountsEndpointErrors(t *testing.T) {
	tel := &telemetry.Recorder{}
	handler := NewServer(&fakeRanking{err: errors.New("db closed")}, 100, tel).Handler()

	require.Equal(t, http.StatusBadRequest, get(t, handler, "/?limit=abc").Code)
	require.Equal(t, http.StatusBadRequest, get(t, handler, "/?limit=0").Code)
	require.Equal(t, http.StatusInternalServerError, get(t, handler, "/").Code)
	require.Len(t, tel.Reports("broken", "server.discounts"), 1)

	require.Equal(t, http.StatusNotFound, get(t, handler, "/elsewhere").Code)
	require.Equal(t, http.StatusOK, get(t, handler, "/healthz").Code)
}
