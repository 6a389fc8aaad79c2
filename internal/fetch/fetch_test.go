package fetch

import (
	"bookmeter-discounts/internal/components/telemetry"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryingRecoversFromTransportFailures(t *testing.T) {
	calls := 0
	flaky := PageFetcherFunc(func(ctx context.Context, target string) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("connection reset")
		}
		return "<html>" + target + "</html>", nil
	})

	fetcher := NewRetrying(flaky, 5, time.Millisecond, &telemetry.Recorder{})
	body, err := fetcher.Fetch(context.Background(), "page")
	require.NoError(t, err)
	require.Equal(t, "<html>page</html>", body)
	require.Equal(t, 3, calls)
}

func TestRetryingGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	broken := PageFetcherFunc(func(ctx context.Context, target string) (string, error) {
		calls++
		return "", fmt.Errorf("connection refused")
	})

	tel := &telemetry.Recorder{}
	fetcher := NewRetrying(broken, 4, time.Millisecond, tel)
	_, err := fetcher.Fetch(context.Background(), "page")
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.Equal(t, 4, calls)
	require.Len(t, tel.Reports("warning", report_retrying_fetch), 1)
}

func TestRetryingStopsOnPermanentError(t *testing.T) {
	calls := 0
	missing := PageFetcherFunc(func(ctx context.Context, target string) (string, error) {
		calls++
		return "", Permanent(fmt.Errorf("404 not found"))
	})

	fetcher := NewRetrying(missing, 10, time.Millisecond, &telemetry.Recorder{})
	_, err := fetcher.Fetch(context.Background(), "page")
	require.Error(t, err)
	require.True(t, IsPermanent(err))
	require.False(t, errors.Is(err, ErrRetriesExhausted))
	require.Equal(t, 1, calls)
}

func TestRetryingDefaults(t *testing.T) {
	fetcher := NewRetrying(PageFetcherFunc(nil), 0, 0, &telemetry.Recorder{})
	require.Equal(t, uint64(DefaultMaxAttempts), fetcher.maxAttempts)
	require.Equal(t, DefaultRetryDelay, fetcher.delay)
}

type memoryOutput map[string]string

func (o memoryOutput) Write(id string, contents string) {
	o[id] = contents
}

func TestHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			require.Contains(t, r.Header.Get("user-agent"), "Mozilla")
			w.Write([]byte("<p>ok</p>"))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dump := memoryOutput{}
	fetcher, err := NewHTTPFetcher(HTTPOptions{Timeout: 5 * time.Second, Dump: dump}, &telemetry.Recorder{})
	require.NoError(t, err)

	body, err := fetcher.Fetch(context.Background(), server.URL+"/ok")
	require.NoError(t, err)
	require.Equal(t, "<p>ok</p>", body)
	require.Len(t, dump, 1)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/busy")
	require.Error(t, err)
	require.False(t, IsPermanent(err))

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	require.True(t, IsPermanent(err))
}

func TestCommandFetcher(t *testing.T) {
	fetcher, err := NewCommandFetcher("echo -n")
	require.NoError(t, err)
	fetcher.Transform = func(target string) string { return "id:" + target }

	body, err := fetcher.Fetch(context.Background(), "B0TEST")
	require.NoError(t, err)
	require.Equal(t, "id:B0TEST", body)

	_, err = NewCommandFetcher("   ")
	require.Error(t, err)

	failing := CommandFetcher{Name: "false"}
	_, err = failing.Fetch(context.Background(), "x")
	require.Error(t, err)
}
