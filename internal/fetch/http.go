package fetch

import (
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/lib/restyutil"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const report_http_fetch = "http.fetch"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type HTTPOptions struct {
	// RequestsPerSecond caps outgoing requests, 0 disables the limiter.
	RequestsPerSecond float64
	Timeout           time.Duration
	// BypassCloudflare wraps the transport to look like a regular browser.
	BypassCloudflare bool
	// Dump receives every exchange when set.
	Dump restyutil.Output
}

// HTTPFetcher fetches pages directly over HTTP.
type HTTPFetcher struct {
	http *resty.Client
	tel  telemetry.API
}

func NewHTTPFetcher(opts HTTPOptions, tel telemetry.API) (HTTPFetcher, error) {
	tel = telemetry.NewScopedAPI("fetch", tel)

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return HTTPFetcher{}, err
	}
	client.SetCookieJar(jar)
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept-language", "ja,en;q=0.8")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	if opts.RequestsPerSecond > 0 {
		// burst of 1 keeps requests evenly spaced
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel)
	restyutil.Dump(client, opts.Dump)

	return HTTPFetcher{http: client, tel: tel}, nil
}

func (f HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	res, err := f.http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", target, err)
	}

	status := res.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return res.String(), nil
	case status == http.StatusTooManyRequests || status >= 500:
		err = fmt.Errorf("get %s: unexpected status %s", target, res.Status())
		f.tel.ReportWarning(report_http_fetch, err)
		return "", err
	default:
		return "", Permanent(fmt.Errorf("get %s: unexpected status %s", target, res.Status()))
	}
}
