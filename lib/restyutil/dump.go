package restyutil

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Dump writes every completed exchange of `client` to `output`, named
// `<sequence>-<host>.txt`. Useful when a page stops matching its selectors.
func Dump(client *resty.Client, output Output) {
	if output == nil {
		return
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&counter, 1)
		output.Write(messageName(id, res.Request.URL), formatHttpMessage(res))
		return nil
	})
}

func messageName(id uint64, rawUrl string) string {
	host := "unknown"
	parsed, err := url.Parse(rawUrl)
	if err == nil && parsed.Host != "" {
		host = strings.ReplaceAll(parsed.Host, ":", "_")
	}
	return fmt.Sprintf("%04d-%s.txt", id, host)
}
