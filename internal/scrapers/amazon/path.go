package amazon

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidProductURL = errors.New("amazon: url has no product identifier")

// ProductID extracts the identifier from a storefront url. The identifier
// is the path segment right after `product`, or after `dp` when there is
// no `product` segment.
//
//	https://www.amazon.co.jp/dp/product/4088843142/ref=x -> 4088843142
//	https://www.amazon.co.jp/some-title/dp/B0DJB4QN8R/ref=y -> B0DJB4QN8R
func ProductID(rawUrl string) (string, error) {
	rawUrl = strings.Trim(strings.TrimSpace(rawUrl), "'")

	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidProductURL, rawUrl, err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	index := segmentIndex(segments, "product")
	if index < 0 {
		index = segmentIndex(segments, "dp")
	}
	if index < 0 || index+1 >= len(segments) || segments[index+1] == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidProductURL, rawUrl)
	}
	return segments[index+1], nil
}

func segmentIndex(segments []string, name string) int {
	for i, s := range segments {
		if s == name {
			return i
		}
	}
	return -1
}

// ProductURL is the canonical storefront page of an identifier.
func ProductURL(id string) string {
	return fmt.Sprintf("%s/dp/%s", BaseUrl, id)
}
