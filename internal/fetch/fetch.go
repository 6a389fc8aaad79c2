// Package fetch provides the page fetching capability every scraper goes
// through. Backends only deal with transport, they know nothing about the
// content of the pages they return.
package fetch

import (
	"context"
	"errors"
)

// PageFetcher returns the body of the page at `target`.
type PageFetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// PageFetcherFunc adapts a function into a PageFetcher.
type PageFetcherFunc func(ctx context.Context, target string) (string, error)

func (f PageFetcherFunc) Fetch(ctx context.Context, target string) (string, error) {
	return f(ctx, target)
}

var ErrRetriesExhausted = errors.New("fetch: retries exhausted")

type permanentError struct {
	err error
}

func (e permanentError) Error() string {
	return e.err.Error()
}

func (e permanentError) Unwrap() error {
	return e.err
}

// Permanent marks an error that retrying cannot fix (a 404, a malformed
// url), Retrying gives up on it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var target permanentError
	return errors.As(err, &target)
}
