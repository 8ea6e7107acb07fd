package origin

import (
	"context"
	"errors"
)

// ErrFetch is wrapped by every failure to retrieve an image from the origin,
// regardless of whether it was a network failure, an unexpected status code
// or a payload that doesn't look like an image.
var ErrFetch = errors.New("failed to fetch from origin")

type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// FetcherFunc allows the use of ordinary functions as a Fetcher.
type FetcherFunc func(ctx context.Context, key string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}
