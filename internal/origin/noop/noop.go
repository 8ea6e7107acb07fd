package noop

import (
	"context"
	"fmt"

	"github.com/cirruslabs/catcache/internal/origin"
)

// NoOp is an origin that has nothing to offer, which turns
// every cache miss into a "not found".
type NoOp struct{}

func New() *NoOp {
	return &NoOp{}
}

func (noop *NoOp) Fetch(_ context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("%w: origin is disabled, cannot fetch %q", origin.ErrFetch, key)
}
