package server

import (
	cachepkg "github.com/cirruslabs/catcache/internal/cache"
	"github.com/cirruslabs/catcache/internal/metrics"
	"github.com/cirruslabs/catcache/internal/origin"
	"github.com/cirruslabs/catcache/internal/server/token"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Option func(server *Server)

func WithCache(cache cachepkg.Cache) Option {
	return func(server *Server) {
		server.cache = cache
	}
}

func WithOrigin(origin origin.Fetcher) Option {
	return func(server *Server) {
		server.origin = origin
	}
}

// WithTokenManager requires PUT and DELETE requests
// to carry a token issued by the tokenManager.
func WithTokenManager(tokenManager *token.Manager) Option {
	return func(server *Server) {
		server.tokenManager = tokenManager
	}
}

// WithSingleFlight makes concurrent cache misses for the same key
// share a single origin fetch and a single cache write.
func WithSingleFlight() Option {
	return func(server *Server) {
		server.singleFlight = &singleflight.Group{}
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(server *Server) {
		server.metrics = metrics
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(server *Server) {
		server.logger = logger
	}
}
