package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	cachepkg "github.com/cirruslabs/catcache/internal/cache"
	keypkg "github.com/cirruslabs/catcache/internal/key"
	"github.com/cirruslabs/catcache/internal/origin"
	"github.com/cirruslabs/catcache/internal/server/auth"
	"github.com/cirruslabs/catcache/internal/server/fail"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const contentType = "image/jpeg"

func (server *Server) handleGet(c echo.Context) error {
	ctx := c.Request().Context()

	key, err := keypkg.FromPath(c.Request().URL.Path)
	if err != nil {
		return fail.Fail(c, http.StatusBadRequest, "failed to determine the cache key: %v", err)
	}

	data, err := server.cache.Get(ctx, key)
	if err == nil {
		server.metrics.IncCacheHit()

		return c.Blob(http.StatusOK, contentType, data)
	}

	if !errors.Is(err, cachepkg.ErrNotFound) {
		server.logger.Warnf("failed to retrieve cache entry for key %q, "+
			"treating it as a miss: %v", key, err)
	}

	server.metrics.IncCacheMiss()

	data, err = server.fill(ctx, key)
	if err != nil {
		if errors.Is(err, origin.ErrFetch) {
			return fail.Fail(c, http.StatusNotFound, "no cache entry found for key %q "+
				"and the origin was unable to provide one: %v", key, err)
		}

		return fail.Fail(c, http.StatusInternalServerError, "failed to fill "+
			"the cache entry for key %q: %v", key, err)
	}

	return c.Blob(http.StatusOK, contentType, data)
}

func (server *Server) handlePut(c echo.Context) error {
	ctx := c.Request().Context()

	key, err := keypkg.FromPath(c.Request().URL.Path)
	if err != nil {
		return fail.Fail(c, http.StatusBadRequest, "failed to determine the cache key: %v", err)
	}

	// The whole body is read before touching the cache,
	// an interrupted upload must not leave anything behind
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail.Fail(c, http.StatusInternalServerError, "failed to read "+
			"the request body for key %q: %v", key, err)
	}

	if err := server.cache.Put(ctx, key, data); err != nil {
		return fail.Fail(c, http.StatusInternalServerError, "failed to create "+
			"the cache entry for key %q: %v", key, err)
	}

	server.writerLogger(c).Infof("stored %s for key %q", humanize.Bytes(uint64(len(data))), key)

	return c.String(http.StatusCreated, http.StatusText(http.StatusCreated))
}

func (server *Server) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()

	key, err := keypkg.FromPath(c.Request().URL.Path)
	if err != nil {
		return fail.Fail(c, http.StatusBadRequest, "failed to determine the cache key: %v", err)
	}

	if err := server.cache.Delete(ctx, key); err != nil {
		if errors.Is(err, cachepkg.ErrNotFound) {
			return fail.Fail(c, http.StatusNotFound, "no cache entry found for key %q", key)
		}

		return fail.Fail(c, http.StatusInternalServerError, "failed to delete "+
			"the cache entry for key %q: %v", key, err)
	}

	server.writerLogger(c).Infof("deleted key %q", key)

	return c.String(http.StatusOK, "Deleted")
}

// writerLogger attaches the token's subject to the logger
// when the request went through the auth middleware.
func (server *Server) writerLogger(c echo.Context) *zap.SugaredLogger {
	if authInfo, ok := c.Get(auth.ContextKey).(*auth.Auth); ok {
		return server.logger.With("subject", authInfo.Subject)
	}

	return server.logger
}

func (server *Server) handleMethodNotAllowed(c echo.Context) error {
	return fail.Fail(c, http.StatusMethodNotAllowed, "method %s is not supported",
		c.Request().Method)
}

func (server *Server) fill(ctx context.Context, key string) ([]byte, error) {
	if server.singleFlight == nil {
		return server.fetchAndPut(ctx, key)
	}

	// The request that started the fetch may go away
	// while others are still waiting for the result
	result, err, shared := server.singleFlight.Do(key, func() (interface{}, error) {
		return server.fetchAndPut(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		server.logger.Debugf("shared the origin fetch for key %q", key)
	}

	//nolint:forcetypeassert // fetchAndPut always returns []byte
	return result.([]byte), nil
}

func (server *Server) fetchAndPut(ctx context.Context, key string) ([]byte, error) {
	data, err := server.origin.Fetch(ctx, key)
	server.metrics.ObserveOriginFetch(err)
	if err != nil {
		if !errors.Is(err, origin.ErrFetch) {
			err = fmt.Errorf("%w: %w", origin.ErrFetch, err)
		}

		return nil, err
	}

	if err := server.cache.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("failed to store the fetched image: %w", err)
	}

	server.logger.Debugf("cached %s fetched from the origin for key %q",
		humanize.Bytes(uint64(len(data))), key)

	return data, nil
}
