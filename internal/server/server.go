package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/brpaz/echozap"
	cachepkg "github.com/cirruslabs/catcache/internal/cache"
	"github.com/cirruslabs/catcache/internal/metrics"
	"github.com/cirruslabs/catcache/internal/origin"
	"github.com/cirruslabs/catcache/internal/origin/noop"
	"github.com/cirruslabs/catcache/internal/server/auth"
	"github.com/cirruslabs/catcache/internal/server/token"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Methods that are routed only to be rejected, the router
// takes care of the rest with the same 405 status code.
//
//nolint:gochecknoglobals // it's a constant in spirit
var rejectedMethods = []string{
	http.MethodHead,
	http.MethodPost,
	http.MethodPatch,
	http.MethodOptions,
	http.MethodTrace,
	http.MethodConnect,
	echo.PROPFIND,
	echo.REPORT,
}

type Server struct {
	listener   net.Listener
	httpServer *http.Server
	echo       *echo.Echo
	logger     *zap.SugaredLogger

	cache        cachepkg.Cache
	origin       origin.Fetcher
	tokenManager *token.Manager
	singleFlight *singleflight.Group
	metrics      *metrics.Metrics
}

func New(addr string, opts ...Option) (*Server, error) {
	server := &Server{}

	// Apply options
	for _, opt := range opts {
		opt(server)
	}

	// Apply defaults
	if server.cache == nil {
		return nil, errors.New("no cache was configured")
	}

	if server.origin == nil {
		server.origin = noop.New()
	}

	if server.logger == nil {
		server.logger = zap.NewNop().Sugar()
	}

	if server.metrics == nil {
		server.metrics = metrics.New()
	}

	server.echo = server.newEcho()

	// Listen on the desired port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server.listener = listener

	// Configure HTTP server
	server.httpServer = &http.Server{
		Handler:           server.echo,
		ReadHeaderTimeout: 30 * time.Second,
	}

	return server, nil
}

func (server *Server) Addr() string {
	return strings.ReplaceAll(server.listener.Addr().String(), "[::]", "127.0.0.1")
}

func (server *Server) Run(ctx context.Context) error {
	server.logger.Infof("listening on %s", server.Addr())

	go func() {
		<-ctx.Done()

		_ = server.httpServer.Close()
	}()

	if err := server.httpServer.Serve(server.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (server *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = server.handleError

	e.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator: uuid.NewString,
		}),
		echozap.ZapLogger(server.logger.Desugar()),
		server.metrics.Middleware(),
		middleware.RecoverWithConfig(middleware.RecoverConfig{
			LogErrorFunc: server.logPanic,
		}),
	)

	var writeMiddlewares []echo.MiddlewareFunc

	if server.tokenManager != nil {
		writeMiddlewares = append(writeMiddlewares, auth.Middleware(server.tokenManager))
	}

	e.GET("/*", server.handleGet)
	e.PUT("/*", server.handlePut, writeMiddlewares...)
	e.DELETE("/*", server.handleDelete, writeMiddlewares...)
	e.Match(rejectedMethods, "/*", server.handleMethodNotAllowed)

	return e
}

// handleError is the last resort for errors that weren't turned
// into a response by the handlers, such as routing errors and panics.
func (server *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError

	var httpError *echo.HTTPError

	if errors.As(err, &httpError) {
		status = httpError.Code
	} else {
		server.logger.Errorf("failed to serve %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if err := c.String(status, http.StatusText(status)); err != nil {
		server.logger.Warnf("failed to respond to %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
}

func (server *Server) logPanic(c echo.Context, err error, stack []byte) error {
	server.logger.With(
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"stack", string(stack),
	).Errorf("recovered from panic: %v", err)

	return err
}
