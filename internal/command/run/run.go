package run

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	cachepkg "github.com/cirruslabs/catcache/internal/cache"
	diskpkg "github.com/cirruslabs/catcache/internal/cache/disk"
	s3pkg "github.com/cirruslabs/catcache/internal/cache/s3"
	configpkg "github.com/cirruslabs/catcache/internal/config"
	metricspkg "github.com/cirruslabs/catcache/internal/metrics"
	"github.com/cirruslabs/catcache/internal/origin/remote"
	serverpkg "github.com/cirruslabs/catcache/internal/server"
	"github.com/cirruslabs/catcache/internal/server/token"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func NewCommand() *cobra.Command {
	var configPath string
	var host string
	var port int
	var cacheDir string
	var originURL string
	var offline bool
	var singleFlight bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the catcache server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := configpkg.ParseFile(configPath)
			if err != nil {
				return err
			}

			// Command-line flags take precedence over the configuration file
			flags := cmd.Flags()

			if flags.Changed("host") {
				config.Host = host
			}
			if flags.Changed("port") {
				config.Port = port
			}
			if flags.Changed("cache") {
				config.Cache.Dir = cacheDir
			}
			if flags.Changed("origin") {
				config.Origin.URL = originURL
			}
			if flags.Changed("offline") {
				config.Origin.Disabled = offline
			}
			if flags.Changed("single-flight") {
				config.SingleFlight = singleFlight
			}
			if flags.Changed("metrics-addr") {
				config.Metrics.Addr = metricsAddr
			}

			return Run(cmd.Context(), config)
		},
	}

	// -h is taken by --host
	cmd.Flags().Bool("help", false, "help for run")

	cmd.Flags().StringVarP(&configPath, "file", "f", "",
		"configuration file path (e.g. /etc/catcache.yml)")
	cmd.Flags().StringVarP(&host, "host", "h", "",
		"address to listen on (e.g. 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0,
		"port to listen on")
	cmd.Flags().StringVarP(&cacheDir, "cache", "c", "",
		"directory to store the cached images in, created if missing")
	cmd.Flags().StringVar(&originURL, "origin", remote.DefaultURL,
		"base URL of the origin to fetch the missing images from")
	cmd.Flags().BoolVar(&offline, "offline", false,
		"never contact the origin, respond with 404 on cache misses")
	cmd.Flags().BoolVar(&singleFlight, "single-flight", false,
		"share a single origin fetch between concurrent cache misses for the same key")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on (e.g. 127.0.0.1:9090)")

	return cmd
}

// Run serves the configured cache until ctx is cancelled.
func Run(ctx context.Context, config *configpkg.Config) error {
	logger := zap.S()

	if err := config.Validate(); err != nil {
		return err
	}

	metrics := metricspkg.New()

	opts := []serverpkg.Option{
		serverpkg.WithLogger(logger),
		serverpkg.WithMetrics(metrics),
	}

	cache, err := newCache(ctx, config, logger)
	if err != nil {
		return err
	}

	opts = append(opts, serverpkg.WithCache(cache))

	if config.Origin.Disabled {
		logger.Infof("origin is disabled, cache misses will result in 404 Not Found")
	} else {
		maxSizeBytes, err := config.MaxSizeBytes()
		if err != nil {
			return err
		}

		origin, err := remote.New(config.Origin.URL,
			remote.WithTimeout(config.Origin.Timeout),
			remote.WithMaxBytes(maxSizeBytes),
		)
		if err != nil {
			return err
		}

		opts = append(opts, serverpkg.WithOrigin(origin))
	}

	if config.SingleFlight {
		opts = append(opts, serverpkg.WithSingleFlight())
	}

	if config.Auth.Secret != "" {
		tokenManager, err := token.NewManager(config.Auth.Secret)
		if err != nil {
			return err
		}

		opts = append(opts, serverpkg.WithTokenManager(tokenManager))
	}

	server, err := serverpkg.New(config.Addr(), opts...)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Run(ctx)
	})

	if config.Metrics.Addr != "" {
		group.Go(func() error {
			return serveMetrics(ctx, config.Metrics.Addr, metrics, logger)
		})
	}

	return group.Wait()
}

func newCache(ctx context.Context, config *configpkg.Config, logger *zap.SugaredLogger) (cachepkg.Cache, error) {
	if s3Config := config.Cache.S3; s3Config != nil {
		s3, err := s3pkg.New(ctx, s3Config.Bucket, s3Config.Prefix)
		if err != nil {
			return nil, err
		}

		logger.Infof("using S3 bucket %s for cache", s3Config.Bucket)

		return s3, nil
	}

	_, err := os.Stat(config.Cache.Dir)
	created := errors.Is(err, os.ErrNotExist)

	disk, err := diskpkg.New(config.Cache.Dir)
	if err != nil {
		return nil, err
	}

	if created {
		logger.Infof("cache directory created at %s", disk.Dir())
	}

	entries, err := disk.Entries()
	if err != nil {
		return nil, err
	}

	totalBytes := lo.SumBy(entries, func(entry diskpkg.Entry) uint64 {
		return entry.Size
	})

	logger.Infof("found %d cached images (%s) in %s", len(entries),
		humanize.Bytes(totalBytes), disk.Dir())

	if len(entries) != 0 {
		oldest := lo.MinBy(entries, func(a, b diskpkg.Entry) bool {
			return a.ModTime.Before(b.ModTime)
		})
		newest := lo.MaxBy(entries, func(a, b diskpkg.Entry) bool {
			return a.ModTime.After(b.ModTime)
		})

		logger.Infof("oldest cached image is %s (%s), newest is %s (%s)",
			oldest.Key, humanize.Time(oldest.ModTime), newest.Key, humanize.Time(newest.ModTime))
	}

	return disk, nil
}

func serveMetrics(ctx context.Context, addr string, metrics *metricspkg.Metrics, logger *zap.SugaredLogger) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		_ = httpServer.Close()
	}()

	logger.Infof("serving metrics on %s", listener.Addr())

	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
