package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	api "github.com/oshokin/mar-update-server/internal/api/http/update"
	"github.com/oshokin/mar-update-server/internal/config"
	"github.com/oshokin/mar-update-server/internal/logger"
	"github.com/oshokin/mar-update-server/internal/metrics"
	"github.com/oshokin/mar-update-server/internal/repository/archive"
	"github.com/oshokin/mar-update-server/internal/service/descriptor"
)

// Options controls the update server process.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// ArchivePath is the MAR archive to publish.
	ArchivePath string
}

const readHeaderTimeout = 10 * time.Second

// Run builds the update descriptor and serves it until ctx is canceled.
// Every failure before the listeners are up is returned and nothing is served.
func Run(ctx context.Context, opts *Options) error {
	// Load configuration first, logging depends on it.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.Configure(settings.LogLevel, settings.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	defer logger.Sync()

	// Name the logger only now, Configure may have replaced the global one.
	ctx = logger.WithName(ctx, "mar-update-server")

	warnOnURLMismatch(ctx, settings)

	// Describe the archive once; the result never changes afterwards.
	catalog, err := descriptor.Build(ctx, opts.ArchivePath, descriptor.Options{
		DownloadURL:    settings.DownloadURL,
		DefaultVersion: settings.DefaultVersion,
		DefaultBuildID: settings.DefaultBuildID,
	})
	if err != nil {
		return fmt.Errorf("describe archive: %w", err)
	}

	repo := archive.NewFileRepository(opts.ArchivePath)

	svc, err := newService(catalog, repo)
	if err != nil {
		return err
	}

	// Metrics are optional and live on their own listener.
	var (
		observer  api.Observer
		collector *metrics.Collector
	)

	if settings.MetricsAddress != "" {
		collector = metrics.New()
		observer = collector

		u := catalog.Updates[0]
		collector.SetDescriptor(u.AppVersion, u.BuildID, u.Patches[0].Kind.String())
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", settings.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.ListenAddress, err)
	}

	var metricsLis net.Listener
	if collector != nil {
		metricsLis, err = lc.Listen(ctx, "tcp", settings.MetricsAddress)
		if err != nil {
			_ = lis.Close()

			return fmt.Errorf("listen on %s: %w", settings.MetricsAddress, err)
		}
	}

	logger.InfoKV(ctx, "Update server listening",
		"listen_address", lis.Addr().String(),
		"download_url", settings.DownloadURL,
		"archive", repo.Path(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(gctx, lis, api.NewServer(svc, observer), settings.ShutdownTimeout)
	})

	if collector != nil {
		g.Go(func() error {
			return metrics.Serve(gctx, metricsLis, collector.Gatherer(), settings.ShutdownTimeout)
		})
	}

	if err = g.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Update server stopped")

	return nil
}

// serve runs handler on l until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, l net.Listener, handler http.Handler, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Serve(l)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve HTTP: %w", err)
	case <-ctx.Done():
	}

	logger.Info(ctx, "Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

// warnOnURLMismatch logs when the advertised URL cannot reach the listener port.
func warnOnURLMismatch(ctx context.Context, settings *config.Config) {
	u, err := url.Parse(settings.DownloadURL)
	if err != nil {
		return
	}

	_, listenPort, err := net.SplitHostPort(settings.ListenAddress)
	if err != nil {
		return
	}

	urlPort := u.Port()
	if urlPort == "" {
		switch u.Scheme {
		case "https":
			urlPort = "443"
		default:
			urlPort = "80"
		}
	}

	if urlPort != listenPort {
		logger.WarnKV(ctx, "Download URL port differs from the listen port, a proxy must forward it",
			"download_url", settings.DownloadURL,
			"listen_address", settings.ListenAddress,
		)
	}
}
