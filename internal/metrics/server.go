package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/mar-update-server/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
)

// Handler exposes g on GET /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return r
}

// Serve answers metric scrapes on l until ctx is done, then shuts down within shutdownTimeout.
func Serve(ctx context.Context, l net.Listener, g prometheus.Gatherer, shutdownTimeout time.Duration) error {
	ctx = logger.WithName(ctx, "metrics")

	server := &http.Server{
		Handler:           Handler(g),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Serve(l)
	}()

	logger.InfoKV(ctx, "Starting metrics server", "addr", l.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	logger.Info(ctx, "Metrics server stopped")

	return nil
}
