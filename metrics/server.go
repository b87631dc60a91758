package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StartServer serves /metrics from gatherer on addr until ctx is done.
// It returns the address it is listening on.
func StartServer(ctx context.Context, addr string, gatherer prometheus.Gatherer) (string, error) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen metrics: %w", err)
	}
	actual := ln.Addr().String()

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("com", "metrics").Msg("metrics server stopped")
		}
	}()

	log.Info().Str("com", "metrics").Str("addr", actual).Msg("metrics server started")
	return actual, nil
}
