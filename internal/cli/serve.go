package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-space/internal/cache"
	"go-space/internal/clients"
	"go-space/internal/config"
	"go-space/internal/handlers"
	"go-space/internal/logging"
	"go-space/internal/repo"
	"go-space/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

// buildHandler assembles clients, caches, store and services.
// The returned store may be nil when persistence is not configured.
func buildHandler(ctx context.Context, cfg *config.AppConfig) (*handlers.Handler, repo.Store, error) {
	var store repo.Store
	if cfg.PersistenceEnabled() {
		s, err := repo.Open(ctx, cfg.Store.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		store = s
		logging.Info().Msg("persistent store connected")
	} else {
		logging.Warn().Msg("DATABASE_URL not set, persistence disabled")
	}

	nasa := clients.NewNasaClient(clients.NasaOptions{
		BaseURL:       cfg.Upstream.NasaAPIURL,
		APIKey:        cfg.Upstream.NasaAPIKey,
		Timeout:       cfg.Upstream.Timeout,
		RatePerSecond: cfg.Upstream.RatePerSecond,
		RateBurst:     cfg.Upstream.RateBurst,
	})
	if !nasa.HasKey() {
		logging.Warn().Msg("NASA_API_KEY not set, NASA endpoints will answer 500")
	}
	iss := clients.NewIssClient(cfg.Upstream.IssAPIURL, cfg.Upstream.Timeout)

	photos := cache.New("mars", cfg.Cache.MarsTTL,
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithSingleFlight(cfg.Cache.SingleFlight))
	manifests := cache.New("manifest", cfg.Cache.ManifestTTL,
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithSingleFlight(cfg.Cache.SingleFlight))
	photos.StartJanitor(ctx, cfg.Cache.JanitorInterval)
	manifests.StartJanitor(ctx, cfg.Cache.JanitorInterval)

	h := handlers.NewHandler(
		services.NewApodService(nasa, store),
		services.NewNeoService(nasa, store),
		services.NewIssService(iss, store),
		services.NewMarsService(nasa, store, photos, manifests),
		services.NewDiagnosticService(nasa),
	)
	return h, store, nil
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	h, store, err := buildHandler(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.NewEngine(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("go-space service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
