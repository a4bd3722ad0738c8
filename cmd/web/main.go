package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"orderfront/internal/analytics"
	"orderfront/internal/backend"
	"orderfront/internal/config"
	"orderfront/internal/handlers"
	"orderfront/internal/middleware"
	"orderfront/internal/notify"
	"orderfront/internal/observability"
	"orderfront/internal/ordering"
	"orderfront/internal/push"
	"orderfront/internal/server"
	"orderfront/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	warmupTimeout = 15 * time.Second
)

// handlePage wraps a templ component render into an http.HandlerFunc
// with a bounded render deadline.
func handlePage(render func(ctx context.Context, w io.Writer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting front-of-house gateway",
		"version", "1.0.0",
		"backend", cfg.Backend.BaseURL,
		"push_subject", cfg.Push.Subject,
	)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	center := notify.NewCenter(notify.DefaultTTL, logger)

	orderingSvc := ordering.NewService(client, center, logger)
	analyticsSvc := analytics.NewService(client, center, logger)
	renderer := templates.NewRenderer(cfg.Ports)

	// Probe the backend and connect the push channel concurrently.
	// A dead backend is survivable (every fetch degrades to a
	// notification), a dead push channel is not: order status updates
	// would silently never arrive.
	var listener *push.Listener
	warmupCtx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(warmupCtx)
	g.Go(func() error {
		if err := client.Health(gctx); err != nil {
			logger.Warn("backend not reachable at startup", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		l, err := push.Connect(cfg.Push.URL, cfg.Push.Subject, center, logger)
		if err != nil {
			return err
		}
		listener = l
		return l.Start()
	})
	if err := g.Wait(); err != nil {
		logger.Error("failed to connect push channel", "error", err)
		os.Exit(1)
	}

	templateHandlers := &server.TemplateHandlers{
		Order:     handlePage(templates.OrderPage(cfg.Ports).Render),
		Analytics: handlePage(templates.AnalyticsPage(cfg.Ports).Render),
	}

	srv := server.NewServer(
		handlers.NewOrderingHandlers(orderingSvc, center, renderer, logger),
		handlers.NewAnalyticsHandlers(analyticsSvc, center, renderer, logger),
		handlers.NewUpdatesHandler(center, renderer, logger),
		handlers.NewAPIHandlers(orderingSvc, analyticsSvc, logger),
		templateHandlers,
		logger,
	)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Session(cfg.Security.SessionCookie),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("push-listener", listener.Close)
	gracefulServer.RegisterShutdownHook("notification-timers", func(ctx context.Context) error {
		center.Stop()
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("gateway stopped gracefully")
}
