package api

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/freetex/texsync/internal/infrastructure/configs"
	"github.com/freetex/texsync/internal/infrastructure/ratelimiter"
	"github.com/freetex/texsync/internal/presentation/handler/editor"
	"github.com/freetex/texsync/internal/presentation/handler/health"
)

type Application struct {
	config        configs.Config
	editorHandler editor.Handler
	logger        *zap.SugaredLogger
	ratelimiter   *ratelimiter.FixedWindowRateLimiter
}

func NewApplication(
	config configs.Config,
	editorHandler editor.Handler,
	logger *zap.SugaredLogger,
	ratelimiter *ratelimiter.FixedWindowRateLimiter,
) *Application {
	return &Application{
		config:        config,
		editorHandler: editorHandler,
		logger:        logger,
		ratelimiter:   ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(app.enableCors)
	if app.config.RateLimiter.Enabled {
		r.Use(app.rateLimiterMiddleware)
	}

	healthHandler := health.NewHandler()

	r.Get("/ws", app.editorHandler.ServeWS)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.GetHealth)
		r.Get("/rooms/{roomId}", app.editorHandler.GetRoomHandler)
	})
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	if dir := app.config.Static.Dir; dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}

	return otelhttp.NewHandler(r, "texsync.http")
}

// Run serves the mux until SIGINT/SIGTERM, then drains in-flight requests
// within the configured shutdown timeout. WebSocket connections are
// hijacked from the server and close via the core instead.
func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.Server.Addr,
		Handler:      mux,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	shutdown := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Infow("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.Server.Addr)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Infow("server has stopped")
	return nil
}
