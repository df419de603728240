package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"go.uber.org/zap"

	"github.com/freetex/texsync/internal/infrastructure/configs"
	"github.com/freetex/texsync/internal/infrastructure/ratelimiter"
	"github.com/freetex/texsync/internal/infrastructure/repository"
	"github.com/freetex/texsync/internal/infrastructure/tracing"
	"github.com/freetex/texsync/internal/infrastructure/ws"
	"github.com/freetex/texsync/internal/presentation/api"
	"github.com/freetex/texsync/internal/presentation/handler/editor"
)

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		logger.Fatalw("initializing tracing failed", "error", err)
	}
	defer shutdownTracing(context.Background())

	roster := ws.NewRoster()
	docRepository := repository.NewDocumentRepository(cfg.Rooms.Capacity, cfg.Rooms.IdleExpiry, roster.ActiveRooms)

	core := ws.NewCore(docRepository, roster, cfg.WS.ReadLimit, cfg.Rooms.SweepInterval, logger)
	go core.Run()
	defer core.Stop()

	editorHandler := editor.NewHandler(docRepository, roster, core, cfg.WS.SendBuffer, logger)
	rateLimiter := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
	defer rateLimiter.Close()

	app := api.NewApplication(*cfg, *editorHandler, logger, rateLimiter)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("documents", expvar.Func(func() any {
		return docRepository.Len()
	}))
	expvar.Publish("active_rooms", expvar.Func(func() any {
		return roster.RoomCount()
	}))
	expvar.Publish("sessions", expvar.Func(func() any {
		return roster.SessionCount()
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
