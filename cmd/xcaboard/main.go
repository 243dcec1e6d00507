package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"github.com/xca-bot/xcaboard/internal/backend"
	"github.com/xca-bot/xcaboard/internal/config"
	"github.com/xca-bot/xcaboard/internal/demo"
	"github.com/xca-bot/xcaboard/internal/handler"
	"github.com/xca-bot/xcaboard/internal/hub"
	"github.com/xca-bot/xcaboard/internal/middleware"
	"github.com/xca-bot/xcaboard/internal/state"
	"github.com/xca-bot/xcaboard/internal/syncer"
	"github.com/xca-bot/xcaboard/internal/web"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()

	store := state.New(cfg.MatchDisplayLimit, cfg.LogBufferLimit)
	guard := handler.NewActionGuard()
	ws := hub.New(store)

	sessions := handler.NewSessionStore(cfg.SessionTTL)
	auth, err := handler.NewAuthHandler(cfg.DashboardPassword, sessions)
	if err != nil {
		slog.Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	// The handlers talk to whichever backend is wired in: the REST client
	// against the real monitoring service, or the in-memory demo backend.
	var api handler.API
	var sync *syncer.Syncer
	var demoBackend *demo.Backend
	if cfg.DemoMode {
		demoBackend = demo.New()
		api = demoBackend
	} else {
		client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout, cfg.StreamRetryDelay)
		api = client
		sync = syncer.New(client, store, cfg.PollInterval, cfg.MatchDisplayLimit, cfg.LogBufferLimit)
	}

	// Handlers
	monHandler := handler.NewMonitorHandler(api, store, guard)
	cfgHandler := handler.NewConfigHandler(api, store)
	tgHandler := handler.NewTelegramHandler(api, store)
	logHandler := handler.NewLogsHandler(api, store, guard)
	dataHandler := handler.NewDataHandler(api, store, guard, cfg.MatchDisplayLimit)
	stateHandler := handler.NewStateHandler(store, ws, cfg.DemoMode)

	frontend, err := web.Handler()
	if err != nil {
		slog.Error("frontend assets unavailable", "error", err)
		os.Exit(1)
	}

	// Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)

	r.Route("/api", func(r chi.Router) {
		auth.RegisterRoutes(r)
		r.Get("/health", stateHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			monHandler.RegisterRoutes(r)
			cfgHandler.RegisterRoutes(r)
			tgHandler.RegisterRoutes(r)
			logHandler.RegisterRoutes(r)
			dataHandler.RegisterRoutes(r)
			stateHandler.RegisterRoutes(r)
			r.Method(http.MethodGet, "/ws", ws)
		})
	})
	r.Handle("/*", frontend)

	// Server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:      gzhttp.GzipHandler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DemoMode {
		go demoBackend.Run(ctx, store, 3*time.Second)
	} else {
		if err := sync.Start(ctx); err != nil {
			slog.Error("syncer start failed", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		slog.Info("server starting", "port", cfg.ServerPort, "backend", cfg.BackendURL, "demo", cfg.DemoMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	if sync != nil {
		sync.Stop(context.Background())
	}

	// Give in-flight requests time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
