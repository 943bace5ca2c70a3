package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"imposter-game-backend/internal/config"
	"imposter-game-backend/internal/database"
	"imposter-game-backend/internal/handlers"
	"imposter-game-backend/internal/logging"
	"imposter-game-backend/internal/metrics"
	"imposter-game-backend/internal/random"
	"imposter-game-backend/internal/scheduler"
	"imposter-game-backend/internal/services"
	"imposter-game-backend/internal/store"
	"imposter-game-backend/internal/ws"

	"github.com/prometheus/client_golang/prometheus"
)

// @title           Imposter Game API
// @version         1.0
// @description     Session engine for the Imposter party game: lobby, roles, voting and round timer.
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	rng, err := random.NewFromEntropy()
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := ws.NewHub()

	stdLogger := logging.StdLogger{}
	audit := logging.NewAuditLogger(st, 1024, stdLogger)

	timers := scheduler.NewManager(scheduler.Settings{
		TickInterval:     cfg.TickInterval,
		WarningThreshold: cfg.WarningThreshold,
		ChaosInterval:    cfg.ChaosInterval,
		SpeedRoundWindow: cfg.SpeedRoundWindow,
		SwapSeatsTTL:     scheduler.DefaultSettings().SwapSeatsTTL,
		InquisitorTTL:    scheduler.DefaultSettings().InquisitorTTL,
		DriverTimeout:    cfg.StoreTimeout,
	}, rng, m)

	sessionService := services.NewSessionService(st, services.Settings{
		MinPlayers:             cfg.MinPlayers,
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
		StoreTimeout:           cfg.StoreTimeout,
		StoreRetries:           cfg.StoreRetries,
		AutoEliminate:          cfg.AutoEliminate,
	},
		services.WithTimers(timers),
		services.WithPublisher(hub),
		services.WithLogger(logging.Multi{stdLogger, audit}),
		services.WithMetrics(m),
		services.WithRand(rng),
	)
	timers.SetDriver(sessionService)

	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)

	r := handlers.NewRouter(handlers.RouterConfig{
		SessionService: sessionService,
		AuthService:    authService,
		Hub:            hub,
		CORSOrigins:    cfg.CORSOrigins,
		Gatherer:       prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server starting on :%s (store: %s)", cfg.ServerPort, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	timers.StopAll()
	audit.Close()
}

type persistentStore interface {
	store.Store
	logging.Sink
}

func openStore(cfg *config.Config) (persistentStore, error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Println("using in-memory store, state is lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}
