package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kirinyoku/resto-go/internal/auth"
	"github.com/kirinyoku/resto-go/internal/broker"
	"github.com/kirinyoku/resto-go/internal/config"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/postgres"
	"github.com/kirinyoku/resto-go/internal/redis"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/service"
	"github.com/kirinyoku/resto-go/internal/service/ledger"
	"github.com/kirinyoku/resto-go/internal/service/report"
	"github.com/kirinyoku/resto-go/internal/service/reservation"
	httpgin "github.com/kirinyoku/resto-go/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	publisher  *broker.Publisher
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	// Initialize dependencies
	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
		AppName:  "restogo",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if cfg.MigrateOnUp {
		if err := postgres.Migrate(ctx, pgxPool, logger); err != nil {
			pgxPool.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	var publisher *broker.Publisher
	if cfg.RabbitMQ.URL != "" {
		publisher, err = broker.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, domain events disabled", "error", err)
		}
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	limiters := service.Limiters{
		Login:       redisrepo.NewSlidingWindowLimiter(rdb, "login", 10, time.Minute),
		Reservation: redisrepo.NewSlidingWindowLimiter(rdb, "reservations", 30, time.Minute),
	}
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)

	// Initialize services
	services := service.NewServices(store, cache, limiters, publisher, issuer, logger, service.Config{
		Reservation: reservation.Config{
			Location: cfg.Restaurant.Location,
			Slot:     domain.SlotPolicy{Window: cfg.Restaurant.ReservationSlot},
		},
		Ledger: ledger.Config{Location: cfg.Restaurant.Location},
		Report: report.Config{Location: cfg.Restaurant.Location},
	})

	created, err := services.Staff.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminLogin, cfg.Bootstrap.AdminPassword)
	if err != nil {
		logger.Error("bootstrap administrator failed", "error", err)
	} else if created {
		logger.Info("bootstrap administrator created", "login", cfg.Bootstrap.AdminLogin)
	}

	// Initialize Gin router
	router := httpgin.NewRouter(httpgin.RouterDeps{
		Services: services,
		Issuer:   issuer,
		Idem:     idempotencyStore,
		Health:   store,
		Logger:   logger,
	})

	logger.Info("reservation slot policy", "slot", domain.SlotPolicy{Window: cfg.Restaurant.ReservationSlot}.String())

	return &App{
		cfg:       cfg,
		logger:    logger,
		pool:      pgxPool,
		rdb:       rdb,
		publisher: publisher,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("closing rabbitmq publisher", "error", err)
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("closing redis client", "error", err)
	}
	a.pool.Close()
}
