package service

import (
	"log/slog"

	"github.com/kirinyoku/resto-go/internal/auth"
	"github.com/kirinyoku/resto-go/internal/broker"
	postgres "github.com/kirinyoku/resto-go/internal/repository/postgres"
	redis "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/service/catalog"
	"github.com/kirinyoku/resto-go/internal/service/ledger"
	"github.com/kirinyoku/resto-go/internal/service/report"
	"github.com/kirinyoku/resto-go/internal/service/reservation"
	"github.com/kirinyoku/resto-go/internal/service/staff"
)

type Services struct {
	Catalog     *catalog.Service
	Reservation *reservation.Service
	Ledger      *ledger.Service
	Report      *report.Service
	Staff       *staff.Service
}

type Config struct {
	Catalog     catalog.Config
	Reservation reservation.Config
	Ledger      ledger.Config
	Report      report.Config
	Staff       staff.Config
}

// Limiters are per-endpoint rate limiters; nil entries disable limiting.
type Limiters struct {
	Login       *redis.SlidingWindowLimiter
	Reservation *redis.SlidingWindowLimiter
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	limiters Limiters,
	publisher *broker.Publisher,
	issuer *auth.Issuer,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Catalog:     catalog.New(store, cache, logger, cfg.Catalog),
		Reservation: reservation.New(store, cache, limiters.Reservation, publisher, logger, cfg.Reservation),
		Ledger:      ledger.New(store, cache, publisher, logger, cfg.Ledger),
		Report:      report.New(store, cache, cfg.Report),
		Staff:       staff.New(store, issuer, limiters.Login, cfg.Staff),
	}
}
