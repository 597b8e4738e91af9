package app

import (
	"database/sql"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"charter/internal/config"
	"charter/internal/jobs"
	"charter/internal/notify"
	internalRedis "charter/internal/redis"
	"charter/internal/repository/postgres"
	"charter/internal/service"
)

// Services bundles the lifecycle services shared by the API server and
// the job worker.
type Services struct {
	Quotes    *service.QuoteService
	Trips     *service.TripService
	Locations *service.LocationService
	Drivers   *service.DriverService
	Ledger    *service.EarningsLedger
	Backfill  *service.Backfill
	JobStore  *jobs.PostgresStore
	Notifier  notify.Notifier
	Hub       *notify.Hub
}

// BuildServices wires repositories, Redis stores, the job queue, and
// the lifecycle services on top of the shared connections.
func BuildServices(db *sql.DB, redisClient *goredis.Client, cfg *config.Config, log *slog.Logger) *Services {
	throttleStore := internalRedis.NewThrottleStore(redisClient)
	locationStore := internalRedis.NewTripLocationStore(redisClient)
	driverCache := internalRedis.NewDriverCache(redisClient)

	quoteRepo := postgres.NewQuoteRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	earningsRepo := postgres.NewEarningsRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)

	jobStore := jobs.NewPostgresStore(db)

	hub := notify.NewHub(log)
	notifiers := notify.Fanout{notify.NewLogNotifier(log), hub}
	if cfg.Kafka.Enabled {
		notifiers = append(notifiers, notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, log))
	}

	engine := service.NewAssignmentEngine(
		quoteRepo, driverRepo, catalogRepo, catalogRepo.Amenities(), catalogRepo, driverCache, log)

	ledger := service.NewEarningsLedger(db, earningsRepo, driverRepo, quoteRepo, reservationRepo, log)

	quotes := service.NewQuoteService(
		quoteRepo, reservationRepo, engine, jobStore, notifiers, cfg.Lifecycle, log)

	trips := service.NewTripService(
		db, reservationRepo, quoteRepo, driverRepo, catalogRepo, jobStore,
		throttleStore, locationStore, driverCache, ledger, notifiers, cfg.Lifecycle, log)

	locations := service.NewLocationService(
		reservationRepo, throttleStore, locationStore, notifiers, cfg.Lifecycle, log)

	drivers := service.NewDriverService(driverRepo, reservationRepo, driverCache)

	backfill := service.NewBackfill(quoteRepo, reservationRepo, driverRepo, jobStore, cfg.Lifecycle, log)

	return &Services{
		Quotes:    quotes,
		Trips:     trips,
		Locations: locations,
		Drivers:   drivers,
		Ledger:    ledger,
		Backfill:  backfill,
		JobStore:  jobStore,
		Notifier:  notifiers,
		Hub:       hub,
	}
}
