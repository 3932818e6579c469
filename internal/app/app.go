// Package app builds the service graph shared by the api-server, the lapse
// worker and the seed command.
package app

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/barangay-nit/eservices/internal/admin"
	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/config"
	"github.com/barangay-nit/eservices/internal/db"
	"github.com/barangay-nit/eservices/internal/memstore"
	"github.com/barangay-nit/eservices/internal/notify"
	redisclient "github.com/barangay-nit/eservices/internal/redis"
	"github.com/barangay-nit/eservices/internal/schedule"
	"github.com/barangay-nit/eservices/internal/status"
	"github.com/barangay-nit/eservices/internal/tracking"
)

type App struct {
	Config       config.Config
	PgPool       *pgxpool.Pool // nil on the memory store
	Redis        *redis.Client // nil when Redis is disabled
	Slots        *schedule.Calculator
	Certificates *certificate.Service
	Appointments *appointment.Service
	Status       *status.Service
	Auth         *auth.Service
	Admin        *admin.Gateway
}

// Build connects to the configured backends and wires every service. The
// caller owns the returned App and must Close it.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}

	var (
		certRepo  certificate.Repository
		apptRepo  appointment.Repository
		staffRepo auth.StaffRepository
		seq       tracking.Sequencer
	)

	switch cfg.StoreDriver {
	case config.StorePostgres:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
		cancel()
		if err != nil {
			return nil, err
		}
		a.PgPool = pool
		log.Println("connected to Postgres")

		if err := db.Migrate(ctx, pool); err != nil {
			a.Close()
			return nil, err
		}

		certRepo = certificate.NewPgRepository(pool)
		apptRepo = appointment.NewPgRepository(pool, cfg.OfficeLocation)
		staffRepo = auth.NewPgRepository(pool)
		seq = db.NewSequencer(pool)

	default:
		store := memstore.New()
		certRepo = store.Certificates()
		apptRepo = store.Appointments()
		staffRepo = store.Staff()
		seq = store
		log.Println("using in-memory store; data is lost on restart")
	}

	var (
		locker redisclient.Locker = redisclient.NewLocalLocker()
		opts   = []schedule.Option{schedule.WithWindowDays(cfg.BookingWindow)}
	)
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rdb
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		opts = append(opts, schedule.WithCache(redisclient.NewSlotCache(rdb, cfg.SlotCacheTTL)))
		log.Println("connected to Redis")
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.NotifyDriver == config.NotifySMTP {
		smtp, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.EmailHost,
			Port:     cfg.EmailPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPassword,
			From:     cfg.EmailFrom,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = smtp
		log.Printf("mailing residents via %s:%d", cfg.EmailHost, cfg.EmailPort)
	}

	ids := tracking.NewGenerator(seq)

	a.Slots = schedule.NewCalculator(schedule.DefaultCatalog(), apptRepo, cfg.OfficeLocation, opts...)
	a.Certificates = certificate.NewService(certRepo, ids, cfg.OfficeLocation)
	a.Appointments = appointment.NewService(apptRepo, a.Slots, ids, locker)
	a.Certificates.SetNotifier(notifier)
	a.Appointments.SetNotifier(notifier)
	a.Status = status.NewService(a.Certificates, a.Appointments, cfg.OfficeLocation)
	a.Auth = auth.NewService(staffRepo, cfg.JWTSecret, cfg.SessionTTL)
	a.Admin = admin.NewGateway(a.Certificates, a.Appointments)

	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}
	if a.PgPool != nil {
		a.PgPool.Close()
	}
}
