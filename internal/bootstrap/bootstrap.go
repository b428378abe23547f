// Package bootstrap assembles the booking services from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-booking/internal/application"
	"github.com/example/meeting-booking/internal/config"
	"github.com/example/meeting-booking/internal/coordination"
	"github.com/example/meeting-booking/internal/events"
	httptransport "github.com/example/meeting-booking/internal/http"
	"github.com/example/meeting-booking/internal/mailer"
	"github.com/example/meeting-booking/internal/persistence/sqlite"
	"github.com/example/meeting-booking/internal/persistence/sqlite/migration"
	"github.com/example/meeting-booking/internal/scheduler"
	"github.com/example/meeting-booking/internal/secret"
)

const memoryCacheEntries = 1024

// Runtime owns the long lived collaborators of a booking process.
type Runtime struct {
	Config    config.Config
	Storage   *sqlite.Storage
	Locker    coordination.Locker
	Cache     coordination.AvailabilityCache
	Publisher events.Publisher
	Sender    mailer.Sender

	Rooms       *application.RoomService
	Members     *application.MemberService
	Meetings    *application.MeetingService
	CheckIns    *application.CheckInService
	Invitations *application.InvitationService

	checks  map[string]httptransport.Pinger
	closers []func() error
	logger  *slog.Logger
}

// Option adjusts a Runtime before its services are built.
type Option func(*options)

type options struct {
	now    func() time.Time
	sender mailer.Sender
}

// WithClock replaces time.Now for every service.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSender replaces the SMTP sender.
func WithSender(sender mailer.Sender) Option {
	return func(o *options) { o.sender = sender }
}

// Open opens and migrates storage and wires the services. Redis and AMQP are
// used when their URLs are configured. Close must be called on success.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (rt *Runtime, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	rt = &Runtime{Config: cfg, logger: logger, checks: make(map[string]httptransport.Pinger)}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	sealer, err := secret.NewSealer(cfg.CredentialKey)
	if err != nil {
		return rt, fmt.Errorf("bootstrap: credential sealer: %w", err)
	}

	rt.Storage, err = sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath))
	if err != nil {
		return rt, fmt.Errorf("bootstrap: open storage: %w", err)
	}
	rt.closers = append(rt.closers, rt.Storage.Close)
	rt.checks["sqlite"] = rt.Storage
	if err = rt.Storage.Migrate(ctx, logger); err != nil {
		return rt, fmt.Errorf("bootstrap: %w", err)
	}
	status, err := rt.Storage.MigrationStatus(ctx, logger)
	if err != nil {
		return rt, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("storage ready", "schema_version", status.CurrentVersion, "applied", len(status.AppliedMigrations))

	if err = rt.openCoordination(ctx); err != nil {
		return rt, err
	}
	if err = rt.openPublisher(); err != nil {
		return rt, err
	}

	rt.Sender = o.sender
	if rt.Sender == nil {
		rt.Sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Timeout:    cfg.SMTP.Timeout,
			SkipVerify: cfg.SMTP.SkipVerify,
		})
	}

	loc := cfg.Location
	if loc == nil {
		loc = application.DefaultLocation()
	}

	storage := rt.Storage
	rt.Rooms = application.NewRoomServiceWithLogger(storage.Rooms, o.now, logger)
	rt.Members = application.NewMemberServiceWithLogger(storage.Members, sealer, o.now, logger)
	rt.Meetings = application.NewMeetingServiceWithLogger(storage.Meetings, storage.Rooms, storage.Members, o.now, logger,
		application.WithLocation(loc),
		application.WithLocker(rt.Locker),
		application.WithAvailabilityCache(rt.Cache),
		application.WithPublisher(rt.Publisher),
	)
	rt.CheckIns = application.NewCheckInServiceWithLogger(storage.CheckIns, storage.Meetings, rt.Publisher, o.now, logger)
	rt.Invitations = application.NewInvitationServiceWithLogger(storage.Meetings, storage.Rooms, storage.Members, sealer, rt.Sender,
		application.InvitationSettings{
			Location:          loc,
			DefaultCredential: defaultCredential(cfg.SMTP),
			Publisher:         rt.Publisher,
		}, o.now, logger)

	return rt, nil
}

func (rt *Runtime) openCoordination(ctx context.Context) error {
	cfg := rt.Config
	if cfg.RedisURL == "" {
		rt.Locker = coordination.NewLocalLocker()
		rt.Cache = coordination.NewMemoryCache(cfg.AvailabilityTTL, memoryCacheEntries)
		rt.logger.Info("using in-process room locks and availability cache")
		return nil
	}

	client, err := coordination.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	rt.closers = append(rt.closers, client.Close)
	rt.checks["redis"] = redisPinger{client: client}
	rt.Locker = coordination.NewRedisLocker(client, coordination.RedisLockerConfig{TTL: cfg.LockTTL}, rt.logger)
	rt.Cache = coordination.NewRedisCache(client, "", cfg.AvailabilityTTL)
	rt.logger.Info("using redis room locks and availability cache")
	return nil
}

func (rt *Runtime) openPublisher() error {
	cfg := rt.Config
	if cfg.AMQPURL == "" {
		rt.Publisher = events.NopPublisher{}
		return nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, rt.logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	rt.closers = append(rt.closers, publisher.Close)
	rt.Publisher = publisher
	rt.logger.Info("publishing domain events", "exchange", cfg.AMQPExchange)
	return nil
}

// Handler returns the HTTP API wrapped in the request middleware.
func (rt *Runtime) Handler() http.Handler {
	logger := rt.logger
	return httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:    httptransport.NewRoomHandler(rt.Rooms, rt.Meetings, logger),
		Members:  httptransport.NewMemberHandler(rt.Members, logger),
		Meetings: httptransport.NewMeetingHandler(rt.Meetings, rt.Invitations, logger),
		CheckIns: httptransport.NewCheckInHandler(rt.CheckIns, rt.Meetings.Location(), logger),
		Health:   httptransport.NewHealthHandler(rt.checks, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})
}

// Close releases everything Open acquired, in reverse order.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func defaultCredential(cfg config.SMTPConfig) *scheduler.Credential {
	cred := scheduler.Credential{Email: cfg.User, Secret: cfg.Pass}
	if !cred.Complete() {
		return nil
	}
	return &cred
}

type redisPinger struct {
	client redis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
