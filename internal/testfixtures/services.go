package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meeting-booking/internal/application"
	"github.com/example/meeting-booking/internal/coordination"
	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/mailer"
)

// ServiceFactory assists tests with constructing application services over a
// SQLite harness using a controllable clock.
type ServiceFactory struct {
	Clock    *Clock
	Location *time.Location
	Logger   *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults: a clock at
// ReferenceTime and UTC calendar days.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:    NewClock(time.Time{}),
		Location: time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithLocation overrides the location meeting days are interpreted in.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewRoomService builds a room service backed by the harness.
func (f *ServiceFactory) NewRoomService(h *SQLiteHarness) *application.RoomService {
	return application.NewRoomServiceWithLogger(h.Rooms, f.Clock.NowFunc(), f.Logger)
}

// NewMemberService builds a member service backed by the harness.
func (f *ServiceFactory) NewMemberService(h *SQLiteHarness, sealer application.CredentialSealer) *application.MemberService {
	return application.NewMemberServiceWithLogger(h.Members, sealer, f.Clock.NowFunc(), f.Logger)
}

// MeetingServiceDeps captures the optional collaborators of a meeting service.
// Nil fields fall back to the service defaults.
type MeetingServiceDeps struct {
	Locker    coordination.Locker
	Cache     coordination.AvailabilityCache
	Publisher events.Publisher
}

// NewMeetingService builds a meeting service backed by the harness.
func (f *ServiceFactory) NewMeetingService(h *SQLiteHarness, deps MeetingServiceDeps) *application.MeetingService {
	opts := []application.MeetingServiceOption{
		application.WithLocation(f.Location),
		application.WithLocker(deps.Locker),
		application.WithPublisher(deps.Publisher),
	}
	if deps.Cache != nil {
		opts = append(opts, application.WithAvailabilityCache(deps.Cache))
	}
	return application.NewMeetingServiceWithLogger(h.Meetings, h.Rooms, h.Members, f.Clock.NowFunc(), f.Logger, opts...)
}

// NewCheckInService builds a check-in service backed by the harness.
func (f *ServiceFactory) NewCheckInService(h *SQLiteHarness, publisher events.Publisher) *application.CheckInService {
	return application.NewCheckInServiceWithLogger(h.CheckIns, h.Meetings, publisher, f.Clock.NowFunc(), f.Logger)
}

// NewInvitationService builds an invitation service backed by the harness.
func (f *ServiceFactory) NewInvitationService(h *SQLiteHarness, opener application.CredentialOpener, sender mailer.Sender, settings application.InvitationSettings) *application.InvitationService {
	if settings.Location == nil {
		settings.Location = f.Location
	}
	return application.NewInvitationServiceWithLogger(h.Meetings, h.Rooms, h.Members, opener, sender, settings, f.Clock.NowFunc(), f.Logger)
}
