package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/meeting-booking/internal/coordination"
	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

// DateLayout is the calendar-day format used for listings and availability.
const DateLayout = "2006-01-02"

// MeetingRepository captures the persistence interactions needed by the service.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting persistence.Meeting, participantIDs []int64) (persistence.Meeting, error)
	UpdateMeeting(ctx context.Context, meeting persistence.Meeting, participantIDs []int64) (persistence.Meeting, error)
	GetMeeting(ctx context.Context, id int64) (persistence.Meeting, error)
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error)
	ListScheduledInRange(ctx context.Context, roomID int64, from, to time.Time) ([]persistence.Meeting, error)
	SetMeetingStatus(ctx context.Context, id int64, from, to scheduler.MeetingStatus, at time.Time) (persistence.Meeting, error)
	ListEndedScheduled(ctx context.Context, before time.Time) ([]persistence.Meeting, error)
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id int64) (persistence.Room, error)
}

// MemberDirectory exposes member lookup operations.
type MemberDirectory interface {
	GetMember(ctx context.Context, id int64) (persistence.Member, error)
	GetMembers(ctx context.Context, ids []int64) ([]persistence.Member, error)
}

// MeetingServiceOption customises a MeetingService.
type MeetingServiceOption func(*MeetingService)

// WithLocker replaces the in-process room lock, for example with a Redis lock
// shared between instances.
func WithLocker(locker coordination.Locker) MeetingServiceOption {
	return func(s *MeetingService) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithAvailabilityCache enables caching of per-day room availability.
func WithAvailabilityCache(cache coordination.AvailabilityCache) MeetingServiceOption {
	return func(s *MeetingService) {
		s.cache = cache
	}
}

// WithPublisher sets the destination of meeting events.
func WithPublisher(publisher events.Publisher) MeetingServiceOption {
	return func(s *MeetingService) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithLocation sets the location calendar days are interpreted in.
func WithLocation(loc *time.Location) MeetingServiceOption {
	return func(s *MeetingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// MeetingService orchestrates booking, listing and lifecycle of meetings.
type MeetingService struct {
	meetings  MeetingRepository
	rooms     RoomCatalog
	members   MemberDirectory
	locker    coordination.Locker
	cache     coordination.AvailabilityCache
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger

	// generations counts invalidations per room; a read that straddles one
	// must not repopulate the cache.
	genMu       sync.Mutex
	generations map[int64]uint64
}

// NewMeetingService wires dependencies for meeting operations.
func NewMeetingService(meetings MeetingRepository, rooms RoomCatalog, members MemberDirectory, now func() time.Time, opts ...MeetingServiceOption) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, rooms, members, now, nil, opts...)
}

// NewMeetingServiceWithLogger wires dependencies and a logger for meeting operations.
func NewMeetingServiceWithLogger(meetings MeetingRepository, rooms RoomCatalog, members MemberDirectory, now func() time.Time, logger *slog.Logger, opts ...MeetingServiceOption) *MeetingService {
	if now == nil {
		now = time.Now
	}
	s := &MeetingService{
		meetings:  meetings,
		rooms:     rooms,
		members:   members,
		locker:    coordination.NewLocalLocker(),
		publisher: events.NopPublisher{},
		loc:       DefaultLocation(),
		now:       now,
		logger:    defaultLogger(logger),

		generations: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// Location returns the location calendar days are interpreted in.
func (s *MeetingService) Location() *time.Location {
	return s.loc
}

// CreateMeeting books a room. The organizer always becomes a participant.
func (s *MeetingService) CreateMeeting(ctx context.Context, input MeetingInput) (meeting Meeting, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateMeeting",
		"room_id", input.RoomID,
		"organizer_id", input.OrganizerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", meeting.ID).InfoContext(ctx, "meeting booked")
	}()

	vErr := &ValidationError{}
	if input.RoomID <= 0 {
		vErr.add("room_id", "room is required")
	}
	if input.OrganizerID <= 0 {
		vErr.add("organizer_id", "organizer is required")
	}
	input.Start, input.End = input.Start.In(s.loc), input.End.In(s.loc)
	validateMeetingCore(input.Title, input.Start, input.End, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureRoomBookable(ctx, input.RoomID); err != nil {
		return
	}

	participantIDs := uniqueIDs(append([]int64{input.OrganizerID}, input.ParticipantIDs...))
	if err = s.ensureMembersExist(ctx, input.OrganizerID, participantIDs); err != nil {
		return
	}

	now := s.now()
	model := persistence.Meeting{
		RoomID:      input.RoomID,
		Title:       strings.TrimSpace(input.Title),
		Start:       input.Start,
		End:         input.End,
		OrganizerID: input.OrganizerID,
		Description: normalizeOptionalString(input.Description),
		Status:      scheduler.MeetingScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var persisted persistence.Meeting
	persisted, err = s.bookExclusively(ctx, model.Booking(), func() (persistence.Meeting, error) {
		return s.meetings.CreateMeeting(ctx, model, participantIDs)
	})
	if err != nil {
		return
	}

	s.invalidate(ctx, logger, persisted.RoomID)
	publish(ctx, s.publisher, logger, events.New(events.MeetingBooked, now, meetingPayload(persisted)))

	meeting = toMeeting(persisted, now)
	return
}

// UpdateMeeting edits a scheduled meeting. Room and organizer stay unchanged;
// the organizer remains a participant when ParticipantIDs is supplied.
func (s *MeetingService) UpdateMeeting(ctx context.Context, meetingID int64, input UpdateMeetingInput) (meeting Meeting, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateMeeting", "meeting_id", meetingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting updated")
	}()

	var existing persistence.Meeting
	existing, err = s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		err = mapMeetingRepoError(err)
		return
	}
	if existing.Status != scheduler.MeetingScheduled {
		err = newValidationError("status", fmt.Sprintf("meeting is %s and can no longer be changed", existing.Status))
		return
	}

	vErr := &ValidationError{}
	input.Start, input.End = input.Start.In(s.loc), input.End.In(s.loc)
	validateMeetingCore(input.Title, input.Start, input.End, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var participantIDs []int64
	if input.ParticipantIDs != nil {
		participantIDs = uniqueIDs(append([]int64{existing.OrganizerID}, input.ParticipantIDs...))
		if err = s.ensureMembersExist(ctx, existing.OrganizerID, participantIDs); err != nil {
			return
		}
	}

	now := s.now()
	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Start = input.Start
	updated.End = input.End
	updated.Description = normalizeOptionalString(input.Description)
	updated.UpdatedAt = now

	var persisted persistence.Meeting
	persisted, err = s.bookExclusively(ctx, updated.Booking(), func() (persistence.Meeting, error) {
		return s.meetings.UpdateMeeting(ctx, updated, participantIDs)
	})
	if err != nil {
		return
	}

	s.invalidate(ctx, logger, persisted.RoomID)
	publish(ctx, s.publisher, logger, events.New(events.MeetingUpdated, now, meetingPayload(persisted)))

	meeting = toMeeting(persisted, now)
	return
}

// GetMeeting returns the full detail of a meeting.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID int64) (detail MeetingDetail, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetMeeting", "meeting_id", meetingID)
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to get meeting", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var model persistence.Meeting
	model, err = s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		err = mapMeetingRepoError(err)
		return
	}

	detail.Meeting = toMeeting(model, s.now())

	if s.rooms != nil {
		var room persistence.Room
		room, err = s.rooms.GetRoom(ctx, model.RoomID)
		if err != nil {
			err = fmt.Errorf("load room %d: %w", model.RoomID, mapRoomRepoError(err))
			return
		}
		detail.Room = toRoom(room)
	}

	if s.members != nil {
		ids := make([]int64, 0, len(model.Participants)+1)
		ids = append(ids, model.OrganizerID)
		for _, p := range model.Participants {
			ids = append(ids, p.MemberID)
		}
		var members []persistence.Member
		members, err = s.members.GetMembers(ctx, uniqueIDs(ids))
		if err != nil {
			err = fmt.Errorf("load participants: %w", mapMemberRepoError(err))
			return
		}
		byID := make(map[int64]persistence.Member, len(members))
		for _, m := range members {
			byID[m.ID] = m
		}
		if organizer, ok := byID[model.OrganizerID]; ok {
			detail.Organizer = toMember(organizer)
		}
		detail.Participants = make([]Participant, 0, len(model.Participants))
		for _, p := range model.Participants {
			member := byID[p.MemberID]
			detail.Participants = append(detail.Participants, Participant{
				MemberID: p.MemberID,
				Name:     member.Name,
				Email:    member.Email,
				Status:   p.Status,
			})
		}
	}

	detail.CheckIns = make([]CheckIn, 0, len(model.CheckIns))
	for _, c := range model.CheckIns {
		detail.CheckIns = append(detail.CheckIns, toCheckIn(c))
	}
	return
}

// ListMeetings returns meetings ordered by start time, each with its display status.
func (s *MeetingService) ListMeetings(ctx context.Context, params ListMeetingsParams) (meetings []Meeting, err error) {
	if s == nil || s.meetings == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListMeetings")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(meetings)).InfoContext(ctx, "meetings listed")
	}()

	filter := persistence.MeetingFilter{RoomID: params.RoomID}
	if params.Status != nil {
		if !params.Status.Valid() {
			err = newValidationError("status", "status must be scheduled, cancelled or completed")
			return
		}
		status := *params.Status
		filter.Status = &status
	}
	if params.Date != nil {
		from, to := scheduler.DayBounds(params.Date.In(s.loc))
		filter.From = &from
		filter.To = &to
	}

	var models []persistence.Meeting
	models, err = s.meetings.ListMeetings(ctx, filter)
	if err != nil {
		err = mapMeetingRepoError(err)
		return
	}

	now := s.now()
	meetings = make([]Meeting, 0, len(models))
	for _, model := range models {
		meetings = append(meetings, toMeeting(model, now))
	}
	return
}

// CancelMeeting moves a scheduled meeting to cancelled. Cancelling an already
// cancelled meeting succeeds without changes; a completed meeting cannot be
// cancelled.
func (s *MeetingService) CancelMeeting(ctx context.Context, meetingID int64) (meeting Meeting, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelMeeting", "meeting_id", meetingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting cancelled")
	}()

	now := s.now()
	var model persistence.Meeting
	model, err = s.meetings.SetMeetingStatus(ctx, meetingID, scheduler.MeetingScheduled, scheduler.MeetingCancelled, now)
	if errors.Is(err, persistence.ErrStatusChanged) {
		model, err = s.meetings.GetMeeting(ctx, meetingID)
		if err != nil {
			err = mapMeetingRepoError(err)
			return
		}
		if model.Status == scheduler.MeetingCancelled {
			meeting = toMeeting(model, now)
			return
		}
		err = newValidationError("status", fmt.Sprintf("meeting is %s and cannot be cancelled", model.Status))
		return
	}
	if err != nil {
		err = mapMeetingRepoError(err)
		return
	}

	s.invalidate(ctx, logger, model.RoomID)
	publish(ctx, s.publisher, logger, events.New(events.MeetingCancelled, now, meetingPayload(model)))

	meeting = toMeeting(model, now)
	return
}

// CompleteMeeting moves a scheduled meeting to completed.
func (s *MeetingService) CompleteMeeting(ctx context.Context, meetingID int64) (meeting Meeting, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CompleteMeeting", "meeting_id", meetingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting completed")
	}()

	now := s.now()
	var model persistence.Meeting
	model, err = s.meetings.SetMeetingStatus(ctx, meetingID, scheduler.MeetingScheduled, scheduler.MeetingCompleted, now)
	if err != nil {
		if errors.Is(err, persistence.ErrStatusChanged) {
			err = newValidationError("status", "only scheduled meetings can be completed")
			return
		}
		err = mapMeetingRepoError(err)
		return
	}

	s.invalidate(ctx, logger, model.RoomID)
	publish(ctx, s.publisher, logger, events.New(events.MeetingCompleted, now, meetingPayload(model)))

	meeting = toMeeting(model, now)
	return
}

// CompleteEndedMeetings completes every scheduled meeting that ended at or
// before now and reports how many were moved. Meetings changed concurrently
// by someone else are skipped.
func (s *MeetingService) CompleteEndedMeetings(ctx context.Context) (completed int, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	now := s.now()
	logger := s.loggerWith(ctx, "CompleteEndedMeetings", "before", now)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete ended meetings", "error", err, "error_kind", ErrorKind(err), "completed", completed)
			return
		}
		logger.With("completed", completed).InfoContext(ctx, "ended meetings completed")
	}()

	var ended []persistence.Meeting
	ended, err = s.meetings.ListEndedScheduled(ctx, now)
	if err != nil {
		err = mapMeetingRepoError(err)
		return
	}

	for _, candidate := range ended {
		if err = ctx.Err(); err != nil {
			return
		}
		model, serr := s.meetings.SetMeetingStatus(ctx, candidate.ID, scheduler.MeetingScheduled, scheduler.MeetingCompleted, now)
		if serr != nil {
			if errors.Is(serr, persistence.ErrStatusChanged) || errors.Is(serr, persistence.ErrNotFound) {
				continue
			}
			err = fmt.Errorf("complete meeting %d: %w", candidate.ID, serr)
			return
		}
		completed++
		s.invalidate(ctx, logger, model.RoomID)
		publish(ctx, s.publisher, logger, events.New(events.MeetingCompleted, now, meetingPayload(model)))
	}
	return
}

// RoomAvailability returns the scheduled bookings of a room on date together
// with the day's slot grid.
func (s *MeetingService) RoomAvailability(ctx context.Context, roomID int64, date time.Time) (availability Availability, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RoomAvailability", "room_id", roomID)
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to load availability", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if s.rooms != nil {
		if _, err = s.rooms.GetRoom(ctx, roomID); err != nil {
			err = mapRoomRepoError(err)
			return
		}
	}

	day := scheduler.StartOfDay(date.In(s.loc))
	var booked []scheduler.Booking
	booked, err = s.dayBookings(ctx, logger, roomID, day)
	if err != nil {
		return
	}

	availability = Availability{
		RoomID: roomID,
		Date:   day,
		Booked: booked,
		Slots:  scheduler.DayGrid(day, booked),
	}
	return
}

// CheckSlotPick validates a start/end slot selection on date against the
// room's bookings. Rejections are reported through SlotCheck, not as errors.
func (s *MeetingService) CheckSlotPick(ctx context.Context, roomID int64, date time.Time, startLabel, endLabel string) (SlotCheck, error) {
	availability, err := s.RoomAvailability(ctx, roomID, date)
	if err != nil {
		return SlotCheck{}, err
	}

	start, end, err := scheduler.ValidatePick(availability.Date, startLabel, endLabel, availability.Booked)
	if err != nil {
		return SlotCheck{OK: false, Reason: pickReason(err)}, nil
	}
	return SlotCheck{OK: true, Start: start, End: end}, nil
}

func (s *MeetingService) dayBookings(ctx context.Context, logger *slog.Logger, roomID int64, day time.Time) ([]scheduler.Booking, error) {
	key := day.Format(DateLayout)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, roomID, key)
		if err != nil {
			logger.WarnContext(ctx, "availability cache read failed", "error", err)
		} else if ok {
			return inLocation(cached, s.loc), nil
		}
	}

	gen := s.generation(roomID)
	from, to := scheduler.DayBounds(day)
	models, err := s.meetings.ListScheduledInRange(ctx, roomID, from, to)
	if err != nil {
		return nil, mapMeetingRepoError(err)
	}

	booked := make([]scheduler.Booking, 0, len(models))
	for _, model := range models {
		booked = append(booked, model.Booking())
	}
	booked = inLocation(booked, s.loc)

	if s.cache != nil {
		s.storeIfCurrent(ctx, logger, roomID, key, gen, booked)
	}
	return booked, nil
}

// storeIfCurrent caches bookings unless the room was invalidated after gen
// was read. The check and the write share genMu with the counter bump, so an
// invalidation either sees the stored entry or makes the write skip.
func (s *MeetingService) storeIfCurrent(ctx context.Context, logger *slog.Logger, roomID int64, key string, gen uint64, booked []scheduler.Booking) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[roomID] != gen {
		logger.DebugContext(ctx, "availability changed during read; not caching", "room_id", roomID)
		return
	}
	if err := s.cache.Store(ctx, roomID, key, booked); err != nil {
		logger.WarnContext(ctx, "availability cache write failed", "error", err)
	}
}

// bookExclusively runs write while holding the room lock, after checking the
// candidate against the scheduled meetings it would overlap.
func (s *MeetingService) bookExclusively(ctx context.Context, candidate scheduler.Booking, write func() (persistence.Meeting, error)) (persistence.Meeting, error) {
	release, err := s.locker.Acquire(ctx, candidate.RoomID)
	if err != nil {
		if errors.Is(err, coordination.ErrLockTimeout) {
			return persistence.Meeting{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return persistence.Meeting{}, err
	}
	defer release()

	existing, err := s.meetings.ListScheduledInRange(ctx, candidate.RoomID, candidate.Start, candidate.End)
	if err != nil {
		return persistence.Meeting{}, mapMeetingRepoError(err)
	}
	bookings := make([]scheduler.Booking, 0, len(existing))
	for _, model := range existing {
		bookings = append(bookings, model.Booking())
	}
	if clashes := scheduler.Conflicts(candidate, bookings); len(clashes) > 0 {
		return persistence.Meeting{}, fmt.Errorf("%w: overlaps meeting %d", ErrConflict, clashes[0].ID)
	}

	persisted, err := write()
	if err != nil {
		return persistence.Meeting{}, mapMeetingRepoError(err)
	}
	return persisted, nil
}

func (s *MeetingService) ensureRoomBookable(ctx context.Context, roomID int64) error {
	if s.rooms == nil {
		return nil
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return newValidationError("room_id", "room does not exist")
		}
		return err
	}
	if room.Status == persistence.RoomMaintenance {
		return newValidationError("room_id", "room is under maintenance")
	}
	return nil
}

func (s *MeetingService) ensureMembersExist(ctx context.Context, organizerID int64, ids []int64) error {
	if s.members == nil || len(ids) == 0 {
		return nil
	}
	found, err := s.members.GetMembers(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[int64]struct{}, len(found))
	for _, m := range found {
		known[m.ID] = struct{}{}
	}

	vErr := &ValidationError{}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; ok {
			continue
		}
		if id == organizerID {
			vErr.add("organizer_id", "organizer does not exist")
			continue
		}
		missing = append(missing, strconv.FormatInt(id, 10))
	}
	if len(missing) > 0 {
		vErr.add("participant_ids", "unknown members: "+strings.Join(missing, ", "))
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *MeetingService) invalidate(ctx context.Context, logger *slog.Logger, roomID int64) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	s.generations[roomID]++
	s.genMu.Unlock()
	if err := s.cache.Invalidate(ctx, roomID); err != nil {
		logger.WarnContext(ctx, "availability cache invalidation failed", "room_id", roomID, "error", err)
	}
}

func validateMeetingCore(title string, start, end time.Time, vErr *ValidationError) {
	if strings.TrimSpace(title) == "" {
		vErr.add("title", "title is required")
	}
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if start.IsZero() || end.IsZero() {
		return
	}
	switch err := scheduler.CheckInterval(start, end); {
	case errors.Is(err, scheduler.ErrIntervalOrder):
		vErr.add("end", "end must be after start")
	case errors.Is(err, scheduler.ErrIntervalAlignment):
		vErr.add("start", "times must be aligned to the 30-minute grid")
	case errors.Is(err, scheduler.ErrIntervalDuration):
		vErr.add("end", "duration must be a multiple of 30 minutes")
	}
}

func pickReason(err error) string {
	switch {
	case errors.Is(err, scheduler.ErrInvalidSlot):
		return "invalid time slot"
	case errors.Is(err, scheduler.ErrIntervalOrder):
		return "end time must be after start time"
	case errors.Is(err, scheduler.ErrSlotStraddle):
		return "selected range spans an existing booking"
	case errors.Is(err, scheduler.ErrSlotConflict):
		return "selected range overlaps an existing booking"
	case errors.Is(err, scheduler.ErrIntervalAlignment), errors.Is(err, scheduler.ErrIntervalDuration):
		return "times must follow the 30-minute grid"
	}
	return err.Error()
}

func mapMeetingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrOverlap):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, persistence.ErrStatusChanged):
		return newValidationError("status", "meeting is no longer scheduled")
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return newValidationError("participant_ids", "meeting references an unknown room or member")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("meeting", "meeting violates a storage constraint")
	}
	return err
}

func meetingPayload(model persistence.Meeting) events.MeetingPayload {
	return events.MeetingPayload{
		MeetingID:   model.ID,
		RoomID:      model.RoomID,
		Title:       model.Title,
		Start:       model.Start,
		End:         model.End,
		OrganizerID: model.OrganizerID,
		Status:      string(model.Status),
	}
}

func (s *MeetingService) generation(roomID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[roomID]
}

func inLocation(bookings []scheduler.Booking, loc *time.Location) []scheduler.Booking {
	out := make([]scheduler.Booking, len(bookings))
	for i, b := range bookings {
		b.Start = b.Start.In(loc)
		b.End = b.End.In(loc)
		out[i] = b
	}
	return out
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DefaultLocation is the single locale meetings are scheduled in.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}
