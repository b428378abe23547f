package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

// CheckInRepository captures the persistence operations needed by the service.
type CheckInRepository interface {
	CreateCheckIn(ctx context.Context, checkIn persistence.CheckIn) (persistence.CheckIn, error)
	ListCheckIns(ctx context.Context, meetingID *int64) ([]persistence.CheckIn, error)
}

// MeetingReader loads a meeting with its participants and check-ins.
type MeetingReader interface {
	GetMeeting(ctx context.Context, id int64) (persistence.Meeting, error)
}

// CheckInService records meeting attendance.
type CheckInService struct {
	checkIns  CheckInRepository
	meetings  MeetingReader
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewCheckInService constructs a check-in service with the provided dependencies.
func NewCheckInService(checkIns CheckInRepository, meetings MeetingReader, publisher events.Publisher, now func() time.Time) *CheckInService {
	return NewCheckInServiceWithLogger(checkIns, meetings, publisher, now, nil)
}

// NewCheckInServiceWithLogger constructs a check-in service with a specified logger.
func NewCheckInServiceWithLogger(checkIns CheckInRepository, meetings MeetingReader, publisher events.Publisher, now func() time.Time, logger *slog.Logger) *CheckInService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CheckInService{checkIns: checkIns, meetings: meetings, publisher: publisher, now: now, logger: defaultLogger(logger)}
}

func (s *CheckInService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CheckInService", operation, attrs...)
}

// CheckIn records memberID's attendance at meetingID, classified against the
// meeting start at the current instant.
func (s *CheckInService) CheckIn(ctx context.Context, meetingID, memberID int64) (checkIn CheckIn, err error) {
	if s == nil || s.checkIns == nil || s.meetings == nil {
		err = fmt.Errorf("check-in repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckIn", "meeting_id", meetingID, "member_id", memberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to check in", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("check_in_status", checkIn.Status).InfoContext(ctx, "check-in recorded")
	}()

	vErr := &ValidationError{}
	if meetingID <= 0 {
		vErr.add("meeting_id", "meeting is required")
	}
	if memberID <= 0 {
		vErr.add("member_id", "member is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var meeting persistence.Meeting
	meeting, err = s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		err = mapCheckInRepoError(err)
		return
	}
	if meeting.Status != scheduler.MeetingScheduled {
		err = newValidationError("meeting_id", fmt.Sprintf("meeting is %s", meeting.Status))
		return
	}
	if !isParticipant(meeting, memberID) {
		err = ErrNotParticipant
		return
	}
	for _, existing := range meeting.CheckIns {
		if existing.MemberID == memberID {
			err = ErrAlreadyCheckedIn
			return
		}
	}

	// Stored times have whole-second precision; evaluate the value that is kept.
	now := s.now().Truncate(time.Second)
	var persisted persistence.CheckIn
	persisted, err = s.checkIns.CreateCheckIn(ctx, persistence.CheckIn{
		MeetingID:   meetingID,
		MemberID:    memberID,
		CheckedInAt: now,
		Status:      scheduler.EvaluateCheckIn(now, meeting.Start),
		CreatedAt:   now,
	})
	if err != nil {
		err = mapCheckInRepoError(err)
		return
	}

	publish(ctx, s.publisher, logger, events.New(events.CheckInRecorded, now, events.CheckInPayload{
		MeetingID:   persisted.MeetingID,
		MemberID:    persisted.MemberID,
		CheckedInAt: persisted.CheckedInAt,
		Status:      string(persisted.Status),
	}))

	checkIn = toCheckIn(persisted)
	return
}

// ListCheckIns returns check-ins newest first, optionally for one meeting.
func (s *CheckInService) ListCheckIns(ctx context.Context, meetingID *int64) (checkIns []CheckIn, err error) {
	if s == nil || s.checkIns == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListCheckIns")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list check-ins", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(checkIns)).InfoContext(ctx, "check-ins listed")
	}()

	var models []persistence.CheckIn
	models, err = s.checkIns.ListCheckIns(ctx, meetingID)
	if err != nil {
		err = mapCheckInRepoError(err)
		return
	}

	checkIns = make([]CheckIn, 0, len(models))
	for _, model := range models {
		checkIns = append(checkIns, toCheckIn(model))
	}
	return
}

func isParticipant(meeting persistence.Meeting, memberID int64) bool {
	for _, p := range meeting.Participants {
		if p.MemberID == memberID {
			return true
		}
	}
	return false
}

func mapCheckInRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyCheckedIn
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotParticipant
	}
	return err
}
