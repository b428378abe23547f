package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

func TestCheckInService_CheckIn(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	meeting := scheduledMeeting(1, 1, start, start.Add(time.Hour))
	meeting.Participants = participantsOf(1, []int64{10, 11, 12})
	meeting.CheckIns = []persistence.CheckIn{{ID: 1, MeetingID: 1, MemberID: 12, Status: scheduler.CheckInNormal}}

	cancelled := scheduledMeeting(2, 1, start, start.Add(time.Hour))
	cancelled.Status = scheduler.MeetingCancelled

	tests := []struct {
		name       string
		meetingID  int64
		memberID   int64
		now        time.Time
		wantStatus scheduler.CheckInStatus
		wantErr    error
		wantField  string
	}{
		{name: "before start is normal", meetingID: 1, memberID: 10, now: start.Add(-10 * time.Minute), wantStatus: scheduler.CheckInNormal},
		{name: "exactly at start is normal", meetingID: 1, memberID: 10, now: start, wantStatus: scheduler.CheckInNormal},
		{name: "after start is late", meetingID: 1, memberID: 11, now: start.Add(time.Second), wantStatus: scheduler.CheckInLate},
		{name: "not a participant", meetingID: 1, memberID: 99, now: start, wantErr: ErrNotParticipant},
		{name: "already checked in", meetingID: 1, memberID: 12, now: start, wantErr: ErrAlreadyCheckedIn},
		{name: "unknown meeting", meetingID: 7, memberID: 10, now: start, wantErr: ErrNotFound},
		{name: "cancelled meeting", meetingID: 2, memberID: 10, now: start, wantField: "meeting_id"},
		{name: "missing ids", now: start, wantField: "meeting_id"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &checkInRepoStub{}
			publisher := &recordingPublisher{}
			svc := NewCheckInServiceWithLogger(repo, newMeetingRepoStub(meeting, cancelled), publisher, fixedNow(tt.now), discardLogger)

			checkIn, err := svc.CheckIn(context.Background(), tt.meetingID, tt.memberID)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.wantField != "":
				var vErr *ValidationError
				if !errors.As(err, &vErr) || vErr.FieldErrors[tt.wantField] == "" {
					t.Fatalf("expected %s validation error, got %v", tt.wantField, err)
				}
			default:
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if checkIn.Status != tt.wantStatus || !checkIn.CheckedInAt.Equal(tt.now) {
					t.Fatalf("unexpected check-in: %+v", checkIn)
				}
				if got := publisher.types(); len(got) != 1 || got[0] != events.CheckInRecorded {
					t.Fatalf("expected checkin.recorded event, got %v", got)
				}
				return
			}
			if len(repo.created) != 0 {
				t.Fatalf("expected nothing persisted on failure")
			}
		})
	}
}

func TestCheckInService_SubSecondAfterStartIsNormal(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	meeting := scheduledMeeting(1, 1, start, start.Add(time.Hour))
	repo := &checkInRepoStub{}
	svc := NewCheckInServiceWithLogger(repo, newMeetingRepoStub(meeting), &recordingPublisher{}, fixedNow(start.Add(400*time.Millisecond)), discardLogger)

	checkIn, err := svc.CheckIn(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !checkIn.CheckedInAt.Equal(start) {
		t.Fatalf("expected whole-second check-in time %s, got %s", start, checkIn.CheckedInAt)
	}
	if checkIn.Status != scheduler.CheckInNormal {
		t.Fatalf("expected normal status, got %q", checkIn.Status)
	}
	if again := scheduler.EvaluateCheckIn(checkIn.CheckedInAt, start); again != checkIn.Status {
		t.Fatalf("stored status %q disagrees with re-evaluation %q", checkIn.Status, again)
	}
}

func TestCheckInService_StorageDuplicateIsAlreadyCheckedIn(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	meeting := scheduledMeeting(1, 1, start, start.Add(time.Hour))
	repo := &checkInRepoStub{createErr: fmt.Errorf("%w: UNIQUE constraint failed", persistence.ErrDuplicate)}
	svc := NewCheckInService(repo, newMeetingRepoStub(meeting), nil, fixedNow(start))

	if _, err := svc.CheckIn(context.Background(), 1, 10); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestCheckInService_ListCheckIns(t *testing.T) {
	t.Parallel()

	repo := &checkInRepoStub{created: []persistence.CheckIn{
		{ID: 1, MeetingID: 1, MemberID: 10},
		{ID: 2, MeetingID: 2, MemberID: 10},
		{ID: 3, MeetingID: 1, MemberID: 11},
	}}
	svc := NewCheckInService(repo, newMeetingRepoStub(), nil, nil)

	all, err := svc.ListCheckIns(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListCheckIns: %v", err)
	}
	if len(all) != 3 || all[0].ID != 3 {
		t.Fatalf("expected newest first, got %+v", all)
	}

	meetingID := int64(1)
	filtered, err := svc.ListCheckIns(context.Background(), &meetingID)
	if err != nil {
		t.Fatalf("ListCheckIns filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 check-ins for meeting 1, got %+v", filtered)
	}
}
