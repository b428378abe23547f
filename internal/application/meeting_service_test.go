package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/meeting-booking/internal/coordination"
	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

var meetingNow = time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 2, hour, minute, 0, 0, time.UTC)
}

type meetingFixture struct {
	meetings  *meetingRepoStub
	rooms     *roomRepoStub
	members   *memberRepoStub
	publisher *recordingPublisher
	cache     *coordination.MemoryCache
	svc       *MeetingService
}

func newMeetingFixture(t *testing.T, existing ...persistence.Meeting) *meetingFixture {
	t.Helper()

	f := &meetingFixture{
		meetings: newMeetingRepoStub(existing...),
		rooms: newRoomRepoStub(
			persistence.Room{ID: 1, Number: 1, Name: "Room 1", Capacity: 10, Status: persistence.RoomAvailable},
			persistence.Room{ID: 2, Number: 2, Name: "Room 2", Capacity: 15, Status: persistence.RoomMaintenance},
		),
		members: newMemberRepoStub(
			persistence.Member{ID: 10, Name: "Organizer", Email: "org@example.com"},
			persistence.Member{ID: 11, Name: "Guest", Email: "guest@example.com"},
		),
		publisher: &recordingPublisher{},
		cache:     coordination.NewMemoryCache(time.Minute, 16),
	}
	f.svc = NewMeetingServiceWithLogger(f.meetings, f.rooms, f.members, fixedNow(meetingNow), discardLogger,
		WithLocation(time.UTC),
		WithPublisher(f.publisher),
		WithAvailabilityCache(f.cache),
	)
	return f
}

func scheduledMeeting(id, roomID int64, start, end time.Time) persistence.Meeting {
	return persistence.Meeting{
		ID:           id,
		RoomID:       roomID,
		Title:        "existing",
		Start:        start,
		End:          end,
		OrganizerID:  10,
		Status:       scheduler.MeetingScheduled,
		Participants: participantsOf(id, []int64{10}),
	}
}

func TestMeetingService_CreateMeeting(t *testing.T) {
	t.Parallel()

	t.Run("books and adds organizer as participant", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		meeting, err := f.svc.CreateMeeting(context.Background(), MeetingInput{
			RoomID:         1,
			Title:          " Planning ",
			Start:          at(9, 0),
			End:            at(10, 0),
			OrganizerID:    10,
			ParticipantIDs: []int64{11, 11},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if meeting.Title != "Planning" || meeting.Status != scheduler.MeetingScheduled {
			t.Fatalf("unexpected meeting: %+v", meeting)
		}
		if meeting.DisplayStatus != scheduler.DisplayUpcoming {
			t.Fatalf("expected upcoming display status, got %q", meeting.DisplayStatus)
		}

		stored := f.meetings.meetings[meeting.ID]
		if len(stored.Participants) != 2 || stored.Participants[0].MemberID != 10 || stored.Participants[1].MemberID != 11 {
			t.Fatalf("expected organizer then guest as participants, got %+v", stored.Participants)
		}

		if got := f.publisher.types(); len(got) != 1 || got[0] != events.MeetingBooked {
			t.Fatalf("expected meeting.booked event, got %v", got)
		}
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			input MeetingInput
			field string
		}{
			{name: "missing title", input: MeetingInput{RoomID: 1, OrganizerID: 10, Start: at(9, 0), End: at(10, 0)}, field: "title"},
			{name: "end before start", input: MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: at(10, 0), End: at(9, 0)}, field: "end"},
			{name: "equal start and end", input: MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: at(9, 0), End: at(9, 0)}, field: "end"},
			{name: "off grid", input: MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: at(9, 15), End: at(10, 0)}, field: "start"},
			{name: "seconds", input: MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: at(9, 0).Add(time.Second), End: at(10, 0).Add(time.Second)}, field: "start"},
			{name: "missing room", input: MeetingInput{OrganizerID: 10, Title: "x", Start: at(9, 0), End: at(10, 0)}, field: "room_id"},
			{name: "unknown room", input: MeetingInput{RoomID: 99, OrganizerID: 10, Title: "x", Start: at(9, 0), End: at(10, 0)}, field: "room_id"},
			{name: "room in maintenance", input: MeetingInput{RoomID: 2, OrganizerID: 10, Title: "x", Start: at(9, 0), End: at(10, 0)}, field: "room_id"},
			{name: "unknown organizer", input: MeetingInput{RoomID: 1, OrganizerID: 50, Title: "x", Start: at(9, 0), End: at(10, 0)}, field: "organizer_id"},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				f := newMeetingFixture(t)
				_, err := f.svc.CreateMeeting(context.Background(), tt.input)
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if _, ok := vErr.FieldErrors[tt.field]; !ok {
					t.Fatalf("expected %s field error, got %v", tt.field, vErr.FieldErrors)
				}
				if len(f.meetings.meetings) != 0 {
					t.Fatalf("expected nothing persisted")
				}
			})
		}
	})

	t.Run("unknown participants are named", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		_, err := f.svc.CreateMeeting(context.Background(), MeetingInput{
			RoomID: 1, OrganizerID: 10, Title: "x", Start: at(9, 0), End: at(10, 0),
			ParticipantIDs: []int64{11, 77, 88},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if msg := vErr.FieldErrors["participant_ids"]; !strings.Contains(msg, "77") || !strings.Contains(msg, "88") {
			t.Fatalf("expected unknown ids in message, got %q", msg)
		}
	})
}

func TestMeetingService_GridIsCheckedInServiceLocation(t *testing.T) {
	t.Parallel()

	shanghai := time.FixedZone("CST", 8*60*60)
	kathmandu := time.FixedZone("NPT", 5*60*60+45*60)
	kolkata := time.FixedZone("IST", 5*60*60+30*60)
	newService := func(existing ...persistence.Meeting) (*MeetingService, *meetingRepoStub) {
		f := newMeetingFixture(t, existing...)
		return NewMeetingServiceWithLogger(f.meetings, f.rooms, f.members, fixedNow(meetingNow), discardLogger, WithLocation(shanghai)), f.meetings
	}
	day := func(loc *time.Location, hour, minute int) time.Time {
		return time.Date(2024, 1, 3, hour, minute, 0, 0, loc)
	}

	t.Run("create rejects a time off grid in the service location", func(t *testing.T) {
		t.Parallel()

		svc, repo := newService()
		_, err := svc.CreateMeeting(context.Background(), MeetingInput{
			RoomID: 1, OrganizerID: 10, Title: "x", Start: day(kathmandu, 9, 0), End: day(kathmandu, 10, 0),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["start"] == "" {
			t.Fatalf("expected start validation error, got %v", err)
		}
		if len(repo.meetings) != 0 {
			t.Fatalf("expected nothing persisted")
		}
	})

	t.Run("create accepts a time that lands on the grid", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService()
		meeting, err := svc.CreateMeeting(context.Background(), MeetingInput{
			RoomID: 1, OrganizerID: 10, Title: "x", Start: day(kolkata, 9, 0), End: day(kolkata, 10, 0),
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !meeting.Start.Equal(day(shanghai, 11, 30)) {
			t.Fatalf("expected 11:30 in the service location, got %s", meeting.Start.In(shanghai))
		}
	})

	t.Run("update rejects a time off grid in the service location", func(t *testing.T) {
		t.Parallel()

		svc, repo := newService(scheduledMeeting(1, 1, day(shanghai, 9, 0), day(shanghai, 10, 0)))
		_, err := svc.UpdateMeeting(context.Background(), 1, UpdateMeetingInput{
			Title: "x", Start: day(kathmandu, 9, 0), End: day(kathmandu, 10, 0),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["start"] == "" {
			t.Fatalf("expected start validation error, got %v", err)
		}
		if !repo.meetings[1].Start.Equal(day(shanghai, 9, 0)) {
			t.Fatalf("expected stored meeting unchanged, got %+v", repo.meetings[1])
		}
	})
}

func TestMeetingService_CreateMeetingConflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing persistence.Meeting
		start    time.Time
		end      time.Time
		wantErr  bool
	}{
		{name: "identical interval", existing: scheduledMeeting(1, 1, at(9, 0), at(10, 0)), start: at(9, 0), end: at(10, 0), wantErr: true},
		{name: "partial overlap", existing: scheduledMeeting(1, 1, at(9, 0), at(10, 0)), start: at(9, 30), end: at(10, 30), wantErr: true},
		{name: "containing", existing: scheduledMeeting(1, 1, at(9, 30), at(10, 0)), start: at(9, 0), end: at(11, 0), wantErr: true},
		{name: "back to back", existing: scheduledMeeting(1, 1, at(9, 0), at(10, 0)), start: at(10, 0), end: at(11, 0)},
		{name: "other room", existing: scheduledMeeting(1, 3, at(9, 0), at(10, 0)), start: at(9, 0), end: at(10, 0)},
		{name: "cancelled meeting", existing: func() persistence.Meeting {
			m := scheduledMeeting(1, 1, at(9, 0), at(10, 0))
			m.Status = scheduler.MeetingCancelled
			return m
		}(), start: at(9, 0), end: at(10, 0)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newMeetingFixture(t, tt.existing)
			_, err := f.svc.CreateMeeting(context.Background(), MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: tt.start, End: tt.end})
			if tt.wantErr {
				if !errors.Is(err, ErrConflict) {
					t.Fatalf("expected ErrConflict, got %v", err)
				}
				if len(f.publisher.types()) != 0 {
					t.Fatalf("expected no events on conflict")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		})
	}
}

// blindRangeRepo hides existing bookings from the pre-check so that only
// storage can reject the overlap.
type blindRangeRepo struct {
	*meetingRepoStub
}

func (blindRangeRepo) ListScheduledInRange(context.Context, int64, time.Time, time.Time) ([]persistence.Meeting, error) {
	return nil, nil
}

func TestMeetingService_StorageOverlapIsConflict(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t, scheduledMeeting(1, 1, at(9, 0), at(10, 0)))
	svc := NewMeetingService(blindRangeRepo{f.meetings}, f.rooms, f.members, fixedNow(meetingNow), WithLocation(time.UTC))

	_, err := svc.CreateMeeting(context.Background(), MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: at(9, 30), End: at(10, 30)})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict from storage overlap, got %v", err)
	}
}

func TestMeetingService_ConcurrentBookingsSameSlot(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t)
	// Widen the window between the pre-check and the write.
	f.meetings.rangeHook = func() { time.Sleep(time.Millisecond) }
	f.meetings.skipCheck = true

	const workers = 10
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateMeeting(context.Background(), MeetingInput{RoomID: 1, OrganizerID: 10, Title: "race", Start: at(14, 0), End: at(15, 0)})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 || conflicts.Load() != workers-1 {
		t.Fatalf("expected exactly one booking, got %d successes and %d conflicts", successes.Load(), conflicts.Load())
	}
}

func TestMeetingService_UpdateMeeting(t *testing.T) {
	t.Parallel()

	t.Run("may overlap its own previous interval", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t, scheduledMeeting(1, 1, at(9, 0), at(10, 0)))
		meeting, err := f.svc.UpdateMeeting(context.Background(), 1, UpdateMeetingInput{Title: "moved", Start: at(9, 30), End: at(10, 30)})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !meeting.Start.Equal(at(9, 30)) || meeting.Title != "moved" {
			t.Fatalf("unexpected meeting: %+v", meeting)
		}
		if got := f.publisher.types(); len(got) != 1 || got[0] != events.MeetingUpdated {
			t.Fatalf("expected meeting.updated event, got %v", got)
		}
	})

	t.Run("conflicts with another meeting", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t,
			scheduledMeeting(1, 1, at(9, 0), at(10, 0)),
			scheduledMeeting(2, 1, at(11, 0), at(12, 0)),
		)
		_, err := f.svc.UpdateMeeting(context.Background(), 1, UpdateMeetingInput{Title: "x", Start: at(10, 30), End: at(11, 30)})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("keeps organizer when participants change", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t, scheduledMeeting(1, 1, at(9, 0), at(10, 0)))
		if _, err := f.svc.UpdateMeeting(context.Background(), 1, UpdateMeetingInput{Title: "x", Start: at(9, 0), End: at(10, 0), ParticipantIDs: []int64{11}}); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		participants := f.meetings.meetings[1].Participants
		if len(participants) != 2 || participants[0].MemberID != 10 {
			t.Fatalf("expected organizer to stay a participant, got %+v", participants)
		}
	})

	t.Run("rejects cancelled meetings", func(t *testing.T) {
		t.Parallel()

		cancelled := scheduledMeeting(1, 1, at(9, 0), at(10, 0))
		cancelled.Status = scheduler.MeetingCancelled
		f := newMeetingFixture(t, cancelled)

		_, err := f.svc.UpdateMeeting(context.Background(), 1, UpdateMeetingInput{Title: "x", Start: at(9, 0), End: at(10, 0)})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
			t.Fatalf("expected status validation error, got %v", err)
		}
	})

	t.Run("missing meeting", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		if _, err := f.svc.UpdateMeeting(context.Background(), 5, UpdateMeetingInput{Title: "x", Start: at(9, 0), End: at(10, 0)}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMeetingService_CancelMeeting(t *testing.T) {
	t.Parallel()

	completed := scheduledMeeting(2, 1, at(6, 0), at(7, 0))
	completed.Status = scheduler.MeetingCompleted
	f := newMeetingFixture(t, scheduledMeeting(1, 1, at(9, 0), at(10, 0)), completed)

	meeting, err := f.svc.CancelMeeting(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if meeting.Status != scheduler.MeetingCancelled || meeting.DisplayStatus != scheduler.DisplayCancelled {
		t.Fatalf("unexpected meeting: %+v", meeting)
	}

	again, err := f.svc.CancelMeeting(context.Background(), 1)
	if err != nil || again.Status != scheduler.MeetingCancelled {
		t.Fatalf("expected idempotent cancel, got %+v %v", again, err)
	}
	if got := f.publisher.types(); len(got) != 1 || got[0] != events.MeetingCancelled {
		t.Fatalf("expected a single meeting.cancelled event, got %v", got)
	}

	var vErr *ValidationError
	if _, err := f.svc.CancelMeeting(context.Background(), 2); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error cancelling a completed meeting, got %v", err)
	}
	if _, err := f.svc.CancelMeeting(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The freed slot can be booked again.
	if _, err := f.svc.CreateMeeting(context.Background(), MeetingInput{RoomID: 1, OrganizerID: 10, Title: "rebook", Start: at(9, 0), End: at(10, 0)}); err != nil {
		t.Fatalf("expected cancelled slot to be bookable, got %v", err)
	}
}

func TestMeetingService_CompleteEndedMeetings(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t,
		scheduledMeeting(1, 1, at(6, 0), at(7, 0)),
		scheduledMeeting(2, 1, at(7, 0), at(8, 0)),
		scheduledMeeting(3, 1, at(8, 0), at(9, 0)),
	)

	completed, err := f.svc.CompleteEndedMeetings(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if completed != 2 {
		t.Fatalf("expected 2 meetings completed, got %d", completed)
	}
	if f.meetings.meetings[3].Status != scheduler.MeetingScheduled {
		t.Fatalf("expected running meeting to stay scheduled")
	}

	if _, err := f.svc.CompleteMeeting(context.Background(), 1); err == nil {
		t.Fatalf("expected completing a completed meeting to fail")
	}
	if _, err := f.svc.CompleteMeeting(context.Background(), 3); err != nil {
		t.Fatalf("expected CompleteMeeting to succeed, got %v", err)
	}
}

func TestMeetingService_GetMeeting(t *testing.T) {
	t.Parallel()

	existing := scheduledMeeting(1, 1, at(7, 30), at(9, 0))
	existing.Participants = participantsOf(1, []int64{10, 11})
	existing.CheckIns = []persistence.CheckIn{{ID: 1, MeetingID: 1, MemberID: 11, CheckedInAt: at(7, 40), Status: scheduler.CheckInLate}}
	f := newMeetingFixture(t, existing)

	detail, err := f.svc.GetMeeting(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if detail.DisplayStatus != scheduler.DisplayInProgress {
		t.Fatalf("expected in-progress, got %q", detail.DisplayStatus)
	}
	if detail.Room.Name != "Room 1" || detail.Organizer.Name != "Organizer" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if len(detail.Participants) != 2 || detail.Participants[1].Email != "guest@example.com" {
		t.Fatalf("unexpected participants: %+v", detail.Participants)
	}
	if len(detail.CheckIns) != 1 || detail.CheckIns[0].Status != scheduler.CheckInLate {
		t.Fatalf("unexpected check-ins: %+v", detail.CheckIns)
	}

	if _, err := f.svc.GetMeeting(context.Background(), 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMeetingService_ListMeetingsUsesLocationDay(t *testing.T) {
	t.Parallel()

	shanghai := DefaultLocation()
	// 23:30 UTC on Jan 2 is 07:30 on Jan 3 in Shanghai.
	late := scheduledMeeting(1, 1, time.Date(2024, 1, 2, 23, 30, 0, 0, time.UTC), time.Date(2024, 1, 3, 0, 30, 0, 0, time.UTC))
	early := scheduledMeeting(2, 1, time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC))
	repo := newMeetingRepoStub(late, early)
	svc := NewMeetingService(repo, nil, nil, fixedNow(meetingNow), WithLocation(shanghai))

	date := time.Date(2024, 1, 3, 0, 0, 0, 0, shanghai)
	meetings, err := svc.ListMeetings(context.Background(), ListMeetingsParams{Date: &date})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(meetings) != 1 || meetings[0].ID != 1 {
		t.Fatalf("expected only the late meeting, got %+v", meetings)
	}

	bad := scheduler.MeetingStatus("archived")
	if _, err := svc.ListMeetings(context.Background(), ListMeetingsParams{Status: &bad}); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestMeetingService_RoomAvailability(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t, scheduledMeeting(1, 1, at(9, 0), at(10, 0)))
	var lookups atomic.Int32
	f.meetings.rangeHook = func() { lookups.Add(1) }

	availability, err := f.svc.RoomAvailability(context.Background(), 1, at(12, 0))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(availability.Slots) != scheduler.SlotsPerDay {
		t.Fatalf("expected %d slots, got %d", scheduler.SlotsPerDay, len(availability.Slots))
	}
	booked := 0
	for _, slot := range availability.Slots {
		if slot.Booked {
			booked++
		}
	}
	if booked != 2 || !availability.Slots[18].Booked || !availability.Slots[19].Booked {
		t.Fatalf("expected 09:00 and 09:30 booked, got %d booked", booked)
	}

	if _, err := f.svc.RoomAvailability(context.Background(), 1, at(15, 0)); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if lookups.Load() != 1 {
		t.Fatalf("expected cached availability on second lookup, got %d storage reads", lookups.Load())
	}

	if _, err := f.svc.CreateMeeting(context.Background(), MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: at(11, 0), End: at(12, 0)}); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	availability, err = f.svc.RoomAvailability(context.Background(), 1, at(12, 0))
	if err != nil {
		t.Fatalf("third lookup: %v", err)
	}
	if len(availability.Booked) != 2 {
		t.Fatalf("expected booking to invalidate the cache, got %+v", availability.Booked)
	}

	if _, err := f.svc.RoomAvailability(context.Background(), 99, at(12, 0)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown room, got %v", err)
	}
}

func TestMeetingService_RoomAvailabilitySkipsCachingAcrossInvalidation(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t, scheduledMeeting(1, 1, at(9, 0), at(10, 0)))
	var fired atomic.Bool
	// A booking lands while the day is being read from storage.
	f.meetings.rangeHook = func() {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		if _, err := f.svc.CreateMeeting(context.Background(), MeetingInput{RoomID: 1, OrganizerID: 10, Title: "x", Start: at(11, 0), End: at(12, 0)}); err != nil {
			t.Errorf("CreateMeeting: %v", err)
		}
	}

	if _, err := f.svc.RoomAvailability(context.Background(), 1, at(12, 0)); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if _, ok, _ := f.cache.Get(context.Background(), 1, at(12, 0).Format(DateLayout)); ok {
		t.Fatalf("expected read that straddled an invalidation not to be cached")
	}

	availability, err := f.svc.RoomAvailability(context.Background(), 1, at(12, 0))
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if len(availability.Booked) != 2 {
		t.Fatalf("expected both bookings after the concurrent create, got %+v", availability.Booked)
	}
}

func TestMeetingService_CheckSlotPick(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t, scheduledMeeting(1, 1, at(10, 0), at(11, 0)))

	tests := []struct {
		name       string
		start, end string
		wantOK     bool
		reason     string
	}{
		{name: "free range", start: "08:00", end: "09:30", wantOK: true},
		{name: "touches booking", start: "09:00", end: "10:00", wantOK: true},
		{name: "starts on booked slot", start: "10:30", end: "11:30", reason: "overlaps"},
		{name: "spans booking", start: "09:30", end: "11:30", reason: "spans"},
		{name: "end before start", start: "12:00", end: "11:00", reason: "after start"},
		{name: "invalid label", start: "12:15", end: "13:00", reason: "invalid"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			check, err := f.svc.CheckSlotPick(context.Background(), 1, at(0, 0), tt.start, tt.end)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if check.OK != tt.wantOK {
				t.Fatalf("expected ok=%v, got %+v", tt.wantOK, check)
			}
			if !tt.wantOK && !strings.Contains(check.Reason, tt.reason) {
				t.Fatalf("expected reason containing %q, got %q", tt.reason, check.Reason)
			}
		})
	}
}
