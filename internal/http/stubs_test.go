package http

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/meeting-booking/internal/application"
	"github.com/example/meeting-booking/internal/scheduler"
)

var testLoc = time.FixedZone("CST", 8*60*60)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type roomServiceStub struct {
	mu      sync.Mutex
	created []application.RoomInput
	updated map[int64]application.RoomInput
	rooms   []application.Room
	err     error
}

func (s *roomServiceStub) CreateRoom(_ context.Context, input application.RoomInput) (application.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return application.Room{}, s.err
	}
	s.created = append(s.created, input)
	return application.Room{ID: int64(len(s.created)), Number: input.Number, Name: input.Name, Capacity: input.Capacity, Status: input.Status}, nil
}

func (s *roomServiceStub) UpdateRoom(_ context.Context, id int64, input application.RoomInput) (application.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return application.Room{}, s.err
	}
	if s.updated == nil {
		s.updated = make(map[int64]application.RoomInput)
	}
	s.updated[id] = input
	return application.Room{ID: id, Number: input.Number, Name: input.Name, Capacity: input.Capacity}, nil
}

func (s *roomServiceStub) GetRoom(_ context.Context, id int64) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	for _, room := range s.rooms {
		if room.ID == id {
			return room, nil
		}
	}
	return application.Room{}, application.ErrNotFound
}

func (s *roomServiceStub) ListRooms(context.Context) ([]application.Room, error) {
	return s.rooms, s.err
}

func (s *roomServiceStub) DeleteRoom(context.Context, int64) error {
	return s.err
}

func (s *roomServiceStub) SeedDefaultRooms(context.Context) ([]application.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []application.Room{{ID: 1, Number: 1, Name: "Meeting Room 1", Capacity: 10}}, nil
}

type availabilityStub struct {
	availability application.Availability
	check        application.SlotCheck
	gotDate      time.Time
	gotStart     string
	gotEnd       string
	err          error
}

func (s *availabilityStub) RoomAvailability(_ context.Context, roomID int64, date time.Time) (application.Availability, error) {
	s.gotDate = date
	if s.err != nil {
		return application.Availability{}, s.err
	}
	out := s.availability
	out.RoomID = roomID
	out.Date = date
	return out, nil
}

func (s *availabilityStub) CheckSlotPick(_ context.Context, _ int64, _ time.Time, startLabel, endLabel string) (application.SlotCheck, error) {
	s.gotStart, s.gotEnd = startLabel, endLabel
	return s.check, nil
}

func (s *availabilityStub) Location() *time.Location { return testLoc }

type memberServiceStub struct {
	created    []application.MemberInput
	lastSearch string
	err        error
}

func (s *memberServiceStub) CreateMember(_ context.Context, input application.MemberInput) (application.Member, error) {
	if s.err != nil {
		return application.Member{}, s.err
	}
	s.created = append(s.created, input)
	return application.Member{ID: 7, Name: input.Name, Email: input.Email, HasMailCredential: input.MailSecret != nil}, nil
}

func (s *memberServiceStub) UpdateMember(_ context.Context, id int64, input application.MemberInput) (application.Member, error) {
	if s.err != nil {
		return application.Member{}, s.err
	}
	return application.Member{ID: id, Name: input.Name, Email: input.Email}, nil
}

func (s *memberServiceStub) GetMember(_ context.Context, id int64) (application.Member, error) {
	if s.err != nil {
		return application.Member{}, s.err
	}
	return application.Member{ID: id, Name: "Alice", Email: "alice@example.com"}, nil
}

func (s *memberServiceStub) ListMembers(_ context.Context, search string) ([]application.Member, error) {
	s.lastSearch = search
	return []application.Member{{ID: 1, Name: "Alice", Email: "alice@example.com"}}, s.err
}

func (s *memberServiceStub) DeleteMember(context.Context, int64) error {
	return s.err
}

type meetingServiceStub struct {
	created    []application.MeetingInput
	updated    []application.UpdateMeetingInput
	listParams application.ListMeetingsParams
	detail     application.MeetingDetail
	err        error
}

func (s *meetingServiceStub) CreateMeeting(_ context.Context, input application.MeetingInput) (application.Meeting, error) {
	if s.err != nil {
		return application.Meeting{}, s.err
	}
	s.created = append(s.created, input)
	return application.Meeting{
		ID:            11,
		RoomID:        input.RoomID,
		Title:         input.Title,
		Start:         input.Start,
		End:           input.End,
		OrganizerID:   input.OrganizerID,
		Status:        scheduler.MeetingScheduled,
		DisplayStatus: scheduler.DisplayUpcoming,
	}, nil
}

func (s *meetingServiceStub) UpdateMeeting(_ context.Context, id int64, input application.UpdateMeetingInput) (application.Meeting, error) {
	if s.err != nil {
		return application.Meeting{}, s.err
	}
	s.updated = append(s.updated, input)
	return application.Meeting{ID: id, Title: input.Title, Start: input.Start, End: input.End, Status: scheduler.MeetingScheduled}, nil
}

func (s *meetingServiceStub) GetMeeting(context.Context, int64) (application.MeetingDetail, error) {
	return s.detail, s.err
}

func (s *meetingServiceStub) ListMeetings(_ context.Context, params application.ListMeetingsParams) ([]application.Meeting, error) {
	s.listParams = params
	return nil, s.err
}

func (s *meetingServiceStub) CancelMeeting(_ context.Context, id int64) (application.Meeting, error) {
	if s.err != nil {
		return application.Meeting{}, s.err
	}
	return application.Meeting{ID: id, Status: scheduler.MeetingCancelled, DisplayStatus: scheduler.DisplayCancelled}, nil
}

func (s *meetingServiceStub) Location() *time.Location { return testLoc }

type invitationServiceStub struct {
	result application.InvitationResult
	err    error
}

func (s *invitationServiceStub) SendInvitations(_ context.Context, meetingID int64) (application.InvitationResult, error) {
	if s.err != nil {
		return application.InvitationResult{}, s.err
	}
	out := s.result
	out.MeetingID = meetingID
	return out, nil
}

type checkInServiceStub struct {
	gotMeeting *int64
	err        error
}

func (s *checkInServiceStub) CheckIn(_ context.Context, meetingID, memberID int64) (application.CheckIn, error) {
	if s.err != nil {
		return application.CheckIn{}, s.err
	}
	return application.CheckIn{ID: 1, MeetingID: meetingID, MemberID: memberID, CheckedInAt: time.Date(2025, 3, 10, 9, 55, 0, 0, testLoc), Status: scheduler.CheckInNormal}, nil
}

func (s *checkInServiceStub) ListCheckIns(_ context.Context, meetingID *int64) ([]application.CheckIn, error) {
	s.gotMeeting = meetingID
	return nil, s.err
}
