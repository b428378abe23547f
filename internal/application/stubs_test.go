package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/mailer"
	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(v string) *string { return &v }

type roomRepoStub struct {
	rooms       map[int64]persistence.Room
	nextID      int64
	createErr   error
	deleteErr   error
	replaceErr  error
	lastCreated persistence.Room
}

func newRoomRepoStub(rooms ...persistence.Room) *roomRepoStub {
	stub := &roomRepoStub{rooms: make(map[int64]persistence.Room)}
	for _, r := range rooms {
		stub.rooms[r.ID] = r
		if r.ID > stub.nextID {
			stub.nextID = r.ID
		}
	}
	return stub
}

func (s *roomRepoStub) CreateRoom(_ context.Context, room persistence.Room) (persistence.Room, error) {
	if s.createErr != nil {
		return persistence.Room{}, s.createErr
	}
	s.nextID++
	room.ID = s.nextID
	s.rooms[room.ID] = room
	s.lastCreated = room
	return room, nil
}

func (s *roomRepoStub) UpdateRoom(_ context.Context, room persistence.Room) (persistence.Room, error) {
	if _, ok := s.rooms[room.ID]; !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	s.rooms[room.ID] = room
	return room, nil
}

func (s *roomRepoStub) GetRoom(_ context.Context, id int64) (persistence.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (s *roomRepoStub) ListRooms(context.Context) ([]persistence.Room, error) {
	out := make([]persistence.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *roomRepoStub) DeleteRoom(_ context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}

func (s *roomRepoStub) ReplaceRooms(_ context.Context, rooms []persistence.Room) ([]persistence.Room, error) {
	if s.replaceErr != nil {
		return nil, s.replaceErr
	}
	s.rooms = make(map[int64]persistence.Room)
	out := make([]persistence.Room, 0, len(rooms))
	for _, r := range rooms {
		s.nextID++
		r.ID = s.nextID
		s.rooms[r.ID] = r
		out = append(out, r)
	}
	return out, nil
}

type memberRepoStub struct {
	members   map[int64]persistence.Member
	nextID    int64
	createErr error
	updated   persistence.Member
}

func newMemberRepoStub(members ...persistence.Member) *memberRepoStub {
	stub := &memberRepoStub{members: make(map[int64]persistence.Member)}
	for _, m := range members {
		stub.members[m.ID] = m
		if m.ID > stub.nextID {
			stub.nextID = m.ID
		}
	}
	return stub
}

func (s *memberRepoStub) CreateMember(_ context.Context, member persistence.Member) (persistence.Member, error) {
	if s.createErr != nil {
		return persistence.Member{}, s.createErr
	}
	for _, existing := range s.members {
		if strings.EqualFold(existing.Email, member.Email) {
			return persistence.Member{}, persistence.ErrDuplicate
		}
	}
	s.nextID++
	member.ID = s.nextID
	s.members[member.ID] = member
	return member, nil
}

func (s *memberRepoStub) UpdateMember(_ context.Context, member persistence.Member) (persistence.Member, error) {
	current, ok := s.members[member.ID]
	if !ok {
		return persistence.Member{}, persistence.ErrNotFound
	}
	s.updated = member
	if len(member.MailSecret) == 0 {
		member.MailSecret = current.MailSecret
	}
	s.members[member.ID] = member
	return member, nil
}

func (s *memberRepoStub) GetMember(_ context.Context, id int64) (persistence.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return persistence.Member{}, persistence.ErrNotFound
	}
	return m, nil
}

func (s *memberRepoStub) GetMembers(_ context.Context, ids []int64) ([]persistence.Member, error) {
	var out []persistence.Member
	for _, id := range ids {
		if m, ok := s.members[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memberRepoStub) ListMembers(_ context.Context, filter persistence.MemberFilter) ([]persistence.Member, error) {
	var out []persistence.Member
	for _, m := range s.members {
		if filter.Search == "" || strings.Contains(m.Name, filter.Search) || strings.Contains(m.Email, filter.Search) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memberRepoStub) DeleteMember(_ context.Context, id int64) error {
	if _, ok := s.members[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.members, id)
	return nil
}

// meetingRepoStub keeps meetings in memory and enforces the same overlap
// rule as storage.
type meetingRepoStub struct {
	mu        sync.Mutex
	meetings  map[int64]persistence.Meeting
	nextID    int64
	rangeHook func()
	listErr   error
	lastList  persistence.MeetingFilter
	skipCheck bool
}

func newMeetingRepoStub(meetings ...persistence.Meeting) *meetingRepoStub {
	stub := &meetingRepoStub{meetings: make(map[int64]persistence.Meeting)}
	for _, m := range meetings {
		stub.meetings[m.ID] = m
		if m.ID > stub.nextID {
			stub.nextID = m.ID
		}
	}
	return stub
}

func (s *meetingRepoStub) overlapsLocked(candidate persistence.Meeting) bool {
	if s.skipCheck {
		return false
	}
	for _, m := range s.meetings {
		if m.ID == candidate.ID || m.RoomID != candidate.RoomID || m.Status != scheduler.MeetingScheduled {
			continue
		}
		if scheduler.Overlaps(candidate.Start, candidate.End, m.Start, m.End) {
			return true
		}
	}
	return false
}

func participantsOf(meetingID int64, ids []int64) []persistence.Participant {
	out := make([]persistence.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, persistence.Participant{MeetingID: meetingID, MemberID: id, Status: persistence.ParticipantInvited})
	}
	return out
}

func (s *meetingRepoStub) CreateMeeting(_ context.Context, meeting persistence.Meeting, participantIDs []int64) (persistence.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapsLocked(meeting) {
		return persistence.Meeting{}, persistence.ErrOverlap
	}
	s.nextID++
	meeting.ID = s.nextID
	meeting.Participants = participantsOf(meeting.ID, participantIDs)
	s.meetings[meeting.ID] = meeting
	return meeting, nil
}

func (s *meetingRepoStub) UpdateMeeting(_ context.Context, meeting persistence.Meeting, participantIDs []int64) (persistence.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.meetings[meeting.ID]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	if current.Status != scheduler.MeetingScheduled {
		return persistence.Meeting{}, persistence.ErrStatusChanged
	}
	if s.overlapsLocked(meeting) {
		return persistence.Meeting{}, persistence.ErrOverlap
	}
	if participantIDs != nil {
		meeting.Participants = participantsOf(meeting.ID, participantIDs)
	}
	s.meetings[meeting.ID] = meeting
	return meeting, nil
}

func (s *meetingRepoStub) GetMeeting(_ context.Context, id int64) (persistence.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	return m, nil
}

func (s *meetingRepoStub) ListMeetings(_ context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []persistence.Meeting
	for _, m := range s.meetings {
		if filter.RoomID != nil && m.RoomID != *filter.RoomID {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if filter.From != nil && m.Start.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !m.Start.Before(*filter.To) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *meetingRepoStub) ListScheduledInRange(_ context.Context, roomID int64, from, to time.Time) ([]persistence.Meeting, error) {
	if s.rangeHook != nil {
		s.rangeHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []persistence.Meeting
	for _, m := range s.meetings {
		if m.RoomID == roomID && m.Status == scheduler.MeetingScheduled && scheduler.Overlaps(from, to, m.Start, m.End) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *meetingRepoStub) SetMeetingStatus(_ context.Context, id int64, from, to scheduler.MeetingStatus, at time.Time) (persistence.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	if m.Status != from {
		return persistence.Meeting{}, persistence.ErrStatusChanged
	}
	m.Status = to
	m.UpdatedAt = at
	s.meetings[id] = m
	return m, nil
}

func (s *meetingRepoStub) ListEndedScheduled(_ context.Context, before time.Time) ([]persistence.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []persistence.Meeting
	for _, m := range s.meetings {
		if m.Status == scheduler.MeetingScheduled && !m.End.After(before) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type checkInRepoStub struct {
	created   []persistence.CheckIn
	createErr error
}

func (s *checkInRepoStub) CreateCheckIn(_ context.Context, checkIn persistence.CheckIn) (persistence.CheckIn, error) {
	if s.createErr != nil {
		return persistence.CheckIn{}, s.createErr
	}
	checkIn.ID = int64(len(s.created) + 1)
	s.created = append(s.created, checkIn)
	return checkIn, nil
}

func (s *checkInRepoStub) ListCheckIns(_ context.Context, meetingID *int64) ([]persistence.CheckIn, error) {
	var out []persistence.CheckIn
	for i := len(s.created) - 1; i >= 0; i-- {
		c := s.created[i]
		if meetingID == nil || c.MeetingID == *meetingID {
			out = append(out, c)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// prefixSealer is a reversible stand-in for the secretbox sealer.
type prefixSealer struct{}

func (prefixSealer) Seal(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	return []byte("sealed:" + plaintext), nil
}

func (prefixSealer) Open(sealed []byte) (string, error) {
	text := string(sealed)
	if !strings.HasPrefix(text, "sealed:") {
		return "", errors.New("malformed")
	}
	return strings.TrimPrefix(text, "sealed:"), nil
}

type sentMail struct {
	From string
	To   string
	Msg  mailer.Message
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]error
}

func (r *recordingSender) Send(_ context.Context, cred scheduler.Credential, to string, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failTo[to]; err != nil {
		return err
	}
	r.sent = append(r.sent, sentMail{From: cred.Email, To: to, Msg: msg})
	return nil
}

func (r *recordingSender) fromFor(to string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sent {
		if s.To == to {
			return s.From
		}
	}
	return ""
}
