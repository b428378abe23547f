package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

var (
	roomCounter    uint64
	memberCounter  uint64
	meetingCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures. It
// sits on a slot boundary so derived meeting times stay aligned.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	Number     int
	Name       string
	Capacity   int
	Facilities *string
	Status     persistence.RoomStatus
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a room with a unique number and optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	facilities := "projector, whiteboard"
	fixture := RoomFixture{
		Number:     int(idx),
		Name:       fmt.Sprintf("Room %03d", idx),
		Capacity:   10,
		Facilities: &facilities,
		Status:     persistence.RoomAvailable,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomNumber overrides the generated room number.
func WithRoomNumber(number int) RoomOption {
	return func(f *RoomFixture) {
		f.Number = number
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithoutRoomFacilities clears the facilities description.
func WithoutRoomFacilities() RoomOption {
	return func(f *RoomFixture) {
		f.Facilities = nil
	}
}

// WithRoomStatus overrides the room status.
func WithRoomStatus(status persistence.RoomStatus) RoomOption {
	return func(f *RoomFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as an unsaved persistence.Room.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		Number:     f.Number,
		Name:       f.Name,
		Capacity:   f.Capacity,
		Facilities: copyStringPtr(f.Facilities),
		Status:     f.Status,
	}
}

// ---------------------------- Member fixtures ----------------------------

// MemberFixture represents a deterministic member record.
type MemberFixture struct {
	Name       string
	Email      string
	MailSecret []byte
	Department *string
	Position   *string
}

// MemberOption configures the generated member fixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns a member with a unique email and optional overrides.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := MemberFixture{
		Name:  fmt.Sprintf("Member %03d", idx),
		Email: fmt.Sprintf("member-%03d@example.com", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberName overrides the generated name.
func WithMemberName(name string) MemberOption {
	return func(f *MemberFixture) {
		f.Name = name
	}
}

// WithMemberEmail overrides the generated email address.
func WithMemberEmail(email string) MemberOption {
	return func(f *MemberFixture) {
		f.Email = email
	}
}

// WithMemberSecret sets the sealed mail secret.
func WithMemberSecret(secret []byte) MemberOption {
	return func(f *MemberFixture) {
		f.MailSecret = secret
	}
}

// WithMemberDepartment sets the department.
func WithMemberDepartment(department string) MemberOption {
	return func(f *MemberFixture) {
		f.Department = &department
	}
}

// Persistence returns the fixture as an unsaved persistence.Member.
func (f MemberFixture) Persistence() persistence.Member {
	return persistence.Member{
		Name:       f.Name,
		Email:      f.Email,
		MailSecret: append([]byte(nil), f.MailSecret...),
		Department: copyStringPtr(f.Department),
		Position:   copyStringPtr(f.Position),
	}
}

// ---------------------------- Meeting fixtures ---------------------------

// MeetingFixture represents a deterministic meeting. Each new fixture starts
// one day after the previous one so fixtures never collide by default.
type MeetingFixture struct {
	RoomID      int64
	OrganizerID int64
	Title       string
	Start       time.Time
	End         time.Time
	Description *string
	Status      scheduler.MeetingStatus
}

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a one-hour meeting in roomID organized by organizerID.
func NewMeetingFixture(roomID, organizerID int64, opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	start := referenceTime.AddDate(0, 0, int(idx))
	fixture := MeetingFixture{
		RoomID:      roomID,
		OrganizerID: organizerID,
		Title:       fmt.Sprintf("Meeting %03d", idx),
		Start:       start,
		End:         start.Add(time.Hour),
		Status:      scheduler.MeetingScheduled,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingTitle overrides the generated title.
func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Title = title
	}
}

// WithMeetingStartEnd sets the meeting interval.
func WithMeetingStartEnd(start, end time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithMeetingDescription sets the description.
func WithMeetingDescription(description string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Description = &description
	}
}

// WithMeetingStatus overrides the stored status.
func WithMeetingStatus(status scheduler.MeetingStatus) MeetingOption {
	return func(f *MeetingFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as an unsaved persistence.Meeting.
func (f MeetingFixture) Persistence() persistence.Meeting {
	return persistence.Meeting{
		RoomID:      f.RoomID,
		OrganizerID: f.OrganizerID,
		Title:       f.Title,
		Start:       f.Start,
		End:         f.End,
		Description: copyStringPtr(f.Description),
		Status:      f.Status,
	}
}

// Booking returns the fixture as a conflict detection booking.
func (f MeetingFixture) Booking() scheduler.Booking {
	return f.Persistence().Booking()
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
