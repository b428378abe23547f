package persistence

import (
	"context"
	"time"

	"github.com/example/meeting-booking/internal/scheduler"
)

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	GetRoomByNumber(ctx context.Context, number int) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	// ReplaceRooms swaps the whole catalog for rooms in one transaction. It
	// fails with ErrForeignKeyViolation while any meeting references a room.
	ReplaceRooms(ctx context.Context, rooms []Room) ([]Room, error)
}

// MemberFilter narrows member listings. Search matches name or email.
type MemberFilter struct {
	Search string
}

// MemberRepository exposes CRUD operations for members. UpdateMember keeps the
// stored mail secret when the supplied member carries none.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) (Member, error)
	UpdateMember(ctx context.Context, member Member) (Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	GetMembers(ctx context.Context, ids []int64) ([]Member, error)
	GetMemberByEmail(ctx context.Context, email string) (Member, error)
	ListMembers(ctx context.Context, filter MemberFilter) ([]Member, error)
	DeleteMember(ctx context.Context, id int64) error
}

// MeetingFilter narrows meeting listings. From/To select meetings whose start
// falls inside [From, To).
type MeetingFilter struct {
	RoomID *int64
	From   *time.Time
	To     *time.Time
	Status *scheduler.MeetingStatus
}

// MeetingRepository stores meetings with their participants.
//
// CreateMeeting and UpdateMeeting reject, atomically with the write, any
// interval that overlaps another scheduled meeting of the same room by
// returning ErrOverlap.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting, participantIDs []int64) (Meeting, error)
	UpdateMeeting(ctx context.Context, meeting Meeting, participantIDs []int64) (Meeting, error)
	GetMeeting(ctx context.Context, id int64) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	// ListScheduledInRange returns scheduled meetings of room overlapping [from, to).
	ListScheduledInRange(ctx context.Context, roomID int64, from, to time.Time) ([]Meeting, error)
	// SetMeetingStatus moves a meeting from one status to another, failing
	// with ErrStatusChanged when the stored status is not from.
	SetMeetingStatus(ctx context.Context, id int64, from, to scheduler.MeetingStatus, at time.Time) (Meeting, error)
	// ListEndedScheduled returns scheduled meetings whose end is not after before.
	ListEndedScheduled(ctx context.Context, before time.Time) ([]Meeting, error)
}

// CheckInRepository stores attendance records. CreateCheckIn fails with
// ErrDuplicate when the member already checked in and with
// ErrForeignKeyViolation when the member is not a participant.
type CheckInRepository interface {
	CreateCheckIn(ctx context.Context, checkIn CheckIn) (CheckIn, error)
	ListCheckIns(ctx context.Context, meetingID *int64) ([]CheckIn, error)
}
