package persistence

import (
	"time"

	"github.com/example/meeting-booking/internal/scheduler"
)

// RoomStatus captures whether a room can currently be booked.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room represents a meeting room catalog entry.
type Room struct {
	ID         int64
	Number     int
	Name       string
	Capacity   int
	Facilities *string
	Status     RoomStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Member represents a teammate who can organize, attend and receive invitations.
// MailSecret holds the sealed SMTP authorization code, never the plain value.
type Member struct {
	ID         int64
	Name       string
	Email      string
	MailSecret []byte
	Department *string
	Position   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ParticipantStatus is the invitation state of a participant.
type ParticipantStatus string

const (
	ParticipantInvited   ParticipantStatus = "invited"
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantRejected  ParticipantStatus = "rejected"
)

// Participant links a member to a meeting.
type Participant struct {
	MeetingID int64
	MemberID  int64
	Status    ParticipantStatus
	CreatedAt time.Time
}

// CheckIn records a member's attendance at a meeting.
type CheckIn struct {
	ID          int64
	MeetingID   int64
	MemberID    int64
	CheckedInAt time.Time
	Status      scheduler.CheckInStatus
	CreatedAt   time.Time
}

// Meeting represents a room booking stored in persistence. Participants and
// CheckIns are populated by GetMeeting only.
type Meeting struct {
	ID           int64
	RoomID       int64
	Title        string
	Start        time.Time
	End          time.Time
	OrganizerID  int64
	Description  *string
	Status       scheduler.MeetingStatus
	Participants []Participant
	CheckIns     []CheckIn
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Booking projects the meeting onto the fields used for conflict detection.
func (m Meeting) Booking() scheduler.Booking {
	return scheduler.Booking{ID: m.ID, RoomID: m.RoomID, Start: m.Start, End: m.End, Status: m.Status}
}
