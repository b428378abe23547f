package application

import (
	"time"

	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Number     int
	Name       string
	Capacity   int
	Facilities *string
	Status     persistence.RoomStatus
}

// Room represents a catalog entry for a meeting room.
type Room struct {
	ID         int64
	Number     int
	Name       string
	Capacity   int
	Facilities *string
	Status     persistence.RoomStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MemberInput captures caller provided member attributes. A nil or blank
// MailSecret leaves the stored credential untouched on update.
type MemberInput struct {
	Name       string
	Email      string
	MailSecret *string
	Department *string
	Position   *string
}

// Member is a teammate as exposed by the services. The mail credential itself
// never leaves the service layer.
type Member struct {
	ID                int64
	Name              string
	Email             string
	HasMailCredential bool
	Department        *string
	Position          *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MeetingInput captures caller provided meeting fields for a new booking.
type MeetingInput struct {
	RoomID         int64
	Title          string
	Start          time.Time
	End            time.Time
	OrganizerID    int64
	Description    *string
	ParticipantIDs []int64
}

// UpdateMeetingInput captures the editable fields of a scheduled meeting. A
// nil ParticipantIDs keeps the current participants.
type UpdateMeetingInput struct {
	Title          string
	Start          time.Time
	End            time.Time
	Description    *string
	ParticipantIDs []int64
}

// Meeting is a booking together with the status a viewer should see now.
type Meeting struct {
	ID            int64
	RoomID        int64
	Title         string
	Start         time.Time
	End           time.Time
	OrganizerID   int64
	Description   *string
	Status        scheduler.MeetingStatus
	DisplayStatus scheduler.DisplayStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Participant is a meeting participant joined with member details.
type Participant struct {
	MemberID int64
	Name     string
	Email    string
	Status   persistence.ParticipantStatus
}

// CheckIn is an attendance record.
type CheckIn struct {
	ID          int64
	MeetingID   int64
	MemberID    int64
	CheckedInAt time.Time
	Status      scheduler.CheckInStatus
}

// MeetingDetail is a meeting with everything its detail view shows.
type MeetingDetail struct {
	Meeting
	Room         Room
	Organizer    Member
	Participants []Participant
	CheckIns     []CheckIn
}

// ListMeetingsParams narrows meeting listings. Date selects meetings starting
// on that calendar day in the service location.
type ListMeetingsParams struct {
	RoomID *int64
	Date   *time.Time
	Status *scheduler.MeetingStatus
}

// Availability describes one room on one day.
type Availability struct {
	RoomID int64
	Date   time.Time
	Booked []scheduler.Booking
	Slots  []scheduler.DaySlot
}

// SlotCheck is the outcome of an interactive start/end pick. Reason is empty
// when OK is true.
type SlotCheck struct {
	OK     bool
	Reason string
	Start  time.Time
	End    time.Time
}

// InvitationResult reports delivery of one round of invitations.
type InvitationResult struct {
	MeetingID int64
	Total     int
	Success   int
	Failed    int
	Results   []RecipientResult
}

// RecipientResult is the delivery outcome for one invitee.
type RecipientResult struct {
	Email   string
	Success bool
	Error   string
}

func toRoom(model persistence.Room) Room {
	return Room{
		ID:         model.ID,
		Number:     model.Number,
		Name:       model.Name,
		Capacity:   model.Capacity,
		Facilities: copyStringPtr(model.Facilities),
		Status:     model.Status,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toMember(model persistence.Member) Member {
	return Member{
		ID:                model.ID,
		Name:              model.Name,
		Email:             model.Email,
		HasMailCredential: len(model.MailSecret) > 0,
		Department:        copyStringPtr(model.Department),
		Position:          copyStringPtr(model.Position),
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func toMeeting(model persistence.Meeting, now time.Time) Meeting {
	return Meeting{
		ID:            model.ID,
		RoomID:        model.RoomID,
		Title:         model.Title,
		Start:         model.Start,
		End:           model.End,
		OrganizerID:   model.OrganizerID,
		Description:   copyStringPtr(model.Description),
		Status:        model.Status,
		DisplayStatus: scheduler.ResolveStatus(now, model.Start, model.End, model.Status),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toCheckIn(model persistence.CheckIn) CheckIn {
	return CheckIn{
		ID:          model.ID,
		MeetingID:   model.MeetingID,
		MemberID:    model.MemberID,
		CheckedInAt: model.CheckedInAt,
		Status:      model.Status,
	}
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
