// Package events publishes domain events about bookings and attendance.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names an event and doubles as its AMQP routing key.
type Type string

const (
	MeetingBooked    Type = "meeting.booked"
	MeetingUpdated   Type = "meeting.updated"
	MeetingCancelled Type = "meeting.cancelled"
	MeetingCompleted Type = "meeting.completed"
	CheckInRecorded  Type = "checkin.recorded"
	InvitationSent   Type = "invitation.sent"
)

// Event is the envelope published for every domain change.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// New builds an event with a fresh ID.
func New(eventType Type, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MeetingPayload accompanies the meeting.* events.
type MeetingPayload struct {
	MeetingID   int64     `json:"meeting_id"`
	RoomID      int64     `json:"room_id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	OrganizerID int64     `json:"organizer_id"`
	Status      string    `json:"status"`
}

// CheckInPayload accompanies checkin.recorded.
type CheckInPayload struct {
	MeetingID   int64     `json:"meeting_id"`
	MemberID    int64     `json:"member_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
	Status      string    `json:"status"`
}

// InvitationPayload accompanies invitation.sent.
type InvitationPayload struct {
	MeetingID int64 `json:"meeting_id"`
	Total     int   `json:"total"`
	Success   int   `json:"success"`
	Failed    int   `json:"failed"`
}
