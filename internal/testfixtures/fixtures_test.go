package testfixtures

import (
	"testing"
	"time"

	"github.com/example/meeting-booking/internal/scheduler"
)

func TestRoomFixturesAreUnique(t *testing.T) {
	a := NewRoomFixture()
	b := NewRoomFixture()
	if a.Number == b.Number {
		t.Fatalf("expected distinct room numbers, got %d twice", a.Number)
	}
	if got := NewRoomFixture(WithRoomCapacity(25)).Capacity; got != 25 {
		t.Fatalf("expected capacity override, got %d", got)
	}
}

func TestMemberFixtureCopiesSecret(t *testing.T) {
	secret := []byte("sealed")
	fixture := NewMemberFixture(WithMemberSecret(secret))
	record := fixture.Persistence()
	secret[0] = 'X'
	if string(record.MailSecret) != "sealed" {
		t.Fatalf("expected persistence copy to be isolated, got %q", record.MailSecret)
	}
}

func TestMeetingFixturesDoNotCollide(t *testing.T) {
	a := NewMeetingFixture(1, 1)
	b := NewMeetingFixture(1, 1)
	if clashes := scheduler.Conflicts(b.Booking(), []scheduler.Booking{a.Booking()}); len(clashes) > 0 {
		t.Fatalf("default fixtures overlap: %v-%v and %v-%v", a.Start, a.End, b.Start, b.End)
	}
	if err := scheduler.CheckInterval(a.Start, a.End); err != nil {
		t.Fatalf("default fixture interval invalid: %v", err)
	}

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewMeetingFixture(2, 3, WithMeetingStartEnd(start, start.Add(30*time.Minute)))
	if !c.Start.Equal(start) || c.RoomID != 2 || c.OrganizerID != 3 {
		t.Fatalf("unexpected fixture %+v", c)
	}
}
