package mailer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//meeting-booking//invitations//EN"

// BuildCalendar encodes inv as an iCalendar REQUEST holding one VEVENT.
func BuildCalendar(inv Invitation) ([]byte, error) {
	uid := inv.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	stamp := inv.Sent
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropMethod, "REQUEST")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, inv.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, inv.End.UTC())
	event.Props.SetText(ical.PropSummary, inv.Title)
	if inv.RoomName != "" {
		event.Props.SetText(ical.PropLocation, inv.RoomName)
	}
	if inv.Description != "" {
		event.Props.SetText(ical.PropDescription, inv.Description)
	}
	if inv.OrganizerEmail != "" {
		organizer := ical.NewProp(ical.PropOrganizer)
		organizer.Value = "mailto:" + inv.OrganizerEmail
		if inv.OrganizerName != "" {
			organizer.Params.Set(ical.ParamCommonName, inv.OrganizerName)
		}
		event.Props.Set(organizer)
	}
	for _, email := range inv.Attendees {
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + email
		attendee.Params.Set(ical.ParamRole, "REQ-PARTICIPANT")
		attendee.Params.Set(ical.ParamParticipationStatus, "NEEDS-ACTION")
		event.Props.Add(attendee)
	}
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("mailer: encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
