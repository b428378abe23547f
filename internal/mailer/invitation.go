// Package mailer renders meeting invitations and delivers them over SMTP.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// DisplayLayout is how meeting times appear in invitations.
const DisplayLayout = "2006-01-02 15:04"

// Invitation is everything needed to render one meeting invitation.
type Invitation struct {
	UID            string
	Title          string
	Start          time.Time
	End            time.Time
	Location       *time.Location
	RoomName       string
	OrganizerName  string
	OrganizerEmail string
	Description    string
	Participants   []string
	Attendees      []string
	Sent           time.Time
}

// Message is a rendered invitation ready for delivery to any recipient.
type Message struct {
	Subject  string
	HTML     string
	Calendar []byte
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #667eea; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
    .row { margin: 15px 0; padding: 10px; background: white; border-left: 4px solid #667eea; border-radius: 4px; }
    .label { font-weight: bold; color: #667eea; display: inline-block; width: 110px; }
    .footer { text-align: center; margin-top: 20px; color: #999; font-size: 12px; }
  </style>
</head>
<body>
  <div class="header"><h1>Meeting invitation</h1></div>
  <div class="content">
    <div class="row"><span class="label">Topic:</span><span>{{.Title}}</span></div>
    <div class="row"><span class="label">Time:</span><span>{{.StartText}} - {{.EndText}}</span></div>
    <div class="row"><span class="label">Room:</span><span>{{.RoomName}}</span></div>
    <div class="row"><span class="label">Organizer:</span><span>{{.OrganizerName}}</span></div>
    {{- if .Description}}
    <div class="row"><span class="label">Description:</span><span>{{.Description}}</span></div>
    {{- end}}
    <div class="row"><span class="label">Participants:</span><span>{{range $i, $p := .Participants}}{{if $i}}, {{end}}{{$p}}{{end}}</span></div>
    <p style="margin-top: 30px; text-align: center; color: #666;">Please be on time. Thank you!</p>
  </div>
  <div class="footer"><p>Sent automatically by the meeting room booking system</p></div>
</body>
</html>
`))

type invitationView struct {
	Invitation
	StartText string
	EndText   string
}

// Render produces the subject, HTML body and calendar part of inv.
func Render(inv Invitation) (Message, error) {
	loc := inv.Location
	if loc == nil {
		loc = time.UTC
	}

	var body bytes.Buffer
	view := invitationView{
		Invitation: inv,
		StartText:  inv.Start.In(loc).Format(DisplayLayout),
		EndText:    inv.End.In(loc).Format(DisplayLayout),
	}
	if err := invitationTemplate.Execute(&body, view); err != nil {
		return Message{}, fmt.Errorf("mailer: render invitation: %w", err)
	}

	calendar, err := BuildCalendar(inv)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Subject:  "Meeting invitation: " + inv.Title,
		HTML:     body.String(),
		Calendar: calendar,
	}, nil
}
