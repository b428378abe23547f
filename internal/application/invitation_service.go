package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/mailer"
	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

// invitationNamespace scopes calendar UIDs so that re-sent invitations for a
// meeting update the same calendar entry.
var invitationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:meeting-booking:invitation"))

// CredentialOpener recovers sealed mail credentials.
type CredentialOpener interface {
	Open(sealed []byte) (string, error)
}

// InvitationSettings holds the optional collaborators of an InvitationService.
type InvitationSettings struct {
	// Location formats meeting times. Defaults to DefaultLocation.
	Location *time.Location
	// DefaultCredential is the system mailbox used when neither the
	// organizer nor the recipient has a usable credential.
	DefaultCredential *scheduler.Credential
	Publisher         events.Publisher
}

// InvitationService emails meeting invitations to participants.
type InvitationService struct {
	meetings MeetingReader
	rooms    RoomCatalog
	members  MemberDirectory
	opener   CredentialOpener
	sender   mailer.Sender
	settings InvitationSettings
	now      func() time.Time
	logger   *slog.Logger
}

// NewInvitationService constructs an invitation service with the provided dependencies.
func NewInvitationService(meetings MeetingReader, rooms RoomCatalog, members MemberDirectory, opener CredentialOpener, sender mailer.Sender, settings InvitationSettings, now func() time.Time) *InvitationService {
	return NewInvitationServiceWithLogger(meetings, rooms, members, opener, sender, settings, now, nil)
}

// NewInvitationServiceWithLogger constructs an invitation service with a specified logger.
func NewInvitationServiceWithLogger(meetings MeetingReader, rooms RoomCatalog, members MemberDirectory, opener CredentialOpener, sender mailer.Sender, settings InvitationSettings, now func() time.Time, logger *slog.Logger) *InvitationService {
	if now == nil {
		now = time.Now
	}
	if settings.Location == nil {
		settings.Location = DefaultLocation()
	}
	if settings.Publisher == nil {
		settings.Publisher = events.NopPublisher{}
	}
	return &InvitationService{
		meetings: meetings,
		rooms:    rooms,
		members:  members,
		opener:   opener,
		sender:   sender,
		settings: settings,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *InvitationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InvitationService", operation, attrs...)
}

// SendInvitations emails the meeting invitation to every participant. A
// failed recipient is reported in the result and never aborts the others.
func (s *InvitationService) SendInvitations(ctx context.Context, meetingID int64) (result InvitationResult, err error) {
	if s == nil || s.meetings == nil || s.members == nil || s.sender == nil {
		err = fmt.Errorf("invitation dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "SendInvitations", "meeting_id", meetingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send invitations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "invitations sent", "total", result.Total, "success", result.Success, "failed", result.Failed)
	}()

	var meeting persistence.Meeting
	meeting, err = s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		err = mapMeetingRepoError(err)
		return
	}

	ids := make([]int64, 0, len(meeting.Participants)+1)
	ids = append(ids, meeting.OrganizerID)
	for _, p := range meeting.Participants {
		ids = append(ids, p.MemberID)
	}
	var found []persistence.Member
	found, err = s.members.GetMembers(ctx, uniqueIDs(ids))
	if err != nil {
		err = mapMemberRepoError(err)
		return
	}
	byID := make(map[int64]persistence.Member, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}

	var (
		recipients []string
		names      []string
		perMember  []scheduler.Credential
	)
	for _, p := range meeting.Participants {
		member, ok := byID[p.MemberID]
		if !ok {
			continue
		}
		names = append(names, member.Name)
		if strings.TrimSpace(member.Email) == "" {
			continue
		}
		recipients = append(recipients, member.Email)
		if cred, ok := s.credentialOf(ctx, logger, member); ok {
			perMember = append(perMember, cred)
		}
	}
	if len(recipients) == 0 {
		err = newValidationError("participants", "meeting has no participants with an email address")
		return
	}

	organizer := byID[meeting.OrganizerID]
	var organizerCred *scheduler.Credential
	if cred, ok := s.credentialOf(ctx, logger, organizer); ok {
		organizerCred = &cred
	}

	roomName := fmt.Sprintf("Room %d", meeting.RoomID)
	if s.rooms != nil {
		room, rerr := s.rooms.GetRoom(ctx, meeting.RoomID)
		if rerr != nil {
			err = fmt.Errorf("load room %d: %w", meeting.RoomID, mapRoomRepoError(rerr))
			return
		}
		roomName = room.Name
	}

	now := s.now()
	invitation := mailer.Invitation{
		UID:            uuid.NewSHA1(invitationNamespace, []byte(fmt.Sprintf("meeting:%d", meeting.ID))).String(),
		Title:          meeting.Title,
		Start:          meeting.Start,
		End:            meeting.End,
		Location:       s.settings.Location,
		RoomName:       roomName,
		OrganizerName:  organizer.Name,
		OrganizerEmail: organizer.Email,
		Participants:   names,
		Attendees:      recipients,
		Sent:           now,
	}
	if meeting.Description != nil {
		invitation.Description = *meeting.Description
	}

	var msg mailer.Message
	msg, err = mailer.Render(invitation)
	if err != nil {
		return
	}

	deliveries := make([]mailer.Delivery, 0, len(recipients))
	for _, email := range recipients {
		cred, ok := scheduler.ResolveCredential(email, organizerCred, perMember)
		if !ok && s.settings.DefaultCredential != nil && s.settings.DefaultCredential.Complete() {
			cred = *s.settings.DefaultCredential
		}
		deliveries = append(deliveries, mailer.Delivery{Email: email, Credential: cred})
	}

	batch := mailer.SendBatch(ctx, s.sender, msg, deliveries)

	result = InvitationResult{
		MeetingID: meeting.ID,
		Total:     batch.Total,
		Success:   batch.Success,
		Failed:    batch.Failed,
		Results:   make([]RecipientResult, 0, len(batch.Results)),
	}
	for _, r := range batch.Results {
		result.Results = append(result.Results, RecipientResult{Email: r.Email, Success: r.Success, Error: r.Error})
	}

	publish(ctx, s.settings.Publisher, logger, events.New(events.InvitationSent, now, events.InvitationPayload{
		MeetingID: meeting.ID,
		Total:     result.Total,
		Success:   result.Success,
		Failed:    result.Failed,
	}))
	return
}

// credentialOf opens member's sealed mail credential. Unreadable secrets are
// logged and treated as absent.
func (s *InvitationService) credentialOf(ctx context.Context, logger *slog.Logger, member persistence.Member) (scheduler.Credential, bool) {
	if len(member.MailSecret) == 0 || s.opener == nil {
		return scheduler.Credential{}, false
	}
	secret, err := s.opener.Open(member.MailSecret)
	if err != nil {
		logger.WarnContext(ctx, "failed to open mail credential", "member_id", member.ID, "error", err)
		return scheduler.Credential{}, false
	}
	cred := scheduler.Credential{Email: member.Email, Secret: secret}
	return cred, cred.Complete()
}
