package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/application"
	"github.com/example/meeting-booking/internal/scheduler"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, input application.MeetingInput) (application.Meeting, error)
	UpdateMeeting(ctx context.Context, meetingID int64, input application.UpdateMeetingInput) (application.Meeting, error)
	GetMeeting(ctx context.Context, meetingID int64) (application.MeetingDetail, error)
	ListMeetings(ctx context.Context, params application.ListMeetingsParams) ([]application.Meeting, error)
	CancelMeeting(ctx context.Context, meetingID int64) (application.Meeting, error)
	Location() *time.Location
}

type invitationService interface {
	SendInvitations(ctx context.Context, meetingID int64) (application.InvitationResult, error)
}

type MeetingHandler struct {
	service     meetingService
	invitations invitationService
	responder   responder
	logger      *slog.Logger
}

func NewMeetingHandler(service meetingService, invitations invitationService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, invitations: invitations, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	loc := h.service.Location()
	input, err := req.toInput(loc)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", input.RoomID)
	meeting, err := h.service.CreateMeeting(r.Context(), input)
	if err != nil {
		logger.WarnContext(r.Context(), "meeting booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", meeting.ID).InfoContext(r.Context(), "meeting booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: toMeetingDTO(meeting, loc)})
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	var req updateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "meeting_id", meetingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	loc := h.service.Location()
	input, err := req.toInput(loc)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "meeting_id", meetingID)
	meeting, err := h.service.UpdateMeeting(r.Context(), meetingID, input)
	if err != nil {
		logger.WarnContext(r.Context(), "meeting update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting, loc)})
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	detail, err := h.service.GetMeeting(r.Context(), meetingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingDetailResponse{Meeting: toMeetingDetailDTO(detail, h.service.Location())})
}

// Cancel marks the meeting cancelled. The row is kept for history.
func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	logger := h.log(r.Context(), "Cancel", "meeting_id", meetingID)
	meeting, err := h.service.CancelMeeting(r.Context(), meetingID)
	if err != nil {
		logger.WarnContext(r.Context(), "meeting cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting, h.service.Location())})
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	loc := h.service.Location()
	params, err := buildListParams(r, loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	meetings, err := h.service.ListMeetings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings, loc)})
}

func (h *MeetingHandler) SendInvitations(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.invitations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	logger := h.log(r.Context(), "SendInvitations", "meeting_id", meetingID)
	result, err := h.invitations.SendInvitations(r.Context(), meetingID)
	if err != nil {
		logger.WarnContext(r.Context(), "invitation dispatch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "invitations dispatched", "success", result.Success, "failed", result.Failed)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toInvitationResultDTO(result))
}

type listParamError string

func (e listParamError) Error() string { return string(e) }

func buildListParams(r *http.Request, loc *time.Location) (application.ListMeetingsParams, error) {
	var params application.ListMeetingsParams
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("room_id")); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			return params, errInvalidRoomID
		}
		params.RoomID = &id
	}
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		day, ok := parseDate(raw, loc)
		if !ok {
			return params, listParamError("date must use YYYY-MM-DD")
		}
		params.Date = &day
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := scheduler.MeetingStatus(raw)
		params.Status = &status
	}
	return params, nil
}

type meetingRequest struct {
	RoomID         int64   `json:"room_id"`
	Title          string  `json:"title"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	OrganizerID    int64   `json:"organizer_id"`
	Description    *string `json:"description"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

func (r meetingRequest) toInput(loc *time.Location) (application.MeetingInput, error) {
	start, end, err := parseRange(r.Start, r.End, loc)
	if err != nil {
		return application.MeetingInput{}, err
	}
	return application.MeetingInput{
		RoomID:         r.RoomID,
		Title:          strings.TrimSpace(r.Title),
		Start:          start,
		End:            end,
		OrganizerID:    r.OrganizerID,
		Description:    trimOptional(r.Description),
		ParticipantIDs: r.ParticipantIDs,
	}, nil
}

// updateMeetingRequest leaves participants untouched when participant_ids is
// absent from the body.
type updateMeetingRequest struct {
	Title          string  `json:"title"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Description    *string `json:"description"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

func (r updateMeetingRequest) toInput(loc *time.Location) (application.UpdateMeetingInput, error) {
	start, end, err := parseRange(r.Start, r.End, loc)
	if err != nil {
		return application.UpdateMeetingInput{}, err
	}
	return application.UpdateMeetingInput{
		Title:          strings.TrimSpace(r.Title),
		Start:          start,
		End:            end,
		Description:    trimOptional(r.Description),
		ParticipantIDs: r.ParticipantIDs,
	}, nil
}

func parseRange(rawStart, rawEnd string, loc *time.Location) (time.Time, time.Time, error) {
	problems := fieldErrors{}
	start, ok := parseTime(rawStart, loc)
	if !ok {
		problems.add("start", "start must be RFC3339 or YYYY-MM-DDTHH:MM")
	}
	end, ok := parseTime(rawEnd, loc)
	if !ok {
		problems.add("end", "end must be RFC3339 or YYYY-MM-DDTHH:MM")
	}
	return start, end, problems.err()
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type meetingDetailResponse struct {
	Meeting meetingDetailDTO `json:"meeting"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type meetingDTO struct {
	ID            int64   `json:"id"`
	RoomID        int64   `json:"room_id"`
	Title         string  `json:"title"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	OrganizerID   int64   `json:"organizer_id"`
	Description   *string `json:"description,omitempty"`
	Status        string  `json:"status"`
	DisplayStatus string  `json:"display_status"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type meetingDetailDTO struct {
	meetingDTO
	Room         roomDTO          `json:"room"`
	Organizer    memberDTO        `json:"organizer"`
	Participants []participantDTO `json:"participants"`
	CheckIns     []checkInDTO     `json:"check_ins"`
}

type participantDTO struct {
	MemberID int64  `json:"member_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

func toMeetingDTO(meeting application.Meeting, loc *time.Location) meetingDTO {
	return meetingDTO{
		ID:            meeting.ID,
		RoomID:        meeting.RoomID,
		Title:         meeting.Title,
		Start:         formatTime(meeting.Start, loc),
		End:           formatTime(meeting.End, loc),
		OrganizerID:   meeting.OrganizerID,
		Description:   meeting.Description,
		Status:        string(meeting.Status),
		DisplayStatus: string(meeting.DisplayStatus),
		CreatedAt:     meeting.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     meeting.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toMeetingDTOs(meetings []application.Meeting, loc *time.Location) []meetingDTO {
	out := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toMeetingDTO(meeting, loc))
	}
	return out
}

func toMeetingDetailDTO(detail application.MeetingDetail, loc *time.Location) meetingDetailDTO {
	dto := meetingDetailDTO{
		meetingDTO:   toMeetingDTO(detail.Meeting, loc),
		Room:         toRoomDTO(detail.Room),
		Organizer:    toMemberDTO(detail.Organizer),
		Participants: make([]participantDTO, 0, len(detail.Participants)),
		CheckIns:     toCheckInDTOs(detail.CheckIns, loc),
	}
	for _, p := range detail.Participants {
		dto.Participants = append(dto.Participants, participantDTO{
			MemberID: p.MemberID,
			Name:     p.Name,
			Email:    p.Email,
			Status:   string(p.Status),
		})
	}
	return dto
}

type invitationResultDTO struct {
	MeetingID int64                `json:"meeting_id"`
	Total     int                  `json:"total"`
	Success   int                  `json:"success"`
	Failed    int                  `json:"failed"`
	Results   []recipientResultDTO `json:"results"`
}

type recipientResultDTO struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func toInvitationResultDTO(result application.InvitationResult) invitationResultDTO {
	dto := invitationResultDTO{
		MeetingID: result.MeetingID,
		Total:     result.Total,
		Success:   result.Success,
		Failed:    result.Failed,
		Results:   make([]recipientResultDTO, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		dto.Results = append(dto.Results, recipientResultDTO{Email: res.Email, Success: res.Success, Error: res.Error})
	}
	return dto
}
