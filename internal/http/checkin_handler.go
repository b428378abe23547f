package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/application"
)

type checkInService interface {
	CheckIn(ctx context.Context, meetingID, memberID int64) (application.CheckIn, error)
	ListCheckIns(ctx context.Context, meetingID *int64) ([]application.CheckIn, error)
}

type CheckInHandler struct {
	service   checkInService
	loc       *time.Location
	responder responder
	logger    *slog.Logger
}

func NewCheckInHandler(service checkInService, loc *time.Location, logger *slog.Logger) *CheckInHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &CheckInHandler{service: service, loc: loc, responder: newResponder(base), logger: base}
}

func (h *CheckInHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CheckInHandler", operation, attrs...)
}

func (h *CheckInHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode check-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "meeting_id", req.MeetingID, "member_id", req.MemberID)
	checkIn, err := h.service.CheckIn(r.Context(), req.MeetingID, req.MemberID)
	if err != nil {
		logger.WarnContext(r.Context(), "check-in rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "check-in recorded", "status", checkIn.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, checkInResponse{CheckIn: toCheckInDTO(checkIn, h.loc)})
}

func (h *CheckInHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var meetingID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("meeting_id")); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
			return
		}
		meetingID = &id
	}

	checkIns, err := h.service.ListCheckIns(r.Context(), meetingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCheckInsResponse{CheckIns: toCheckInDTOs(checkIns, h.loc)})
}

type checkInRequest struct {
	MeetingID int64 `json:"meeting_id"`
	MemberID  int64 `json:"member_id"`
}

type checkInResponse struct {
	CheckIn checkInDTO `json:"check_in"`
}

type listCheckInsResponse struct {
	CheckIns []checkInDTO `json:"check_ins"`
}

type checkInDTO struct {
	ID          int64  `json:"id"`
	MeetingID   int64  `json:"meeting_id"`
	MemberID    int64  `json:"member_id"`
	CheckInTime string `json:"check_in_time"`
	Status      string `json:"status"`
}

func toCheckInDTO(checkIn application.CheckIn, loc *time.Location) checkInDTO {
	return checkInDTO{
		ID:          checkIn.ID,
		MeetingID:   checkIn.MeetingID,
		MemberID:    checkIn.MemberID,
		CheckInTime: formatTime(checkIn.CheckedInAt, loc),
		Status:      string(checkIn.Status),
	}
}

func toCheckInDTOs(checkIns []application.CheckIn, loc *time.Location) []checkInDTO {
	out := make([]checkInDTO, 0, len(checkIns))
	for _, checkIn := range checkIns {
		out = append(out, toCheckInDTO(checkIn, loc))
	}
	return out
}
