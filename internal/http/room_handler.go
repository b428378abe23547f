package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/application"
	"github.com/example/meeting-booking/internal/persistence"
)

type roomService interface {
	CreateRoom(ctx context.Context, input application.RoomInput) (application.Room, error)
	UpdateRoom(ctx context.Context, roomID int64, input application.RoomInput) (application.Room, error)
	GetRoom(ctx context.Context, roomID int64) (application.Room, error)
	ListRooms(ctx context.Context) ([]application.Room, error)
	DeleteRoom(ctx context.Context, roomID int64) error
	SeedDefaultRooms(ctx context.Context) ([]application.Room, error)
}

type availabilityService interface {
	RoomAvailability(ctx context.Context, roomID int64, date time.Time) (application.Availability, error)
	CheckSlotPick(ctx context.Context, roomID int64, date time.Time, startLabel, endLabel string) (application.SlotCheck, error)
	Location() *time.Location
}

type RoomHandler struct {
	service      roomService
	availability availabilityService
	responder    responder
	logger       *slog.Logger
}

func NewRoomHandler(service roomService, availability availabilityService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, availability: availability, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	room, err := h.service.CreateRoom(r.Context(), req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "room_id", roomID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "room_id", roomID)
	room, err := h.service.UpdateRoom(r.Context(), roomID, req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "room update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	logger := h.log(r.Context(), "Delete", "room_id", roomID)
	if err := h.service.DeleteRoom(r.Context(), roomID); err != nil {
		logger.WarnContext(r.Context(), "room delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "List").With("result_count", len(rooms)).DebugContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) Seed(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Seed")
	rooms, err := h.service.SeedDefaultRooms(r.Context())
	if err != nil {
		logger.WarnContext(r.Context(), "room seeding failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "default rooms seeded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

// Availability renders the slot grid of a room for ?date=. When both start
// and end slot labels are given the pick is validated as well.
func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	loc := h.availability.Location()
	query := r.URL.Query()
	date, ok := parseDate(query.Get("date"), loc)
	if !ok {
		h.responder.handleServiceError(r.Context(), w, fieldErrors{"date": "date must use YYYY-MM-DD"}.err())
		return
	}

	availability, err := h.availability.RoomAvailability(r.Context(), roomID, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := toAvailabilityDTO(availability, loc)
	startLabel, endLabel := strings.TrimSpace(query.Get("start")), strings.TrimSpace(query.Get("end"))
	if startLabel != "" || endLabel != "" {
		check, err := h.availability.CheckSlotPick(r.Context(), roomID, date, startLabel, endLabel)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		pick := toSlotCheckDTO(check, loc)
		resp.Pick = &pick
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type roomRequest struct {
	RoomNumber int     `json:"room_number"`
	Name       string  `json:"name"`
	Capacity   int     `json:"capacity"`
	Facilities *string `json:"facilities"`
	Status     string  `json:"status"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Number:     r.RoomNumber,
		Name:       strings.TrimSpace(r.Name),
		Capacity:   r.Capacity,
		Facilities: trimOptional(r.Facilities),
		Status:     persistence.RoomStatus(strings.TrimSpace(r.Status)),
	}
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID         int64   `json:"id"`
	RoomNumber int     `json:"room_number"`
	Name       string  `json:"name"`
	Capacity   int     `json:"capacity"`
	Facilities *string `json:"facilities,omitempty"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{
		ID:         room.ID,
		RoomNumber: room.Number,
		Name:       room.Name,
		Capacity:   room.Capacity,
		Facilities: room.Facilities,
		Status:     string(room.Status),
		CreatedAt:  room.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  room.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

type availabilityResponse struct {
	RoomID int64         `json:"room_id"`
	Date   string        `json:"date"`
	Booked []bookingDTO  `json:"booked"`
	Slots  []daySlotDTO  `json:"slots"`
	Pick   *slotCheckDTO `json:"pick,omitempty"`
}

type bookingDTO struct {
	MeetingID int64  `json:"meeting_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type daySlotDTO struct {
	Label  string `json:"label"`
	Start  string `json:"start"`
	Booked bool   `json:"booked"`
}

type slotCheckDTO struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

func toAvailabilityDTO(availability application.Availability, loc *time.Location) availabilityResponse {
	resp := availabilityResponse{
		RoomID: availability.RoomID,
		Date:   availability.Date.In(loc).Format(application.DateLayout),
		Booked: make([]bookingDTO, 0, len(availability.Booked)),
		Slots:  make([]daySlotDTO, 0, len(availability.Slots)),
	}
	for _, booking := range availability.Booked {
		resp.Booked = append(resp.Booked, bookingDTO{
			MeetingID: booking.ID,
			Start:     formatTime(booking.Start, loc),
			End:       formatTime(booking.End, loc),
		})
	}
	for _, slot := range availability.Slots {
		resp.Slots = append(resp.Slots, daySlotDTO{
			Label:  slot.Label,
			Start:  formatTime(slot.Start, loc),
			Booked: slot.Booked,
		})
	}
	return resp
}

func toSlotCheckDTO(check application.SlotCheck, loc *time.Location) slotCheckDTO {
	return slotCheckDTO{
		OK:     check.OK,
		Reason: check.Reason,
		Start:  formatTime(check.Start, loc),
		End:    formatTime(check.End, loc),
	}
}
