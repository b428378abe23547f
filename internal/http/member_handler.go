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

type memberService interface {
	CreateMember(ctx context.Context, input application.MemberInput) (application.Member, error)
	UpdateMember(ctx context.Context, memberID int64, input application.MemberInput) (application.Member, error)
	GetMember(ctx context.Context, memberID int64) (application.Member, error)
	ListMembers(ctx context.Context, search string) ([]application.Member, error)
	DeleteMember(ctx context.Context, memberID int64) error
}

type MemberHandler struct {
	service   memberService
	responder responder
	logger    *slog.Logger
}

func NewMemberHandler(service memberService, logger *slog.Logger) *MemberHandler {
	base := defaultLogger(logger)
	return &MemberHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MemberHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MemberHandler", operation, attrs...)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode member request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	member, err := h.service.CreateMember(r.Context(), req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "member creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("member_id", member.ID).InfoContext(r.Context(), "member created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "member_id", memberID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode member update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "member_id", memberID)
	member, err := h.service.UpdateMember(r.Context(), memberID, req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "member update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	member, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	logger := h.log(r.Context(), "Delete", "member_id", memberID)
	if err := h.service.DeleteMember(r.Context(), memberID); err != nil {
		logger.WarnContext(r.Context(), "member delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	members, err := h.service.ListMembers(r.Context(), search)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMembersResponse{Members: toMemberDTOs(members)})
}

// memberRequest accepts the mail secret in clear text. It is sealed before
// storage and never echoed back.
type memberRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	MailSecret *string `json:"mail_secret"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
}

func (r memberRequest) toInput() application.MemberInput {
	return application.MemberInput{
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.TrimSpace(r.Email),
		MailSecret: r.MailSecret,
		Department: trimOptional(r.Department),
		Position:   trimOptional(r.Position),
	}
}

type memberResponse struct {
	Member memberDTO `json:"member"`
}

type listMembersResponse struct {
	Members []memberDTO `json:"members"`
}

type memberDTO struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	HasMailCredential bool    `json:"has_mail_credential"`
	Department        *string `json:"department,omitempty"`
	Position          *string `json:"position,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func toMemberDTO(member application.Member) memberDTO {
	return memberDTO{
		ID:                member.ID,
		Name:              member.Name,
		Email:             member.Email,
		HasMailCredential: member.HasMailCredential,
		Department:        member.Department,
		Position:          member.Position,
		CreatedAt:         member.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:         member.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toMemberDTOs(members []application.Member) []memberDTO {
	out := make([]memberDTO, 0, len(members))
	for _, member := range members {
		out = append(out, toMemberDTO(member))
	}
	return out
}
