package notice

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/transport"
)

type ServiceAPI interface {
	ListNotices(ctx context.Context) ([]*Notice, error)
	GetNotice(ctx context.Context, id int64) (*Notice, error)
	CreateNotice(ctx context.Context, dto CreateNoticeDTO, userID int64) (*Notice, error)
	UpdateNotice(ctx context.Context, id int64, dto UpdateNoticeDTO) (*Notice, error)
	DeleteNotice(ctx context.Context, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Service.ListNotices(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"notices": notices})
}

func (h *Handler) GetNotice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid notice ID")
		return
	}

	n, err := h.Service.GetNotice(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateNoticeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.Service.CreateNotice(r.Context(), dto, user.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, n)
}

func (h *Handler) UpdateNotice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid notice ID")
		return
	}

	var dto UpdateNoticeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.Service.UpdateNotice(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid notice ID")
		return
	}

	if err := h.Service.DeleteNotice(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "notice deleted"})
}
