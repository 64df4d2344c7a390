package rate

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
	CreateRate(ctx context.Context, dto CreateRateDTO, userID int64) (*Rate, error)
	GetRate(ctx context.Context, id int64) (*Rate, error)
	ListForBook(ctx context.Context, bookID int64, limit, offset int) ([]*Rate, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Rate, error)
	UpdateRate(ctx context.Context, id int64, dto UpdateRateDTO) (*Rate, error)
	DeleteRate(ctx context.Context, id int64) error
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

func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateRateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRate: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rt, err := h.Service.CreateRate(r.Context(), dto, user.ID)
	if err != nil {
		h.Logger.Error("CreateRate: service error", "user_id", user.ID, "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, rt)
}

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid rate ID")
		return
	}

	rt, err := h.Service.GetRate(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rt)
}

func (h *Handler) ListBookRates(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	limit, offset := transport.Pagination(r, 20, 100)

	rates, err := h.Service.ListForBook(r.Context(), bookID, limit, offset)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rates":  rates,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) ListMyRates(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := transport.Pagination(r, 20, 100)

	rates, err := h.Service.ListForUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rates":  rates,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid rate ID")
		return
	}

	var dto UpdateRateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rt, err := h.Service.UpdateRate(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rt)
}

func (h *Handler) DeleteRate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid rate ID")
		return
	}

	if err := h.Service.DeleteRate(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "rate deleted"})
}
