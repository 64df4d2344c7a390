package genre

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/openshelf/openshelf/internal/transport"
)

type ServiceAPI interface {
	ListGenres(ctx context.Context) ([]*Genre, error)
	GetGenre(ctx context.Context, id int64) (*Genre, error)
	CreateGenre(ctx context.Context, dto CreateGenreDTO) (*Genre, error)
	UpdateGenre(ctx context.Context, id int64, dto UpdateGenreDTO) (*Genre, error)
	DeleteGenre(ctx context.Context, id int64) error
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

func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.Service.ListGenres(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"genres": genres})
}

func (h *Handler) GetGenre(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid genre ID")
		return
	}

	g, err := h.Service.GetGenre(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, g)
}

func (h *Handler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	var dto CreateGenreDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateGenre: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.Service.CreateGenre(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, g)
}

func (h *Handler) UpdateGenre(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid genre ID")
		return
	}

	var dto UpdateGenreDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.Service.UpdateGenre(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, g)
}

func (h *Handler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid genre ID")
		return
	}

	if err := h.Service.DeleteGenre(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "genre deleted"})
}
