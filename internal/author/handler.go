package author

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
	ListAuthors(ctx context.Context, limit, offset int) ([]*Author, error)
	GetAuthor(ctx context.Context, id int64) (*Author, error)
	CreateAuthor(ctx context.Context, dto CreateAuthorDTO) (*Author, error)
	ImportAuthor(ctx context.Context, dto ImportAuthorDTO, userID int64) (*Author, error)
	UpdateAuthor(ctx context.Context, id int64, dto UpdateAuthorDTO) (*Author, error)
	DeleteAuthor(ctx context.Context, id int64) error
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

func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.Pagination(r, 20, 100)

	authors, err := h.Service.ListAuthors(r.Context(), limit, offset)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"authors": authors,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid author ID")
		return
	}

	a, err := h.Service.GetAuthor(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var dto CreateAuthorDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateAuthor: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Service.CreateAuthor(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) ImportAuthor(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto ImportAuthorDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ImportAuthor: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Service.ImportAuthor(r.Context(), dto, user.ID)
	if err != nil {
		h.Logger.Error("ImportAuthor: service error",
			"key", dto.OpenLibraryKey, "user_id", user.ID, "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid author ID")
		return
	}

	var dto UpdateAuthorDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Service.UpdateAuthor(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid author ID")
		return
	}

	if err := h.Service.DeleteAuthor(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "author deleted"})
}
