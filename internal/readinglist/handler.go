package readinglist

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
	CreateList(ctx context.Context, dto CreateListDTO, userID int64) (*ReadingList, error)
	GetList(ctx context.Context, id int64) (*ReadingList, error)
	ListForUser(ctx context.Context, userID int64) ([]*ReadingList, error)
	UpdateList(ctx context.Context, id int64, dto UpdateListDTO) (*ReadingList, error)
	DeleteList(ctx context.Context, id int64) error
	GetItems(ctx context.Context, listID int64) ([]*Item, error)
	AddItem(ctx context.Context, listID int64, dto AddItemDTO) (*Item, error)
	RemoveItem(ctx context.Context, itemID int64) error
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

func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateListDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.Service.CreateList(r.Context(), dto, user.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, l)
}

func (h *Handler) ListMyLists(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	lists, err := h.Service.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"reading_lists": lists})
}

func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	l, err := h.Service.GetList(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	items, err := h.Service.GetItems(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reading_list": l,
		"items":        items,
	})
}

func (h *Handler) UpdateList(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	var dto UpdateListDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.Service.UpdateList(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	if err := h.Service.DeleteList(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "reading list deleted"})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	listID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	var dto AddItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.AddItem(r.Context(), listID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	if err := h.Service.RemoveItem(r.Context(), itemID); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "item removed"})
}
