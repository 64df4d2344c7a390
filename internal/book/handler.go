package book

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/openshelf/openshelf/internal/transport"
)

type ServiceAPI interface {
	ListBooks(ctx context.Context, limit, offset int) ([]*Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	CreateBook(ctx context.Context, dto CreateBookDTO) (*Book, error)
	UpdateBook(ctx context.Context, id int64, dto UpdateBookDTO) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error
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

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.Pagination(r, 20, 100)

	books, err := h.Service.ListBooks(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("ListBooks: service error", "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"books":  books,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.Logger.Error("GetBook: invalid book ID", "id", chi.URLParam(r, "id"))
		h.WriteError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	b, err := h.Service.GetBook(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var dto CreateBookDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateBook: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.Service.CreateBook(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	var dto UpdateBookDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateBook: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.Service.UpdateBook(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	if err := h.Service.DeleteBook(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "book deleted"})
}
