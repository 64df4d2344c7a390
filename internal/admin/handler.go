package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/openshelf/openshelf/internal/audit"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/internal/transport"
)

// Handler exposes administrative views: the authorization audit trail and
// a manual trigger for the stale-import sweep.
type Handler struct {
	*transport.BaseHandler
	sink          audit.Sink
	importers     []*importer.Service
	defaultMaxAge time.Duration
}

func NewHandler(baseHandler *transport.BaseHandler, sink audit.Sink, importers []*importer.Service, defaultMaxAge time.Duration) *Handler {
	return &Handler{
		BaseHandler:   baseHandler,
		sink:          sink,
		importers:     importers,
		defaultMaxAge: defaultMaxAge,
	}
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.Pagination(r, 100, 1000)

	entries := h.sink.List()
	total := len(entries)

	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries[offset:end],
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

type cleanupRequest struct {
	MaxAgeHours *int `json:"max_age_hours,omitempty"`
}

// TriggerCleanup sweeps stale temporary imports across every importable
// entity kind and reports how many rows each sweep removed.
func (h *Handler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	maxAge := h.defaultMaxAge

	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.MaxAgeHours != nil {
		if *req.MaxAgeHours < 0 {
			h.WriteError(w, http.StatusBadRequest, "max_age_hours cannot be negative")
			return
		}
		maxAge = time.Duration(*req.MaxAgeHours) * time.Hour
	}

	removed := make(map[string]int64, len(h.importers))
	for _, svc := range h.importers {
		n, err := svc.CleanupTemporaries(r.Context(), maxAge)
		if err != nil {
			h.Logger.Error("cleanup sweep failed", "kind", svc.Kind(), "error", err)
			h.WriteAppError(w, err)
			return
		}
		removed[svc.Kind()] = n
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"max_age": maxAge.String(),
	})
}
