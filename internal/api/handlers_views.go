package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/linggen/linggen-editor/internal/bridge"
	"github.com/linggen/linggen-editor/internal/view"
)

// maxEventBody caps a POSTed UI event.
const maxEventBody = 16 << 10

type viewSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// GET /api/views
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	s.viewsMu.RLock()
	out := make([]viewSummary, 0, len(s.views))
	for id, p := range s.views {
		out = append(out, viewSummary{ID: id, Title: p.Title(), URL: "/views/" + id})
	}
	s.viewsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]interface{}{"views": out})
}

// lookupView resolves {id} or writes a 404.
func (s *Server) lookupView(w http.ResponseWriter, r *http.Request) (*bridge.Panel, bool) {
	id := r.PathValue("id")
	p, ok := s.View(id)
	if !ok {
		writeError(w, http.StatusNotFound, "VIEW_NOT_FOUND", "no open view with id "+id)
		return nil, false
	}
	return p, true
}

// GET /views/{id}
func (s *Server) handleViewPage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	page, err := view.RenderPage(view.PageData{
		Title:     p.Title(),
		ViewID:    p.ID(),
		WSPath:    "/views/" + p.ID() + "/ws",
		EventPath: "/views/" + p.ID() + "/events",
	})
	if err != nil {
		slog.Error("render view page failed", "view_id", p.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "RENDER_FAILED", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// GET /views/{id}/state
func (s *Server) handleViewState(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	st, ok := p.State(r.Context())
	if !ok {
		writeError(w, http.StatusGone, "VIEW_CLOSED", "view is closing")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /views/{id}/events
func (s *Server) handleViewEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupView(w, r)
	if !ok {
		return
	}

	var ev bridge.UIEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid event body: "+err.Error())
		return
	}
	if ev.Type == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELD", "type is required")
		return
	}

	if !p.Dispatch(ev) {
		writeError(w, http.StatusServiceUnavailable, "VIEW_BUSY", "event not accepted")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
