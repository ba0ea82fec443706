package httpx

import (
	"net/http"
	"strconv"
	"strings"
)

type contentRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (r *Router) handleListContent(w http.ResponseWriter, req *http.Request) {
	info, ok := r.activeTeam(w, req)
	if !ok {
		return
	}
	query := req.URL.Query()
	limit, ok := queryInt(w, query.Get("limit"), "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(w, query.Get("offset"), "offset")
	if !ok {
		return
	}
	items, err := r.content.List(req.Context(), info.TeamID, info.UserID, strings.TrimSpace(query.Get("kind")), limit, offset)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]contentView, 0, len(items))
	for _, item := range items {
		out = append(out, toContentView(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "team_id": info.TeamID})
}

func (r *Router) handleCreateContent(w http.ResponseWriter, req *http.Request) {
	info, ok := r.activeTeam(w, req)
	if !ok {
		return
	}
	var payload contentRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	item, err := r.content.Create(req.Context(), info.TeamID, info.UserID, payload.Kind, payload.Title, payload.Body)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContentView(*item))
}

func (r *Router) handleGetContent(w http.ResponseWriter, req *http.Request) {
	info, ok := r.activeTeam(w, req)
	if !ok {
		return
	}
	item, err := r.content.Get(req.Context(), info.TeamID, info.UserID, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(*item))
}

func (r *Router) handleUpdateContent(w http.ResponseWriter, req *http.Request) {
	info, ok := r.activeTeam(w, req)
	if !ok {
		return
	}
	var payload contentRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	item, err := r.content.Update(req.Context(), info.TeamID, info.UserID, req.PathValue("id"), payload.Title, payload.Body)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(*item))
}

func (r *Router) handleDeleteContent(w http.ResponseWriter, req *http.Request) {
	info, ok := r.activeTeam(w, req)
	if !ok {
		return
	}
	if err := r.content.Delete(req.Context(), info.TeamID, info.UserID, req.PathValue("id")); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(w http.ResponseWriter, raw, name string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeErrorCode(w, http.StatusBadRequest, "invalid_argument", name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
