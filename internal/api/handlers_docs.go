package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists cached outlines, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		jsonError(w, "outline cache disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 1000)
	}

	entries, err := s.deps.Cache.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	docs := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, map[string]any{
			"hash":       e.Hash,
			"name":       e.Name,
			"tier":       e.Tier,
			"headings":   e.Headings,
			"outline":    e.Outline,
			"created_at": e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleDeleteDocument drops every cached tier of a document.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		jsonError(w, "outline cache disabled", http.StatusServiceUnavailable)
		return
	}
	hash := chi.URLParam(r, "hash")
	n, err := s.deps.Cache.Delete(r.Context(), hash)
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n == 0 {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	s.log.Info("cached outline deleted", "hash", hash, "tiers", n)
	writeJSON(w, http.StatusOK, map[string]any{"hash": hash, "deleted": n})
}
