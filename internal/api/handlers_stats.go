package api

import (
	"net/http"
)

func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"model":   s.cfg.ModelName,
		"enabled": s.cfg.ModelEnabled(),
		"workers": s.deps.Orchestrator.Workers(),
		"queue":   s.deps.Orchestrator.QueueDepth(),
	}
	if s.deps.Controller != nil {
		resp["probe_failures"] = s.deps.Controller.Failures()
		resp["retry_cap"] = s.cfg.ModelRetryCap
	}
	if s.deps.Model != nil {
		resp["loaded"] = s.deps.Model.Loaded()
		if st := s.deps.Model.Stats(); st != nil {
			resp["stats"] = st.Snapshot()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
