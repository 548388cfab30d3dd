package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonathan/catalog-agent/internal/types"
)

// StageEvent is one stage update on a job event stream
type StageEvent struct {
	JobID  string            `json:"job_id"`
	Index  int               `json:"index"`
	Record types.StageRecord `json:"record"`
}

// handleJobEvents streams stage updates of a job as Server-Sent Events until
// the job settles or the client goes away.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report := s.orch.Status(r.Context(), id)
	if !report.Found {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	// last status sent per stage index
	sent := make(map[int]types.StageStatus)
	for {
		if report.Result != nil {
			for i, rec := range report.Result.Stages {
				if sent[i] == rec.Status {
					continue
				}
				if err := sse.WriteEvent("stage", StageEvent{JobID: id, Index: i, Record: rec}); err != nil {
					return
				}
				sent[i] = rec.Status
			}
		}

		if report.Status.IsTerminal() {
			sse.WriteComplete(id, string(report.Status))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		report = s.orch.Status(r.Context(), id)
		if !report.Found {
			sse.WriteError("job disappeared")
			return
		}
	}
}
