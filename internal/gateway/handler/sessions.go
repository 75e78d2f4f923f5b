package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"sopflow/internal/export"
	"sopflow/internal/flowstore"
	"sopflow/internal/llm"
	"sopflow/internal/types"
)

type storeKey struct{}

func (s *Service) withStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		st, ok := s.sessions.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session: "+id)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), storeKey{}, st)))
	})
}

func storeFrom(r *http.Request) *flowstore.Store {
	return r.Context().Value(storeKey{}).(*flowstore.Store)
}

// opContext detaches model calls from the request so a closed tab does not
// abort a call whose result other subscribers are waiting for. The provider
// middleware bounds how long it may run.
func opContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Service) handleSample(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": types.SampleSOP})
}

func (s *Service) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, st := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "snapshot": st.Snapshot()})
}

func (s *Service) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, storeFrom(r).Snapshot())
}

// handleDeleteSession drops the session from the cache. Open websocket
// subscribers keep their connection until they close it.
func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var src llm.Source
	if !decodeJSON(w, r, &src) {
		return
	}
	st := storeFrom(r)
	writeOp(w, st, st.Analyze(opContext(r), src))
}

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	st := storeFrom(r)
	writeOp(w, st, st.Refine(opContext(r), in.Message))
}

func (s *Service) handleAddStep(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TaskID      string `json:"taskId"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.TaskID) == "" || strings.TrimSpace(in.Description) == "" {
		writeError(w, http.StatusBadRequest, "taskId and description are required")
		return
	}
	st := storeFrom(r)
	writeOp(w, st, st.AddStep(opContext(r), in.TaskID, in.Description))
}

func (s *Service) handleRenderDocument(w http.ResponseWriter, r *http.Request) {
	st := storeFrom(r)
	writeOp(w, st, st.RenderDocument(opContext(r)))
}

func (s *Service) handleClearDocument(w http.ResponseWriter, r *http.Request) {
	st := storeFrom(r)
	st.ClearDocument()
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Service) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	var step types.Step
	if !decodeJSON(w, r, &step) {
		return
	}
	id := chi.URLParam(r, "stepId")
	if step.ID == "" {
		step.ID = id
	}
	if step.ID != id {
		writeError(w, http.StatusBadRequest, "step id does not match the path")
		return
	}
	if !step.AutomationPotential.Valid() {
		writeError(w, http.StatusBadRequest, "automation_potential must be one of High, Medium, Low, None")
		return
	}
	st := storeFrom(r)
	if !st.UpdateStep(step) {
		writeError(w, http.StatusNotFound, "step not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Service) handleReorder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Kind           types.ReorderKind `json:"kind"`
		SourceParentID string            `json:"sourceParentId"`
		SourceIndex    int               `json:"sourceIndex"`
		DestParentID   string            `json:"destParentId"`
		DestIndex      int               `json:"destIndex"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Kind != types.ReorderTask && in.Kind != types.ReorderStep {
		writeError(w, http.StatusBadRequest, "kind must be task or step")
		return
	}
	st := storeFrom(r)
	if !st.Reorder(in.Kind, in.SourceParentID, in.SourceIndex, in.DestParentID, in.DestIndex) {
		writeError(w, http.StatusBadRequest, "reorder does not match the current flow")
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

// handleFlow returns the flow narrowed by ?q, ?role and ?potential, with
// the role list the filter bar offers.
func (s *Service) handleFlow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crit := types.Criteria{Query: q.Get("q"), Role: q.Get("role")}
	for _, raw := range q["potential"] {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			v := types.AutomationPotential(p)
			if !v.Valid() {
				writeError(w, http.StatusBadRequest, "unknown potential: "+p)
				return
			}
			crit.Potentials = append(crit.Potentials, v)
		}
	}
	snap := storeFrom(r).Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"processFlow": types.Filter(snap.Flow, crit),
		"roles":       types.Roles(snap.Flow),
		"potentials":  types.AutomationPotentials(),
	})
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "document export is not configured")
		return
	}
	snap := storeFrom(r).Snapshot()
	if strings.TrimSpace(snap.Document) == "" {
		writeError(w, http.StatusConflict, "no document has been rendered")
		return
	}
	name := ""
	if snap.Flow != nil {
		name = snap.Flow.ProcessName
	}
	loc, err := s.exporter.Export(r.Context(), chi.URLParam(r, "id"), export.Filename(name), []byte(snap.Document))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": loc})
}
