// Package handler exposes session stores over a JSON HTTP API and a
// websocket that streams store snapshots.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sopflow/internal/export"
	"sopflow/internal/flowstore"
	"sopflow/internal/gateway/middleware"
	"sopflow/internal/gateway/session"
	"sopflow/internal/settings"
	"sopflow/internal/util/jsonutil"
)

// maxBody bounds request bodies; uploaded documents arrive base64 encoded.
const maxBody = 20 << 20

type Service struct {
	sessions *session.Manager
	settings *settings.Manager
	exporter export.Exporter
}

func NewService(sessions *session.Manager, mgr *settings.Manager, exporter export.Exporter) *Service {
	return &Service{sessions: sessions, settings: mgr, exporter: exporter}
}

// Routes builds the router. origins configures CORS.
func (s *Service) Routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(origins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/sample", s.handleSample)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.withStore)
			r.Get("/", s.handleSnapshot)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/ws", s.handleWS)
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/chat", s.handleChat)
			r.Post("/steps", s.handleAddStep)
			r.Put("/steps/{stepId}", s.handleUpdateStep)
			r.Post("/reorder", s.handleReorder)
			r.Get("/flow", s.handleFlow)
			r.Post("/document", s.handleRenderDocument)
			r.Delete("/document", s.handleClearDocument)
			r.Post("/document/export", s.handleExport)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return false
	}
	return true
}

// opResponse is the reply to a model-backed operation. The operation's
// failure is also in the transcript; Error repeats it for API clients.
type opResponse struct {
	flowstore.Snapshot
	Error string `json:"error,omitempty"`
}

func writeOp(w http.ResponseWriter, st *flowstore.Store, err error) {
	out := opResponse{Snapshot: st.Snapshot()}
	if err != nil {
		out.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}
