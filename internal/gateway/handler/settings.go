package handler

import (
	"net/http"

	"sopflow/internal/settings"
)

func (s *Service) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current().Redacted())
}

// handlePutSettings saves the dialog. Redacted secrets sent back unchanged
// keep their stored value.
func (s *Service) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg settings.AiConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	saved, err := s.settings.Save(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved.Redacted())
}
