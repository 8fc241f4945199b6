package web

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(s.stats.Report()); err != nil {
		s.log.Error().Err(err).Msg("encode stats report")
	}
}
