// Configuration endpoint.

package api

import (
	"net/http"
)

// handleGetConfig returns the running configuration, including the file it
// was read from.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.cfg,
	})
}
