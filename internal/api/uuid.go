package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// sessionIDParam parses the {sessionID} URL parameter. On failure it writes a
// 400 and returns false.
func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid session_id")
		return uuid.Nil, false
	}
	return id, true
}
