package http

import (
	"net/http"

	"horizon/internal/shared/middleware"
)

// HandleMe returns the signed-in user's profile.
func HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, u)
}
