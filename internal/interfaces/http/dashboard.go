package http

import (
	"context"
	"log"
	"net/http"

	"horizon/internal/domain/dashboard"
	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

type DashboardService interface {
	GetHome(ctx context.Context, u *user.User) (*dashboard.Home, error)
}

type DashboardHandler struct {
	dashboard DashboardService
}

func NewDashboardHandler(svc DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: svc}
}

func (h *DashboardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	home, err := h.dashboard.GetHome(r.Context(), u)
	if err != nil {
		log.Printf("User %s: Error building dashboard: %v", u.ID, err)
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, home)
}
