package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"horizon/internal/domain/linking"
	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

// LinkService is implemented by linking.Orchestrator.
type LinkService interface {
	CreateLinkToken(ctx context.Context, u *user.User) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string, u *user.User) (*linking.Result, error)
}

type LinkHandler struct {
	links LinkService
}

func NewLinkHandler(links LinkService) *LinkHandler {
	return &LinkHandler{links: links}
}

type LinkTokenResponse struct {
	LinkToken string `json:"linkToken"`
}

type ExchangeRequest struct {
	PublicToken string `json:"publicToken"`
}

type ExchangeResponse struct {
	PublicTokenExchange string `json:"publicTokenExchange"`
}

type LinkErrorResponse struct {
	Error            string   `json:"error"`
	Kind             string   `json:"kind"`
	Step             string   `json:"step,omitempty"`
	Remote           []string `json:"remote,omitempty"`
	ReconciliationID string   `json:"reconciliationId,omitempty"`
}

func (h *LinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := h.links.CreateLinkToken(r.Context(), u)
	if err != nil {
		respondLinkError(w, u.ID, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, LinkTokenResponse{LinkToken: token})
}

// HandleExchangePublicToken runs the full linking pipeline. The empty-token
// check lives in the orchestrator so the error kind is consistent.
func (h *LinkHandler) HandleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ExchangeRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.links.ExchangePublicToken(r.Context(), req.PublicToken, u)
	if err != nil {
		respondLinkError(w, u.ID, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ExchangeResponse{PublicTokenExchange: result.Status})
}

func linkStatus(kind linking.Kind) int {
	switch kind {
	case linking.KindInvalidInput:
		return http.StatusBadRequest
	case linking.KindAlreadyLinked:
		return http.StatusConflict
	case linking.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var linkMessages = map[linking.Kind]string{
	linking.KindInvalidInput:        "The link request was rejected",
	linking.KindAlreadyLinked:       "This bank account is already linked",
	linking.KindUpstreamUnavailable: "A banking provider is unavailable, please retry",
	linking.KindPartialFailure:      "Linking failed and cleanup is pending",
}

func respondLinkError(w http.ResponseWriter, userID string, err error) {
	var linkErr *linking.Error
	if !errors.As(err, &linkErr) {
		log.Printf("User %s: Unexpected link error: %v", userID, err)
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to link bank account")
		return
	}

	if linkErr.Kind == linking.KindPartialFailure || linkErr.Kind == linking.KindUpstreamUnavailable {
		log.Printf("User %s: %v", userID, linkErr)
	}

	middleware.RespondWithJSON(w, linkStatus(linkErr.Kind), LinkErrorResponse{
		Error:            linkMessages[linkErr.Kind],
		Kind:             string(linkErr.Kind),
		Step:             string(linkErr.Step),
		Remote:           linkErr.Remote,
		ReconciliationID: linkErr.ReconciliationID,
	})
}
