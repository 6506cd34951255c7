package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/shared/middleware"
)

// UserService is the part of user.Service the auth endpoints need.
type UserService interface {
	SignUp(ctx context.Context, params user.SignUpParams) (*user.User, *user.Session, error)
	SignIn(ctx context.Context, email, password string) (*user.User, *user.Session, error)
	Logout(ctx context.Context, secret string) error
}

type AuthHandler struct {
	users   UserService
	cookies SessionCookies
}

func NewAuthHandler(users UserService, cookies SessionCookies) *AuthHandler {
	return &AuthHandler{users: users, cookies: cookies}
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User *user.User `json:"user"`
}

// HandleSignUp creates the identity, payment customer and profile in one call.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req user.SignUpParams
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	u, session, err := h.users.SignUp(r.Context(), req)
	if err != nil {
		var customerErr *dwolla.APIError
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			middleware.RespondWithError(w, http.StatusConflict, "An account with this email already exists")
		case errors.As(err, &customerErr) && customerErr.IsInvalidInput():
			middleware.RespondWithError(w, http.StatusBadRequest, "Profile was rejected by the payment network")
		case errors.Is(err, user.ErrProvisioningFailed):
			log.Printf("Error provisioning payment customer for %s: %v", req.Email, err)
			middleware.RespondWithError(w, http.StatusBadGateway, "Payment customer provisioning failed")
		default:
			log.Printf("Error signing up %s: %v", req.Email, err)
			middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to sign up")
		}
		return
	}

	h.cookies.Set(w, r, session)
	middleware.RespondWithJSON(w, http.StatusCreated, AuthResponse{User: u})
}

func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	u, session, err := h.users.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Printf("Error signing in %s: %v", req.Email, err)
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	h.cookies.Set(w, r, session)
	middleware.RespondWithJSON(w, http.StatusOK, AuthResponse{User: u})
}

// HandleLogout ends the session if there is one and always clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Logout(r.Context(), middleware.SessionToken(r, h.cookies.Name)); err != nil {
		log.Printf("Error ending session: %v", err)
	}

	h.cookies.Clear(w, r)
	w.WriteHeader(http.StatusNoContent)
}
