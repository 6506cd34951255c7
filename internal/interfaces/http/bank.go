package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"horizon/internal/domain/bank"
	"horizon/internal/shared/middleware"
)

// BankService is the read side of bank.Service.
type BankService interface {
	ListBanks(ctx context.Context, userID string) ([]*bank.BankAccount, error)
	GetBank(ctx context.Context, id, userID string) (*bank.BankAccount, error)
	GetByShareableID(ctx context.Context, shareableID, userID string) (*bank.BankAccount, error)
}

type BankHandler struct {
	banks BankService
}

func NewBankHandler(banks BankService) *BankHandler {
	return &BankHandler{banks: banks}
}

func (h *BankHandler) HandleListBanks(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	banks, err := h.banks.ListBanks(r.Context(), u.ID)
	if err != nil {
		log.Printf("User %s: Error listing banks: %v", u.ID, err)
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to list banks")
		return
	}
	if banks == nil {
		banks = []*bank.BankAccount{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, banks)
}

func (h *BankHandler) HandleGetBank(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	b, err := h.banks.GetBank(r.Context(), r.PathValue("id"), u.ID)
	if err != nil {
		respondBankError(w, u.ID, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, b)
}

func (h *BankHandler) HandleGetSharedBank(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	b, err := h.banks.GetByShareableID(r.Context(), r.PathValue("shareableId"), u.ID)
	if err != nil {
		respondBankError(w, u.ID, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, b)
}

func respondBankError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, bank.ErrInvalidShareableID):
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid shareable ID")
	case errors.Is(err, bank.ErrBankAccountNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "Bank account not found")
	case errors.Is(err, bank.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, "Access denied")
	default:
		log.Printf("User %s: Error loading bank: %v", userID, err)
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to load bank")
	}
}
