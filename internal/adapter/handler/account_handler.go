package handler

import (
	"context"
	"log/slog"
	"net/http"

	"btcinvest/internal/application/usecase"
	"btcinvest/internal/domain/model"
)

type AccountService interface {
	SignUp(ctx context.Context, in usecase.SignUpInput) (*model.Account, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	Deposit(ctx context.Context, userID string, amount float64) error
	Balance(ctx context.Context, userID string) (float64, error)
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type signUpResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signInResponse struct {
	AccessToken string `json:"accessToken"`
}

type depositRequest struct {
	Amount float64 `json:"amount" validate:"gt=0,lte=1000000000"`
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accounts.SignUp(r.Context(), usecase.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, signUpResponse{ID: account.ID, Name: account.Name, Email: account.Email})
}

func (h *AccountHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{AccessToken: token})
}

func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, model.ErrUnauthorized)
		return
	}

	var req depositRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.Deposit(r.Context(), userID, req.Amount); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, model.ErrUnauthorized)
		return
	}

	balance, err := h.accounts.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}
