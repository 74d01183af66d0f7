package api

import (
	"encoding/json"
	"net/http"

	"trafikskolan/internal/auth"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/service"
)

type AuthHandler struct {
	Service       *service.AuthService
	CreditService *service.CreditService
}

func NewAuthHandler(svc *service.AuthService, creditSvc *service.CreditService) *AuthHandler {
	return &AuthHandler{Service: svc, CreditService: creditSvc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	resp, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	user, err := h.Service.Register(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, user)
}

// MyCredits handles GET /me/credits for the logged-in student.
func (h *AuthHandler) MyCredits(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	credits, err := h.CreditService.ListUserCredits(r.Context(), actor.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, credits)
}
