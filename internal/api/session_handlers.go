package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"trafikskolan/internal/auth"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/service"

	"github.com/gorilla/mux"
)

type SessionHandler struct {
	Service *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{Service: svc}
}

// ListSessions handles GET /sessions?type=teori|handledar.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Service.ListUpcoming(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sessions)
}

// ReserveSeat handles POST /sessions/{id}/bookings. Guests may book without
// an account, so a missing actor is fine here.
func (h *SessionHandler) ReserveSeat(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid session id"))
		return
	}

	var req entities.GroupBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	booking, err := h.Service.ReserveSeat(r.Context(), sessionID, actor.UserID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, toGroupBookingResponse(booking))
}

// GetGroupBooking handles GET /group-bookings/{code}. The booking code is a
// uuid handed out at reservation time; sequential ids are never exposed on
// the public surface.
func (h *SessionHandler) GetGroupBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.GetBookingByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, toGroupBookingResponse(booking))
}

func (h *SessionHandler) CancelSeat(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.CancelSeat(r.Context(), mux.Vars(r)["code"]); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "seat released"})
}

func (h *SessionHandler) MoveSeat(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid booking id"))
		return
	}

	var req entities.MoveGroupBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	if err := h.Service.MoveSeat(r.Context(), id, req.ToSessionID); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "seat moved"})
}
