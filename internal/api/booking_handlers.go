package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"trafikskolan/internal/auth"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/service"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	Service *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// AvailableSlots handles GET /slots?date=YYYY-MM-DD&lesson_type_id=N.
func (h *BookingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, httperr.ErrValidation("date must be YYYY-MM-DD"))
		return
	}
	lessonTypeID, err := strconv.Atoi(r.URL.Query().Get("lesson_type_id"))
	if err != nil {
		respondError(w, httperr.ErrValidation("lesson_type_id is required"))
		return
	}

	slots, err := h.Service.AvailableSlots(r.Context(), date, lessonTypeID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, slots)
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var req entities.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	booking, err := h.Service.CreateBooking(r.Context(), actor.UserID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, toBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid booking id"))
		return
	}

	booking, err := h.Service.GetBooking(r.Context(), actor.UserID, actor.Role, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, toBookingResponse(booking))
}

// GetBookingByCode handles the public status lookup by booking code. The
// uuid code is the only credential; no session is required.
func (h *BookingHandler) GetBookingByCode(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.GetBookingByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	bookings, err := h.Service.ListUserBookings(r.Context(), actor.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	responses := make([]entities.BookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, toBookingResponse(&bookings[i]))
	}
	respond(w, http.StatusOK, responses)
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid booking id"))
		return
	}

	var req entities.RescheduleBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	booking, err := h.Service.Reschedule(r.Context(), actor.UserID, actor.Role, id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid booking id"))
		return
	}

	var req entities.CancelBookingRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.Service.Cancel(r.Context(), actor.UserID, actor.Role, id, req.Reason); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "booking cancelled"})
}
