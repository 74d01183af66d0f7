package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/service"

	"github.com/gorilla/mux"
)

// AdminHandler groups the staff-only endpoints: schedule maintenance, group
// sessions, users, credits and site settings.
type AdminHandler struct {
	Bookings *service.BookingService
	Sessions *service.SessionService
	Schedule *service.ScheduleService
	Credits  *service.CreditService
	Auth     *service.AuthService
	Settings *service.SettingsProvider
}

func NewAdminHandler(
	bookings *service.BookingService,
	sessions *service.SessionService,
	schedule *service.ScheduleService,
	credits *service.CreditService,
	authSvc *service.AuthService,
	settings *service.SettingsProvider,
) *AdminHandler {
	return &AdminHandler{
		Bookings: bookings,
		Sessions: sessions,
		Schedule: schedule,
		Credits:  credits,
		Auth:     authSvc,
		Settings: settings,
	}
}

// Slot templates

func (h *AdminHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Schedule.ListTemplates(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, templates)
}

func (h *AdminHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req entities.SlotTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	tpl, err := h.Schedule.CreateTemplate(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"id": tpl.ID})
}

func (h *AdminHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid template id"))
		return
	}

	var req entities.SlotTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	if _, err := h.Schedule.UpdateTemplate(r.Context(), id, req); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "template updated"})
}

func (h *AdminHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid template id"))
		return
	}

	if err := h.Schedule.DeleteTemplate(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "template deleted"})
}

// Blocked slots

func (h *AdminHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, httperr.ErrValidation("date must be YYYY-MM-DD"))
		return
	}

	blocked, err := h.Schedule.ListBlocked(r.Context(), date)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, blocked)
}

func (h *AdminHandler) CreateBlocked(w http.ResponseWriter, r *http.Request) {
	var req entities.BlockedSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	blocked, err := h.Schedule.CreateBlocked(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"id": blocked.ID})
}

func (h *AdminHandler) DeleteBlocked(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid blocked slot id"))
		return
	}

	if err := h.Schedule.DeleteBlocked(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "blocked slot removed"})
}

// Bookings

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.ListBookings(r.Context(), r.URL.Query().Get("date"), r.URL.Query().Get("status"))
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

// Group sessions

func (h *AdminHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req entities.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	session, err := h.Sessions.Create(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"id": session.ID})
}

func (h *AdminHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid session id"))
		return
	}

	var req struct {
		Title           string    `json:"title"`
		StartTime       time.Time `json:"start_time"`
		EndTime         time.Time `json:"end_time"`
		MaxParticipants int       `json:"max_participants"`
		Price           int       `json:"price"`
		Active          bool      `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	session := &db.GroupSession{
		ID:              id,
		Title:           req.Title,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Price:           req.Price,
		Active:          req.Active,
	}
	if err := h.Sessions.Update(r.Context(), session); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "session updated"})
}

func (h *AdminHandler) ListSessionBookings(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid session id"))
		return
	}

	bookings, err := h.Sessions.ListBookings(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	responses := make([]entities.GroupBookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, toGroupBookingResponse(&bookings[i]))
	}
	respond(w, http.StatusOK, responses)
}

// Users and credits

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, users)
}

func (h *AdminHandler) CreateStaffUser(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	user, err := h.Auth.CreateStaffUser(r.Context(), req, req.Role)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, user)
}

func (h *AdminHandler) ListUserCredits(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid user id"))
		return
	}

	credits, err := h.Credits.ListUserCredits(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, credits)
}

func (h *AdminHandler) AddCredits(w http.ResponseWriter, r *http.Request) {
	var req entities.AddCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	credit, err := h.Credits.AddCredits(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"id": credit.ID, "credits_total": credit.CreditsTotal})
}

// Settings

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.All(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, settings)
}

func (h *AdminHandler) SetSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		respondError(w, httperr.ErrValidation("key and value are required"))
		return
	}

	if err := h.Settings.Set(r.Context(), req.Key, req.Value); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "setting saved"})
}
