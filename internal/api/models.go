package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
)

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// respondError maps service errors to their HTTP status; anything without a
// status attached becomes a 500 with a generic message.
func respondError(w http.ResponseWriter, err error) {
	var httpErr *httperr.HTTPError
	if errors.As(err, &httpErr) {
		respond(w, httpErr.Code, map[string]any{"error": httpErr.Message})
		return
	}
	respond(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
}

func toBookingResponse(b *db.Booking) entities.BookingResponse {
	return entities.BookingResponse{
		ID:            b.ID,
		Code:          b.Code,
		UserID:        b.UserID,
		LessonTypeID:  b.LessonTypeID,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		PaymentMethod: b.PaymentMethod,
		CancelReason:  b.CancelReason.String,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toGroupBookingResponse(gb *db.GroupBooking) entities.GroupBookingResponse {
	return entities.GroupBookingResponse{
		ID:              gb.ID,
		Code:            gb.Code,
		SessionID:       gb.SessionID,
		StudentName:     gb.StudentName,
		StudentEmail:    gb.StudentEmail,
		StudentPhone:    gb.StudentPhone,
		SupervisorName:  gb.SupervisorName.String,
		SupervisorPhone: gb.SupervisorPhone.String,
		Status:          gb.Status,
		PaymentStatus:   gb.PaymentStatus,
		CreatedAt:       gb.CreatedAt,
	}
}
