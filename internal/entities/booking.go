package entities

import "time"

type CreateBookingRequest struct {
	LessonTypeID  int       `json:"lesson_type_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	PaymentMethod string    `json:"payment_method"`
}

type RescheduleBookingRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

type BookingResponse struct {
	ID            int       `json:"id"`
	Code          string    `json:"code"`
	UserID        int       `json:"user_id"`
	LessonTypeID  int       `json:"lesson_type_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AvailableSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type AvailableSlotsResponse struct {
	Date         string          `json:"date"`
	LessonTypeID int             `json:"lesson_type_id"`
	Slots        []AvailableSlot `json:"slots"`
}
