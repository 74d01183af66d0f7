package entities

import "time"

type SessionResponse struct {
	ID              int       `json:"id"`
	SessionType     string    `json:"session_type"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants int       `json:"max_participants"`
	SpotsTaken      int       `json:"spots_taken"`
	SpotsAvailable  int       `json:"spots_available"`
	Price           int       `json:"price"`
}

type CreateSessionRequest struct {
	SessionType     string    `json:"session_type"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants int       `json:"max_participants"`
	Price           int       `json:"price"`
}

type GroupBookingRequest struct {
	StudentName     string `json:"student_name"`
	StudentEmail    string `json:"student_email"`
	StudentPhone    string `json:"student_phone"`
	SupervisorName  string `json:"supervisor_name,omitempty"`
	SupervisorPhone string `json:"supervisor_phone,omitempty"`
	PaymentMethod   string `json:"payment_method"`
}

type GroupBookingResponse struct {
	ID              int       `json:"id"`
	Code            string    `json:"code"`
	SessionID       int       `json:"session_id"`
	StudentName     string    `json:"student_name"`
	StudentEmail    string    `json:"student_email"`
	StudentPhone    string    `json:"student_phone"`
	SupervisorName  string    `json:"supervisor_name,omitempty"`
	SupervisorPhone string    `json:"supervisor_phone,omitempty"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	CreatedAt       time.Time `json:"created_at"`
}

type MoveGroupBookingRequest struct {
	ToSessionID int `json:"to_session_id"`
}
