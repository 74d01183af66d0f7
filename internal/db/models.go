package db

import (
	"database/sql"
	"time"
)

// Booking statuses.
const (
	StatusTemp      = "temp"
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Payment statuses.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Payment methods.
const (
	MethodSwish   = "swish"
	MethodQliro   = "qliro"
	MethodCredits = "credits"
	MethodAtDesk  = "pay_at_location"
)

// Group session types.
const (
	SessionTeori     = "teori"
	SessionHandledar = "handledar"
)

type User struct {
	ID           int
	Email        string
	Name         string
	Phone        string
	Role         string // student, teacher, admin
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LessonType struct {
	ID              int
	Name            string
	DurationMinutes int
	Price           int // öre
	Active          bool
}

type Booking struct {
	ID            int
	Code          string
	UserID        int
	LessonTypeID  int
	StartTime     time.Time
	EndTime       time.Time
	Status        string
	PaymentStatus string
	PaymentMethod string
	MerchantRef   sql.NullString
	CancelReason  sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type GroupSession struct {
	ID                  int
	SessionType         string
	Title               string
	StartTime           time.Time
	EndTime             time.Time
	MaxParticipants     int
	CurrentParticipants int
	Price               int
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type GroupBooking struct {
	ID              int
	Code            string
	SessionID       int
	UserID          sql.NullInt64
	StudentName     string
	StudentEmail    string
	StudentPhone    string
	SupervisorName  sql.NullString
	SupervisorPhone sql.NullString
	Status          string
	PaymentStatus   string
	PaymentMethod   string
	MerchantRef     sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type UserCredit struct {
	ID               int
	UserID           int
	LessonTypeID     sql.NullInt64
	CreditType       string // lesson, handledar, teori
	CreditsRemaining int
	CreditsTotal     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type SlotTemplate struct {
	ID        int
	Weekday   int // 0 = Sunday, matching time.Weekday
	StartMin  int // minutes from midnight
	EndMin    int
	Active    bool
	CreatedAt time.Time
}

type BlockedSlot struct {
	ID       int
	Date     time.Time
	StartMin sql.NullInt64 // null blocks the whole day
	EndMin   sql.NullInt64
	Reason   sql.NullString
}

type SiteSetting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
