package entities

import "time"

type CreditResponse struct {
	ID               int    `json:"id"`
	LessonTypeID     int    `json:"lesson_type_id,omitempty"`
	CreditType       string `json:"credit_type"`
	CreditsRemaining int    `json:"credits_remaining"`
	CreditsTotal     int    `json:"credits_total"`
}

type AddCreditsRequest struct {
	UserID       int    `json:"user_id"`
	LessonTypeID int    `json:"lesson_type_id,omitempty"`
	CreditType   string `json:"credit_type"`
	Amount       int    `json:"amount"`
}

type CreatePaymentRequest struct {
	Method      string `json:"method"` // swish or qliro
	PhoneNumber string `json:"phone_number,omitempty"`
}

type CreatePaymentResponse struct {
	MerchantRef string `json:"merchant_ref"`
	Method      string `json:"method"`
	PaymentURL  string `json:"payment_url,omitempty"`
	Token       string `json:"token,omitempty"`
}

// SwishCallback is the payload Swish posts when a payment request settles.
type SwishCallback struct {
	ID               string `json:"id"`
	PayeePaymentRef  string `json:"payeePaymentReference"`
	PaymentReference string `json:"paymentReference"`
	Status           string `json:"status"` // PAID, DECLINED, ERROR, CANCELLED
	Amount           int    `json:"amount"`
	ErrorCode        string `json:"errorCode,omitempty"`
}

// QliroCallback is Qliro's order-status notification.
type QliroCallback struct {
	OrderID           string `json:"OrderId"`
	MerchantReference string `json:"MerchantReference"`
	Status            string `json:"Status"` // Completed, Refunded, Refused, Cancelled
}

type BookingEmailData struct {
	UserName           string
	BookingCode        string
	LessonName         string
	StartTimeFormatted string
	EndTimeFormatted   string
	Status             string
	CurrentYear        int
}

type SlotTemplateRequest struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"` // HH:MM
	End     string `json:"end"`
	Active  bool   `json:"active"`
}

type BlockedSlotRequest struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type SlotTemplateResponse struct {
	ID      int    `json:"id"`
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Active  bool   `json:"active"`
}

type BlockedSlotResponse struct {
	ID     int       `json:"id"`
	Date   time.Time `json:"date"`
	Start  string    `json:"start,omitempty"`
	End    string    `json:"end,omitempty"`
	Reason string    `json:"reason,omitempty"`
}
