package model

import "time"

type NotificationKind string

const (
	NotifyRegistrationConfirmed NotificationKind = "registration_confirmed"
	NotifyPaymentConfirmed      NotificationKind = "payment_confirmed"
)

// Notification is a request to tell a registrant about a registration or
// payment change. It carries everything needed to render the message.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	To             string           `json:"to"`
	AttendeeName   string           `json:"attendee_name"`
	RegistrationID string           `json:"registration_id"`
	EventTitle     string           `json:"event_title"`
	EventDate      time.Time        `json:"event_date"`
	EventTime      string           `json:"event_time"`
	TicketCount    int              `json:"ticket_count"`
	TotalAmount    int              `json:"total_amount"`
	PaymentStatus  PaymentStatus    `json:"payment_status"`
	PaymentMethod  PaymentMethod    `json:"payment_method"`
	Memo           string           `json:"memo,omitempty"`
	FreeMembership bool             `json:"free_with_membership"`
	BroughtFriend  bool             `json:"brought_friend"`
}
