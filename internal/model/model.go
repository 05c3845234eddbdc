package model

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}

type PaymentMethod string

const (
	PaymentStripe PaymentMethod = "stripe"
	PaymentPayPal PaymentMethod = "paypal"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type Event struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description,omitempty" json:"description,omitempty"`
	Date          time.Time `db:"date" json:"date"`
	StartTime     string    `db:"start_time" json:"start_time"`
	Price         int       `db:"price" json:"price"`
	MaxSeats      int       `db:"max_seats" json:"max_seats"`
	FeaturedImage string    `db:"featured_image,omitempty" json:"featured_image,omitempty"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// EventAvailability is an event together with its seat accounting.
type EventAvailability struct {
	Event
	TicketsTaken    int `json:"-"`
	RegisteredCount int `json:"registered_count"`
	AvailableSeats  int `json:"available_seats"`
}

type Registration struct {
	ID                   string        `db:"id" json:"id"`
	EventID              string        `db:"event_id" json:"event_id"`
	FullName             string        `db:"full_name" json:"full_name"`
	Email                string        `db:"email" json:"email"`
	Phone                string        `db:"phone" json:"phone"`
	TicketCount          int           `db:"ticket_count" json:"ticket_count"`
	PaymentStatus        PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod        PaymentMethod `db:"payment_method" json:"payment_method"`
	MembershipID         *string       `db:"membership_id" json:"membership_id,omitempty"`
	IsFreeWithMembership bool          `db:"is_free_with_membership" json:"is_free_with_membership"`
	BroughtFriend        bool          `db:"brought_friend" json:"brought_friend"`
	PaymentCode          *string       `db:"payment_code" json:"-"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
}

type Membership struct {
	ID            string        `db:"id" json:"id"`
	FullName      string        `db:"full_name" json:"full_name"`
	Email         string        `db:"email" json:"email"`
	Phone         string        `db:"phone" json:"phone"`
	StartDate     time.Time     `db:"start_date" json:"start_date"`
	EndDate       time.Time     `db:"end_date" json:"end_date"`
	EventsUsed    int           `db:"events_used" json:"events_used"`
	FriendUsed    bool          `db:"friend_used" json:"friend_used"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// Expired reports whether the membership window closed before today.
func (m Membership) Expired(today time.Time) bool {
	return m.EndDate.Before(truncateDay(today))
}

type Profile struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name,omitempty"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	Role         Role      `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Actor is the authenticated caller of an admin operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.UserID != "" && a.Role == RoleAdmin
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
