package models

import "strings"

// Booking statuses as reported by the remote booking API. The client models
// a two-state lifecycle: a booking is confirmed until it is cancelled, and
// cancelled is terminal.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Customer is the optional customer sub-record attached to a booking.
type Customer struct {
	Title     string `json:"title,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
	Email     string `json:"email,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
}

// FullName returns "First Surname" with missing parts trimmed away.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.Surname)
}

// Booking represents one reservation as returned by the remote API. The
// reference and the timestamps are server-assigned and read-only here.
type Booking struct {
	Reference       string    `json:"booking_reference"`
	ID              int64     `json:"booking_id,omitempty"`
	Restaurant      string    `json:"restaurant,omitempty"`
	VisitDate       string    `json:"visit_date"` // YYYY-MM-DD
	VisitTime       string    `json:"visit_time"` // HH:MM:SS
	PartySize       int       `json:"party_size"`
	Status          string    `json:"status"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	Customer        *Customer `json:"customer,omitempty"`
	CreatedAt       string    `json:"created_at,omitempty"`
	UpdatedAt       string    `json:"updated_at,omitempty"`
}

// IsCancelled reports whether the booking reached its terminal state.
func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// CanModify reports whether date/time/party/notes changes are still allowed.
// Cancelled bookings accept no further mutation; the remote API is the
// actual enforcer, this only drives what the pages offer.
func (b *Booking) CanModify() bool {
	return !b.IsCancelled()
}

// CanCancel reports whether a cancellation may still be requested.
func (b *Booking) CanCancel() bool {
	return !b.IsCancelled()
}

// EmailMatches compares the booking's customer email against a user-supplied
// one, case-insensitively. A booking without a customer email never matches.
func (b *Booking) EmailMatches(email string) bool {
	if b.Customer == nil || b.Customer.Email == "" {
		return false
	}
	return strings.EqualFold(b.Customer.Email, strings.TrimSpace(email))
}

// Slot is one ephemeral availability result for a searched date and party
// size. Slots are never persisted; every search recomputes them.
type Slot struct {
	Time            string `json:"time"` // HH:MM:SS
	Available       bool   `json:"available"`
	MaxPartySize    int    `json:"max_party_size"`
	CurrentBookings int    `json:"current_bookings"`
}

// Bookable reports whether the slot may be offered as a booking target.
func (s *Slot) Bookable() bool {
	return s.Available
}

// CancellationReason is a server-defined enum value required to cancel a
// booking. The client only selects from the list, it never mutates it.
type CancellationReason struct {
	ID          int64  `json:"id"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
}
