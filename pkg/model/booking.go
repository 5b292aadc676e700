package model

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Booking struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ProviderID           string    `json:"provider_id" bson:"provider_id" validate:"required"`
	ClientID             string    `json:"client_id" bson:"client_id" validate:"required"`
	Date                 string    `json:"date" bson:"date" validate:"required,booking_date"`
	Time                 string    `json:"time" bson:"time" validate:"required,slot_time"`
	ServiceIDs           []string  `json:"service_ids" bson:"service_ids" validate:"required,min=1,dive,required"`
	TotalPrice           float64   `json:"total_price" bson:"total_price" validate:"gte=0"`
	TotalDurationMinutes int       `json:"total_duration_minutes" bson:"total_duration_minutes" validate:"gte=0"`
	Status               string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// BookingRequest is the client-supplied shape for creating a booking.
// Totals and status are computed server-side, never accepted from callers.
type BookingRequest struct {
	ProviderID string   `json:"provider_id" validate:"required"`
	ClientID   string   `json:"client_id" validate:"required"`
	Date       string   `json:"date" validate:"required,booking_date"`
	Time       string   `json:"time" validate:"required,slot_time"`
	ServiceIDs []string `json:"service_ids" validate:"required,min=1,dive,required"`
}

// TransitionAllowed reports whether a booking may move between two states.
// pending accepts confirmation or cancellation; confirmed only cancellation;
// cancelled is terminal.
func TransitionAllowed(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	default:
		return false
	}
}

// ActiveStatuses are the states in which a booking claims its ledger slot.
var ActiveStatuses = []string{StatusPending, StatusConfirmed}

// HoldsSlot reports whether the booking currently claims its ledger slot.
func (b *Booking) HoldsSlot() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}
