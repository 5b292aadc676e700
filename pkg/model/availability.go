package model

import "time"

// DayHours is one weekday's entry in a provider's recurring template.
// Times are provider-local wall-clock "HH:MM" strings; zero-padded, so
// lexicographic order is chronological order.
type DayHours struct {
	IsOpen    bool   `json:"is_open" bson:"is_open"`
	StartTime string `json:"start_time" bson:"start_time" validate:"required_if=IsOpen true,omitempty,slot_time"`
	EndTime   string `json:"end_time" bson:"end_time" validate:"required_if=IsOpen true,omitempty,slot_time"`
}

// DailyAvailability is the per-(provider, date) override and ledger record.
// AvailableSlots, when non-empty, replaces the template grid for that date.
// BookedSlots is the authoritative set of claimed start-times; it is only
// ever mutated by reserve and release.
type DailyAvailability struct {
	ID             string    `json:"id" bson:"_id"`
	ProviderID     string    `json:"provider_id" bson:"provider_id" validate:"required"`
	Date           string    `json:"date" bson:"date" validate:"required,booking_date"`
	AvailableSlots []string  `json:"available_slots" bson:"available_slots" validate:"omitempty,dive,slot_time"`
	BookedSlots    []string  `json:"booked_slots" bson:"booked_slots" validate:"omitempty,dive,slot_time"`
	LastUpdated    time.Time `json:"last_updated" bson:"last_updated" validate:"omitempty"`
}

// DailyAvailabilityID builds the record key for a provider and date.
func DailyAvailabilityID(providerID, date string) string {
	return providerID + "_" + date
}
