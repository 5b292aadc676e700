package model

import (
	"time"
)

// ServiceDefinition is one entry of a provider's service catalogue.
// Bookings snapshot price and duration at creation time, so later edits
// here never rewrite existing bookings.
type ServiceDefinition struct {
	Name            string  `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Price           float64 `json:"price" bson:"price" validate:"gte=0"`
	DurationMinutes int     `json:"duration_minutes" bson:"duration_minutes" validate:"required,min=1,max=480"`
}

type Provider struct {
	ID                 string                       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name               string                       `json:"name" bson:"name" validate:"required,min=2,max=100"`
	WeeklyAvailability map[string]DayHours          `json:"weekly_availability" bson:"weekly_availability" validate:"omitempty"`
	Services           map[string]ServiceDefinition `json:"services" bson:"services" validate:"omitempty,dive"`
	CreatedAt          time.Time                    `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Weekdays holds the canonical lowercase keys of WeeklyAvailability.
var Weekdays = []string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// WeekdayOfDate resolves a "YYYY-MM-DD" date to its WeeklyAvailability key.
func WeekdayOfDate(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return Weekdays[int(t.Weekday())], nil
}

// ResolveServices maps the requested service IDs against the catalogue.
// The second return value lists IDs the provider does not offer.
func (p *Provider) ResolveServices(serviceIDs []string) ([]ServiceDefinition, []string) {
	resolved := make([]ServiceDefinition, 0, len(serviceIDs))
	var unknown []string
	for _, id := range serviceIDs {
		svc, ok := p.Services[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		resolved = append(resolved, svc)
	}
	return resolved, unknown
}
