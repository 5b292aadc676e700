package model

import (
	"reflect"
	"testing"
)

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPending, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{"unknown", StatusConfirmed, false},
	}

	for _, tt := range tests {
		if got := TransitionAllowed(tt.from, tt.to); got != tt.want {
			t.Errorf("TransitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestHoldsSlot(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusCancelled, false},
	}

	for _, tt := range tests {
		b := &Booking{Status: tt.status}
		if got := b.HoldsSlot(); got != tt.want {
			t.Errorf("HoldsSlot() with status %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestWeekdayOfDate(t *testing.T) {
	tests := []struct {
		date    string
		want    string
		wantErr bool
	}{
		{"2026-09-06", "sunday", false},
		{"2026-09-07", "monday", false},
		{"2026-09-12", "saturday", false},
		{"2026-02-28", "saturday", false},
		{"not-a-date", "", true},
		{"2026-13-01", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := WeekdayOfDate(tt.date)
		if tt.wantErr {
			if err == nil {
				t.Errorf("WeekdayOfDate(%q): expected error, got %q", tt.date, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("WeekdayOfDate(%q): unexpected error: %v", tt.date, err)
			continue
		}
		if got != tt.want {
			t.Errorf("WeekdayOfDate(%q) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestResolveServices(t *testing.T) {
	p := &Provider{
		Services: map[string]ServiceDefinition{
			"haircut": {Name: "Haircut", Price: 30, DurationMinutes: 30},
			"shave":   {Name: "Hot Towel Shave", Price: 20, DurationMinutes: 15},
		},
	}

	resolved, unknown := p.ResolveServices([]string{"haircut", "shave"})
	if len(resolved) != 2 || unknown != nil {
		t.Errorf("expected 2 resolved and no unknown, got %d resolved, unknown=%v", len(resolved), unknown)
	}

	resolved, unknown = p.ResolveServices([]string{"haircut", "massage", "facial"})
	if len(resolved) != 1 {
		t.Errorf("expected 1 resolved, got %d", len(resolved))
	}
	if !reflect.DeepEqual(unknown, []string{"massage", "facial"}) {
		t.Errorf("unknown = %v, want [massage facial]", unknown)
	}
}
