package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// parseClock converts a zero-padded "HH:MM" string to minutes since midnight.
func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}

	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}

	return hours*60 + minutes, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GenerateGrid produces the slot start times for a working window. A start
// time is generated only when the full slot width fits before the end time,
// so a 09:00-09:47 window at 15 minutes yields 09:00, 09:15 and 09:30 but
// never 09:45.
func GenerateGrid(startTime, endTime string, slotWidthMinutes int) ([]string, error) {
	if slotWidthMinutes <= 0 {
		return nil, fmt.Errorf("slot width must be positive, got %d", slotWidthMinutes)
	}

	start, err := parseClock(startTime)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(endTime)
	if err != nil {
		return nil, err
	}

	slots := []string{}
	for current := start; current+slotWidthMinutes <= end; current += slotWidthMinutes {
		slots = append(slots, formatClock(current))
	}

	return slots, nil
}

// SubtractBooked filters booked start times out of a slot list and returns
// the remainder in ascending order. Zero-padded HH:MM strings sort
// chronologically, so plain string sorting is enough.
func SubtractBooked(slots, booked []string) []string {
	taken := make(map[string]bool, len(booked))
	for _, slot := range booked {
		taken[slot] = true
	}

	open := []string{}
	for _, slot := range slots {
		if !taken[slot] {
			open = append(open, slot)
		}
	}

	sort.Strings(open)
	return open
}
