package scheduling

import "github.com/clinic/clinic/pkg/civil"

// GenerateSlots returns every slot start from dayStart while before dayEnd,
// stepping by slotMinutes. It does not look at bookings.
func GenerateSlots(dayStart, dayEnd civil.Clock, slotMinutes int) []civil.Clock {
	if slotMinutes <= 0 || dayEnd <= dayStart {
		return nil
	}
	out := make([]civil.Clock, 0, int(dayEnd-dayStart)/slotMinutes+1)
	for t := dayStart; t < dayEnd; t = t.Add(slotMinutes) {
		out = append(out, t)
	}
	return out
}

// FilterBooked drops every slot whose start equals a booked start time.
// Durations are not considered: a 60 minute booking at 09:00 leaves 09:30 open.
func FilterBooked(slots []civil.Clock, booked []civil.Clock) []string {
	taken := make(map[civil.Clock]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if !taken[s] {
			out = append(out, s.String())
		}
	}
	return out
}
