// Package calendar holds the pure, side-effect-free projections over an
// in-memory event snapshot: overlap detection for a candidate booking and
// the per-day aggregations that back month and day views.
package calendar

import (
	"strconv"
	"strings"

	"github.com/caseflow/schedule-service/internal/models"
)

// Conflicts reports every event in the snapshot whose time range overlaps
// the candidate's. Intervals are half-open [start, start+duration) in
// minutes since midnight, so back-to-back events do not conflict. Only
// events declaring the same calendar date are compared; cross-midnight
// durations are deliberately not followed onto the next day. The
// candidate's own id is excluded so an edit can be re-checked.
//
// The result is advisory: callers decide whether to proceed or abort.
func Conflicts(snapshot []models.CalendarEvent, candidate models.CalendarEvent) []models.CalendarEvent {
	a0 := minutesOfDay(candidate.Time)
	a1 := a0 + candidate.Duration

	var overlapping []models.CalendarEvent
	for _, event := range snapshot {
		if event.Date != candidate.Date {
			continue
		}
		if candidate.ID != "" && event.ID == candidate.ID {
			continue
		}

		b0 := minutesOfDay(event.Time)
		b1 := b0 + event.Duration
		if a0 < b1 && a1 > b0 {
			overlapping = append(overlapping, event)
		}
	}

	return overlapping
}

// minutesOfDay converts an "HH:MM" clock string to minutes since
// midnight. Malformed input counts as midnight.
func minutesOfDay(clock string) int {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return hours*60 + minutes
}
