package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/caseflow/schedule-service/internal/models"
)

// maxDayDisplay is how many events a month-grid cell lists before
// collapsing the rest into an overflow count.
const maxDayDisplay = 2

// DaySummary aggregates one day of a month grid.
type DaySummary struct {
	Day      int
	Count    int
	Display  []models.CalendarEvent
	Overflow int
}

// MonthGrid is the per-day projection of a month. LeadingWeekday is the
// weekday of day 1 (0=Sunday..6=Saturday) so a renderer knows how many
// blank cells precede it.
type MonthGrid struct {
	Year           int
	Month          time.Month
	LeadingWeekday int
	Days           []DaySummary
}

// DateKey formats a calendar date the way events declare theirs.
func DateKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// EventsOnDay returns the events declaring the given calendar date, in
// arrival order. Consumers that need chronological order sort afterwards.
func EventsOnDay(events []models.CalendarEvent, year int, month time.Month, day int) []models.CalendarEvent {
	key := DateKey(year, month, day)
	var matched []models.CalendarEvent
	for _, event := range events {
		if event.Date == key {
			matched = append(matched, event)
		}
	}
	return matched
}

// BuildMonthGrid buckets events into the days of the given month.
func BuildMonthGrid(events []models.CalendarEvent, year int, month time.Month) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	grid := MonthGrid{
		Year:           year,
		Month:          month,
		LeadingWeekday: int(first.Weekday()),
		Days:           make([]DaySummary, 0, daysInMonth),
	}

	for day := 1; day <= daysInMonth; day++ {
		dayEvents := EventsOnDay(events, year, month, day)
		summary := DaySummary{
			Day:     day,
			Count:   len(dayEvents),
			Display: dayEvents,
		}
		if len(dayEvents) > maxDayDisplay {
			summary.Display = dayEvents[:maxDayDisplay]
			summary.Overflow = len(dayEvents) - maxDayDisplay
		}
		grid.Days = append(grid.Days, summary)
	}

	return grid
}

// Search returns the events whose title or description contains the term,
// case-insensitively, keeping the input order.
func Search(events []models.CalendarEvent, term string) []models.CalendarEvent {
	needle := strings.ToLower(term)
	var matched []models.CalendarEvent
	for _, event := range events {
		if strings.Contains(strings.ToLower(event.Title), needle) ||
			strings.Contains(strings.ToLower(event.Description), needle) {
			matched = append(matched, event)
		}
	}
	return matched
}

// Upcoming sorts events by (date, time) ascending and returns the first
// limit entries. The input slice is not mutated.
func Upcoming(events []models.CalendarEvent, limit int) []models.CalendarEvent {
	sorted := make([]models.CalendarEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Time < sorted[j].Time
	})

	if limit < 0 {
		limit = 0
	}
	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}
