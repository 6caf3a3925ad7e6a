package scheduler

import (
	"math"

	"github.com/caseflow/schedule-service/internal/models"
)

// normalize reconstructs the display shape from a stored record: date and
// time split from the start timestamp, duration recovered from the stored
// range. Records predating the type column fall back to the virtual flag.
func normalize(record models.Event) models.CalendarEvent {
	eventType := record.Type
	if eventType == "" {
		if record.IsVirtual {
			eventType = models.TypeCall
		} else {
			eventType = models.TypeMeeting
		}
	}

	participants := record.Attendees
	if participants == nil {
		participants = []string{}
	}

	return models.CalendarEvent{
		ID:           record.ID.String(),
		Title:        record.Title,
		Description:  record.Description,
		Date:         record.StartTime.Format("2006-01-02"),
		Time:         record.StartTime.Format("15:04"),
		Duration:     int(math.Round(record.EndTime.Sub(record.StartTime).Minutes())),
		Type:         eventType,
		Participants: participants,
		Location:     record.Location,
		Notes:        record.Notes,
		MeetingLink:  record.MeetingLink,
	}
}
