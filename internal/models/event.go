package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an event for display grouping. It carries no
// scheduling semantics.
type EventType string

const (
	TypeMeeting EventType = "meeting"
	TypeCourt   EventType = "court"
	TypeCall    EventType = "call"
	TypeTask    EventType = "task"
)

// Duration rules applied when a submission omits or under-specifies
// the event length.
const (
	DefaultDurationMinutes = 60
	MinDurationMinutes     = 15
	DurationStepMinutes    = 15
)

// Event is the persisted record. Only the owner may mutate or delete it;
// attendees get read visibility.
type Event struct {
	ID                    uuid.UUID `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description,omitempty"`
	StartTime             time.Time `json:"startTime"`
	EndTime               time.Time `json:"endTime"`
	Owner                 string    `json:"owner"`
	Attendees             []string  `json:"attendees"`
	Location              string    `json:"location,omitempty"`
	IsVirtual             bool      `json:"isVirtual"`
	MeetingLink           string    `json:"meetingLink,omitempty"`
	Type                  EventType `json:"type"`
	Notes                 string    `json:"notes,omitempty"`
	ReminderOffsetMinutes int       `json:"reminderOffsetMinutes,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// EventRequest is the creation payload. endTime must come in already
// derived from startTime plus the requested duration; the store only
// checks that the range is well formed.
type EventRequest struct {
	Title                 string    `json:"title" validate:"required"`
	Description           string    `json:"description"`
	StartTime             time.Time `json:"startTime" validate:"required"`
	EndTime               time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Attendees             []string  `json:"attendees"`
	Location              string    `json:"location"`
	IsVirtual             bool      `json:"isVirtual"`
	MeetingLink           string    `json:"meetingLink"`
	Type                  EventType `json:"type"`
	Notes                 string    `json:"notes"`
	ReminderOffsetMinutes int       `json:"reminderOffsetMinutes"`
}

// EventPatch is a partial update. Nil fields keep their stored values.
type EventPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Attendees   *[]string  `json:"attendees"`
	Location    *string    `json:"location"`
	IsVirtual   *bool      `json:"isVirtual"`
	MeetingLink *string    `json:"meetingLink"`
	Type        *EventType `json:"type"`
	Notes       *string    `json:"notes"`
}

// CalendarEvent is the display-oriented shape the scheduling engine keeps
// in its working set. It is a denormalization of the wire format,
// reconstructed on every load: date and time are split out as strings and
// the duration is recovered from the stored time range.
//
// Unsynced marks an event that exists only in the local cache because the
// store could not be reached when it was created.
type CalendarEvent struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Duration     int       `json:"duration"`
	Type         EventType `json:"type"`
	Participants []string  `json:"participants"`
	Location     string    `json:"location"`
	Notes        string    `json:"notes"`
	MeetingLink  string    `json:"meetingLink"`
	Unsynced     bool      `json:"unsynced,omitempty"`
}
