// Package scheduler is the client side of the schedule subsystem: it
// holds a working set of calendar events, runs advisory conflict checks
// before a write, and reconciles optimistic local state with the event
// store, tolerating store unavailability.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caseflow/schedule-service/internal/calendar"
	"github.com/caseflow/schedule-service/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrTitleRequired rejects a submission with no title before any
	// write is attempted.
	ErrTitleRequired = errors.New("event title is required")

	// ErrInvalidDateTime rejects a submission whose date or time cannot
	// be parsed.
	ErrInvalidDateTime = errors.New("invalid event date or time")
)

// SubmitState tags the outcome of a submission so callers and tests can
// tell synced state from unsynced state.
type SubmitState int

const (
	// SubmitPersisted means the store accepted the event and assigned
	// its id.
	SubmitPersisted SubmitState = iota
	// SubmitLocalOnly means the store was unreachable; the event lives
	// in the local cache under a temporary id and may be lost on reload.
	SubmitLocalOnly
	// SubmitBlocked means conflicts were found and the caller has not
	// confirmed; nothing was written anywhere.
	SubmitBlocked
)

// SubmitResult is the tagged outcome of Submit.
type SubmitResult struct {
	State     SubmitState
	Event     models.CalendarEvent
	Conflicts []models.CalendarEvent
	Reason    error
}

// DeleteResult reports whether an optimistic deletion reached the store.
// The local removal stands either way.
type DeleteResult struct {
	Synced bool
	Reason error
}

// Draft is a user-proposed event before validation and defaulting. Only
// the title is required; date and time default to the current moment and
// the duration is normalized to the 15-minute grid.
type Draft struct {
	ID                    string
	Title                 string
	Description           string
	Date                  string // YYYY-MM-DD
	Time                  string // HH:MM
	Duration              int    // minutes
	Type                  models.EventType
	Participants          []string
	Location              string
	Notes                 string
	MeetingLink           string
	ReminderOffsetMinutes int
}

// Engine is the scheduling engine. It is driven from a single logical
// thread of control; aggregation and conflict detection are synchronous
// pure computations and only store calls suspend.
type Engine struct {
	store  *StoreClient
	log    zerolog.Logger
	now    func() time.Time
	events []models.CalendarEvent
}

func NewEngine(store *StoreClient, log zerolog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Events returns a copy of the working set.
func (e *Engine) Events() []models.CalendarEvent {
	snapshot := make([]models.CalendarEvent, len(e.events))
	copy(snapshot, e.events)
	return snapshot
}

// Load fetches the caller's visible events from the store and rebuilds
// the working set in display form. On store failure the previous working
// set is kept and returned alongside the error, so the calendar can
// still render.
func (e *Engine) Load(ctx context.Context, token string) ([]models.CalendarEvent, error) {
	stored, err := e.store.List(ctx, token)
	if err != nil {
		e.log.Warn().Err(err).Msg("Falling back to cached events, store unavailable")
		return e.Events(), err
	}

	events := make([]models.CalendarEvent, 0, len(stored))
	for _, record := range stored {
		events = append(events, normalize(record))
	}
	e.events = events
	return e.Events(), nil
}

// Conflicts runs the advisory overlap check for a draft against the
// current working set.
func (e *Engine) Conflicts(draft Draft) []models.CalendarEvent {
	prepared, err := e.prepare(draft)
	if err != nil {
		return nil
	}
	return calendar.Conflicts(e.events, prepared.calendarEvent(prepared.ID, false))
}

// Submit validates and defaults the draft, checks for conflicts, and
// attempts to persist. Conflicts block the write until the caller
// confirms. A store failure does not fail the submission: the event is
// kept locally under a temporary id and the result is tagged
// SubmitLocalOnly.
func (e *Engine) Submit(ctx context.Context, token string, draft Draft, confirmed bool) (SubmitResult, error) {
	prepared, err := e.prepare(draft)
	if err != nil {
		return SubmitResult{}, err
	}

	candidate := prepared.calendarEvent(prepared.ID, false)
	conflicts := calendar.Conflicts(e.events, candidate)
	if len(conflicts) > 0 && !confirmed {
		return SubmitResult{State: SubmitBlocked, Event: candidate, Conflicts: conflicts}, nil
	}

	start, err := time.ParseInLocation("2006-01-02T15:04", prepared.Date+"T"+prepared.Time, time.Local)
	if err != nil {
		return SubmitResult{}, ErrInvalidDateTime
	}

	req := models.EventRequest{
		Title:                 prepared.Title,
		Description:           prepared.Description,
		StartTime:             start,
		EndTime:               start.Add(time.Duration(prepared.Duration) * time.Minute),
		Attendees:             prepared.Participants,
		Location:              prepared.Location,
		IsVirtual:             prepared.Type == models.TypeCall,
		Type:                  prepared.Type,
		Notes:                 prepared.Notes,
		ReminderOffsetMinutes: prepared.ReminderOffsetMinutes,
	}
	if req.IsVirtual {
		req.MeetingLink = prepared.MeetingLink
	}

	stored, err := e.store.Create(ctx, token, req)
	if err == nil {
		event := prepared.calendarEvent(stored.ID.String(), false)
		e.events = append(e.events, event)
		return SubmitResult{State: SubmitPersisted, Event: event, Conflicts: conflicts}, nil
	}

	var rejection *StatusError
	if errors.As(err, &rejection) {
		// Definitive rejection, not unavailability: surface it and keep
		// the working set untouched.
		return SubmitResult{}, err
	}

	// Availability over consistency: keep the event locally so the
	// calendar stays usable. It may be lost on reload; there is no retry
	// or reconciliation on reconnect.
	event := prepared.calendarEvent("local-"+uuid.New().String(), true)
	e.events = append(e.events, event)
	e.log.Warn().Err(err).Str("event_id", event.ID).Msg("Store unavailable, keeping event locally")
	return SubmitResult{State: SubmitLocalOnly, Event: event, Conflicts: conflicts, Reason: err}, nil
}

// Delete removes the event from the working set immediately and then
// tells the store. A store failure does not restore the event.
func (e *Engine) Delete(ctx context.Context, token, id string) DeleteResult {
	kept := e.events[:0]
	for _, event := range e.events {
		if event.ID != id {
			kept = append(kept, event)
		}
	}
	e.events = kept

	if strings.HasPrefix(id, "local-") {
		// Never reached the store; nothing to delete remotely.
		return DeleteResult{Synced: true}
	}

	if err := e.store.Delete(ctx, token, id); err != nil {
		e.log.Warn().Err(err).Str("event_id", id).Msg("Store delete failed, removal stands locally")
		return DeleteResult{Reason: err}
	}
	return DeleteResult{Synced: true}
}

// prepare validates the draft and applies defaults: title required, date
// and time default to now, duration snaps to the 15-minute grid with a
// one-hour default.
func (e *Engine) prepare(draft Draft) (Draft, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return Draft{}, ErrTitleRequired
	}

	now := e.now()
	if draft.Date == "" {
		draft.Date = now.Format("2006-01-02")
	}
	if draft.Time == "" {
		draft.Time = now.Format("15:04")
	}

	if draft.Duration <= 0 {
		draft.Duration = models.DefaultDurationMinutes
	}
	if draft.Duration < models.MinDurationMinutes {
		draft.Duration = models.MinDurationMinutes
	}
	if rem := draft.Duration % models.DurationStepMinutes; rem != 0 {
		draft.Duration += models.DurationStepMinutes - rem
	}

	if draft.Type == "" {
		draft.Type = models.TypeMeeting
	}

	return draft, nil
}

func (d Draft) calendarEvent(id string, unsynced bool) models.CalendarEvent {
	participants := d.Participants
	if participants == nil {
		participants = []string{}
	}
	return models.CalendarEvent{
		ID:           id,
		Title:        d.Title,
		Description:  d.Description,
		Date:         d.Date,
		Time:         d.Time,
		Duration:     d.Duration,
		Type:         d.Type,
		Participants: participants,
		Location:     d.Location,
		Notes:        d.Notes,
		MeetingLink:  d.MeetingLink,
		Unsynced:     unsynced,
	}
}
