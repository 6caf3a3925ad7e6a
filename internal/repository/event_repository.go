package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/caseflow/schedule-service/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventRepository is the event store: durable storage of schedule events
// with ownership-based access control. Mutations require the caller to be
// the owner; reads require owner or attendee. The store does not reject
// time conflicts — conflict avoidance is advisory and belongs to the
// scheduling engine.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID, userID string) (*models.Event, error)
	ListVisible(ctx context.Context, userID string) ([]*models.Event, error)
	Update(ctx context.Context, id uuid.UUID, patch *models.EventPatch, userID string) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type eventRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB, log zerolog.Logger) EventRepository {
	return &eventRepository{
		db:  db,
		log: log,
	}
}

// Create inserts a new event and its attendee rows
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if !event.EndTime.After(event.StartTime) {
		return ErrInvalidTimeRange
	}
	if event.Type == "" {
		event.Type = models.TypeMeeting
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (id, title, description, start_time, end_time, owner_id,
			location, is_virtual, meeting_link, event_type, notes, reminder_offset_minutes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.StartTime,
		event.EndTime,
		event.Owner,
		event.Location,
		event.IsVirtual,
		event.MeetingLink,
		event.Type,
		event.Notes,
		event.ReminderOffsetMinutes,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to create event")
		return err
	}

	if err := replaceAttendees(ctx, tx, event.ID, event.Attendees); err != nil {
		r.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to store attendees")
		return err
	}

	return tx.Commit()
}

// GetByID retrieves an event by its ID. Returns ErrNotAuthorized when the
// caller is neither owner nor attendee.
func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID, userID string) (*models.Event, error) {
	event, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if event.Owner != userID && !contains(event.Attendees, userID) {
		return nil, ErrNotAuthorized
	}

	return event, nil
}

// ListVisible lists every event the user owns or attends, ordered by
// start time ascending.
func (r *eventRepository) ListVisible(ctx context.Context, userID string) ([]*models.Event, error) {
	query := `
		SELECT DISTINCT e.id, e.title, e.description, e.start_time, e.end_time, e.owner_id,
			e.location, e.is_virtual, e.meeting_link, e.event_type, e.notes,
			e.reminder_offset_minutes, e.created_at, e.updated_at
		FROM events e
		LEFT JOIN event_attendees a ON a.event_id = e.id
		WHERE e.owner_id = ? OR a.user_id = ?
		ORDER BY e.start_time ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list events")
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			r.log.Error().Err(err).Msg("Failed to scan event")
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, event := range events {
		attendees, err := r.attendeesFor(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		event.Attendees = attendees
	}

	return events, nil
}

// Update merges the patch into the stored event. Only the owner may
// update; nil patch fields keep their stored values.
func (r *eventRepository) Update(ctx context.Context, id uuid.UUID, patch *models.EventPatch, userID string) (*models.Event, error) {
	event, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Owner != userID {
		return nil, ErrNotAuthorized
	}

	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.StartTime != nil {
		event.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		event.EndTime = *patch.EndTime
	}
	if patch.Attendees != nil {
		event.Attendees = *patch.Attendees
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.IsVirtual != nil {
		event.IsVirtual = *patch.IsVirtual
	}
	if patch.MeetingLink != nil {
		event.MeetingLink = *patch.MeetingLink
	}
	if patch.Type != nil {
		event.Type = *patch.Type
	}
	if patch.Notes != nil {
		event.Notes = *patch.Notes
	}

	if !event.EndTime.After(event.StartTime) {
		return nil, ErrInvalidTimeRange
	}
	event.UpdatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		UPDATE events
		SET title = ?, description = ?, start_time = ?, end_time = ?, location = ?,
			is_virtual = ?, meeting_link = ?, event_type = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	_, err = tx.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.IsVirtual,
		event.MeetingLink,
		event.Type,
		event.Notes,
		event.UpdatedAt,
		id,
	)
	if err != nil {
		r.log.Error().Err(err).Str("event_id", id.String()).Msg("Failed to update event")
		return nil, err
	}

	if patch.Attendees != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = ?`, id); err != nil {
			return nil, err
		}
		if err := replaceAttendees(ctx, tx, id, event.Attendees); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return event, nil
}

// Delete removes an event. Only the owner may delete; attendee rows go
// with it via the foreign key cascade.
func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	event, err := r.fetch(ctx, id)
	if err != nil {
		return err
	}
	if event.Owner != userID {
		return ErrNotAuthorized
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		r.log.Error().Err(err).Str("event_id", id.String()).Msg("Failed to delete event")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to get rows affected for event delete")
		return err
	}

	if rowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

// fetch loads an event and its attendees without an authorization check.
func (r *eventRepository) fetch(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	query := `
		SELECT id, title, description, start_time, end_time, owner_id,
			location, is_virtual, meeting_link, event_type, notes,
			reminder_offset_minutes, created_at, updated_at
		FROM events
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		r.log.Error().Err(err).Str("event_id", id.String()).Msg("Failed to get event by ID")
		return nil, err
	}

	attendees, err := r.attendeesFor(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	event.Attendees = attendees

	return event, nil
}

func (r *eventRepository) attendeesFor(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM event_attendees WHERE event_id = ? ORDER BY user_id`, eventID)
	if err != nil {
		r.log.Error().Err(err).Str("event_id", eventID.String()).Msg("Failed to load attendees")
		return nil, err
	}
	defer rows.Close()

	attendees := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		attendees = append(attendees, userID)
	}
	return attendees, rows.Err()
}

func replaceAttendees(ctx context.Context, tx *sql.Tx, eventID uuid.UUID, attendees []string) error {
	for _, userID := range attendees {
		if userID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO event_attendees (event_id, user_id) VALUES (?, ?)`,
			eventID, userID); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var event models.Event
	var description, location, meetingLink, notes sql.NullString
	err := row.Scan(
		&event.ID,
		&event.Title,
		&description,
		&event.StartTime,
		&event.EndTime,
		&event.Owner,
		&location,
		&event.IsVirtual,
		&meetingLink,
		&event.Type,
		&notes,
		&event.ReminderOffsetMinutes,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Description = description.String
	event.Location = location.String
	event.MeetingLink = meetingLink.String
	event.Notes = notes.String
	return &event, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
