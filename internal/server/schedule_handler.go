package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caseflow/schedule-service/internal/models"
	"github.com/caseflow/schedule-service/internal/repository"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ScheduleHandler handles HTTP requests for schedule events and
// interacts with the EventRepository.
type ScheduleHandler struct {
	repo repository.EventRepository
	log  *zerolog.Logger
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(repo repository.EventRepository, log *zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		repo: repo,
		log:  log,
	}
}

// CreateSchedule handles the creation of a new event. The store accepts
// any well-formed time range; overlap checking is the caller's concern.
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, `{"status":"error","message":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		h.log.Error().Err(err).Msg("Validation failed")
		http.Error(w, `{"status":"error","message":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	event := &models.Event{
		ID:                    uuid.New(),
		Title:                 req.Title,
		Description:           req.Description,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		Owner:                 UserID(r),
		Attendees:             req.Attendees,
		Location:              req.Location,
		IsVirtual:             req.IsVirtual,
		MeetingLink:           req.MeetingLink,
		Type:                  req.Type,
		Notes:                 req.Notes,
		ReminderOffsetMinutes: req.ReminderOffsetMinutes,
	}

	if err := h.repo.Create(r.Context(), event); err != nil {
		if errors.Is(err, repository.ErrInvalidTimeRange) {
			http.Error(w, `{"status":"error","message":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to create event")
		http.Error(w, `{"status":"error","message":"Failed to create event"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "success",
		"event":  event,
	})
}

// ListSchedules returns every event visible to the caller (owned or
// attended), ordered by start time ascending.
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)

	events, err := h.repo.ListVisible(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list events")
		http.Error(w, `{"status":"error","message":"Failed to list events"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "success",
		"events": events,
	})
}

// GetSchedule retrieves a single event the caller may see
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, `{"status":"error","message":"Invalid event ID format"}`, http.StatusBadRequest)
		return
	}

	event, err := h.repo.GetByID(r.Context(), id, UserID(r))
	if err != nil {
		h.writeRepoError(w, err, id, "Failed to get event")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "success",
		"event":  event,
	})
}

// UpdateSchedule merges a partial update into an event the caller owns
func (h *ScheduleHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, `{"status":"error","message":"Invalid event ID format"}`, http.StatusBadRequest)
		return
	}

	var patch models.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, `{"status":"error","message":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	event, err := h.repo.Update(r.Context(), id, &patch, UserID(r))
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTimeRange) {
			http.Error(w, `{"status":"error","message":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		h.writeRepoError(w, err, id, "Failed to update event")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "success",
		"event":  event,
	})
}

// DeleteSchedule removes an event the caller owns
func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, `{"status":"error","message":"Invalid event ID format"}`, http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id, UserID(r)); err != nil {
		h.writeRepoError(w, err, id, "Failed to delete event")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "success",
		"message": "Schedule removed",
	})
}

func (h *ScheduleHandler) writeRepoError(w http.ResponseWriter, err error, id uuid.UUID, msg string) {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		http.Error(w, `{"status":"error","message":"Schedule not found"}`, http.StatusNotFound)
	case errors.Is(err, repository.ErrNotAuthorized):
		http.Error(w, `{"status":"error","message":"Not authorized"}`, http.StatusUnauthorized)
	default:
		h.log.Error().Err(err).Str("event_id", id.String()).Msg(msg)
		http.Error(w, `{"status":"error","message":"Server error"}`, http.StatusInternalServerError)
	}
}
