package repository

import "errors"

var (
	// ErrEventNotFound indicates the referenced event id does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrNotAuthorized indicates the caller is not the owner (for
	// mutations) or neither owner nor attendee (for reads).
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidTimeRange indicates an event whose end does not come
	// after its start.
	ErrInvalidTimeRange = errors.New("event end time must be after start time")
)
