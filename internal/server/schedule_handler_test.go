package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caseflow/schedule-service/internal/database"
	"github.com/caseflow/schedule-service/internal/models"
	"github.com/rs/zerolog"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	srv := New(Options{
		Addr:         "127.0.0.1:0",
		JWTSecret:    testSecret,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, db.DB(), &log)

	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := NewToken(userID, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, payload)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createEvent(t *testing.T, ts *httptest.Server, token string, req models.EventRequest) models.Event {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/schedule", token, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned status %d, want 201", resp.StatusCode)
	}

	var envelope struct {
		Event models.Event `json:"event"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	return envelope.Event
}

func TestCreateSchedule(t *testing.T) {
	ts := newTestServer(t)
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	event := createEvent(t, ts, tokenFor(t, "owner-1"), models.EventRequest{
		Title:     "Deposition",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Attendees: []string{"attendee-1"},
		Type:      models.TypeMeeting,
	})

	if event.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("create did not assign an id")
	}
	if event.Owner != "owner-1" {
		t.Fatalf("owner = %q, want identity from token", event.Owner)
	}
}

func TestCreateScheduleValidation(t *testing.T) {
	ts := newTestServer(t)
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	token := tokenFor(t, "owner-1")

	tests := []struct {
		name string
		req  models.EventRequest
	}{
		{
			name: "missing title",
			req:  models.EventRequest{StartTime: start, EndTime: start.Add(time.Hour)},
		},
		{
			name: "end before start",
			req:  models.EventRequest{Title: "Bad", StartTime: start, EndTime: start.Add(-time.Hour)},
		},
		{
			name: "missing times",
			req:  models.EventRequest{Title: "Bad"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/schedule", token, tt.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "no token", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodGet, "/schedule", tt.token, nil)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}

func TestListSchedulesVisibility(t *testing.T) {
	ts := newTestServer(t)
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	ownerToken := tokenFor(t, "owner-1")

	createEvent(t, ts, ownerToken, models.EventRequest{
		Title:     "Later",
		StartTime: start.Add(4 * time.Hour),
		EndTime:   start.Add(5 * time.Hour),
		Attendees: []string{"attendee-1"},
	})
	createEvent(t, ts, ownerToken, models.EventRequest{
		Title:     "Earlier",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})

	tests := []struct {
		name       string
		userID     string
		wantTitles []string
	}{
		{name: "owner sees all ascending", userID: "owner-1", wantTitles: []string{"Earlier", "Later"}},
		{name: "attendee sees shared only", userID: "attendee-1", wantTitles: []string{"Later"}},
		{name: "stranger sees none", userID: "stranger", wantTitles: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodGet, "/schedule", tokenFor(t, tt.userID), nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			var envelope struct {
				Events []models.Event `json:"events"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				t.Fatalf("failed to decode list response: %v", err)
			}
			if len(envelope.Events) != len(tt.wantTitles) {
				t.Fatalf("got %d events, want %d", len(envelope.Events), len(tt.wantTitles))
			}
			for i, want := range tt.wantTitles {
				if envelope.Events[i].Title != want {
					t.Fatalf("events[%d].Title = %q, want %q", i, envelope.Events[i].Title, want)
				}
			}
		})
	}
}

func TestGetScheduleAuthorization(t *testing.T) {
	ts := newTestServer(t)
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	event := createEvent(t, ts, tokenFor(t, "owner-1"), models.EventRequest{
		Title:     "Deposition",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Attendees: []string{"attendee-1"},
	})

	tests := []struct {
		name       string
		userID     string
		wantStatus int
	}{
		{name: "owner", userID: "owner-1", wantStatus: http.StatusOK},
		{name: "attendee", userID: "attendee-1", wantStatus: http.StatusOK},
		{name: "stranger", userID: "stranger", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodGet, "/schedule/"+event.ID.String(), tokenFor(t, tt.userID), nil)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	resp := doRequest(t, ts, http.MethodGet, "/schedule/6f1f8f3a-0000-4000-8000-000000000000", tokenFor(t, "owner-1"), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", resp.StatusCode)
	}
}

func TestUpdateScheduleOwnerOnly(t *testing.T) {
	ts := newTestServer(t)
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	event := createEvent(t, ts, tokenFor(t, "owner-1"), models.EventRequest{
		Title:     "Deposition",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Attendees: []string{"attendee-1"},
	})

	patch := map[string]string{"title": "Rescheduled"}
	path := "/schedule/" + event.ID.String()

	resp := doRequest(t, ts, http.MethodPut, path, tokenFor(t, "attendee-1"), patch)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("non-owner update status = %d, want 401", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPut, path, tokenFor(t, "owner-1"), patch)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner update status = %d, want 200", resp.StatusCode)
	}

	var envelope struct {
		Event models.Event `json:"event"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode update response: %v", err)
	}
	if envelope.Event.Title != "Rescheduled" {
		t.Fatalf("title = %q, want %q", envelope.Event.Title, "Rescheduled")
	}
}

func TestDeleteScheduleOwnerOnly(t *testing.T) {
	ts := newTestServer(t)
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	event := createEvent(t, ts, tokenFor(t, "owner-1"), models.EventRequest{
		Title:     "Deposition",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Attendees: []string{"attendee-1"},
	})
	path := "/schedule/" + event.ID.String()

	resp := doRequest(t, ts, http.MethodDelete, path, tokenFor(t, "attendee-1"), nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("non-owner delete status = %d, want 401", resp.StatusCode)
	}

	// Rejected delete leaves the record visible to the owner
	resp = doRequest(t, ts, http.MethodGet, path, tokenFor(t, "owner-1"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("event gone after rejected delete: status %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodDelete, path, tokenFor(t, "owner-1"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner delete status = %d, want 200", resp.StatusCode)
	}

	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode delete response: %v", err)
	}
	if envelope.Message != "Schedule removed" {
		t.Fatalf("message = %q, want confirmation body", envelope.Message)
	}

	resp = doRequest(t, ts, http.MethodGet, path, tokenFor(t, "owner-1"), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", resp.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/health", ts.URL))
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}
}
