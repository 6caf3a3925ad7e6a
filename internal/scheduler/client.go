package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caseflow/schedule-service/internal/models"
	"github.com/rs/zerolog"
)

// StatusError is a definitive rejection from the event store (validation,
// authorization, missing record). Unlike transport failures it must not
// trigger the local-only fallback.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("event store rejected request: %d %s", e.Code, e.Message)
}

// StoreClient talks to the event store over HTTP. Every call carries the
// caller's auth token; requests are bounded by the client timeout and an
// expired request counts as a store failure.
type StoreClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewStoreClient(baseURL string, timeout time.Duration, log zerolog.Logger) *StoreClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StoreClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// List fetches every event visible to the token's user
func (c *StoreClient) List(ctx context.Context, token string) ([]models.Event, error) {
	var result struct {
		Events []models.Event `json:"events"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/schedule", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result.Events, nil
}

// Get fetches a single event
func (c *StoreClient) Get(ctx context.Context, token, id string) (*models.Event, error) {
	var result struct {
		Event *models.Event `json:"event"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/schedule/"+id, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result.Event, nil
}

// Create persists a new event and returns the stored record with its
// assigned id
func (c *StoreClient) Create(ctx context.Context, token string, req models.EventRequest) (*models.Event, error) {
	var result struct {
		Event *models.Event `json:"event"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/schedule", req, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return result.Event, nil
}

// Update applies a partial update to an event
func (c *StoreClient) Update(ctx context.Context, token, id string, patch models.EventPatch) (*models.Event, error) {
	var result struct {
		Event *models.Event `json:"event"`
	}
	if err := c.do(ctx, token, http.MethodPut, "/schedule/"+id, patch, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result.Event, nil
}

// Delete removes an event
func (c *StoreClient) Delete(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodDelete, "/schedule/"+id, nil, http.StatusOK, nil)
}

func (c *StoreClient) do(ctx context.Context, token, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-auth-token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("Event store request failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		message := readErrorMessage(resp.Body)
		c.log.Error().Int("status", resp.StatusCode).Str("path", path).Msg("Event store returned error")
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return &StatusError{Code: resp.StatusCode, Message: message}
		}
		return fmt.Errorf("event store error: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readErrorMessage(body io.Reader) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return ""
	}
	return envelope.Message
}
