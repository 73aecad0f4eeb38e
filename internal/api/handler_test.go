package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Guizzs26/suya-queue/internal/engine"
	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBoard struct {
	snap     engine.Snapshot
	number   string
	regErr   error
	outcomes map[string]engine.PendingOutcome
	serving  string
	resets   int
	lastReq  models.RegistrationRequest
}

func (b *fakeBoard) Snapshot() engine.Snapshot { return b.snap }

func (b *fakeBoard) QueueNumber(context.Context) (string, error) { return b.number, nil }

func (b *fakeBoard) Register(_ context.Context, req models.RegistrationRequest) (models.PendingRegistration, error) {
	b.lastReq = req
	if b.regErr != nil {
		return models.PendingRegistration{}, b.regErr
	}
	return models.PendingRegistration{ID: "p-1", DisplayName: req.DisplayName, SubmittedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}, nil
}

func (b *fakeBoard) Outcome(id string) (engine.PendingOutcome, bool) {
	o, ok := b.outcomes[id]
	return o, ok
}

func (b *fakeBoard) Next(context.Context) (string, error) {
	n, _ := models.ParseQueueNumber(b.serving)
	b.serving = models.FormatQueueNumber(n + 1)
	return b.serving, nil
}

func (b *fakeBoard) Set(_ context.Context, v string) (string, error) {
	n, err := models.ParseQueueNumber(v)
	if err != nil {
		return "", err
	}
	b.serving = models.FormatQueueNumber(n)
	return b.serving, nil
}

func (b *fakeBoard) Reset(context.Context) error {
	b.resets++
	b.serving = models.ZeroServing
	return nil
}

func entries(suffixes ...int) []models.QueueEntry {
	out := make([]models.QueueEntry, 0, len(suffixes))
	for _, n := range suffixes {
		out = append(out, models.QueueEntry{SequenceNumber: n, QueueNumber: models.FormatQueueNumber(n), DisplayName: fmt.Sprintf("guest %d", n)})
	}
	return out
}

func newTestServer(t *testing.T, b *fakeBoard) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(b, slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestQueue(t *testing.T) {
	b := &fakeBoard{snap: engine.Snapshot{
		Sequence: 4,
		Serving:  "SU-005",
		Entries:  entries(3, 5, 6, 9, 7),
		Active:   entries(6, 7, 9),
	}}
	srv := newTestServer(t, b)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/queue", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got queueResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "SU-005", got.Serving)
	assert.Equal(t, 3, got.Waiting)
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, uint64(4), got.Sequence)
	assert.Empty(t, got.Error)
	assert.Equal(t, "SU-006", got.Active[0].QueueNumber)
}

func TestQueue_FeedErrorShowsNoData(t *testing.T) {
	b := &fakeBoard{snap: engine.Snapshot{
		Serving: "SU-002",
		Err:     &models.FeedError{Kind: models.ErrFeedNotPublic, StatusCode: 400, Err: errors.New("bad request")},
	}}
	srv := newTestServer(t, b)

	_, body := do(t, http.MethodGet, srv.URL+"/api/queue", "")
	var got queueResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.NotNil(t, got.Active)
	assert.Empty(t, got.Active)
	assert.Contains(t, got.Error, "not public")
	assert.Contains(t, string(body), `"active":[]`)
}

func TestClientView(t *testing.T) {
	b := &fakeBoard{snap: engine.Snapshot{Serving: "SU-005", Active: entries(6, 7, 9)}}
	srv := newTestServer(t, b)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/queue/su-007", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.ClientViewState
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, models.ClientViewState{QueueNumber: "SU-007", Serving: "SU-005", Position: 2, PeopleAhead: 1}, got)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/queue/42", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "SU-042")
}

func TestSession(t *testing.T) {
	b := &fakeBoard{snap: engine.Snapshot{Serving: "SU-005", Active: entries(6, 7, 9)}}
	srv := newTestServer(t, b)

	_, body := do(t, http.MethodGet, srv.URL+"/api/session", "")
	assert.JSONEq(t, `{"queue_number":""}`, string(body))

	b.number = "SU-005"
	_, body = do(t, http.MethodGet, srv.URL+"/api/session", "")
	var got sessionResponse
	require.NoError(t, json.Unmarshal(body, &got))
	require.NotNil(t, got.View)
	assert.True(t, got.View.IsCurrentTurn)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name   string
		regErr error
		body   string
		status int
	}{
		{"accepted", nil, `{"display_name":"Ada","spice_level":"extra","portion_type":"regular"}`, http.StatusAccepted},
		{"validation", fmt.Errorf("%w: choose a spice level", models.ErrValidation), `{"display_name":"Ada"}`, http.StatusUnprocessableEntity},
		{"in flight", models.ErrSubmissionInFlight, `{"spice_level":"none","portion_type":"kids"}`, http.StatusConflict},
		{"misconfigured", models.ErrMisconfiguredEndpoint, `{"spice_level":"none","portion_type":"kids"}`, http.StatusServiceUnavailable},
		{"transport", fmt.Errorf("%w: dial tcp: refused", models.ErrTransport), `{"spice_level":"none","portion_type":"kids"}`, http.StatusBadGateway},
		{"malformed body", nil, `{"unknown":true}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBoard{regErr: tt.regErr}
			srv := newTestServer(t, b)

			resp, body := do(t, http.MethodPost, srv.URL+"/api/registrations", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))

			if tt.status == http.StatusAccepted {
				var got engine.PendingOutcome
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, "p-1", got.ID)
				assert.Equal(t, engine.PendingWaiting, got.Status)
				assert.Equal(t, models.SpiceExtra, b.lastReq.SpiceLevel)
			} else {
				var got errorResponse
				require.NoError(t, json.Unmarshal(body, &got))
				assert.NotEmpty(t, got.Error)
			}
		})
	}
}

func TestRegistration(t *testing.T) {
	b := &fakeBoard{outcomes: map[string]engine.PendingOutcome{
		"p-1": {ID: "p-1", Status: engine.PendingMatched, QueueNumber: "SU-012"},
		"p-2": {ID: "p-2", Status: engine.PendingTimeout, Message: models.UserMessage(models.ErrMatchTimeout)},
	}}
	srv := newTestServer(t, b)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/registrations/p-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got engine.PendingOutcome
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "SU-012", got.QueueNumber)
	assert.Empty(t, got.Message)

	_, body = do(t, http.MethodGet, srv.URL+"/api/registrations/p-2", "")
	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, "timeout", raw["status"])
	assert.Equal(t, "We could not find your number yet. Please refresh or register again.", raw["message"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/registrations/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdmin(t *testing.T) {
	b := &fakeBoard{serving: "SU-004"}
	srv := newTestServer(t, b)

	_, body := do(t, http.MethodPost, srv.URL+"/api/admin/next", "")
	assert.JSONEq(t, `{"serving":"SU-005"}`, string(body))

	_, body = do(t, http.MethodPost, srv.URL+"/api/admin/serving", `{"value":"su-012"}`)
	assert.JSONEq(t, `{"serving":"SU-012"}`, string(body))

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/admin/serving", `{"value":"twelve"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = do(t, http.MethodPost, srv.URL+"/api/admin/reset", "")
	assert.JSONEq(t, `{"serving":"SU-000"}`, string(body))
	assert.Equal(t, 1, b.resets)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/admin/next", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeBoard{})

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
