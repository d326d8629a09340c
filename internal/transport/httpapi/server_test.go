package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskIntake/internal/domain"
	"TaskIntake/internal/logging"
)

type stubProcessor struct {
	task      domain.EnrichedTask
	err       error
	got       domain.IntakeRequest
	requestID string
}

func (s *stubProcessor) Process(ctx context.Context, req domain.IntakeRequest) (domain.EnrichedTask, error) {
	s.got = req
	s.requestID = logging.RequestID(ctx)
	return s.task, s.err
}

func doPost(t *testing.T, h http.Handler, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProcessReturnsEnrichedTask(t *testing.T) {
	t.Parallel()

	proc := &stubProcessor{task: domain.EnrichedTask{TaskContent: "Task: x", Category: domain.CategoryFinance, Priority: 4}}
	h := NewServer(proc, ":0", logging.Discard()).Handler()

	rec := doPost(t, h, `{"message":"Can I submit an expense report?","source":"Slack"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Task: x", resp["task_content"])
	assert.Equal(t, "Finance", resp["category"])
	assert.EqualValues(t, 4, resp["priority"])

	assert.Equal(t, domain.IntakeRequest{Message: "Can I submit an expense report?", Source: "Slack"}, proc.got)

	id := rec.Header().Get(requestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "generated request id should be a uuid")
	assert.Equal(t, id, proc.requestID)
}

func TestProcessKeepsCallerRequestID(t *testing.T) {
	t.Parallel()

	proc := &stubProcessor{}
	h := NewServer(proc, ":0", logging.Discard()).Handler()

	header := http.Header{}
	header.Set(requestIDHeader, "abc-123")
	rec := doPost(t, h, `{"message":"hi","source":"n8n"}`, header)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "abc-123", proc.requestID)
}

func TestProcessRejectsMalformedBodies(t *testing.T) {
	t.Parallel()

	h := NewServer(&stubProcessor{}, ":0", logging.Discard()).Handler()

	for _, body := range []string{
		`{`,
		`{"message":"only message"}`,
		`{"source":"Slack"}`,
		`{"message":"a","source":"b"}xyz`,
		`{"message":"a","source":"b"}{"message":"c","source":"d"}`,
	} {
		rec := doPost(t, h, body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"stage":"validation"`, body)
	}
}

func TestProcessIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	proc := &stubProcessor{}
	h := NewServer(proc, ":0", logging.Discard()).Handler()

	rec := doPost(t, h, `{"message":"a","source":"b","workflow":"n8n"}`+"\n", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.IntakeRequest{Message: "a", Source: "b"}, proc.got)
}

func TestProcessMapsStageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		stage  string
	}{
		{domain.NewStageError(domain.StageValidation, domain.ErrValidation), http.StatusBadRequest, "validation"},
		{domain.NewStageError(domain.StageRetrieval, domain.ErrNotFound), http.StatusServiceUnavailable, "retrieval"},
		{domain.NewStageError(domain.StageLogging, errors.New("db down")), http.StatusServiceUnavailable, "logging"},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		h := NewServer(&stubProcessor{err: tc.err}, ":0", logging.Discard()).Handler()
		rec := doPost(t, h, `{"message":"m","source":"s"}`, nil)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tc.stage, resp.Stage)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestHealthAndMethodRouting(t *testing.T) {
	t.Parallel()

	h := NewServer(&stubProcessor{}, ":0", logging.Discard()).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/process", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(&stubProcessor{}, "127.0.0.1:0", logging.Discard())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
