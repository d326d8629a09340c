// Package httpapi exposes the intake pipeline over HTTP/JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"TaskIntake/internal/domain"
	"TaskIntake/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Processor is the inbound operation served by the API.
type Processor interface {
	Process(ctx context.Context, req domain.IntakeRequest) (domain.EnrichedTask, error)
}

// Server is the HTTP front for the intake pipeline.
type Server struct {
	processor Processor
	addr      string
	logger    *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(processor Processor, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{processor: processor, addr: addr, logger: logger}
}

type processRequest struct {
	Message *string `json:"message"`
	Source  *string `json:"source"`
}

type processResponse struct {
	TaskContent string `json:"task_content"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.requestID(s.logRequests(mux))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("http server stopping")
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var body processRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body", Stage: string(domain.StageValidation)})
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unexpected data after json body", Stage: string(domain.StageValidation)})
		return
	}
	if body.Message == nil || body.Source == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message and source are required", Stage: string(domain.StageValidation)})
		return
	}

	task, err := s.processor.Process(r.Context(), domain.IntakeRequest{
		Message: *body.Message,
		Source:  *body.Source,
	})
	if err != nil {
		status, resp := errorStatus(err)
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		TaskContent: task.TaskContent,
		Category:    string(task.Category),
		Priority:    task.Priority,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func errorStatus(err error) (int, errorResponse) {
	resp := errorResponse{Error: err.Error()}
	if stage, ok := domain.FailedStage(err); ok {
		resp.Stage = string(stage)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, resp
	case errors.Is(err, domain.ErrRetrieval), errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable, resp
	default:
		return http.StatusInternalServerError, resp
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.FromContext(r.Context(), s.logger).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
