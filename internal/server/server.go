// Package server exposes the generation pipeline over HTTP.
//
// Generation runs are asynchronous jobs: POST /api/v1/jobs accepts the
// pipeline configuration with the input layers inline as GeoJSON and
// returns a job ID immediately. Clients poll the job for stage-level
// progress, fetch the generated layer from the result endpoint when the
// job succeeds, and can cancel a running job with DELETE. Job state lives
// in a pluggable Store so multiple instances can serve the same jobs.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
	"github.com/CESMikef/cadastral-automation/pkg/pipeline"
	"github.com/CESMikef/cadastral-automation/pkg/progress"
)

// maxRequestBytes caps job payloads; inline GeoJSON for a neighborhood-scale
// dataset fits comfortably, anything larger should be split.
const maxRequestBytes = 64 << 20

// cleanupInterval is how often finished jobs past retention are dropped.
const cleanupInterval = 5 * time.Minute

// Server is the HTTP front end for the generation pipeline.
type Server struct {
	logger *log.Logger
	store  Store
	router *chi.Mux

	mu      sync.Mutex
	baseCtx context.Context
	jobs    sync.WaitGroup
}

// New creates a server backed by the given job store.
func New(logger *log.Logger, store Store) *Server {
	s := &Server{
		logger:  logger,
		store:   store,
		router:  chi.NewRouter(),
		baseCtx: context.Background(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/jobs/{id}/result", s.handleGetResult)
		r.Delete("/jobs/{id}", s.handleCancelJob)
	})

	return s
}

// Handler returns the HTTP handler for mounting or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and waits for running jobs to finish their current stage.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.cleanupLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server listening", "addr", addr)
	err := srv.ListenAndServe()
	s.jobs.Wait()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("job cleanup failed", "error", err)
			}
		}
	}
}

// requestLogger logs one line per request with method, path, status and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}

	// Reject configuration errors synchronously; only geometric work is
	// deferred to the job.
	check := req.Options
	if err := check.ValidateAndSetDefaults(); err != nil {
		writeError(w, err)
		return
	}

	reg, err := buildRegistry(req.Layers)
	if err != nil {
		writeError(w, err)
		return
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Request:   req.Options,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(r.Context(), job); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.runJob(ctx, job.ID, reg, req.Options)
	}()

	writeJSON(w, http.StatusAccepted, job.StatusView())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupJob(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job.StatusView())
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupJob(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if job.Status != StatusSucceeded {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("job is %s, result only available for succeeded jobs", job.Status),
		})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.Result)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.store.Update(r.Context(), id, func(j *Job) {
		if !j.Status.Terminal() {
			j.CancelRequested = true
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job.StatusView())
}

func (s *Server) lookupJob(r *http.Request) (*Job, error) {
	id := chi.URLParam(r, "id")
	job, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.New(errors.ErrCodeJobNotFound, "job %q not found", id)
	}
	return job, nil
}

// runJob executes the pipeline for a job and records the outcome. The
// context is the server's base context, not the creating request's; the
// job outlives the request.
func (s *Server) runJob(ctx context.Context, id string, reg *layer.Registry, opts pipeline.Options) {
	now := time.Now().UTC()
	if _, err := s.store.Update(ctx, id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &now
	}); err != nil {
		s.logger.Error("mark job running", "job", id, "error", err)
		return
	}

	opts.Logger = s.logger.With("job", id)
	opts.Observer = &storeObserver{ctx: ctx, store: s.store, id: id, logger: s.logger}

	result, err := pipeline.Run(ctx, reg, opts)

	finished := time.Now().UTC()
	_, updateErr := s.store.Update(ctx, id, func(j *Job) {
		j.FinishedAt = &finished
		switch {
		case err == nil:
			var buf bytes.Buffer
			if encErr := layer.WriteGeoJSON(result.Layer, &buf); encErr != nil {
				j.Status = StatusFailed
				j.Error = &JobError{Code: string(errors.ErrCodeInternal), Message: encErr.Error()}
				return
			}
			j.Status = StatusSucceeded
			j.Result = buf.Bytes()
			j.Warnings = result.Warnings
		case errors.IsCancelled(err):
			j.Status = StatusCancelled
		default:
			j.Status = StatusFailed
			j.Error = &JobError{Code: string(errors.GetCode(err)), Message: errors.UserMessage(err)}
		}
	})
	if updateErr != nil {
		s.logger.Error("record job outcome", "job", id, "error", updateErr)
	}
}

// storeObserver persists pipeline progress into the job store and polls
// the stored job for cancellation requests.
type storeObserver struct {
	ctx    context.Context
	store  Store
	id     string
	logger *log.Logger
}

func (o *storeObserver) OnStage(ctx context.Context, e progress.Event) {
	if _, err := o.store.Update(ctx, o.id, func(j *Job) {
		j.Progress = Progress{Step: e.Step, Total: e.Total, Message: e.Message}
	}); err != nil {
		o.logger.Warn("record job progress", "job", o.id, "error", err)
	}
}

func (o *storeObserver) OnWarning(ctx context.Context, msg string) {
	if _, err := o.store.Update(ctx, o.id, func(j *Job) {
		j.Warnings = append(j.Warnings, msg)
	}); err != nil {
		o.logger.Warn("record job warning", "job", o.id, "error", err)
	}
}

func (o *storeObserver) Cancelled() bool {
	job, err := o.store.Get(o.ctx, o.id)
	if err != nil || job == nil {
		return false
	}
	return job.CancelRequested
}

// buildRegistry decodes the inline GeoJSON layers into a registry.
func buildRegistry(layers map[string]json.RawMessage) (*layer.Registry, error) {
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "request contains no layers")
	}
	reg := layer.NewRegistry()
	for name, raw := range layers {
		l, err := layer.ReadGeoJSON(bytes.NewReader(raw), name, "EPSG:4326")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse layer %q", name)
		}
		reg.Register(l)
	}
	return reg, nil
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var resp errorResponse
	resp.Error.Code = string(errors.GetCode(err))
	if resp.Error.Code == "" {
		resp.Error.Code = string(errors.ErrCodeInternal)
	}
	resp.Error.Message = errors.UserMessage(err)
	writeJSON(w, httpStatus(err), resp)
}

// httpStatus maps error codes to HTTP statuses.
func httpStatus(err error) int {
	switch {
	case errors.IsConfig(err),
		errors.Is(err, errors.ErrCodePointsRequired),
		errors.Is(err, errors.ErrCodeTooFewPoints),
		errors.Is(err, errors.ErrCodeLayerNotFound):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeJobNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
