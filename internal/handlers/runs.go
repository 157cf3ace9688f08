package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	logpkg "github.com/benvon/video-tag-stats/internal/logger"
	"github.com/benvon/video-tag-stats/internal/queue"
	"github.com/benvon/video-tag-stats/internal/runs"
	"github.com/benvon/video-tag-stats/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RunHandler starts stats runs and reports their state
type RunHandler struct {
	runs   runs.Store
	queue  queue.JobQueue
	logger *zap.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(store runs.Store, jobQueue queue.JobQueue, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{runs: store, queue: jobQueue, logger: logger}
}

// StartRunRequest is the optional body of POST /projects/{projectID}/stats
type StartRunRequest struct {
	DatasetID   *int64 `json:"dataset_id,omitempty" validate:"omitempty,gt=0"`
	TeamID      int64  `json:"team_id,omitempty" validate:"gte=0"`
	WorkspaceID int64  `json:"workspace_id,omitempty" validate:"gte=0"`
}

// RegisterRoutes mounts the run endpoints on an /api/v1 router
func (h *RunHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/projects/{projectID:[0-9]+}/stats", h.StartRun).Methods(http.MethodPost)
	r.HandleFunc("/runs/{runID}", h.GetRun).Methods(http.MethodGet)
}

// StartRun creates a pending run and enqueues the job that executes it
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(mux.Vars(r)["projectID"], 10, 64)
	if err != nil || projectID <= 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid project ID")
		return
	}

	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	run := &runs.Run{
		ID:        uuid.New(),
		ProjectID: projectID,
		DatasetID: req.DatasetID,
	}
	if err := h.runs.Create(r.Context(), run); err != nil {
		h.logger.Error("failed_to_create_run",
			zap.Int64("project_id", projectID),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to create run")
		return
	}

	job := queue.NewStatsRunJob(run.ID, projectID, req.DatasetID)
	job.TeamID = req.TeamID
	job.WorkspaceID = req.WorkspaceID
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("failed_to_enqueue_stats_run_job",
			zap.String("run_id", run.ID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if failErr := h.runs.Fail(r.Context(), run.ID, "failed to enqueue run"); failErr != nil {
			h.logger.Warn("failed_to_mark_run_failed", zap.String("error", logpkg.SanitizeError(failErr)))
		}
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue unavailable")
		return
	}

	h.logger.Info("stats_run_enqueued",
		zap.String("run_id", run.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int64("project_id", projectID),
	)
	w.Header().Set("Location", "/api/v1/runs/"+run.ID.String())
	respondJSON(w, http.StatusAccepted, run)
}

// GetRun returns the state of a run, including its reports once completed.
// Video indices are included only when the indices query parameter is true.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["runID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid run ID")
		return
	}

	run, err := h.runs.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, runs.ErrRunNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "run not found")
			return
		}
		h.logger.Error("failed_to_get_run",
			zap.String("run_id", runID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "failed to get run")
		return
	}

	if include, _ := strconv.ParseBool(r.URL.Query().Get("indices")); !include {
		trimmed := *run
		trimmed.Indices = nil
		run = &trimmed
	}
	respondJSON(w, http.StatusOK, run)
}
