package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/churnlab/retrainer/internal/cmn/config"
	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/service/scheduler"
)

type handlers struct {
	scheduler Controller
	models    ModelLister
}

// ConfigUpdate is the body of PATCH /scheduler/config. Absent fields are
// left unchanged.
type ConfigUpdate struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	IntervalHours *float64 `json:"interval_hours,omitempty"`
}

// ModelList is the body of GET /models.
type ModelList struct {
	Versions []core.ModelVersion `json:"versions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Health())
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

func (h *handlers) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var interval time.Duration
	var hours float64
	if req.IntervalHours != nil {
		d, h, err := config.ParseIntervalHours(strconv.FormatFloat(*req.IntervalHours, 'f', -1, 64))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		interval, hours = d, h
	}

	// The enabled flag goes first so that a rejected enable leaves the
	// interval untouched.
	if req.Enabled != nil {
		if err := h.scheduler.SetEnabled(*req.Enabled); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, scheduler.ErrTimerNotArmed) {
				status = http.StatusConflict
			}
			writeError(w, status, err)
			return
		}
		logger.Info(r.Context(), "Scheduler enabled flag updated", tag.Value(*req.Enabled))
	}

	if interval > 0 {
		if err := h.scheduler.SetIntervalHours(hours); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		logger.Info(r.Context(), "Scheduler interval updated", tag.Interval(interval))
	}

	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	versions, err := h.models.List(r.Context())
	if err != nil {
		logger.Error(r.Context(), "Failed to list model versions", tag.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to list model versions"))
		return
	}
	if versions == nil {
		versions = []core.ModelVersion{}
	}
	writeJSON(w, http.StatusOK, ModelList{Versions: versions})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(context.Background(), "Failed to encode response", tag.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
