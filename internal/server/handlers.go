package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/copyleftdev/sablcheck/internal/artifact"
	"github.com/copyleftdev/sablcheck/internal/runs"
	"github.com/copyleftdev/sablcheck/internal/scenario"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type APIHandler struct {
	catalog  *scenario.Catalog
	runs     *runs.Manager
	recorder *artifact.Recorder
	logger   *zap.Logger
}

func NewAPIHandler(catalog *scenario.Catalog, rm *runs.Manager, recorder *artifact.Recorder, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		catalog:  catalog,
		runs:     rm,
		recorder: recorder,
		logger:   logger,
	}
}

type SubmitRunsRequest struct {
	// Scenarios holds IDs and "tag:<name>" selectors; empty selects all.
	Scenarios   []string `json:"scenarios"`
	BaseURL     string   `json:"base_url,omitempty"`
	CallbackURL string   `json:"callback_url,omitempty"`
}

type SubmittedRun struct {
	RunID      string `json:"run_id"`
	ScenarioID string `json:"scenario_id"`
}

type SubmitRunsResponse struct {
	Runs []SubmittedRun `json:"runs"`
}

type ScenarioInfo struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Steps       []string `json:"steps"`
}

func (h *APIHandler) HandleSubmitRuns(w http.ResponseWriter, r *http.Request) {
	var req SubmitRunsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: %v", err)
		return
	}
	defer r.Body.Close()

	selected, err := h.catalog.Select(req.Scenarios...)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "%v", err)
		return
	}

	resp := SubmitRunsResponse{Runs: make([]SubmittedRun, 0, len(selected))}
	for _, sc := range selected {
		if req.BaseURL != "" {
			sc.BaseURL = req.BaseURL
		}
		id, err := h.runs.Submit(sc, req.CallbackURL)
		if err != nil {
			if errors.Is(err, runs.ErrShuttingDown) {
				h.respondError(w, http.StatusServiceUnavailable, "%v", err)
				return
			}
			h.logger.Error("failed to submit run", zap.String("scenario", sc.ID), zap.Error(err))
			h.respondError(w, http.StatusInternalServerError, "Failed to submit run: %v", err)
			return
		}
		resp.Runs = append(resp.Runs, SubmittedRun{RunID: id.String(), ScenarioID: sc.ID})
	}
	h.respondJSON(w, http.StatusAccepted, resp)
}

func (h *APIHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.List())
}

func (h *APIHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID format: %v", err)
		return
	}

	res, err := h.runs.Get(id)
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.logger.Error("failed to read run", zap.String("run_id", id.String()), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to read run")
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *APIHandler) HandleListScenarios(w http.ResponseWriter, r *http.Request) {
	all := h.catalog.All()
	out := make([]ScenarioInfo, 0, len(all))
	for _, sc := range all {
		info := ScenarioInfo{ID: sc.ID, Description: sc.Description, Tags: sc.Tags, Steps: make([]string, 0, len(sc.Steps))}
		for _, st := range sc.Steps {
			info.Steps = append(info.Steps, st.String())
		}
		out = append(out, info)
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *APIHandler) HandleGetArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if filepath.Ext(name) != ".png" {
		h.respondError(w, http.StatusNotFound, "Artifact not found")
		return
	}
	f, err := h.recorder.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.respondError(w, http.StatusNotFound, "Artifact not found")
			return
		}
		h.respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to read artifact")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to marshal JSON response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		h.logger.Warn("failed to write JSON response", zap.Error(err))
	}
}

func (h *APIHandler) respondError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	response, _ := json.Marshal(map[string]string{"error": fmt.Sprintf(format, args...)})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		h.logger.Warn("failed to write error response", zap.Error(err))
	}
}
