package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/prospector/internal/delivery/http/request"
	"github.com/user/prospector/internal/delivery/http/response"
	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/internal/usecase"
)

// SiteValidator runs the full verdict pipeline on one URL.
type SiteValidator interface {
	ValidateURL(ctx context.Context, rawURL string) (entity.SiteVerdict, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	jobs      usecase.JobManager
	prospects usecase.ProspectManager
	validator SiteValidator
	store     Pinger
	logger    *zap.Logger
}

func NewHandler(
	jobs usecase.JobManager,
	prospects usecase.ProspectManager,
	validator SiteValidator,
	store Pinger,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		jobs:      jobs,
		prospects: prospects,
		validator: validator,
		store:     store,
		logger:    logger,
	}
}

func (h *Handler) HandleSubmitHarvest(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitHarvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status, err := h.jobs.Submit(r.Context(), req.ToEntity(), req.Force)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidHarvestRequest):
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, usecase.ErrHarvestRecentlySubmitted) && status != nil:
			h.writeJSON(w, http.StatusConflict, response.SubmitHarvestResponse{
				Status:  "conflict",
				Message: err.Error(),
				JobID:   status.JobID,
				State:   status.State,
			})
		default:
			h.logger.Error("failed to submit harvest", zap.String("role", req.RoleDescription), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitHarvestResponse{
		Status:  "success",
		Message: "Harvest queued.",
		JobID:   status.JobID,
		State:   status.State,
	})
}

func (h *Handler) HandleGetHarvest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	status, err := h.jobs.GetStatus(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get harvest status", zap.String("job_id", id.String()), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if status.State == entity.JobNotFound {
		h.writeJSONError(w, "Harvest job not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleValidateSite(w http.ResponseWriter, r *http.Request) {
	var req request.ValidateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	verdict, err := h.validator.ValidateURL(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("failed to validate site", zap.String("url", req.URL), zap.Error(err))
		h.writeJSONError(w, "Site inspection unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, response.SiteVerdictResponse{URL: req.URL, SiteVerdict: verdict})
}

func (h *Handler) HandleListProspects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"))
	if err != nil {
		h.writeJSONError(w, "page must be an integer", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		h.writeJSONError(w, "limit must be an integer", http.StatusBadRequest)
		return
	}
	filters := entity.ProspectFilters{
		Area:   q.Get("area"),
		Status: entity.ProspectStatus(q.Get("status")),
		Reason: q.Get("reason"),
		Search: q.Get("q"),
	}

	result, err := h.prospects.Query(r.Context(), filters, entity.PageRequest{Page: page, Limit: limit})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidStatus) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to query prospects", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGetProspect(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	prospect, err := h.prospects.Find(r.Context(), id)
	if err != nil {
		h.writeProspectError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, prospect)
}

func (h *Handler) HandleUpdateProspectStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req request.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	prospect, err := h.prospects.UpdateStatus(r.Context(), id, entity.ProspectStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		h.writeProspectError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, prospect)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeProspectError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.writeJSONError(w, "Prospect not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrInvalidStatus):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("prospect request failed", zap.String("id", id.String()), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSONError(w, "Invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
