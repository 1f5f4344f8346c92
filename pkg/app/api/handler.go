package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/chainsafe/canton-cbtc/pkg/app/errors"
	apphttp "github.com/chainsafe/canton-cbtc/pkg/app/http"
	"github.com/chainsafe/canton-cbtc/pkg/resultstore"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// ReadyFunc reports whether a dependency can serve requests.
type ReadyFunc func(ctx context.Context) error

// Handler serves recorded runs and results.
type Handler struct {
	store  resultstore.Store
	logger *zap.Logger
}

// NewHandler creates a run query handler.
func NewHandler(store resultstore.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts the run query endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/runs", apphttp.HandleError(h.logger, h.listRuns))
	r.Get("/runs/{id}", apphttp.HandleError(h.logger, h.getRun))
	r.Get("/runs/{id}/results", apphttp.HandleError(h.logger, h.listResults))
	r.Get("/results", apphttp.HandleError(h.logger, h.resultByReference))
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) error {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunsLimit {
			return apperrors.BadRequestError(err, "limit must be between 1 and 500")
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		return apperrors.DependencyError(err, "failed to list runs")
	}
	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) error {
	run, err := h.lookupRun(r)
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusOK, run)
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) error {
	run, err := h.lookupRun(r)
	if err != nil {
		return err
	}

	results, err := h.store.ListResults(r.Context(), run.ID)
	if err != nil {
		return apperrors.DependencyError(err, "failed to list results")
	}
	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"results": results,
	})
}

func (h *Handler) resultByReference(w http.ResponseWriter, r *http.Request) error {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		return apperrors.BadRequestError(nil, "reference is required")
	}

	result, err := h.store.GetResultByReference(r.Context(), reference)
	if errors.Is(err, resultstore.ErrResultNotFound) {
		return apperrors.ResourceNotFoundError(err, "result not found")
	}
	if err != nil {
		return apperrors.DependencyError(err, "failed to get result")
	}
	return apphttp.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) lookupRun(r *http.Request) (*resultstore.Run, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid run id")
	}

	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, resultstore.ErrRunNotFound) {
		return nil, apperrors.ResourceNotFoundError(err, "run not found")
	}
	if err != nil {
		return nil, apperrors.DependencyError(err, "failed to get run")
	}
	return run, nil
}
