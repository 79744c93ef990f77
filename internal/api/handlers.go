package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"artipub/internal/config"
	"artipub/internal/domain"
	"artipub/internal/publish"
	"artipub/internal/storage"
	appTemporal "artipub/internal/temporal"
)

// Ledger is the part of storage.PostgresStore the API reads and writes.
type Ledger interface {
	RecordPublication(ctx context.Context, id string, c domain.Coordinates, repository string) error
	GetPublication(ctx context.Context, id string) (domain.PublicationRecord, error)
	FindPublications(ctx context.Context, c domain.Coordinates, statuses ...domain.PublicationStatus) ([]string, error)
	MarkFailed(ctx context.Context, id string, reason string) error
	Ping(ctx context.Context) error
}

// WorkflowClient is satisfied by client.Client.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type Handler struct {
	cfg            config.Config
	ledger         Ledger
	temporalClient WorkflowClient
	logger         zerolog.Logger
}

type publishRequest struct {
	Repository  string             `json:"repository"`
	Publication domain.Publication `json:"publication"`
}

type publishResponse struct {
	ID         string                   `json:"id"`
	WorkflowID string                   `json:"workflow_id"`
	Status     domain.PublicationStatus `json:"status"`
}

func NewHandler(cfg config.Config, ledger Ledger, temporalClient WorkflowClient, logger zerolog.Logger) *Handler {
	return &Handler{cfg: cfg, ledger: ledger, temporalClient: temporalClient, logger: logger}
}

func (h *Handler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req publishRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	if _, ok := h.cfg.Repository(req.Repository); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("repository '%s' is not configured", req.Repository)})
		return
	}
	if err := publish.Validate(req.Publication); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":        "invalid publication",
			"failed_rules": domain.ValidatePublication(req.Publication).FailedRules,
		})
		return
	}

	// Release versions are immutable once a publication has been accepted
	// for them; snapshots may be republished.
	if !req.Publication.Coordinates.IsSnapshot() {
		existing, err := h.ledger.FindPublications(ctx, req.Publication.Coordinates,
			domain.StatusPending, domain.StatusUploading, domain.StatusPublished)
		if err != nil {
			h.logger.Error().Err(err).Msg("find publications")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to check existing publications"})
			return
		}
		if len(existing) > 0 {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": fmt.Sprintf("%s is already published or in progress", req.Publication.Coordinates),
				"id":    existing[0],
			})
			return
		}
	}

	id := uuid.NewString()
	if err := h.ledger.RecordPublication(ctx, id, req.Publication.Coordinates, req.Repository); err != nil {
		h.logger.Error().Err(err).Str("publication_id", id).Msg("record publication")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to record publication"})
		return
	}

	workflowID := h.workflowID(id)
	_, err := h.temporalClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.cfg.TemporalTaskQueue,
	}, appTemporal.PublishWorkflowName, appTemporal.WorkflowInput{
		PublicationID: id,
		Repository:    req.Repository,
		Publication:   req.Publication,
	})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "publication already running", "workflow_id": workflowID})
			return
		}
		h.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("start publish workflow")
		// Nothing will run this publication, so it must not hold the version.
		if markErr := h.ledger.MarkFailed(ctx, id, "start workflow: "+err.Error()); markErr != nil {
			h.logger.Error().Err(markErr).Str("publication_id", id).Msg("mark publication failed")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to start workflow"})
		return
	}

	h.logger.Info().
		Str("publication_id", id).
		Str("coordinates", req.Publication.Coordinates.String()).
		Str("repository", req.Repository).
		Msg("publication accepted")
	writeJSON(w, http.StatusAccepted, publishResponse{ID: id, WorkflowID: workflowID, Status: domain.StatusPending})
}

// ListPublications answers GET /v1/publications?coordinates=g:a:v[&status=S]...
func (h *Handler) ListPublications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := domain.ParseCoordinates(r.URL.Query().Get("coordinates"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	var statuses []domain.PublicationStatus
	for _, st := range r.URL.Query()["status"] {
		statuses = append(statuses, domain.PublicationStatus(st))
	}

	ids, err := h.ledger.FindPublications(ctx, c, statuses...)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list publications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coordinates": c.String(), "ids": ids})
}

func (h *Handler) GetPublication(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.ledger.GetPublication(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrPublicationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "publication not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch publication"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetProgress asks the running workflow which stage it is in. Finished
// workflows still answer from their final state while Temporal retains them.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	value, err := h.temporalClient.QueryWorkflow(ctx, h.workflowID(id), "", appTemporal.ProgressQueryName)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "workflow not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to query workflow"})
		return
	}

	var progress appTemporal.Progress
	if err := value.Get(&progress); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to decode progress"})
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.ledger.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) workflowID(id string) string {
	return fmt.Sprintf("%s-%s", h.cfg.WorkflowIDPrefix, id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
