package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"quantship-deployment/internal/config"
	"quantship-deployment/internal/database"
	"quantship-deployment/internal/logger"
	"quantship-deployment/internal/models"
)

// Deployer runs one deployment and produces its terminal result.
type Deployer interface {
	Run(ctx context.Context, runID string, spec *config.Spec) models.DeploymentResult
}

type Handler struct {
	db       *sql.DB
	config   *config.Config
	baseSpec *config.Spec
	deployer Deployer
	log      *logrus.Entry

	// mu serializes runs: at most one deployment may be in flight
	// against the target host's service at a time.
	mu sync.Mutex
}

func NewHandler(db *sql.DB, cfg *config.Config, baseSpec *config.Spec, deployer Deployer) *Handler {
	return &Handler{
		db:       db,
		config:   cfg,
		baseSpec: baseSpec,
		deployer: deployer,
		log:      logger.WithModule("handlers"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (h *Handler) Deploy(w http.ResponseWriter, r *http.Request) {
	var req models.DeploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if !models.ValidTag(req.Version) {
		http.Error(w, "Invalid version tag", http.StatusBadRequest)
		return
	}

	if req.Artifact != "" && req.Artifact != h.baseSpec.Artifact {
		http.Error(w, "Unknown artifact", http.StatusBadRequest)
		return
	}

	// Copy the base spec with the requested version; the spec value
	// handed to the run is never mutated afterwards.
	spec := *h.baseSpec
	spec.Version = req.Version

	runID := uuid.NewString()

	if err := database.InsertDeployment(h.db, runID, spec.Artifact, spec.Version, models.StatusPending); err != nil {
		h.log.WithError(err).Error("Failed to record deployment")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	go h.execute(runID, &spec)

	response := models.DeploymentResponse{
		Status:  models.StatusPending,
		RunID:   runID,
		Version: spec.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) execute(runID string, spec *config.Spec) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := database.UpdateDeploymentStatus(h.db, runID, models.StatusRunning); err != nil {
		h.log.WithError(err).Warn("Failed to mark deployment running")
	}

	result := h.deployer.Run(context.Background(), runID, spec)

	if err := database.RecordResult(h.db, result); err != nil {
		h.log.WithError(err).Error("Failed to record deployment result")
	}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["run_id"]

	deployment, err := database.GetDeployment(h.db, runID)
	if err != nil {
		http.Error(w, "Deployment not found", http.StatusNotFound)
		return
	}

	response := models.StatusResponse{
		Status:  deployment.Status,
		RunID:   deployment.RunID,
		Version: deployment.Version,
		Stage:   deployment.Stage,
		Message: deployment.Message,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
