package triage

import (
	"encoding/json"
	"net/http"

	"github.com/medreferral/medbot/pkg/logging"
)

// Handler exposes symptom analysis over HTTP.
type Handler struct {
	analyzer Analyzer
	logger   *logging.Logger
}

// NewHandler wires an analyzer behind the HTTP surface.
func NewHandler(analyzer Analyzer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{analyzer: analyzer, logger: logger.Component("triage")}
}

type analyzeRequest struct {
	Symptoms string `json:"symptoms"`
}

// Analyze handles POST /analyze_symptoms.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Symptoms == "" {
		http.Error(w, "symptoms required", http.StatusBadRequest)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.Symptoms)
	if err != nil {
		h.logger.Error("symptom analysis failed", "error", err)
		http.Error(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode analysis response", "error", err)
	}
}
