package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/export"
	"github.com/wonny/kassandra/internal/pipeline"
	"github.com/wonny/kassandra/pkg/logger"
)

// Predictor runs one prediction
type Predictor interface {
	Run(ctx context.Context, symbol, startDate, endDate string) (*pipeline.RunResult, error)
}

// FileResolver maps a requested download path into the output directory
type FileResolver interface {
	Resolve(requested string) (string, error)
}

// PredictHandler handles prediction and download endpoints
// ⭐ SSOT: 예측 API 핸들러는 이 구조체에서만
type PredictHandler struct {
	predictor Predictor
	repo      contracts.PredictionRepository
	files     FileResolver
	logger    *logger.Logger
}

// NewPredictHandler creates a new prediction handler
func NewPredictHandler(
	predictor Predictor,
	repo contracts.PredictionRepository,
	files FileResolver,
	log *logger.Logger,
) *PredictHandler {
	return &PredictHandler{
		predictor: predictor,
		repo:      repo,
		files:     files,
		logger:    log,
	}
}

// PredictRequest is the body of POST /api/predict
type PredictRequest struct {
	Stock     string `json:"stock"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Predict runs the pipeline and returns the prediction
// POST /api/predict
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Stock) == "" {
		respondError(w, http.StatusBadRequest, "stock is required")
		return
	}

	result, err := h.predictor.Run(r.Context(), req.Stock, req.StartDate, req.EndDate)
	if err != nil {
		status := statusFor(err)
		entry := h.logger.WithError(err).WithFields(map[string]interface{}{
			"stock":  req.Stock,
			"status": status,
		})
		if status >= http.StatusInternalServerError {
			entry.Error("Prediction failed")
		} else {
			entry.Warn("Prediction rejected")
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result.Prediction)
}

// Latest returns the most recent stored run of a symbol
// GET /api/predictions/{symbol}/latest
func (h *PredictHandler) Latest(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if h.repo == nil {
		respondError(w, http.StatusNotFound, "No prediction history configured")
		return
	}

	result, err := h.repo.LatestRun(r.Context(), symbol)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load latest run")
			respondError(w, status, "Failed to load latest prediction")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// DownloadFeatures serves a feature CSV
// GET /download/features?path=
func (h *PredictHandler) DownloadFeatures(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "features_")
}

// DownloadPredictions serves a prediction CSV
// GET /download/predictions?path=
func (h *PredictHandler) DownloadPredictions(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "predictions_")
}

func (h *PredictHandler) download(w http.ResponseWriter, r *http.Request, prefix string) {
	requested := r.URL.Query().Get("path")
	if requested == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	path, err := h.files.Resolve(requested)
	switch {
	case errors.Is(err, export.ErrOutsideOutputDir):
		respondError(w, http.StatusForbidden, "Access denied")
		return
	case errors.Is(err, os.ErrNotExist):
		respondError(w, http.StatusNotFound, "File not found")
		return
	case err != nil:
		h.logger.WithError(err).WithField("path", requested).Error("Failed to resolve download")
		respondError(w, http.StatusInternalServerError, "Failed to resolve file")
		return
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, prefix) || filepath.Ext(name) != ".csv" {
		respondError(w, http.StatusForbidden, "Access denied")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
